package testutil

import (
	"path/filepath"
	"testing"

	"Circle_Community/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// OpenDB 每个测试一个临时 sqlite 文件库，已建表
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "circle_test.db")
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path + "?_pragma=busy_timeout(5000)",
	}, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite 单写者
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

// CreateUsers 按用户名建用户，返回 id
func CreateUsers(t testing.TB, db *gorm.DB, names ...string) []uint64 {
	t.Helper()
	ids := make([]uint64, 0, len(names))
	for _, name := range names {
		u := model.User{Username: name, Password: "x", Email: name + "@example.com"}
		require.NoError(t, db.Create(&u).Error)
		ids = append(ids, u.ID)
	}
	return ids
}
