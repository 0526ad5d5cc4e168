package mysql

import "gorm.io/gorm"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > MaxPageSize {
		return DefaultPageSize
	}
	return limit
}

// pageByID 游标分页：id 倒序，多取一条用于判断是否还有下一页
func pageByID[T any](q *gorm.DB, cursor uint64, limit int, id func(T) uint64) ([]T, uint64, error) {
	limit = normalizeLimit(limit)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var rows []T
	if err := q.Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	var next uint64
	if len(rows) > limit {
		next = id(rows[limit-1])
		rows = rows[:limit]
	}
	return rows, next, nil
}
