package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
	"Circle_Community/internal/repository/mysql"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// TokenStore 登录态存储
type TokenStore interface {
	Save(ctx context.Context, userID uint64, token string) error
	Delete(ctx context.Context, userID uint64) error
}

// UserService 用户目录：注册登录、用户名与 id 的互相转换
type UserService struct {
	repo     *mysql.UserRepository
	tokens   TokenStore
	adminKey string
}

func NewUserService(db *gorm.DB, tokens TokenStore, adminKey string) *UserService {
	return &UserService{
		repo:     &mysql.UserRepository{DB: db},
		tokens:   tokens,
		adminKey: adminKey,
	}
}

// Register 注册；携带正确 adminKey 的账号为管理员
func (s *UserService) Register(ctx context.Context, username, password, email, adminKey string) (*model.User, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password too short", pkg.ErrValidation)
	}
	role := model.RoleUser
	if adminKey != "" {
		if s.adminKey == "" || adminKey != s.adminKey {
			return nil, fmt.Errorf("%w: invalid admin key", pkg.ErrForbidden)
		}
		role = model.RoleAdmin
	}
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: username already taken", pkg.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username: username,
		Password: string(hash),
		Email:    email,
		Role:     role,
	}
	if err = s.repo.Create(ctx, user); err != nil {
		return nil, s.duplicated(ctx, err, username)
	}
	return user, nil
}

func normalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > 32 {
		return "", fmt.Errorf("%w: username must be 1-32 characters", pkg.ErrValidation)
	}
	return username, nil
}

// duplicated 并发注册/改名撞唯一索引时转成 ErrConflict
// sqlite 驱动不翻译唯一约束错误，回查一次用户名
func (s *UserService) duplicated(ctx context.Context, err error, username string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: username already taken", pkg.ErrConflict)
	}
	if _, findErr := s.repo.FindByUsername(ctx, username); findErr == nil {
		return fmt.Errorf("%w: username already taken", pkg.ErrConflict)
	}
	return err
}

func (s *UserService) Login(ctx context.Context, username, password string) (*pkg.Pair, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, user.ID, user.Username, user.Role)
}

// 生成 token 对并把 access 写入 redis
func (s *UserService) issue(ctx context.Context, userID uint64, username string, role int) (*pkg.Pair, error) {
	pair, err := pkg.GeneratePair(userID, username, role)
	if err != nil {
		return nil, err
	}
	if err = s.tokens.Save(ctx, userID, pair.AccessToken); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	return s.tokens.Delete(ctx, userID)
}

// Refresh 利用 refresh token 换新的 token 对，角色以库中为准
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	claims, err := pkg.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, pkg.ErrRefreshInvalid
	}
	return s.issue(ctx, user.ID, user.Username, user.Role)
}

// ChangePassword 登录态修改密码，成功后强制下线
func (s *UserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password too short", pkg.ErrValidation)
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return fmt.Errorf("%w: old password is incorrect", pkg.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err = s.repo.UpdatePassword(ctx, user, string(hash)); err != nil {
		return err
	}
	return s.Logout(ctx, userID)
}

// UpdateUsername 修改用户名并重新签发 token（claims 中带用户名）
// 关注、请求、私信都按 id 关联，改名后保持不变
func (s *UserService) UpdateUsername(ctx context.Context, actor model.Actor, username string) (*pkg.Pair, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}
	user, err := s.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if user.Username == username {
		return nil, fmt.Errorf("%w: username unchanged", pkg.ErrValidation)
	}
	if _, err = s.repo.FindByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: username already taken", pkg.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	ok, err := s.repo.UpdateUsername(ctx, user.ID, username)
	if err != nil {
		return nil, s.duplicated(ctx, err, username)
	}
	if !ok {
		return nil, fmt.Errorf("%w: user not found", pkg.ErrNotFound)
	}
	return s.issue(ctx, user.ID, username, user.Role)
}

// Delete 注销账号：清理社交数据并结束会话
func (s *UserService) Delete(ctx context.Context, userID uint64) error {
	ok, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user not found", pkg.ErrNotFound)
	}
	return s.Logout(ctx, userID)
}

// List 用户目录
func (s *UserService) List(ctx context.Context, cursor uint64, limit int) ([]model.User, uint64, error) {
	return s.repo.List(ctx, cursor, limit)
}

func (s *UserService) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user not found", pkg.ErrNotFound)
	}
	return user, err
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %q not found", pkg.ErrNotFound, username)
	}
	return user, err
}

// ResolveUsername 用户名 -> id，不存在时 ErrNotFound
func (s *UserService) ResolveUsername(ctx context.Context, username string) (uint64, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

// UsernamesByIDs id -> username，保持输入顺序，查不到的 id 跳过
func (s *UserService) UsernamesByIDs(ctx context.Context, ids []uint64) ([]string, error) {
	m, err := s.UsernameMap(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := m[id]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *UserService) UsernameMap(ctx context.Context, ids []uint64) (map[uint64]string, error) {
	users, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	m := make(map[uint64]string, len(users))
	for _, u := range users {
		m[u.ID] = u.Username
	}
	return m, nil
}
