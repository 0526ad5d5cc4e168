package handler

import (
	"errors"
	"net/http"
	"time"

	"Circle_Community/internal/pkg"
	"Circle_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc      *service.UserService
	verifier *service.VerificationService
}

// RegisterReq 注册请求体，admin_key 正确时注册为管理员
type RegisterReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email"`
	AdminKey string `json:"admin_key"`
}

type ChangePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func NewUserHandler(svc *service.UserService, verifier *service.VerificationService) *UserHandler {
	return &UserHandler{svc: svc, verifier: verifier}
}

// Register 注册接口
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req.Username, req.Password, req.Email, req.AdminKey)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"username": user.Username, "role": roleName(user.Role)})
}

// Login 登录接口
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": err.Error()})
		return
	}
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, token)
}

func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), actorFromCtx(c).UserID); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "logout failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// TokenRefresh 利用refresh来更新access
func (h *UserHandler) TokenRefresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}

	token, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	switch {
	case errors.Is(err, pkg.ErrRefreshExpired), errors.Is(err, pkg.ErrRefreshInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"msg": err.Error()})
		return
	case err != nil:
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, token)
}

// Session 当前登录用户
func (h *UserHandler) Session(c *gin.Context) {
	actor := actorFromCtx(c)
	user, err := h.svc.GetByID(c.Request.Context(), actor.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"username":        user.Username,
		"email":           user.Email,
		"role":            roleName(user.Role),
		"verified":        h.verifier.IsVerified(c.Request.Context(), user.ID),
		"follower_count":  user.FollowerCount,
		"following_count": user.FollowingCount,
	})
}

// Profile 按用户名查看公开信息
func (h *UserHandler) Profile(c *gin.Context) {
	user, err := h.svc.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"username":        user.Username,
		"role":            roleName(user.Role),
		"verified":        h.verifier.IsVerified(c.Request.Context(), user.ID),
		"follower_count":  user.FollowerCount,
		"following_count": user.FollowingCount,
	})
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), actorFromCtx(c).UserID, req.OldPassword, req.NewPassword); err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "change password successfully"})
}

type userView struct {
	Username       string    `json:"username"`
	Role           string    `json:"role"`
	FollowerCount  int64     `json:"follower_count"`
	FollowingCount int64     `json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// List 用户目录
func (h *UserHandler) List(c *gin.Context) {
	cursor, limit := pageParams(c)
	users, next, err := h.svc.List(c.Request.Context(), cursor, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	list := make([]userView, 0, len(users))
	for _, u := range users {
		list = append(list, userView{
			Username:       u.Username,
			Role:           roleName(u.Role),
			FollowerCount:  u.FollowerCount,
			FollowingCount: u.FollowingCount,
			CreatedAt:      u.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "next_cursor": next})
}

// UpdateUsername 改名，返回新签发的 token
func (h *UserHandler) UpdateUsername(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}

	token, err := h.svc.UpdateUsername(c.Request.Context(), actorFromCtx(c), req.Username)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, token)
}

// Delete 注销当前账号并结束会话
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actorFromCtx(c).UserID); err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}
