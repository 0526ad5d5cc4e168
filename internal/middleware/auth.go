package middleware

import (
	"context"
	"net/http"
	"strings"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey = "user_id"
	ContextActorKey  = "actor"
)

// TokenVerifier 会话 token 存储，redis 实现见 repository/redis.TokenRepository
type TokenVerifier interface {
	Get(ctx context.Context, userID uint64) (string, error)
	Extend(ctx context.Context, userID uint64) error
}

func bearer(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware 解析 access token，校验 redis 中的登录态并注入 Actor
func AuthMiddleware(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing authorization header"})
			return
		}
		tokenStr, ok := bearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid authorization format"})
			return
		}

		claims, err := pkg.ParseAccess(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid or expired token"})
			return
		}

		// redis校验是否是正确的token
		origin, err := tokens.Get(c.Request.Context(), claims.UserID)
		if err != nil || origin != tokenStr {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "Account has been logging elsewhere"})
			return
		}

		if err = tokens.Extend(c.Request.Context(), claims.UserID); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextActorKey, model.Actor{UserID: claims.UserID, Username: claims.Username, Role: claims.Role})
		c.Next()
	}
}

// GuestOnly 已登录用户不能访问（注册、登录）
// 只有与 redis 中登录态一致的 token 才算已登录，登出或被顶掉的旧 token 按游客处理
func GuestOnly(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr, ok := bearer(c); ok {
			if claims, err := pkg.ParseAccess(tokenStr); err == nil {
				if origin, err := tokens.Get(c.Request.Context(), claims.UserID); err == nil && origin == tokenStr {
					c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"msg": "already logged in"})
					return
				}
			}
		}
		c.Next()
	}
}

// AdminOnly 需在 AuthMiddleware 之后使用；业务层仍会再次校验
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok || !actor.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"msg": "admin only"})
			return
		}
		c.Next()
	}
}

// ActorFrom 读取当前请求的操作者
func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(ContextActorKey)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}
