package router

import (
	"net/http"

	"Circle_Community/internal/handler"
	"Circle_Community/internal/middleware"
	"Circle_Community/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Capability 路由访问权限
type Capability int

const (
	Public Capability = iota
	Guest
	User
	Admin
)

func (c Capability) String() string {
	switch c {
	case Guest:
		return "guest"
	case User:
		return "user"
	case Admin:
		return "admin"
	default:
		return "public"
	}
}

type route struct {
	Method     string
	Path       string
	Capability Capability
	Extra      []gin.HandlerFunc
	Handler    gin.HandlerFunc
}

// Deps 构建路由需要的服务
type Deps struct {
	Users         *service.UserService
	Follows       *service.FollowService
	Verifications *service.VerificationService
	Messages      *service.MessageService
	Tokens        middleware.TokenVerifier
	SendLimiter   *middleware.RateLimiter
	Log           logrus.FieldLogger
}

func routes(d Deps) []route {
	user := handler.NewUserHandler(d.Users, d.Verifications)
	follow := handler.NewFollowHandler(d.Follows, d.Users)
	verify := handler.NewVerificationHandler(d.Verifications, d.Users)
	message := handler.NewMessageHandler(d.Messages, d.Users)

	var sendLimit []gin.HandlerFunc
	if d.SendLimiter != nil {
		sendLimit = append(sendLimit, d.SendLimiter.Handler())
	}

	return []route{
		// 用户与会话
		{Method: http.MethodPost, Path: "/api/users", Capability: Guest, Handler: user.Register},
		{Method: http.MethodPost, Path: "/api/login", Capability: Guest, Handler: user.Login},
		{Method: http.MethodPost, Path: "/api/logout", Capability: User, Handler: user.Logout},
		{Method: http.MethodPost, Path: "/api/token/refresh", Capability: Public, Handler: user.TokenRefresh},
		{Method: http.MethodGet, Path: "/api/session", Capability: User, Handler: user.Session},
		{Method: http.MethodPut, Path: "/api/session/password", Capability: User, Handler: user.ChangePassword},
		{Method: http.MethodGet, Path: "/api/users", Capability: Public, Handler: user.List},
		{Method: http.MethodGet, Path: "/api/users/:username", Capability: Public, Handler: user.Profile},
		{Method: http.MethodPatch, Path: "/api/users/username", Capability: User, Handler: user.UpdateUsername},
		{Method: http.MethodPatch, Path: "/api/users/password", Capability: User, Handler: user.ChangePassword},
		{Method: http.MethodDelete, Path: "/api/users", Capability: User, Handler: user.Delete},

		// 关注
		{Method: http.MethodGet, Path: "/api/follow/followers", Capability: User, Handler: follow.ListFollowers},
		{Method: http.MethodGet, Path: "/api/follow/following", Capability: User, Handler: follow.ListFollowings},
		{Method: http.MethodDelete, Path: "/api/follow/follower/:username", Capability: User, Handler: follow.RemoveFollower},
		{Method: http.MethodDelete, Path: "/api/follow/following/:username", Capability: User, Handler: follow.RemoveFollowing},
		{Method: http.MethodGet, Path: "/api/follow/requests", Capability: User, Handler: follow.ListRequests},
		{Method: http.MethodGet, Path: "/api/follow/requests/sent", Capability: User, Handler: follow.ListSentRequests},
		{Method: http.MethodPost, Path: "/api/follow/requests/:username", Capability: User, Handler: follow.SendRequest},
		{Method: http.MethodDelete, Path: "/api/follow/requests/:username", Capability: User, Handler: follow.RemoveRequest},
		{Method: http.MethodPut, Path: "/api/follow/accept/:username", Capability: User, Handler: follow.AcceptRequest},
		{Method: http.MethodPut, Path: "/api/follow/reject/:username", Capability: User, Handler: follow.RejectRequest},
		{Method: http.MethodGet, Path: "/api/follow/relation/:username", Capability: User, Handler: follow.Relation},

		// 身份认证
		{Method: http.MethodPost, Path: "/api/verification/request", Capability: User, Handler: verify.CreateRequest},
		{Method: http.MethodGet, Path: "/api/verification/status/:username", Capability: Public, Handler: verify.Status},
		{Method: http.MethodGet, Path: "/api/verification/requests/view", Capability: User, Handler: verify.ViewOwn},
		{Method: http.MethodGet, Path: "/api/verification/requests", Capability: Admin, Handler: verify.ListPending},
		{Method: http.MethodGet, Path: "/api/verification/verified", Capability: Admin, Handler: verify.ListVerified},
		{Method: http.MethodPost, Path: "/api/verification/approve/:username", Capability: Admin, Handler: verify.Approve},
		{Method: http.MethodDelete, Path: "/api/verification/reject/:username", Capability: Admin, Handler: verify.Reject},
		{Method: http.MethodDelete, Path: "/api/verification/verified/:username", Capability: Admin, Handler: verify.Revoke},

		// 私信
		{Method: http.MethodGet, Path: "/api/messages", Capability: User, Handler: message.List},
		{Method: http.MethodGet, Path: "/api/messages/:username", Capability: User, Handler: message.Conversation},
		{Method: http.MethodPost, Path: "/api/messages/send", Capability: User, Extra: sendLimit, Handler: message.Send},
		{Method: http.MethodDelete, Path: "/api/messages/:id", Capability: User, Handler: message.Delete},
		{Method: http.MethodDelete, Path: "/api/messages", Capability: User, Handler: message.DeleteAt},
	}
}

func guard(capability Capability, tokens middleware.TokenVerifier) []gin.HandlerFunc {
	switch capability {
	case Guest:
		return []gin.HandlerFunc{middleware.GuestOnly(tokens)}
	case User:
		return []gin.HandlerFunc{middleware.AuthMiddleware(tokens)}
	case Admin:
		return []gin.HandlerFunc{middleware.AuthMiddleware(tokens), middleware.AdminOnly()}
	default:
		return nil
	}
}

func InitRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics())
	if d.Log != nil {
		r.Use(middleware.AccessLog(d.Log))
	}

	for _, rt := range routes(d) {
		chain := guard(rt.Capability, d.Tokens)
		chain = append(chain, rt.Extra...)
		chain = append(chain, rt.Handler)
		r.Handle(rt.Method, rt.Path, chain...)
		if d.Log != nil {
			d.Log.WithFields(logrus.Fields{"method": rt.Method, "path": rt.Path, "capability": rt.Capability.String()}).Debug("route registered")
		}
	}

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(middleware.Registry, promhttp.HandlerOpts{})))
	return r
}
