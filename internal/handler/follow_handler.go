package handler

import (
	"net/http"
	"time"

	"Circle_Community/internal/model"
	"Circle_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type FollowHandler struct {
	svc   *service.FollowService
	users *service.UserService
}

func NewFollowHandler(svc *service.FollowService, users *service.UserService) *FollowHandler {
	return &FollowHandler{svc: svc, users: users}
}

type requestView struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// target 路径中的用户名 -> id
func (h *FollowHandler) target(c *gin.Context) (uint64, bool) {
	id, err := h.users.ResolveUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondErr(c, err)
		return 0, false
	}
	return id, true
}

// SendRequest 发起关注请求
func (h *FollowHandler) SendRequest(c *gin.Context) {
	to, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.svc.SendRequest(c.Request.Context(), actorFromCtx(c).UserID, to); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"msg": "ok"})
}

// RemoveRequest 撤回自己发出的请求
func (h *FollowHandler) RemoveRequest(c *gin.Context) {
	to, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.svc.RemoveRequest(c.Request.Context(), actorFromCtx(c).UserID, to); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// AcceptRequest 同意 :username 的关注请求
func (h *FollowHandler) AcceptRequest(c *gin.Context) {
	from, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.svc.AcceptRequest(c.Request.Context(), from, actorFromCtx(c).UserID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

func (h *FollowHandler) RejectRequest(c *gin.Context) {
	from, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.svc.RejectRequest(c.Request.Context(), from, actorFromCtx(c).UserID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// RemoveFollower 移除粉丝
func (h *FollowHandler) RemoveFollower(c *gin.Context) {
	other, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.svc.RemoveFollower(c.Request.Context(), actorFromCtx(c).UserID, other); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// RemoveFollowing 取消关注
func (h *FollowHandler) RemoveFollowing(c *gin.Context) {
	other, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.svc.RemoveFollowing(c.Request.Context(), actorFromCtx(c).UserID, other); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// ListFollowers 获取粉丝列表
func (h *FollowHandler) ListFollowers(c *gin.Context) {
	cursor, limit := pageParams(c)
	ids, next, err := h.svc.GetFollowers(c.Request.Context(), actorFromCtx(c).UserID, cursor, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	h.writeNames(c, ids, next)
}

// ListFollowings 获取关注列表
func (h *FollowHandler) ListFollowings(c *gin.Context) {
	cursor, limit := pageParams(c)
	ids, next, err := h.svc.GetFollowing(c.Request.Context(), actorFromCtx(c).UserID, cursor, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	h.writeNames(c, ids, next)
}

func (h *FollowHandler) writeNames(c *gin.Context, ids []uint64, next uint64) {
	names, err := h.users.UsernamesByIDs(c.Request.Context(), ids)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": names, "next_cursor": next})
}

// ListRequests 收到的待处理请求
func (h *FollowHandler) ListRequests(c *gin.Context) {
	cursor, limit := pageParams(c)
	rows, next, err := h.svc.GetRequests(c.Request.Context(), actorFromCtx(c).UserID, cursor, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	h.writeRequests(c, rows, next, func(r model.FollowRequest) uint64 { return r.FromID })
}

// ListSentRequests 自己发出的待处理请求
func (h *FollowHandler) ListSentRequests(c *gin.Context) {
	cursor, limit := pageParams(c)
	rows, next, err := h.svc.GetSentRequests(c.Request.Context(), actorFromCtx(c).UserID, cursor, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	h.writeRequests(c, rows, next, func(r model.FollowRequest) uint64 { return r.ToID })
}

func (h *FollowHandler) writeRequests(c *gin.Context, rows []model.FollowRequest, next uint64, other func(model.FollowRequest) uint64) {
	ids := make([]uint64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, other(r))
	}
	names, err := h.users.UsernameMap(c.Request.Context(), ids)
	if err != nil {
		respondErr(c, err)
		return
	}
	list := make([]requestView, 0, len(rows))
	for _, r := range rows {
		if name, ok := names[other(r)]; ok {
			list = append(list, requestView{Username: name, CreatedAt: r.CreatedAt})
		}
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "next_cursor": next})
}

// Relation 获取用户间关系
func (h *FollowHandler) Relation(c *gin.Context) {
	other, ok := h.target(c)
	if !ok {
		return
	}
	rel, err := h.svc.Relation(c.Request.Context(), actorFromCtx(c).UserID, other)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rel)
}
