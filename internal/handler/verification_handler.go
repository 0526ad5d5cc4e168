package handler

import (
	"context"
	"net/http"
	"time"

	"Circle_Community/internal/model"
	"Circle_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type VerificationHandler struct {
	svc   *service.VerificationService
	users *service.UserService
}

func NewVerificationHandler(svc *service.VerificationService, users *service.UserService) *VerificationHandler {
	return &VerificationHandler{svc: svc, users: users}
}

type verificationView struct {
	Username    string    `json:"username"`
	Credentials string    `json:"credentials"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type verifiedView struct {
	Username   string    `json:"username"`
	ApprovedBy string    `json:"approved_by"`
	VerifiedAt time.Time `json:"verified_at"`
}

// CreateRequest 提交认证申请
func (h *VerificationHandler) CreateRequest(c *gin.Context) {
	var req struct {
		Credentials string `json:"credentials"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	actor := actorFromCtx(c)
	vr, err := h.svc.CreateRequest(c.Request.Context(), actor, req.Credentials)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, verificationView{
		Username:    actor.Username,
		Credentials: vr.Credentials,
		Status:      vr.Status,
		CreatedAt:   vr.CreatedAt,
		UpdatedAt:   vr.UpdatedAt,
	})
}

// ViewOwn 查看自己的申请
func (h *VerificationHandler) ViewOwn(c *gin.Context) {
	actor := actorFromCtx(c)
	vr, err := h.svc.GetOwnRequest(c.Request.Context(), actor)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, verificationView{
		Username:    actor.Username,
		Credentials: vr.Credentials,
		Status:      vr.Status,
		CreatedAt:   vr.CreatedAt,
		UpdatedAt:   vr.UpdatedAt,
	})
}

// Status 公开查询认证状态
func (h *VerificationHandler) Status(c *gin.Context) {
	user, err := h.users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": user.Username, "verified": h.svc.IsVerified(c.Request.Context(), user.ID)})
}

func (h *VerificationHandler) Approve(c *gin.Context) {
	h.review(c, h.svc.Approve)
}

func (h *VerificationHandler) Reject(c *gin.Context) {
	h.review(c, h.svc.Reject)
}

// Revoke 撤销已认证用户
func (h *VerificationHandler) Revoke(c *gin.Context) {
	h.review(c, h.svc.DeleteVerified)
}

func (h *VerificationHandler) review(c *gin.Context, op func(ctx context.Context, actor model.Actor, userID uint64) error) {
	userID, err := h.users.ResolveUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondErr(c, err)
		return
	}
	if err = op(c.Request.Context(), actorFromCtx(c), userID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// ListPending 管理员查看待审核申请
func (h *VerificationHandler) ListPending(c *gin.Context) {
	cursor, limit := pageParams(c)
	rows, next, err := h.svc.ListPendingRequests(c.Request.Context(), actorFromCtx(c), cursor, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	ids := make([]uint64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	names, err := h.users.UsernameMap(c.Request.Context(), ids)
	if err != nil {
		respondErr(c, err)
		return
	}
	list := make([]verificationView, 0, len(rows))
	for _, r := range rows {
		list = append(list, verificationView{
			Username:    names[r.UserID],
			Credentials: r.Credentials,
			Status:      r.Status,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "next_cursor": next})
}

// ListVerified 管理员查看已认证用户
func (h *VerificationHandler) ListVerified(c *gin.Context) {
	cursor, limit := pageParams(c)
	rows, next, err := h.svc.ListVerified(c.Request.Context(), actorFromCtx(c), cursor, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	ids := make([]uint64, 0, len(rows)*2)
	for _, r := range rows {
		ids = append(ids, r.UserID, r.ApprovedBy)
	}
	names, err := h.users.UsernameMap(c.Request.Context(), ids)
	if err != nil {
		respondErr(c, err)
		return
	}
	list := make([]verifiedView, 0, len(rows))
	for _, r := range rows {
		list = append(list, verifiedView{Username: names[r.UserID], ApprovedBy: names[r.ApprovedBy], VerifiedAt: r.CreatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "next_cursor": next})
}
