package handler

import (
	"net/http"
	"strconv"
	"time"

	"Circle_Community/internal/model"
	"Circle_Community/internal/service"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	svc   *service.MessageService
	users *service.UserService
}

func NewMessageHandler(svc *service.MessageService, users *service.UserService) *MessageHandler {
	return &MessageHandler{svc: svc, users: users}
}

type messageView struct {
	ID        uint64    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *MessageHandler) views(c *gin.Context, msgs []model.Message) ([]messageView, error) {
	ids := make([]uint64, 0, len(msgs)*2)
	for _, m := range msgs {
		ids = append(ids, m.SenderID, m.RecipientID)
	}
	names, err := h.users.UsernameMap(c.Request.Context(), ids)
	if err != nil {
		return nil, err
	}
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageView{
			ID:        m.ID,
			From:      names[m.SenderID],
			To:        names[m.RecipientID],
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

// Send 发送私信
func (h *MessageHandler) Send(c *gin.Context) {
	var req struct {
		To      string `json:"to" binding:"required"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	to, err := h.users.ResolveUsername(c.Request.Context(), req.To)
	if err != nil {
		respondErr(c, err)
		return
	}
	msg, err := h.svc.Send(c.Request.Context(), actorFromCtx(c).UserID, to, req.Content)
	if err != nil {
		respondErr(c, err)
		return
	}
	views, err := h.views(c, []model.Message{*msg})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, views[0])
}

// List 当前用户收发的全部私信
func (h *MessageHandler) List(c *gin.Context) {
	msgs, err := h.svc.ListForUser(c.Request.Context(), actorFromCtx(c).UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	h.writeList(c, msgs)
}

// Conversation 与 :username 的会话
func (h *MessageHandler) Conversation(c *gin.Context) {
	other, err := h.users.ResolveUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondErr(c, err)
		return
	}
	msgs, err := h.svc.ListBetween(c.Request.Context(), actorFromCtx(c).UserID, other)
	if err != nil {
		respondErr(c, err)
		return
	}
	h.writeList(c, msgs)
}

func (h *MessageHandler) writeList(c *gin.Context, msgs []model.Message) {
	views, err := h.views(c, msgs)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": views})
}

// Delete 按 id 删除自己发出的私信
func (h *MessageHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid message id"})
		return
	}
	if err = h.svc.Delete(c.Request.Context(), actorFromCtx(c).UserID, id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

// DeleteAt 按 (接收者, 发送时间) 删除
func (h *MessageHandler) DeleteAt(c *gin.Context) {
	var req struct {
		To        string    `json:"to" binding:"required"`
		CreatedAt time.Time `json:"created_at" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	to, err := h.users.ResolveUsername(c.Request.Context(), req.To)
	if err != nil {
		respondErr(c, err)
		return
	}
	if err = h.svc.DeleteAt(c.Request.Context(), actorFromCtx(c).UserID, to, req.CreatedAt); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}
