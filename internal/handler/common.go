package handler

import (
	"net/http"
	"strconv"

	"Circle_Community/internal/middleware"
	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"

	"github.com/gin-gonic/gin"
)

// respondErr 业务错误按类别返回，其余统一 500，原始错误挂到 gin 上由访问日志输出
func respondErr(c *gin.Context, err error) {
	_ = c.Error(err)
	status := pkg.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"msg": "internal error"})
		return
	}
	c.JSON(status, gin.H{"msg": err.Error()})
}

func actorFromCtx(c *gin.Context) model.Actor {
	actor, _ := middleware.ActorFrom(c)
	return actor
}

// pageParams ?cursor=&limit=，非法值按默认处理
func pageParams(c *gin.Context) (uint64, int) {
	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	return cursor, limit
}

func roleName(role int) string {
	if role >= model.RoleAdmin {
		return "admin"
	}
	return "user"
}
