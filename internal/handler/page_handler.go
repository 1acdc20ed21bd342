package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"nova-chat/web"
)

// Index 返回聊天组件页面。
func Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
}
