package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "church-admin/internal/transport/http/response"
)

// MaxBodyBytes 限制请求体大小；声明长度超限直接拒绝，分块上传读到上限时绑定失败
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeBadRequest, "request body too large"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
