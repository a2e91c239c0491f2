package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"church-admin/internal/service"
)

// SlowRequests 超过阈值的请求写入 performance_logs
func SlowRequests(p *service.Performance, threshold time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		d := time.Since(start)
		if d < threshold {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		p.Record(c.Request.Context(), c.Request.Method+" "+route, c.Request.Method, c.Writer.Status(), d)
	}
}
