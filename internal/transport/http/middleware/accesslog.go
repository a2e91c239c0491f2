package middleware

import (
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 记录到日志前需要打码的 query key
var sensitiveQuery = map[string]struct{}{
	"token": {}, "access_token": {}, "refresh_token": {},
	"apikey": {}, "secret": {}, "authorization": {},
}

type sizeWriter struct {
	gin.ResponseWriter
	size int
}

func (w *sizeWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func maskQuery(q url.Values) map[string][]string {
	out := make(map[string][]string, len(q))
	for k, v := range q {
		if _, ok := sensitiveQuery[strings.ToLower(k)]; ok {
			out[k] = []string{"****"}
			continue
		}
		out[k] = v
	}
	return out
}

// AccessLog 每个请求一行；处理器挂到 c.Errors 上的内部错误升为 Error 级别
func AccessLog(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		w := &sizeWriter{ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		fields := []zap.Field{
			zap.String("rid", c.GetString(KeyRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", w.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("ua", c.Request.UserAgent()),
			zap.Any("query", maskQuery(c.Request.URL.Query())),
			zap.Int("size", w.size),
		}
		if id := c.GetString(KeyAuthID); id != "" {
			fields = append(fields, zap.String("auth_id", id))
		}
		if c.GetBool(KeyPolicyDenied) {
			fields = append(fields, zap.Bool("denied", true))
		}
		if len(c.Errors) > 0 {
			l.Error("HTTP", append(fields, zap.Strings("errors", c.Errors.Errors()))...)
			return
		}
		l.Info("HTTP", fields...)
	}
}
