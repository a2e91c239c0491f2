package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Count of HTTP requests"},
		[]string{"path", "method", "status"},
	)
	// 被行级策略拒绝的请求（业务码 403）
	httpDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_policy_denied_total", Help: "Requests rejected by row policies"},
		[]string{"path", "method"},
	)
	// 因限流、排队超时或处理超时被挡下的请求
	httpShed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_shed_total", Help: "Requests shed by load protection"},
		[]string{"reason"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"},
	)
)

func init() { prometheus.MustRegister(httpReqTotal, httpLatency, httpDenied, httpShed) }

// Metrics 按路由模板打点
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		httpReqTotal.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
		if c.GetBool(KeyPolicyDenied) {
			httpDenied.WithLabelValues(path, c.Request.Method).Inc()
		}
	}
}
