package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"church-admin/internal/core/server"
	mdw "church-admin/internal/transport/http/middleware"
)

func NewAdminEngine(d Deps, mods *Registry) *gin.Engine {
	r := server.NewRouter(d.Log)
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(100, 2*time.Second),
		mdw.MaxBodyBytes(16<<20),
		mdw.Timeout(30*time.Second),
		mdw.Recovery(d.Log),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 管理端必须登录；service_role 令牌也可进入（运维任务）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.Identity(d.identity(false, true)), mdw.RequireAdmin(d.Security))
	mods.MountAllAdmin(admin)

	return r
}
