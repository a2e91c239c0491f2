package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"church-admin/internal/core/server"
	"church-admin/internal/transport/http/handler"
	mdw "church-admin/internal/transport/http/middleware"
)

func NewAPIEngine(d Deps, mods *Registry) *gin.Engine {
	r := server.NewRouter(d.Log)
	r.Use(
		mdw.RequestID(),
		mdw.RateLimitPerIP(50, 100, 10*time.Minute),
		mdw.ConcurrencyLimit(300, 500*time.Millisecond),
		mdw.MaxBodyBytes(16<<20),
		mdw.Timeout(10*time.Second),
		mdw.Recovery(d.Log),
		mdw.Metrics(),
		mdw.SlowRequests(d.Performance, d.SlowRequest),
		mdw.AccessLog(d.Log),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })

	api := r.Group("/api/v1")

	// 身份提供方回调，不走令牌
	handler.NewIdentityHook(d.Syncer, d.WebhookSecret).Mount(api.Group("/hooks"))

	// 其余接口允许匿名：匿名调用方只能看到公开数据
	authed := api.Group("")
	authed.Use(mdw.Identity(d.identity(true, false)))
	mods.MountAllAPI(authed)

	return r
}
