package router

import (
	"time"

	"go.uber.org/zap"

	"church-admin/internal/core/auth"
	"church-admin/internal/feature/content"
	"church-admin/internal/feature/member"
	"church-admin/internal/feature/messaging"
	"church-admin/internal/feature/ministry"
	"church-admin/internal/feature/reports"
	"church-admin/internal/identity"
	"church-admin/internal/repo"
	"church-admin/internal/service"
	"church-admin/internal/transport/http/handler"
	mdw "church-admin/internal/transport/http/middleware"
)

// Deps 两个引擎共享的依赖
type Deps struct {
	Log         *zap.Logger
	Env         repo.Env
	JWT         *auth.JWTer
	Actors      *repo.ActorRepo
	Syncer      *identity.Syncer
	Security    *service.SecurityLog
	Settings    *service.Settings
	Retention   *service.Retention
	Performance *service.Performance

	WebhookSecret string
	SlowRequest   time.Duration
}

func (d Deps) identity(optional, allowService bool) mdw.IdentityOptions {
	return mdw.IdentityOptions{
		JWT:          d.JWT,
		Actors:       d.Actors,
		Syncer:       d.Syncer,
		Security:     d.Security,
		Log:          d.Log,
		Optional:     optional,
		AllowService: allowService,
	}
}

// Modules 全部业务模块
func Modules(d Deps) *Registry {
	r := &Registry{}
	r.Register(
		member.New(d.Env),
		ministry.New(d.Env),
		content.New(d.Env),
		messaging.New(d.Env),
		reports.New(d.Env),
		handler.NewAdmin(d.Env, d.Settings, d.Retention, d.Performance, d.Security),
	)
	return r
}
