package app

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"church-admin/internal/audit"
	"church-admin/internal/core/auth"
	"church-admin/internal/core/cache"
	"church-admin/internal/core/config"
	"church-admin/internal/core/database"
	"church-admin/internal/core/logger"
	"church-admin/internal/identity"
	"church-admin/internal/policy"
	"church-admin/internal/repo"
	"church-admin/internal/service"
	"church-admin/internal/transport/http/router"
)

// MustOpenDB 失败直接 Fatal
func MustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			l.Fatal("automigrate failed", zap.Error(err))
		}
		l.Info("automigrate done")
	}
	return db
}

// PolicyTable 默认策略表，再按配置停用
func PolicyTable(cfg *config.Config, l *zap.Logger) *policy.Table {
	t := policy.Default()
	for _, name := range cfg.Policy.Disabled {
		if !t.SetEnabled(name, false) {
			l.Warn("unknown policy in config", zap.String("policy", name))
			continue
		}
		l.Warn("policy disabled by config", zap.String("policy", name))
	}
	return t
}

// Wire 组装两个引擎共享的依赖；返回的 cleanup 关闭 Redis
func Wire(cfg *config.Config, l *zap.Logger, db *gorm.DB) (router.Deps, func()) {
	env := repo.Env{
		DB:    db,
		Table: PolicyTable(cfg, l),
		Audit: audit.NewRecorder(db, l.Named("audit"), cfg.Audit.Tables),
	}

	var c *cache.Cache
	cleanup := func() {}
	if cfg.Redis.Addr != "" {
		c = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		cleanup = func() { _ = c.Close() }
	} else {
		l.Info("redis disabled, settings read straight from db")
	}

	security := service.NewSecurityLog(db, l)
	settings := service.NewSettings(env, c)
	actors := repo.NewActorRepo(db)

	return router.Deps{
		Log: l,
		Env: env,
		JWT: &auth.JWTer{
			Secret: []byte(cfg.JWT.Secret),
			Issuer: cfg.JWT.Issuer,
			TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
		},
		Actors:        actors,
		Syncer:        identity.NewSyncer(actors, security, env.Audit, l.Named("identity")),
		Security:      security,
		Settings:      settings,
		Retention:     service.NewRetention(env, settings, cfg.Retention.DefaultDays, l.Named("retention")),
		Performance:   service.NewPerformance(db, env.Table, l),
		WebhookSecret: cfg.Identity.WebhookSecret,
		SlowRequest:   time.Duration(cfg.Retention.SlowRequestMS) * time.Millisecond,
	}, cleanup
}

// Logger 按配置构建，配置了文件时同时写切割文件
func Logger(cfg *config.Config) (*zap.Logger, func()) {
	return logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON, logger.FileRotate{
		Filename:   cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
}
