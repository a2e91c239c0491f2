package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"church-admin/internal/domain"
	"church-admin/internal/policy"
	"church-admin/internal/repo"
	"church-admin/internal/service"
	httpez "church-admin/internal/transport/http/ez"
	mdw "church-admin/internal/transport/http/middleware"
)

// Admin 系统设置、日志、性能、策略开关、保留期清理
type Admin struct {
	table       *policy.Table
	settings    *service.Settings
	retention   *service.Retention
	performance *service.Performance
	security    *service.SecurityLog
	securityLog *repo.Store[domain.SecurityLog]
	perfLog     *repo.Store[domain.PerformanceLog]
	auditLog    *repo.Store[domain.AuditLog]
}

func NewAdmin(env repo.Env, settings *service.Settings, retention *service.Retention,
	performance *service.Performance, security *service.SecurityLog) *Admin {
	return &Admin{
		table:       env.Table,
		settings:    settings,
		retention:   retention,
		performance: performance,
		security:    security,
		securityLog: repo.NewStore[domain.SecurityLog](env),
		perfLog:     repo.NewStore[domain.PerformanceLog](env),
		auditLog:    repo.NewStore[domain.AuditLog](env),
	}
}

func (a *Admin) Priority() int { return 90 }

type settingIn struct {
	Value       string `json:"value"`
	Description string `json:"description" binding:"omitempty,max=500"`
}

type slowQ struct {
	Hours int `form:"hours,default=24"`
	MinMS int `form:"minMs,default=1000"`
}

type policyIn struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (a *Admin) MountAdmin(g *gin.RouterGroup) {
	ez := httpez.New(g)

	// --- 系统设置 ---
	httpez.RegisterAction(ez, httpez.Action[struct{}, []domain.SystemSetting]{
		Method: http.MethodGet,
		Path:   "/settings",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, ac *policy.Context, _ *struct{}) ([]domain.SystemSetting, error) {
			items, _, err := a.settings.List(c.Request.Context(), ac, repo.Page{Limit: 100})
			return items, err
		},
	})
	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.SystemSetting]{
		Method: http.MethodGet,
		Path:   "/settings/:key",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, ac *policy.Context, _ *struct{}) (*domain.SystemSetting, error) {
			return a.settings.Get(c.Request.Context(), ac, c.Param("key"))
		},
	})
	httpez.RegisterAction(ez, httpez.Action[settingIn, *domain.SystemSetting]{
		Method: http.MethodPut,
		Path:   "/settings/:key",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, ac *policy.Context, in *settingIn) (*domain.SystemSetting, error) {
			key := strings.TrimSpace(c.Param("key"))
			if key == "" || len(key) > 100 {
				return nil, httpez.BadRequest("invalid key")
			}
			return a.settings.Set(c.Request.Context(), ac, key, in.Value, in.Description)
		},
	})
	httpez.RegisterAction(ez, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/settings/:key",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, ac *policy.Context, _ *struct{}) (gin.H, error) {
			key := c.Param("key")
			if err := a.settings.Delete(c.Request.Context(), ac, key); err != nil {
				return nil, err
			}
			return gin.H{"key": key}, nil
		},
	})

	// --- 日志：只读 + 删除 ---
	httpez.Crud(httpez.CrudConfig[domain.SecurityLog]{
		Store: a.securityLog, Group: g, Path: "/security-logs",
		AllowList: true, AllowGet: true, AllowDelete: true,
		Hooks: httpez.CrudHooks[domain.SecurityLog]{ScopeList: eq("event_type", "eventType", "severity", "severity")},
	})
	httpez.Crud(httpez.CrudConfig[domain.PerformanceLog]{
		Store: a.perfLog, Group: g, Path: "/performance-logs",
		AllowList: true, AllowGet: true, AllowDelete: true,
		Hooks: httpez.CrudHooks[domain.PerformanceLog]{ScopeList: eq("function_name", "route")},
	})
	httpez.Crud(httpez.CrudConfig[domain.AuditLog]{
		Store: a.auditLog, Group: g, Path: "/audit-logs",
		AllowList: true, AllowGet: true, AllowDelete: true,
		Hooks: httpez.CrudHooks[domain.AuditLog]{ScopeList: eq("table_name", "table", "record_id", "recordId", "operation", "operation")},
	})

	// --- 性能 ---
	httpez.RegisterAction(ez, httpez.Action[slowQ, []service.RouteStat]{
		Method: http.MethodGet,
		Path:   "/performance/slow",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, ac *policy.Context, in *slowQ) ([]service.RouteStat, error) {
			if in.Hours <= 0 || in.Hours > 24*90 {
				in.Hours = 24
			}
			if in.MinMS < 0 {
				in.MinMS = 0
			}
			since := time.Now().Add(-time.Duration(in.Hours) * time.Hour)
			return a.performance.SlowRoutes(c.Request.Context(), ac, since, time.Duration(in.MinMS)*time.Millisecond)
		},
	})

	// --- 策略开关 ---
	httpez.RegisterAction(ez, httpez.Action[struct{}, []policy.Status]{
		Method: http.MethodGet,
		Path:   "/policies",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(_ *gin.Context, _ *policy.Context, _ *struct{}) ([]policy.Status, error) {
			return a.table.Policies(), nil
		},
	})
	httpez.RegisterAction(ez, httpez.Action[policyIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/policies/:name",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, ac *policy.Context, in *policyIn) (gin.H, error) {
			name := c.Param("name")
			if !a.table.SetEnabled(name, *in.Enabled) {
				return nil, httpez.NotFound("unknown policy")
			}
			state := "disabled"
			if *in.Enabled {
				state = "enabled"
			}
			a.security.Record(c.Request.Context(), service.EventPolicyChange, name+" "+state,
				service.SeverityHigh, c.GetString(mdw.KeyAuthID), c.ClientIP())
			return gin.H{"name": name, "enabled": *in.Enabled}, nil
		},
	})

	// --- 保留期清理 ---
	httpez.RegisterAction(ez, httpez.Action[struct{}, *service.RetentionResult]{
		Method: http.MethodPost,
		Path:   "/retention/run",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, ac *policy.Context, _ *struct{}) (*service.RetentionResult, error) {
			return a.retention.Run(c.Request.Context(), ac)
		},
	})
}

// eq 按 列名/查询参数 成对生成等值筛选
func eq(pairs ...string) func(c *gin.Context, q *gorm.DB) *gorm.DB {
	return func(c *gin.Context, q *gorm.DB) *gorm.DB {
		for i := 0; i+1 < len(pairs); i += 2 {
			if v := c.Query(pairs[i+1]); v != "" {
				q = q.Where(pairs[i]+" = ?", v)
			}
		}
		return q
	}
}
