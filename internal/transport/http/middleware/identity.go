package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"church-admin/internal/core/auth"
	"church-admin/internal/identity"
	"church-admin/internal/policy"
	"church-admin/internal/repo"
	"church-admin/internal/service"
	resp "church-admin/internal/transport/http/response"
)

const (
	KeyAuthID       = "auth_id"
	KeyPolicyDenied = "policy_denied"
)

type IdentityOptions struct {
	JWT      *auth.JWTer
	Actors   *repo.ActorRepo
	Syncer   *identity.Syncer
	Security *service.SecurityLog
	Log      *zap.Logger
	// Optional 没有令牌时以匿名身份继续
	Optional bool
	// AllowService 允许 service_role 令牌（仅后台）
	AllowService bool
}

// Identity 令牌 → 声明 → Actor（首次出现时同步）→ policy.Context
// 每个请求重新解析，不缓存角色
func Identity(o IdentityOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			if o.Optional {
				bind(c, policy.Anonymous())
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		claims, err := o.JWT.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			o.Security.Record(c.Request.Context(), service.EventTokenInvalid, err.Error(), service.SeverityMedium, "", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "invalid token"))
			return
		}
		if claims.IsService() {
			if !o.AllowService {
				o.Security.Record(c.Request.Context(), service.EventAccessDenied, "service token on user API", service.SeverityHigh, "", c.ClientIP())
				c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeForbidden, "forbidden"))
				return
			}
			c.Set(KeyAuthID, "service")
			bind(c, policy.Service())
			c.Next()
			return
		}

		id := claims.Identity()
		ctx := c.Request.Context()
		actor, err := o.Actors.FindByAuthID(ctx, id.AuthID)
		if err != nil {
			o.Log.Error("actor lookup failed", zap.String("auth_id", id.AuthID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeServerError, ""))
			return
		}
		if actor == nil {
			actor, _, err = o.Syncer.Sync(ctx, id)
			if err != nil {
				// 同步失败时不带 Actor 继续，所有谓词为 false
				o.Log.Warn("identity sync failed", zap.String("auth_id", id.AuthID), zap.Error(err))
			}
		}
		c.Set(KeyAuthID, id.AuthID)
		bind(c, policy.New(id, actor))
		c.Next()
	}
}

func bind(c *gin.Context, ac *policy.Context) {
	c.Request = c.Request.WithContext(policy.WithContext(c.Request.Context(), ac))
}

// AuthContext 取当前请求的鉴权上下文
func AuthContext(c *gin.Context) *policy.Context {
	return policy.FromContext(c.Request.Context())
}

// RequireAdmin 管理端分组守卫：管理员（含牧师）或特权主体
func RequireAdmin(security *service.SecurityLog) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac := AuthContext(c)
		if ac.IsAdmin() || ac.IsService() {
			c.Next()
			return
		}
		c.Set(KeyPolicyDenied, true)
		security.Record(c.Request.Context(), service.EventAccessDenied, "admin API: "+c.Request.URL.Path,
			service.SeverityHigh, c.GetString(KeyAuthID), c.ClientIP())
		c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeForbidden, "forbidden"))
	}
}
