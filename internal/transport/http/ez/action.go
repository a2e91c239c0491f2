package ez

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"church-admin/internal/domain"
	"church-admin/internal/identity"
	"church-admin/internal/policy"
	"church-admin/internal/repo"
	mdw "church-admin/internal/transport/http/middleware"
	resp "church-admin/internal/transport/http/response"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"
	BindQuery Binder = "query"
	BindNone  Binder = "none" // 自己从 c.Param 取
)

// AErr 携带业务码的错误
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Conflict(msg string) error     { return &AErr{Code: resp.CodeConflict, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// Action 非 CRUD 接口：I 入参，O 出参
type Action[I any, O any] struct {
	Method string
	Path   string
	Binder Binder
	// Auth 要求已认证身份；Roles 进一步要求 Actor 角色（精确匹配）
	Auth    bool
	Roles   []domain.Role
	Handler func(c *gin.Context, ac *policy.Context, in *I) (O, error)
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		ac := mdw.AuthContext(c)
		if a.Auth && !ac.Authenticated() && !ac.IsService() {
			c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return
		}
		if len(a.Roles) > 0 && !ac.IsService() && !hasAnyRole(ac, a.Roles) {
			c.Set(mdw.KeyPolicyDenied, true)
			c.JSON(http.StatusOK, resp.Error(resp.CodeForbidden, "forbidden"))
			return
		}

		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, bindErr.Error()))
			return
		}

		out, err := a.Handler(c, ac, &in)
		if err != nil {
			Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}

func hasAnyRole(ac *policy.Context, roles []domain.Role) bool {
	for _, r := range roles {
		if ac.HasRole(r) {
			return true
		}
	}
	return false
}

// Fail 统一错误映射；HTTP 状态恒为 200
func Fail(c *gin.Context, err error) {
	code, msg := Classify(err)
	switch code {
	case resp.CodeForbidden:
		c.Set(mdw.KeyPolicyDenied, true)
	case resp.CodeServerError:
		// 原始错误只进访问日志
		_ = c.Error(err)
	}
	c.JSON(http.StatusOK, resp.Error(code, msg))
}

// Classify 错误 → 业务码 + 对外文案
func Classify(err error) (int, string) {
	var ae *AErr
	switch {
	case errors.As(err, &ae):
		return ae.Code, ae.Error()
	case errors.Is(err, policy.ErrUpdateDenied):
		return resp.CodeForbidden, "update denied"
	case errors.Is(err, policy.ErrPolicyViolation):
		return resp.CodeForbidden, "rejected by policy"
	case errors.Is(err, repo.ErrNotFound):
		return resp.CodeNotFound, "not found"
	case errors.Is(err, repo.ErrIDMismatch), errors.Is(err, repo.ErrNoActive), errors.Is(err, identity.ErrNoEmail):
		return resp.CodeBadRequest, err.Error()
	case errors.Is(err, identity.ErrIdentityConflict):
		return resp.CodeConflict, "identity already linked to another account"
	case errors.Is(err, context.DeadlineExceeded):
		return resp.CodeTimeout, ""
	}
	return resp.CodeServerError, ""
}

// ParamID 解析路径上的 :id
func ParamID(c *gin.Context) (uint, error) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || n == 0 {
		return 0, BadRequest("invalid id")
	}
	return uint(n), nil
}

func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
