package member

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"church-admin/internal/domain"
	"church-admin/internal/policy"
	"church-admin/internal/repo"
	httpez "church-admin/internal/transport/http/ez"
)

// Module 成员（users 表）
type Module struct {
	users *repo.Store[domain.Actor]
}

func New(env repo.Env) *Module { return &Module{users: repo.NewStore[domain.Actor](env)} }

func (m *Module) Priority() int { return 10 }

type profileIn struct {
	FullName string `json:"fullName" binding:"omitempty,max=100"`
	Phone    string `json:"phone" binding:"omitempty,max=20"`
}

func (m *Module) MountAPI(g *gin.RouterGroup) {
	ez := httpez.New(g)

	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.Actor]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, ac *policy.Context, _ *struct{}) (*domain.Actor, error) {
			me := ac.Actor()
			if me == nil {
				return nil, httpez.NotFound("no active member for this identity")
			}
			return m.users.Get(c.Request.Context(), ac, me.ID)
		},
	})

	// 本人资料；角色/激活状态由策略的修改后校验兜底
	httpez.RegisterAction(ez, httpez.Action[profileIn, *domain.Actor]{
		Method: http.MethodPut,
		Path:   "/me",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, ac *policy.Context, in *profileIn) (*domain.Actor, error) {
			me := ac.Actor()
			if me == nil {
				return nil, httpez.NotFound("no active member for this identity")
			}
			return m.users.Update(c.Request.Context(), ac, me.ID, func(a *domain.Actor) error {
				if v := strings.TrimSpace(in.FullName); v != "" {
					a.FullName = v
				}
				if v := strings.TrimSpace(in.Phone); v != "" {
					a.Phone = v
				}
				return nil
			})
		},
	})

	httpez.Crud(httpez.CrudConfig[domain.Actor]{
		Store:     m.users,
		Group:     g,
		Path:      "/users",
		AllowList: true,
		AllowGet:  true,
		OrderBy:   "full_name",
		Hooks: httpez.CrudHooks[domain.Actor]{
			ScopeList: searchScope,
		},
	})
}

type roleIn struct {
	Role domain.Role `json:"role" binding:"required"`
}

func (m *Module) MountAdmin(g *gin.RouterGroup) {
	httpez.Crud(httpez.CrudConfig[domain.Actor]{
		Store:           m.users,
		Group:           g,
		Path:            "/users",
		AllowCreate:     true,
		AllowList:       true,
		AllowGet:        true,
		AllowUpdate:     true,
		AllowDelete:     true,
		AllowDeactivate: true,
		OrderBy:         "created_at DESC",
		Hooks: httpez.CrudHooks[domain.Actor]{
			BeforeCreate: func(_ *gin.Context, _ *policy.Context, a *domain.Actor) error { return validActor(a) },
			BeforeUpdate: func(_ *gin.Context, _ *policy.Context, a *domain.Actor) error { return validActor(a) },
			ScopeList:    searchScope,
		},
	})

	httpez.RegisterAction(httpez.New(g), httpez.Action[roleIn, *domain.Actor]{
		Method: http.MethodPost,
		Path:   "/users/:id/role",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, ac *policy.Context, in *roleIn) (*domain.Actor, error) {
			if !in.Role.Valid() {
				return nil, httpez.BadRequest("invalid role")
			}
			id, err := httpez.ParamID(c)
			if err != nil {
				return nil, err
			}
			return m.users.Update(c.Request.Context(), ac, id, func(a *domain.Actor) error {
				a.Role = in.Role
				return nil
			})
		},
	})
}

func validActor(a *domain.Actor) error {
	if !a.Role.Valid() {
		return httpez.BadRequest("invalid role")
	}
	if a.AuthID == "" || a.Username == "" || a.Email == "" || a.FullName == "" {
		return httpez.BadRequest("authId, username, email and fullName are required")
	}
	return nil
}
