package ministry

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"church-admin/internal/domain"
	"church-admin/internal/policy"
	"church-admin/internal/repo"
	httpez "church-admin/internal/transport/http/ez"
)

// Module 活动、出勤、例行事务
type Module struct {
	events     *repo.Store[domain.Event]
	attendance *repo.Store[domain.Attendance]
	routines   *repo.Store[domain.Routine]
}

func New(env repo.Env) *Module {
	return &Module{
		events:     repo.NewStore[domain.Event](env),
		attendance: repo.NewStore[domain.Attendance](env),
		routines:   repo.NewStore[domain.Routine](env),
	}
}

func (m *Module) Priority() int { return 20 }

func (m *Module) MountAPI(g *gin.RouterGroup) {
	httpez.Crud(httpez.CrudConfig[domain.Event]{
		Store:           m.events,
		Group:           g,
		Path:            "/events",
		AllowCreate:     true,
		AllowList:       true,
		AllowGet:        true,
		AllowUpdate:     true,
		AllowDelete:     true,
		AllowDeactivate: true,
		OwnerField:      "CreatedBy",
		OrderBy:         "start_datetime",
		Hooks: httpez.CrudHooks[domain.Event]{
			BeforeCreate: func(_ *gin.Context, _ *policy.Context, e *domain.Event) error { return checkWindow(e) },
			BeforeUpdate: func(_ *gin.Context, _ *policy.Context, e *domain.Event) error { return checkWindow(e) },
			ScopeList:    eventFilter,
		},
	})

	httpez.Crud(httpez.CrudConfig[domain.Attendance]{
		Store:       m.attendance,
		Group:       g,
		Path:        "/attendance",
		AllowCreate: true,
		AllowList:   true,
		AllowGet:    true,
		AllowUpdate: true,
		AllowDelete: true,
		Hooks: httpez.CrudHooks[domain.Attendance]{
			ScopeList: func(c *gin.Context, q *gorm.DB) *gorm.DB {
				if id := c.Query("eventId"); id != "" {
					q = q.Where("event_id = ?", id)
				}
				return q
			},
		},
	})

	httpez.Crud(httpez.CrudConfig[domain.Routine]{
		Store:           m.routines,
		Group:           g,
		Path:            "/routines",
		AllowCreate:     true,
		AllowList:       true,
		AllowGet:        true,
		AllowUpdate:     true,
		AllowDelete:     true,
		AllowDeactivate: true,
		OwnerField:      "CreatedBy",
		OrderBy:         "due_date",
	})

	httpez.RegisterAction(httpez.New(g), httpez.Action[struct{}, *domain.Routine]{
		Method: http.MethodPost,
		Path:   "/routines/:id/complete",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, ac *policy.Context, _ *struct{}) (*domain.Routine, error) {
			id, err := httpez.ParamID(c)
			if err != nil {
				return nil, err
			}
			return m.routines.Update(c.Request.Context(), ac, id, func(r *domain.Routine) error {
				r.Completed = true
				return nil
			})
		},
	})
}

func checkWindow(e *domain.Event) error {
	if !e.EndDatetime.IsZero() && e.EndDatetime.Before(e.StartDatetime) {
		return httpez.BadRequest("endDatetime must not be before startDatetime")
	}
	return nil
}

// eventFilter ?upcoming=true 只看未开始的，?type= 按类型
func eventFilter(c *gin.Context, q *gorm.DB) *gorm.DB {
	if c.Query("upcoming") == "true" {
		q = q.Where("start_datetime >= ?", time.Now())
	}
	if t := c.Query("type"); t != "" {
		q = q.Where("event_type = ?", t)
	}
	return q
}
