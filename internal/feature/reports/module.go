package reports

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"church-admin/internal/domain"
	"church-admin/internal/policy"
	"church-admin/internal/repo"
	httpez "church-admin/internal/transport/http/ez"
)

// Module 会议报告与模板
type Module struct {
	reports   *repo.Store[domain.MeetingReport]
	templates *repo.Store[domain.ReportTemplate]
}

func New(env repo.Env) *Module {
	return &Module{
		reports:   repo.NewStore[domain.MeetingReport](env),
		templates: repo.NewStore[domain.ReportTemplate](env),
	}
}

func (m *Module) Priority() int { return 50 }

func (m *Module) MountAPI(g *gin.RouterGroup) {
	httpez.Crud(httpez.CrudConfig[domain.MeetingReport]{
		Store:       m.reports,
		Group:       g,
		Path:        "/meeting-reports",
		AllowCreate: true,
		AllowList:   true,
		AllowGet:    true,
		AllowUpdate: true,
		AllowDelete: true,
		OwnerField:  "CreatedBy",
		OrderBy:     "created_at DESC",
		Hooks: httpez.CrudHooks[domain.MeetingReport]{
			BeforeCreate: func(_ *gin.Context, _ *policy.Context, r *domain.MeetingReport) error {
				if r.Status == "" {
					r.Status = domain.ReportDraft
				}
				return nil
			},
			ScopeList: func(c *gin.Context, q *gorm.DB) *gorm.DB {
				if s := c.Query("status"); s != "" {
					q = q.Where("status = ?", s)
				}
				if id := c.Query("eventId"); id != "" {
					q = q.Where("event_id = ?", id)
				}
				return q
			},
		},
	})

	httpez.RegisterAction(httpez.New(g), httpez.Action[struct{}, *domain.MeetingReport]{
		Method: http.MethodPost,
		Path:   "/meeting-reports/:id/publish",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, ac *policy.Context, _ *struct{}) (*domain.MeetingReport, error) {
			id, err := httpez.ParamID(c)
			if err != nil {
				return nil, err
			}
			return m.reports.Update(c.Request.Context(), ac, id, func(r *domain.MeetingReport) error {
				r.Status = domain.ReportPublished
				return nil
			})
		},
	})

	httpez.Crud(httpez.CrudConfig[domain.ReportTemplate]{
		Store:           m.templates,
		Group:           g,
		Path:            "/report-templates",
		AllowCreate:     true,
		AllowList:       true,
		AllowGet:        true,
		AllowUpdate:     true,
		AllowDelete:     true,
		AllowDeactivate: true,
		OwnerField:      "CreatedBy",
		OrderBy:         "name",
	})
}
