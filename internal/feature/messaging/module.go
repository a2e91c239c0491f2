package messaging

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"church-admin/internal/domain"
	"church-admin/internal/policy"
	"church-admin/internal/repo"
	httpez "church-admin/internal/transport/http/ez"
	mdw "church-admin/internal/transport/http/middleware"
)

// Module AI 对话、站内信、系统通知
type Module struct {
	conversations *repo.Store[domain.AIConversation]
	messages      *repo.Store[domain.Message]
	notifications *repo.Store[domain.SystemNotification]
	now           func() time.Time
}

func New(env repo.Env) *Module {
	return &Module{
		conversations: repo.NewStore[domain.AIConversation](env),
		messages:      repo.NewStore[domain.Message](env),
		notifications: repo.NewStore[domain.SystemNotification](env),
		now:           time.Now,
	}
}

func (m *Module) Priority() int { return 40 }

func (m *Module) MountAPI(g *gin.RouterGroup) {
	ez := httpez.New(g)

	// 对话不提供更新接口，策略层同样拒绝
	httpez.Crud(httpez.CrudConfig[domain.AIConversation]{
		Store:       m.conversations,
		Group:       g,
		Path:        "/ai-conversations",
		AllowCreate: true,
		AllowList:   true,
		AllowGet:    true,
		AllowDelete: true,
		OwnerField:  "UserID",
		OrderBy:     "created_at DESC",
	})

	httpez.Crud(httpez.CrudConfig[domain.Message]{
		Store:           m.messages,
		Group:           g,
		Path:            "/messages",
		AllowCreate:     true,
		AllowList:       true,
		AllowGet:        true,
		AllowDelete:     true,
		AllowDeactivate: true,
		OwnerField:      "SenderID",
		OrderBy:         "sent_at DESC",
		Hooks: httpez.CrudHooks[domain.Message]{
			BeforeCreate: func(_ *gin.Context, _ *policy.Context, msg *domain.Message) error {
				msg.ReadAt = nil
				return nil
			},
			ScopeList: mailbox,
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.Message]{
		Method: http.MethodPost,
		Path:   "/messages/:id/read",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, ac *policy.Context, _ *struct{}) (*domain.Message, error) {
			id, err := httpez.ParamID(c)
			if err != nil {
				return nil, err
			}
			return m.messages.Update(c.Request.Context(), ac, id, func(msg *domain.Message) error {
				if msg.ReadAt == nil {
					t := m.now()
					msg.ReadAt = &t
				}
				return nil
			})
		},
	})

	httpez.Crud(httpez.CrudConfig[domain.SystemNotification]{
		Store:       m.notifications,
		Group:       g,
		Path:        "/notifications",
		AllowCreate: true,
		AllowList:   true,
		AllowGet:    true,
		AllowUpdate: true,
		AllowDelete: true,
		OwnerField:  "CreatedBy",
		OrderBy:     "created_at DESC",
		Hooks: httpez.CrudHooks[domain.SystemNotification]{
			BeforeCreate: func(_ *gin.Context, _ *policy.Context, n *domain.SystemNotification) error {
				if n.TargetRole != nil && !n.TargetRole.Valid() {
					return httpez.BadRequest("invalid targetRole")
				}
				n.IsRead = false
				return nil
			},
			ScopeList: func(c *gin.Context, q *gorm.DB) *gorm.DB {
				if c.Query("unread") == "true" {
					q = q.Where("is_read = ?", false)
				}
				return q
			},
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.SystemNotification]{
		Method: http.MethodPost,
		Path:   "/notifications/:id/read",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, ac *policy.Context, _ *struct{}) (*domain.SystemNotification, error) {
			id, err := httpez.ParamID(c)
			if err != nil {
				return nil, err
			}
			return m.notifications.Update(c.Request.Context(), ac, id, func(n *domain.SystemNotification) error {
				n.IsRead = true
				return nil
			})
		},
	})
}

// mailbox ?box=inbox|sent
func mailbox(c *gin.Context, q *gorm.DB) *gorm.DB {
	id := mdw.AuthContext(c).ActorID()
	if id == nil {
		return q
	}
	switch c.Query("box") {
	case "inbox":
		q = q.Where("recipient_id = ?", *id)
	case "sent":
		q = q.Where("sender_id = ?", *id)
	}
	return q
}
