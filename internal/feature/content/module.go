package content

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"church-admin/internal/domain"
	"church-admin/internal/policy"
	"church-admin/internal/repo"
	httpez "church-admin/internal/transport/http/ez"
)

// Module 媒体、帖子、评论
type Module struct {
	media    *repo.Store[domain.MediaContent]
	posts    *repo.Store[domain.Post]
	comments *repo.Store[domain.Comment]
}

func New(env repo.Env) *Module {
	return &Module{
		media:    repo.NewStore[domain.MediaContent](env),
		posts:    repo.NewStore[domain.Post](env),
		comments: repo.NewStore[domain.Comment](env),
	}
}

func (m *Module) Priority() int { return 30 }

func (m *Module) MountAPI(g *gin.RouterGroup) {
	httpez.Crud(httpez.CrudConfig[domain.MediaContent]{
		Store:           m.media,
		Group:           g,
		Path:            "/media",
		AllowCreate:     true,
		AllowList:       true,
		AllowGet:        true,
		AllowUpdate:     true,
		AllowDelete:     true,
		AllowDeactivate: true,
		OwnerField:      "UploadedBy",
		OrderBy:         "uploaded_at DESC",
		Hooks: httpez.CrudHooks[domain.MediaContent]{
			ScopeList: func(c *gin.Context, q *gorm.DB) *gorm.DB {
				if cat := c.Query("category"); cat != "" {
					q = q.Where("category = ?", cat)
				}
				return q
			},
		},
	})

	httpez.Crud(httpez.CrudConfig[domain.Post]{
		Store:           m.posts,
		Group:           g,
		Path:            "/posts",
		AllowCreate:     true,
		AllowList:       true,
		AllowGet:        true,
		AllowUpdate:     true,
		AllowDelete:     true,
		AllowDeactivate: true,
		OwnerField:      "AuthorID",
		// 置顶优先
		OrderBy: "is_pinned DESC, created_at DESC",
	})

	httpez.Crud(httpez.CrudConfig[domain.Comment]{
		Store:           m.comments,
		Group:           g,
		Path:            "/comments",
		AllowCreate:     true,
		AllowList:       true,
		AllowGet:        true,
		AllowUpdate:     true,
		AllowDelete:     true,
		AllowDeactivate: true,
		OwnerField:      "AuthorID",
		OrderBy:         "created_at",
		Hooks: httpez.CrudHooks[domain.Comment]{
			// 只能评论自己看得到的帖子
			BeforeCreate: func(c *gin.Context, ac *policy.Context, cm *domain.Comment) error {
				_, err := m.posts.Get(c.Request.Context(), ac, cm.PostID)
				return err
			},
			ScopeList: func(c *gin.Context, q *gorm.DB) *gorm.DB {
				if id := c.Query("postId"); id != "" {
					q = q.Where("post_id = ?", id)
				}
				return q
			},
		},
	})
}
