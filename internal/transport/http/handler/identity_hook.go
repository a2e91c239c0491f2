package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"church-admin/internal/domain"
	"church-admin/internal/identity"
	"church-admin/internal/policy"
	httpez "church-admin/internal/transport/http/ez"
)

const HeaderWebhookSecret = "X-Webhook-Secret"

// IdentityHook 身份提供方 "新用户" 回调
type IdentityHook struct {
	syncer *identity.Syncer
	secret string
}

func NewIdentityHook(s *identity.Syncer, secret string) *IdentityHook {
	return &IdentityHook{syncer: s, secret: secret}
}

// 与托管身份服务的数据库 webhook 载荷一致
type hookIn struct {
	Type   string `json:"type"`
	Record struct {
		ID       string         `json:"id" binding:"required"`
		Email    string         `json:"email"`
		MetaData map[string]any `json:"raw_user_meta_data"`
	} `json:"record"`
}

type hookOut struct {
	Actor   *domain.Actor `json:"actor"`
	Created bool          `json:"created"`
}

func (h *IdentityHook) Mount(g *gin.RouterGroup) {
	httpez.RegisterAction(httpez.New(g), httpez.Action[hookIn, hookOut]{
		Method: http.MethodPost,
		Path:   "/identity",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *policy.Context, in *hookIn) (hookOut, error) {
			// 未配置密钥时回调关闭
			got := c.GetHeader(HeaderWebhookSecret)
			if h.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
				return hookOut{}, httpez.Unauthorized("invalid webhook secret")
			}
			if err := c.ShouldBindJSON(in); err != nil {
				return hookOut{}, httpez.BadRequest(err.Error())
			}
			a, created, err := h.syncer.Sync(c.Request.Context(), policy.Identity{
				AuthID:   in.Record.ID,
				Email:    in.Record.Email,
				Metadata: in.Record.MetaData,
			})
			if err != nil {
				return hookOut{}, err
			}
			return hookOut{Actor: a, Created: created}, nil
		},
	})
}
