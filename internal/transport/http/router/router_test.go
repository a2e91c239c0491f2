package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"church-admin/internal/app"
	"church-admin/internal/core/auth"
	"church-admin/internal/core/config"
	"church-admin/internal/domain"
	"church-admin/internal/transport/http/router"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type harness struct {
	t     *testing.T
	db    *gorm.DB
	api   *gin.Engine
	admin *gin.Engine
	jwt   *auth.JWTer
}

func setup(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Models()...))

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Issuer = "supabase"
	cfg.JWT.AccessTokenTTLMin = 60
	cfg.Audit.Tables = []string{"users", "events"}
	cfg.Identity.WebhookSecret = "hook-secret"
	cfg.Retention.DefaultDays = 30
	cfg.Retention.SlowRequestMS = 60_000

	deps, cleanup := app.Wire(cfg, zap.NewNop(), db)
	t.Cleanup(cleanup)
	mods := router.Modules(deps)
	return &harness{
		t: t, db: db, jwt: deps.JWT,
		api:   router.NewAPIEngine(deps, mods),
		admin: router.NewAdminEngine(deps, mods),
	}
}

func (h *harness) token(authID, email string) string {
	tok, err := h.jwt.Issue(authID, email, auth.RoleAuthenticated, nil)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) serviceToken() string {
	tok, err := h.jwt.Issue("", "", auth.RoleService, nil)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) do(e *gin.Engine, method, path, tok string, body any, hdr ...string) envelope {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	require.Equal(h.t, http.StatusOK, w.Code, w.Body.String())
	var out envelope
	require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// member 首次请求时自动建档，返回 actor id
func (h *harness) member(name string) (string, uint) {
	tok := h.token("auth-"+name, name+"@church.org")
	r := h.do(h.api, http.MethodGet, "/api/v1/me", tok, nil)
	require.Equal(h.t, 0, r.Code, r.Msg)
	var a domain.Actor
	require.NoError(h.t, json.Unmarshal(r.Data, &a))
	return tok, a.ID
}

func (h *harness) promote(id uint, role domain.Role) {
	require.NoError(h.t, h.db.Model(&domain.Actor{}).Where("id = ?", id).Update("role", role).Error)
}

func TestFirstRequestSyncsActor(t *testing.T) {
	h := setup(t)
	tok := h.token("auth-ana", "ana@church.org")

	r := h.do(h.api, http.MethodGet, "/api/v1/me", tok, nil)
	require.Equal(t, 0, r.Code)
	var a domain.Actor
	require.NoError(t, json.Unmarshal(r.Data, &a))
	assert.Equal(t, domain.RoleMember, a.Role)
	assert.Equal(t, "ana", a.Username)

	h.do(h.api, http.MethodGet, "/api/v1/me", tok, nil)
	var n int64
	require.NoError(t, h.db.Model(&domain.Actor{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	// 本人不能给自己升级角色
	r = h.do(h.api, http.MethodPut, "/api/v1/me", tok, map[string]any{"fullName": "Ana Lima"})
	require.Equal(t, 0, r.Code)
	assert.Contains(t, string(r.Data), "Ana Lima")
}

func TestInvalidTokenIsLogged(t *testing.T) {
	h := setup(t)
	r := h.do(h.api, http.MethodGet, "/api/v1/me", "garbage", nil)
	assert.Equal(t, 401, r.Code)

	var logs []domain.SecurityLog
	require.NoError(t, h.db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "TOKEN_INVALID", logs[0].EventType)

	// 匿名访问 /me
	r = h.do(h.api, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, 401, r.Code)

	// 用户端不接受 service_role
	r = h.do(h.api, http.MethodGet, "/api/v1/events", h.serviceToken(), nil)
	assert.Equal(t, 403, r.Code)
}

func TestMessageScenario(t *testing.T) {
	h := setup(t)
	aTok, _ := h.member("a")
	bTok, bID := h.member("b")
	cTok, _ := h.member("c")

	r := h.do(h.api, http.MethodPost, "/api/v1/messages", aTok, map[string]any{
		"recipientId": bID, "subject": "Oração", "content": "Podemos orar juntos?",
	})
	require.Equal(t, 0, r.Code, r.Msg)
	var m domain.Message
	require.NoError(t, json.Unmarshal(r.Data, &m))
	path := fmt.Sprintf("/api/v1/messages/%d", m.ID)

	assert.Equal(t, 0, h.do(h.api, http.MethodGet, path, aTok, nil).Code)
	assert.Equal(t, 0, h.do(h.api, http.MethodGet, path, bTok, nil).Code)
	assert.Equal(t, 404, h.do(h.api, http.MethodGet, path, cTok, nil).Code)

	assert.Equal(t, 403, h.do(h.api, http.MethodPost, path+"/read", aTok, nil).Code)
	r = h.do(h.api, http.MethodPost, path+"/read", bTok, nil)
	require.Equal(t, 0, r.Code)
	require.NoError(t, json.Unmarshal(r.Data, &m))
	assert.NotNil(t, m.ReadAt)

	r = h.do(h.api, http.MethodGet, "/api/v1/messages", cTok, nil)
	require.Equal(t, 0, r.Code)
	assert.Contains(t, string(r.Data), `"total":0`)

	assert.Equal(t, 0, h.do(h.api, http.MethodDelete, path, aTok, nil).Code)
}

func TestWritesWithoutActiveActorAreRefused(t *testing.T) {
	h := setup(t)
	_, pastorID := h.member("pastor")
	h.promote(pastorID, domain.RolePastor)
	_, recipientID := h.member("rec")

	// 已停用的成员
	goneTok, goneID := h.member("gone")
	require.NoError(t, h.db.Model(&domain.Actor{}).Where("id = ?", goneID).Update("is_active", false).Error)
	// 没有邮箱，同步失败，本地没有 Actor
	ghostTok := h.token("auth-ghost", "")

	bodies := []struct {
		path string
		body map[string]any
	}{
		{"/api/v1/messages", map[string]any{"senderId": pastorID, "recipientId": recipientID, "subject": "s", "content": "c"}},
		{"/api/v1/media", map[string]any{"uploadedBy": pastorID, "title": "t", "filePath": "/f.mp3", "fileType": "audio"}},
		{"/api/v1/ai-conversations", map[string]any{"userId": pastorID, "message": "oi"}},
	}
	for _, caller := range []struct{ name, tok string }{{"deactivated", goneTok}, {"no actor", ghostTok}} {
		for _, b := range bodies {
			r := h.do(h.api, http.MethodPost, b.path, caller.tok, b.body)
			assert.Equal(t, 403, r.Code, "%s %s: %s", caller.name, b.path, r.Msg)
		}
	}

	var n int64
	require.NoError(t, h.db.Model(&domain.Message{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, h.db.Model(&domain.MediaContent{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, h.db.Model(&domain.AIConversation{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestFirstSyncIsAudited(t *testing.T) {
	h := setup(t)
	_, id := h.member("ana")
	h.member("ana")

	var entries []domain.AuditLog
	require.NoError(t, h.db.Where("table_name = ?", "users").Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, "INSERT", entries[0].Operation)
	assert.Equal(t, id, entries[0].RowID)
	assert.Equal(t, "auth-ana", entries[0].AuthID)
}

func TestPrivateEventVisibility(t *testing.T) {
	h := setup(t)
	leaderTok, leaderID := h.member("lider")
	h.promote(leaderID, domain.RoleLeader)
	memberTok, _ := h.member("membro")

	r := h.do(h.api, http.MethodPost, "/api/v1/events", memberTok, map[string]any{"title": "x", "eventType": "culto"})
	assert.Equal(t, 403, r.Code)

	r = h.do(h.api, http.MethodPost, "/api/v1/events", leaderTok, map[string]any{
		"title": "Reunião de líderes", "eventType": "reuniao", "isPublic": false,
	})
	require.Equal(t, 0, r.Code, r.Msg)
	var ev domain.Event
	require.NoError(t, json.Unmarshal(r.Data, &ev))
	require.NotNil(t, ev.CreatedBy)
	assert.Equal(t, leaderID, *ev.CreatedBy)
	assert.True(t, ev.IsActive)

	path := fmt.Sprintf("/api/v1/events/%d", ev.ID)
	assert.Equal(t, 404, h.do(h.api, http.MethodGet, path, memberTok, nil).Code)
	assert.Equal(t, 404, h.do(h.api, http.MethodGet, path, "", nil).Code)
	assert.Equal(t, 0, h.do(h.api, http.MethodGet, path, leaderTok, nil).Code)

	r = h.do(h.api, http.MethodPut, path, leaderTok, map[string]any{"isPublic": true, "id": 999})
	require.Equal(t, 0, r.Code, r.Msg)
	require.NoError(t, json.Unmarshal(r.Data, &ev))
	assert.Equal(t, "Reunião de líderes", ev.Title)
	assert.NotEqual(t, uint(999), ev.ID)
	assert.Equal(t, 0, h.do(h.api, http.MethodGet, path, "", nil).Code)
}

func TestIdentityWebhook(t *testing.T) {
	h := setup(t)
	body := map[string]any{
		"type":   "INSERT",
		"record": map[string]any{"id": "auth-hook", "email": "novo@church.org", "raw_user_meta_data": map[string]any{"full_name": "Novo Membro"}},
	}
	r := h.do(h.api, http.MethodPost, "/api/v1/hooks/identity", "", body)
	assert.Equal(t, 401, r.Code)

	r = h.do(h.api, http.MethodPost, "/api/v1/hooks/identity", "", body, "X-Webhook-Secret", "hook-secret")
	require.Equal(t, 0, r.Code, r.Msg)
	assert.Contains(t, string(r.Data), `"created":true`)
	assert.Contains(t, string(r.Data), "Novo Membro")

	r = h.do(h.api, http.MethodPost, "/api/v1/hooks/identity", "", body, "X-Webhook-Secret", "hook-secret")
	require.Equal(t, 0, r.Code)
	assert.Contains(t, string(r.Data), `"created":false`)
}

func TestAdminEngine(t *testing.T) {
	h := setup(t)
	memberTok, _ := h.member("membro")
	adminTok, adminID := h.member("pastor")
	h.promote(adminID, domain.RolePastor)

	assert.Equal(t, 403, h.do(h.admin, http.MethodGet, "/admin/v1/policies", memberTok, nil).Code)
	assert.Equal(t, 401, h.do(h.admin, http.MethodGet, "/admin/v1/policies", "", nil).Code)

	r := h.do(h.admin, http.MethodGet, "/admin/v1/policies", adminTok, nil)
	require.Equal(t, 0, r.Code)
	var statuses []map[string]any
	require.NoError(t, json.Unmarshal(r.Data, &statuses))
	assert.Len(t, statuses, 64)

	// 停用 posts 读策略后连管理员也读不到
	require.NoError(t, h.db.Create(&domain.Post{Title: "Aviso", Content: "x", AuthorID: &adminID, IsActive: true}).Error)
	r = h.do(h.admin, http.MethodPost, "/admin/v1/policies/posts_select_policy", adminTok, map[string]any{"enabled": false})
	require.Equal(t, 0, r.Code, r.Msg)
	r = h.do(h.api, http.MethodGet, "/api/v1/posts", adminTok, nil)
	require.Equal(t, 0, r.Code)
	assert.Contains(t, string(r.Data), `"total":0`)
	assert.Equal(t, 404, h.do(h.admin, http.MethodPost, "/admin/v1/policies/nope", adminTok, map[string]any{"enabled": true}).Code)

	r = h.do(h.admin, http.MethodPut, "/admin/v1/settings/log_retention_days", adminTok, map[string]any{"value": "14"})
	require.Equal(t, 0, r.Code, r.Msg)
	assert.Equal(t, 403, h.do(h.admin, http.MethodPost, "/admin/v1/retention/run", memberTok, nil).Code)

	r = h.do(h.admin, http.MethodPost, "/admin/v1/retention/run", h.serviceToken(), nil)
	require.Equal(t, 0, r.Code, r.Msg)
	assert.Contains(t, string(r.Data), `"days":14`)

	r = h.do(h.admin, http.MethodGet, "/admin/v1/security-logs?eventType=POLICY_CHANGED", adminTok, nil)
	require.Equal(t, 0, r.Code)
	assert.Contains(t, string(r.Data), `"total":1`)

	// 日志表只追加：没有更新接口
	r = h.do(h.admin, http.MethodGet, "/admin/v1/performance/slow", adminTok, nil)
	assert.Equal(t, 0, r.Code)
}
