package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"church-admin/internal/audit"
	"church-admin/internal/domain"
	"church-admin/internal/policy"
	"church-admin/internal/repo"
	"church-admin/internal/service"
)

// ErrIdentityConflict 用户名或邮箱被另一个外部身份占用
var ErrIdentityConflict = errors.New("identity conflicts with an existing actor")

var ErrNoEmail = errors.New("identity has no email")

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Syncer 外部身份首次出现时建立本地 Actor；以特权身份执行
type Syncer struct {
	actors   *repo.ActorRepo
	security *service.SecurityLog
	audit    *audit.Recorder
	log      *zap.Logger
}

func NewSyncer(actors *repo.ActorRepo, security *service.SecurityLog, rec *audit.Recorder, l *zap.Logger) *Syncer {
	return &Syncer{actors: actors, security: security, audit: rec, log: l}
}

// Sync 幂等：已存在则原样返回，created=false
func (s *Syncer) Sync(ctx context.Context, id policy.Identity) (*domain.Actor, bool, error) {
	if id.AuthID == "" {
		return nil, false, fmt.Errorf("sync identity: empty auth id")
	}
	if a, err := s.actors.FindByAuthID(ctx, id.AuthID); err != nil || a != nil {
		return a, false, err
	}
	if id.Email == "" {
		return nil, false, ErrNoEmail
	}

	username := usernameOf(id)
	for attempt := 0; attempt < 2; attempt++ {
		a := &domain.Actor{
			AuthID:   id.AuthID,
			Username: username,
			Email:    id.Email,
			FullName: fullNameOf(id, username),
			Phone:    clip(metaString(id.Metadata, "phone"), 20),
			Role:     domain.RoleMember,
			IsActive: true,
		}
		created, err := s.actors.InsertIgnore(ctx, a)
		if err != nil {
			return nil, false, fmt.Errorf("sync identity: %w", err)
		}
		if created {
			s.log.Info("actor created", zap.String("auth_id", id.AuthID), zap.Uint("actor_id", a.ID))
			s.security.Record(ctx, service.EventUserSynced,
				fmt.Sprintf("actor %s created for %s", a.Username, a.Email), service.SeverityLow, id.AuthID, "")
			s.audit.Record(ctx, policy.New(id, a), audit.Change{
				Table: a.TableName(), RecordID: a.ID, Op: audit.OpInsert, After: a,
			})
			return a, true, nil
		}
		// 冲突：可能是并发的同一身份，也可能是用户名/邮箱撞车
		got, err := s.actors.FindByAuthID(ctx, id.AuthID)
		if err != nil || got != nil {
			return got, false, err
		}
		username = withSuffix(username, id.AuthID)
	}
	return nil, false, fmt.Errorf("%w: %s", ErrIdentityConflict, id.Email)
}

func usernameOf(id policy.Identity) string {
	if u := metaString(id.Metadata, "username"); u != "" {
		return clip(unsafeName.ReplaceAllString(u, ""), 50)
	}
	local, _, _ := strings.Cut(id.Email, "@")
	local = unsafeName.ReplaceAllString(local, "")
	if local == "" {
		local = "user"
	}
	return clip(local, 50)
}

func fullNameOf(id policy.Identity, username string) string {
	if n := metaString(id.Metadata, "full_name"); n != "" {
		return clip(n, 100)
	}
	local, _, _ := strings.Cut(id.Email, "@")
	if local == "" {
		return username
	}
	return clip(local, 100)
}

func withSuffix(username, authID string) string {
	tag := strings.ReplaceAll(authID, "-", "")
	if len(tag) > 8 {
		tag = tag[:8]
	}
	return clip(username, 50-utf8.RuneCountInString(tag)-1) + "_" + tag
}

func metaString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// clip 按字符截断，与 varchar(n) 的计数方式一致
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
