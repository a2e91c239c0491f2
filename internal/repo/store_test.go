package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"church-admin/internal/audit"
	"church-admin/internal/domain"
	"church-admin/internal/policy"
)

func setupStoreDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Models()...))
	return db
}

func newEnv(db *gorm.DB) Env {
	return Env{DB: db, Table: policy.Default(), Audit: audit.NewRecorder(db, zap.NewNop(), []string{"users", "events"})}
}

func seedActor(t *testing.T, db *gorm.DB, name string, role domain.Role) *domain.Actor {
	t.Helper()
	a := &domain.Actor{AuthID: "auth-" + name, Username: name, Email: name + "@church.org", FullName: name, Role: role, IsActive: true}
	require.NoError(t, db.Create(a).Error)
	return a
}

func ctxOf(a *domain.Actor) *policy.Context {
	return policy.New(policy.Identity{AuthID: a.AuthID, Email: a.Email}, a)
}

func ptr[T any](v T) *T { return &v }

func TestMessageVisibilityScenario(t *testing.T) {
	db := setupStoreDB(t)
	env := newEnv(db)
	a := seedActor(t, db, "ana", domain.RoleMember)
	b := seedActor(t, db, "bruno", domain.RoleMember)
	c := seedActor(t, db, "carla", domain.RoleMember)
	ctx := context.Background()
	messages := NewStore[domain.Message](env)

	m := &domain.Message{SenderID: ptr(a.ID), RecipientID: ptr(b.ID), Subject: "oi", Content: "olá", IsActive: true}
	require.NoError(t, messages.Create(ctx, ctxOf(a), m))

	for _, who := range []*domain.Actor{a, b} {
		items, total, err := messages.List(ctx, ctxOf(who), Page{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total, who.Username)
		assert.Len(t, items, 1)
	}

	items, total, err := messages.List(ctx, ctxOf(c), Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
	_, err = messages.Get(ctx, ctxOf(c), m.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// 收件人可以标记已读，发件人不可以
	_, err = messages.Update(ctx, ctxOf(b), m.ID, func(row *domain.Message) error {
		row.MessageType = "read"
		return nil
	})
	require.NoError(t, err)
	_, err = messages.Update(ctx, ctxOf(a), m.ID, func(row *domain.Message) error {
		row.Subject = "editado"
		return nil
	})
	assert.ErrorIs(t, err, policy.ErrPolicyViolation)

	// 停用后双方都看不到
	_, err = messages.Deactivate(ctx, ctxOf(b), m.ID)
	require.NoError(t, err)
	_, total, err = messages.List(ctx, ctxOf(a), Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestLeaderPrivateEvent(t *testing.T) {
	db := setupStoreDB(t)
	env := newEnv(db)
	leader := seedActor(t, db, "lucas", domain.RoleLeader)
	member := seedActor(t, db, "maria", domain.RoleMember)
	ctx := context.Background()
	events := NewStore[domain.Event](env)

	ev := &domain.Event{Title: "Reunião de líderes", EventType: "meeting", CreatedBy: ptr(leader.ID), IsActive: true}
	require.NoError(t, events.Create(ctx, ctxOf(leader), ev))

	_, total, err := events.List(ctx, ctxOf(member), Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
	_, err = events.Get(ctx, ctxOf(member), ev.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := events.Get(ctx, ctxOf(leader), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Reunião de líderes", got.Title)

	// 成员不能创建活动
	err = events.Create(ctx, ctxOf(member), &domain.Event{Title: "x", EventType: "y", IsActive: true})
	assert.ErrorIs(t, err, policy.ErrPolicyViolation)

	// 领导者不能删除（仅管理员）
	assert.ErrorIs(t, events.Delete(ctx, ctxOf(leader), ev.ID), policy.ErrPolicyViolation)

	// 公开后成员可见
	_, err = events.Update(ctx, ctxOf(leader), ev.ID, func(e *domain.Event) error {
		e.IsPublic = true
		return nil
	})
	require.NoError(t, err)
	_, total, err = events.List(ctx, ctxOf(member), Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	var logs []domain.AuditLog
	require.NoError(t, db.Order("id").Find(&logs, "table_name = ?", "events").Error)
	require.Len(t, logs, 2)
	assert.Equal(t, "INSERT", logs[0].Operation)
	assert.Equal(t, "UPDATE", logs[1].Operation)
	assert.Contains(t, logs[1].ChangedFields, "isPublic")
}

// 列表查询条件与逐行判断必须给出同一结果
func TestScopeMatchesSelect(t *testing.T) {
	db := setupStoreDB(t)
	env := newEnv(db)
	adm := seedActor(t, db, "admin", domain.RoleAdmin)
	leader := seedActor(t, db, "lider", domain.RoleLeader)
	m1 := seedActor(t, db, "m1", domain.RoleMember)
	m2 := seedActor(t, db, "m2", domain.RoleMember)
	svc := policy.Service()

	require.NoError(t, db.Create(&[]domain.Event{
		{Title: "pub", EventType: "t", IsPublic: true, IsActive: true},
		{Title: "priv-m1", EventType: "t", CreatedBy: ptr(m1.ID), IsActive: true},
		{Title: "priv-leader", EventType: "t", CreatedBy: ptr(leader.ID), IsActive: true},
		{Title: "gone", EventType: "t", IsPublic: true},
	}).Error)
	role := domain.RoleLeader
	require.NoError(t, db.Create(&[]domain.SystemNotification{
		{Title: "todos", Message: "x"},
		{Title: "m1", Message: "x", UserID: ptr(m1.ID)},
		{Title: "lideres", Message: "x", TargetRole: &role},
	}).Error)
	require.NoError(t, db.Create(&[]domain.Message{
		{SenderID: ptr(m1.ID), RecipientID: ptr(m2.ID), Subject: "s", Content: "c", IsActive: true},
		{SenderID: ptr(leader.ID), RecipientID: ptr(m1.ID), Subject: "s", Content: "c", IsActive: true},
		{SenderID: ptr(m2.ID), RecipientID: ptr(leader.ID), Subject: "s", Content: "c"},
	}).Error)

	callers := map[string]*policy.Context{
		"anon": policy.Anonymous(), "admin": ctxOf(adm), "leader": ctxOf(leader), "m1": ctxOf(m1), "m2": ctxOf(m2),
	}
	for name, ac := range callers {
		t.Run(name, func(t *testing.T) {
			assertScopeMatches[domain.Event](t, env, ac, svc)
			assertScopeMatches[domain.SystemNotification](t, env, ac, svc)
			assertScopeMatches[domain.Message](t, env, ac, svc)
			assertScopeMatches[domain.Actor](t, env, ac, svc)
		})
	}
}

func assertScopeMatches[T domain.Record](t *testing.T, env Env, ac, svc *policy.Context) {
	t.Helper()
	s := NewStore[T](env)
	ctx := context.Background()
	all, _, err := s.List(ctx, svc, Page{Limit: 100})
	require.NoError(t, err)
	listed, _, err := s.List(ctx, ac, Page{Limit: 100})
	require.NoError(t, err)

	var want []uint
	for _, row := range all {
		if env.Table.Visible(ac, row) {
			want = append(want, row.RecordID())
		}
	}
	var got []uint
	for _, row := range listed {
		got = append(got, row.RecordID())
	}
	assert.ElementsMatch(t, want, got, string(s.Resource()))
}

func TestAppendOnlyLogs(t *testing.T) {
	db := setupStoreDB(t)
	env := newEnv(db)
	adm := seedActor(t, db, "admin", domain.RoleAdmin)
	ctx := context.Background()
	logs := NewStore[domain.SecurityLog](env)

	row := &domain.SecurityLog{EventType: "LOGIN", Description: "x", Severity: "info"}
	require.NoError(t, logs.Create(ctx, ctxOf(adm), row))

	for _, ac := range []*policy.Context{ctxOf(adm), policy.Service()} {
		_, err := logs.Update(ctx, ac, row.ID, func(l *domain.SecurityLog) error {
			l.Severity = "low"
			return nil
		})
		assert.ErrorIs(t, err, policy.ErrUpdateDenied)
	}
	require.NoError(t, logs.Delete(ctx, ctxOf(adm), row.ID))
}

func TestActorCannotPromoteSelf(t *testing.T) {
	db := setupStoreDB(t)
	env := newEnv(db)
	m := seedActor(t, db, "marcos", domain.RoleMember)
	adm := seedActor(t, db, "admin", domain.RoleAdmin)
	ctx := context.Background()
	users := NewStore[domain.Actor](env)

	_, err := users.Update(ctx, ctxOf(m), m.ID, func(a *domain.Actor) error {
		a.Role = domain.RoleAdmin
		return nil
	})
	assert.ErrorIs(t, err, policy.ErrPolicyViolation)

	got, err := users.Update(ctx, ctxOf(m), m.ID, func(a *domain.Actor) error {
		a.Phone = "555-0101"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "555-0101", got.Phone)

	_, err = users.Update(ctx, ctxOf(adm), m.ID, func(a *domain.Actor) error {
		a.Role = domain.RoleLeader
		return nil
	})
	require.NoError(t, err)

	_, err = users.Update(ctx, ctxOf(adm), m.ID, func(a *domain.Actor) error {
		a.ID = 999
		return nil
	})
	assert.ErrorIs(t, err, ErrIDMismatch)
}

func TestMutateErrorAborts(t *testing.T) {
	db := setupStoreDB(t)
	env := newEnv(db)
	adm := seedActor(t, db, "admin", domain.RoleAdmin)
	ctx := context.Background()
	posts := NewStore[domain.Post](env)
	p := &domain.Post{Title: "t", Content: "c", AuthorID: ptr(adm.ID), IsActive: true}
	require.NoError(t, posts.Create(ctx, ctxOf(adm), p))

	boom := errors.New("boom")
	_, err := posts.Update(ctx, ctxOf(adm), p.ID, func(*domain.Post) error { return boom })
	assert.ErrorIs(t, err, boom)

	settings := NewStore[domain.SystemSetting](env)
	st := &domain.SystemSetting{SettingKey: "retention_days", SettingValue: "30"}
	require.NoError(t, settings.Create(ctx, ctxOf(adm), st))
	_, err = settings.Deactivate(ctx, ctxOf(adm), st.ID)
	assert.ErrorIs(t, err, ErrNoActive)
}

// 已认证但没有激活 Actor 的调用方：所有归属/角色判断都为假
func TestWritesFailClosedWithoutActiveActor(t *testing.T) {
	db := setupStoreDB(t)
	env := newEnv(db)
	ctx := context.Background()
	leader := seedActor(t, db, "lucas", domain.RoleLeader)
	other := seedActor(t, db, "olga", domain.RoleMember)
	events := NewStore[domain.Event](env)
	messages := NewStore[domain.Message](env)

	ev := &domain.Event{Title: "Culto", EventType: "service", CreatedBy: ptr(leader.ID), IsPublic: true, IsActive: true}
	require.NoError(t, events.Create(ctx, ctxOf(leader), ev))
	msg := &domain.Message{SenderID: ptr(other.ID), RecipientID: ptr(leader.ID), Subject: "oi", Content: "olá", IsActive: true}
	require.NoError(t, messages.Create(ctx, ctxOf(other), msg))

	inactive := *leader
	inactive.IsActive = false
	callers := map[string]*policy.Context{
		"deactivated": policy.New(policy.Identity{AuthID: leader.AuthID}, &inactive),
		"no actor":    policy.New(policy.Identity{AuthID: "auth-ghost"}, nil),
	}

	for name, ac := range callers {
		t.Run(name, func(t *testing.T) {
			err := events.Create(ctx, ac, &domain.Event{Title: "x", EventType: "y", CreatedBy: ptr(leader.ID), IsActive: true})
			assert.ErrorIs(t, err, policy.ErrPolicyViolation)

			// 公开活动可见但不可改
			_, err = events.Update(ctx, ac, ev.ID, func(e *domain.Event) error {
				e.Title = "alterado"
				return nil
			})
			assert.ErrorIs(t, err, policy.ErrPolicyViolation)

			// 以前的收件人也看不到消息
			_, err = messages.Get(ctx, ac, msg.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = messages.Update(ctx, ac, msg.ID, func(m *domain.Message) error {
				m.MessageType = "read"
				return nil
			})
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, messages.Delete(ctx, ac, msg.ID), ErrNotFound)
		})
	}

	var got domain.Event
	require.NoError(t, db.First(&got, ev.ID).Error)
	assert.Equal(t, "Culto", got.Title)
}
