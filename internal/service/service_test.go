package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"church-admin/internal/audit"
	"church-admin/internal/core/cache"
	"church-admin/internal/domain"
	"church-admin/internal/policy"
	"church-admin/internal/repo"
)

func setupEnv(t *testing.T) repo.Env {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Models()...))
	return repo.Env{DB: db, Table: policy.Default(), Audit: audit.NewRecorder(db, zap.NewNop(), nil)}
}

func setupCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func adminCtx(t *testing.T, db *gorm.DB) *policy.Context {
	t.Helper()
	a := &domain.Actor{AuthID: "auth-admin", Username: "admin", Email: "admin@church.org", FullName: "Admin", Role: domain.RoleAdmin, IsActive: true}
	require.NoError(t, db.Create(a).Error)
	return policy.New(policy.Identity{AuthID: a.AuthID}, a)
}

func memberCtx(t *testing.T, db *gorm.DB) *policy.Context {
	t.Helper()
	a := &domain.Actor{AuthID: "auth-member", Username: "member", Email: "member@church.org", FullName: "Member", Role: domain.RoleMember, IsActive: true}
	require.NoError(t, db.Create(a).Error)
	return policy.New(policy.Identity{AuthID: a.AuthID}, a)
}

func TestSettingsSetAndCache(t *testing.T) {
	env := setupEnv(t)
	c, mr := setupCache(t)
	s := NewSettings(env, c)
	ctx := context.Background()
	adm := adminCtx(t, env.DB)

	assert.Equal(t, 30, s.Int(ctx, RetentionKey, 30))

	_, err := s.Set(ctx, adm, RetentionKey, "7", "dias de retenção")
	require.NoError(t, err)
	assert.Equal(t, 7, s.Int(ctx, RetentionKey, 30))
	assert.True(t, mr.Exists("church:setting:"+RetentionKey))

	// 更新会让缓存失效
	_, err = s.Set(ctx, adm, RetentionKey, "14", "")
	require.NoError(t, err)
	assert.False(t, mr.Exists("church:setting:"+RetentionKey))
	assert.Equal(t, 14, s.Int(ctx, RetentionKey, 30))

	got, err := s.Get(ctx, adm, RetentionKey)
	require.NoError(t, err)
	assert.Equal(t, "dias de retenção", got.Description)

	_, err = s.Set(ctx, adm, "theme", "dark", "")
	require.NoError(t, err)
	items, total, err := s.List(ctx, adm, repo.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, RetentionKey, items[0].SettingKey)

	require.NoError(t, s.Delete(ctx, adm, "theme"))
	_, err = s.Get(ctx, adm, "theme")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestSettingsAdminOnly(t *testing.T) {
	env := setupEnv(t)
	s := NewSettings(env, nil)
	ctx := context.Background()
	m := memberCtx(t, env.DB)

	_, err := s.Set(ctx, m, "theme", "dark", "")
	assert.ErrorIs(t, err, policy.ErrPolicyViolation)

	require.NoError(t, env.DB.Create(&domain.SystemSetting{SettingKey: "theme", SettingValue: "light"}).Error)
	_, err = s.Get(ctx, m, "theme")
	assert.ErrorIs(t, err, repo.ErrNotFound)
	// 非法值回退到默认
	require.NoError(t, env.DB.Create(&domain.SystemSetting{SettingKey: RetentionKey, SettingValue: "abc"}).Error)
	assert.Equal(t, 30, s.Int(ctx, RetentionKey, 30))
}

func TestRetentionRun(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	s := NewSettings(env, nil)
	r := NewRetention(env, s, 30, zap.NewNop())
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	old := now.AddDate(0, 0, -40)
	recent := now.AddDate(0, 0, -2)
	require.NoError(t, env.DB.Create(&[]domain.SecurityLog{
		{EventType: "LOGIN", Description: "x", Severity: SeverityLow, CreatedAt: old},
		{EventType: "LOGIN", Description: "y", Severity: SeverityLow, CreatedAt: recent},
	}).Error)
	require.NoError(t, env.DB.Create(&[]domain.PerformanceLog{
		{FunctionName: "GET /api/v1/events", ExecutionTime: 2, CreatedAt: old},
	}).Error)

	_, err := r.Run(ctx, memberCtx(t, env.DB))
	assert.ErrorIs(t, err, policy.ErrPolicyViolation)

	res, err := r.Run(ctx, policy.Service())
	require.NoError(t, err)
	assert.Equal(t, 30, res.Days)
	assert.EqualValues(t, 1, res.Deleted["security_logs"])
	assert.EqualValues(t, 1, res.Deleted["performance_logs"])
	assert.EqualValues(t, 0, res.Deleted["audit_log"])

	var left int64
	require.NoError(t, env.DB.Model(&domain.SecurityLog{}).Count(&left).Error)
	assert.EqualValues(t, 1, left)
}

func TestRetentionUsesSetting(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	require.NoError(t, env.DB.Create(&domain.SystemSetting{SettingKey: RetentionKey, SettingValue: "1"}).Error)
	r := NewRetention(env, NewSettings(env, nil), 30, zap.NewNop())

	require.NoError(t, env.DB.Create(&domain.SecurityLog{
		EventType: "LOGIN", Description: "x", Severity: SeverityLow, CreatedAt: time.Now().Add(-48 * time.Hour),
	}).Error)
	res, err := r.Run(ctx, adminCtx(t, env.DB))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Days)
	assert.EqualValues(t, 1, res.Deleted["security_logs"])

	require.Error(t, r.Start("not a spec"))
	require.NoError(t, r.Start("@daily"))
	r.Stop()
}

func TestSlowRoutes(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	p := NewPerformance(env.DB, env.Table, zap.NewNop())

	p.Record(ctx, "GET /api/v1/events", "GET", 200, 3*time.Second)
	p.Record(ctx, "GET /api/v1/events", "GET", 200, 1*time.Second)
	p.Record(ctx, "GET /api/v1/posts", "GET", 200, 100*time.Millisecond)

	stats, err := p.SlowRoutes(ctx, adminCtx(t, env.DB), time.Now().Add(-time.Hour), time.Second)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "GET /api/v1/events", stats[0].FunctionName)
	assert.EqualValues(t, 2, stats[0].Calls)
	assert.InDelta(t, 2.0, stats[0].AvgSeconds, 0.001)

	stats, err = p.SlowRoutes(ctx, memberCtx(t, env.DB), time.Now().Add(-time.Hour), 0)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestSecurityLogRecord(t *testing.T) {
	env := setupEnv(t)
	l := NewSecurityLog(env.DB, zap.NewNop())
	l.Record(context.Background(), EventTokenInvalid, "bad token", SeverityMedium, "", "10.0.0.1")

	var rows []domain.SecurityLog
	require.NoError(t, env.DB.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, EventTokenInvalid, rows[0].EventType)
	assert.Equal(t, "10.0.0.1", rows[0].IPAddress)

	var nilLog *SecurityLog
	nilLog.Record(context.Background(), EventLogin, "", SeverityLow, "", "")
}
