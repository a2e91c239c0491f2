package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"church-admin/internal/domain"
	"church-admin/internal/policy"
	"church-admin/internal/repo"
)

const RetentionKey = "log_retention_days"

type RetentionResult struct {
	Days    int              `json:"days"`
	Cutoff  time.Time        `json:"cutoff"`
	Deleted map[string]int64 `json:"deleted"`
}

// Retention 定期清理日志表
type Retention struct {
	security    *repo.Store[domain.SecurityLog]
	performance *repo.Store[domain.PerformanceLog]
	audit       *repo.Store[domain.AuditLog]
	settings    *Settings
	defaultDays int
	log         *zap.Logger
	cron        *cron.Cron
	now         func() time.Time
}

func NewRetention(env repo.Env, settings *Settings, defaultDays int, l *zap.Logger) *Retention {
	if defaultDays <= 0 {
		defaultDays = 30
	}
	return &Retention{
		security:    repo.NewStore[domain.SecurityLog](env),
		performance: repo.NewStore[domain.PerformanceLog](env),
		audit:       repo.NewStore[domain.AuditLog](env),
		settings:    settings,
		defaultDays: defaultDays,
		log:         l,
		now:         time.Now,
	}
}

// Run 以 ac 的身份删除早于保留期的日志；定时任务使用特权主体
func (r *Retention) Run(ctx context.Context, ac *policy.Context) (*RetentionResult, error) {
	days := r.settings.Int(ctx, RetentionKey, r.defaultDays)
	if days <= 0 {
		days = r.defaultDays
	}
	res := &RetentionResult{Days: days, Cutoff: r.now().AddDate(0, 0, -days), Deleted: map[string]int64{}}

	steps := []struct {
		table string
		run   func(context.Context, *policy.Context, time.Time) (int64, error)
	}{
		{domain.SecurityLog{}.TableName(), r.security.DeleteOlderThan},
		{domain.PerformanceLog{}.TableName(), r.performance.DeleteOlderThan},
		{domain.AuditLog{}.TableName(), r.audit.DeleteOlderThan},
	}
	for _, s := range steps {
		n, err := s.run(ctx, ac, res.Cutoff)
		if err != nil {
			return res, err
		}
		res.Deleted[s.table] = n
	}
	return res, nil
}

// Start 按 cron 表达式调度，例如 @daily
func (r *Retention) Start(spec string) error {
	r.cron = cron.New()
	_, err := r.cron.AddFunc(spec, func() {
		res, err := r.Run(context.Background(), policy.Service())
		if err != nil {
			r.log.Error("retention run failed", zap.Error(err))
			return
		}
		r.log.Info("retention run done",
			zap.Int("days", res.Days),
			zap.Any("deleted", res.Deleted),
		)
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	r.log.Info("retention scheduled", zap.String("spec", spec))
	return nil
}

func (r *Retention) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}
