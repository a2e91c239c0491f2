package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"church-admin/internal/domain"
	"church-admin/internal/policy"
)

type RouteStat struct {
	FunctionName string  `json:"functionName"`
	Calls        int64   `json:"calls"`
	AvgSeconds   float64 `json:"avgSeconds"`
	MaxSeconds   float64 `json:"maxSeconds"`
}

// Performance 慢请求记录与统计
type Performance struct {
	db    *gorm.DB
	table *policy.Table
	log   *zap.Logger
}

func NewPerformance(db *gorm.DB, t *policy.Table, l *zap.Logger) *Performance {
	return &Performance{db: db, table: t, log: l}
}

// Record 中间件调用，特权写入
func (p *Performance) Record(ctx context.Context, route, method string, status int, d time.Duration) {
	row := &domain.PerformanceLog{
		FunctionName:  route,
		Method:        method,
		Status:        status,
		ExecutionTime: d.Seconds(),
	}
	if err := p.db.WithContext(context.WithoutCancel(ctx)).Create(row).Error; err != nil {
		p.log.Warn("performance log write failed", zap.String("route", route), zap.Error(err))
	}
}

// SlowRoutes 统计 since 之后平均耗时不低于 minAvg 的路由；非管理员得到空结果
func (p *Performance) SlowRoutes(ctx context.Context, ac *policy.Context, since time.Time, minAvg time.Duration) ([]RouteStat, error) {
	res := policy.Resource(domain.PerformanceLog{}.TableName())
	q := p.table.Scope(ac, res)(p.db.WithContext(ctx).Model(&domain.PerformanceLog{}))
	out := []RouteStat{}
	err := q.Select("function_name, COUNT(*) AS calls, AVG(execution_time) AS avg_seconds, MAX(execution_time) AS max_seconds").
		Where("created_at >= ?", since).
		Group("function_name").
		Having("AVG(execution_time) >= ?", minAvg.Seconds()).
		Order("avg_seconds DESC").
		Scan(&out).Error
	return out, err
}
