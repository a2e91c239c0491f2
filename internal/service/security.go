package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"church-admin/internal/domain"
)

// 安全事件类型
const (
	EventLogin        = "LOGIN"
	EventTokenInvalid = "TOKEN_INVALID"
	EventUserSynced   = "USER_SYNCED"
	EventAccessDenied = "ACCESS_DENIED"
	EventPolicyChange = "POLICY_CHANGED"
)

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// SecurityLog 以特权句柄追加 security_logs，失败只记日志
type SecurityLog struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewSecurityLog(db *gorm.DB, l *zap.Logger) *SecurityLog {
	return &SecurityLog{db: db, log: l}
}

func (s *SecurityLog) Record(ctx context.Context, event, description, severity, userID, ip string) {
	if s == nil {
		return
	}
	row := &domain.SecurityLog{
		EventType:   event,
		Description: description,
		Severity:    severity,
		UserID:      userID,
		IPAddress:   ip,
	}
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(row).Error; err != nil {
		s.log.Warn("security log write failed", zap.String("event", event), zap.Error(err))
	}
}
