package domain

import "time"

// 日志表只允许追加；保留期清理走管理员删除

type SecurityLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	EventType   string    `gorm:"size:100;not null;index" json:"eventType"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Severity    string    `gorm:"size:20;not null" json:"severity"`
	UserID      string    `gorm:"size:64;index" json:"userId"`
	IPAddress   string    `gorm:"size:45" json:"ipAddress"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (SecurityLog) TableName() string { return "security_logs" }
func (l SecurityLog) RecordID() uint  { return l.ID }

type PerformanceLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	FunctionName  string    `gorm:"size:200;not null;index" json:"functionName"`
	Method        string    `gorm:"size:10" json:"method"`
	Status        int       `json:"status"`
	ExecutionTime float64   `gorm:"not null" json:"executionTime"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (PerformanceLog) TableName() string { return "performance_logs" }
func (l PerformanceLog) RecordID() uint  { return l.ID }

type AuditLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	EventID       string    `gorm:"size:26;not null;uniqueIndex" json:"eventId"`
	Table         string    `gorm:"column:table_name;size:64;not null;index" json:"tableName"`
	RowID         uint      `gorm:"column:record_id;index" json:"recordId"`
	Operation     string    `gorm:"size:10;not null" json:"operation"`
	ActorID       *uint     `gorm:"index" json:"actorId"`
	AuthID        string    `gorm:"size:64" json:"authId"`
	OldData       string    `gorm:"type:text" json:"oldData"`
	NewData       string    `gorm:"type:text" json:"newData"`
	ChangedFields string    `gorm:"type:text" json:"changedFields"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (AuditLog) TableName() string { return "audit_log" }
func (l AuditLog) RecordID() uint  { return l.ID }

type SystemSetting struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SettingKey   string    `gorm:"size:100;uniqueIndex;not null" json:"settingKey" binding:"required,max=100"`
	SettingValue string    `gorm:"type:text" json:"settingValue"`
	Description  string    `gorm:"type:text" json:"description"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (SystemSetting) TableName() string { return "system_settings" }
func (s SystemSetting) RecordID() uint  { return s.ID }
