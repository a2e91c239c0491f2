package domain

// Record 任何受策略保护的表行
type Record interface {
	TableName() string
	RecordID() uint
}

// Models 返回需要迁移的全部模型
func Models() []any {
	return []any{
		&Actor{},
		&Event{}, &Attendance{}, &MediaContent{}, &Post{}, &Comment{}, &Routine{},
		&AIConversation{}, &Message{}, &SystemNotification{},
		&MeetingReport{}, &ReportTemplate{},
		&SecurityLog{}, &PerformanceLog{}, &AuditLog{}, &SystemSetting{},
	}
}
