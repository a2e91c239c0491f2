package domain

import "time"

const (
	ReportDraft     = "draft"
	ReportPublished = "published"
)

type MeetingReport struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	EventID      *uint     `gorm:"index" json:"eventId"`
	Title        string    `gorm:"size:200;not null" json:"title" binding:"required,max=200"`
	Content      string    `gorm:"type:text" json:"content"`
	Summary      string    `gorm:"type:text" json:"summary"`
	Participants string    `gorm:"type:text" json:"participants"`
	Decisions    string    `gorm:"type:text" json:"decisions"`
	ActionItems  string    `gorm:"type:text" json:"actionItems"`
	NextSteps    string    `gorm:"type:text" json:"nextSteps"`
	Status       string    `gorm:"size:20;not null" json:"status" binding:"omitempty,oneof=draft published"`
	CreatedBy    *uint     `gorm:"index" json:"createdBy"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (MeetingReport) TableName() string { return "meeting_reports" }
func (r MeetingReport) RecordID() uint  { return r.ID }

type ReportTemplate struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name" binding:"required,max=200"`
	Description string    `gorm:"type:text" json:"description"`
	Content     string    `gorm:"type:text;not null" json:"content" binding:"required"`
	CreatedBy   *uint     `gorm:"index" json:"createdBy"`
	IsActive    bool      `gorm:"not null" json:"isActive"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (ReportTemplate) TableName() string { return "report_templates" }
func (t ReportTemplate) RecordID() uint  { return t.ID }
