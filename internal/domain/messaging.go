package domain

import "time"

// AIConversation 创建后不可修改，只能删除
type AIConversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index;not null" json:"userId"`
	Message   string    `gorm:"type:text;not null" json:"message" binding:"required"`
	Response  string    `gorm:"type:text;not null" json:"response"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (AIConversation) TableName() string { return "ai_conversations" }
func (c AIConversation) RecordID() uint  { return c.ID }

type Message struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SenderID    *uint      `gorm:"index" json:"senderId"`
	RecipientID *uint      `gorm:"index" json:"recipientId" binding:"required"`
	Subject     string     `gorm:"size:200;not null" json:"subject" binding:"required,max=200"`
	Content     string     `gorm:"type:text;not null" json:"content" binding:"required"`
	MessageType string     `gorm:"size:50" json:"messageType"`
	SentAt      time.Time  `gorm:"autoCreateTime" json:"sentAt"`
	ReadAt      *time.Time `json:"readAt"`
	IsActive    bool       `gorm:"not null" json:"isActive"`
}

func (Message) TableName() string { return "messages" }
func (m Message) RecordID() uint  { return m.ID }

// SystemNotification 目标为空（无用户、无角色）即广播
type SystemNotification struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Title      string     `gorm:"size:200;not null" json:"title" binding:"required,max=200"`
	Message    string     `gorm:"type:text;not null" json:"message" binding:"required"`
	Type       string     `gorm:"size:20" json:"type"`
	Priority   string     `gorm:"size:20" json:"priority"`
	ActionURL  string     `gorm:"size:500" json:"actionUrl"`
	UserID     *uint      `gorm:"index" json:"userId"`
	TargetRole *Role      `gorm:"size:20" json:"targetRole"`
	IsRead     bool       `json:"isRead"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	CreatedBy  *uint      `json:"createdBy"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (SystemNotification) TableName() string { return "system_notifications" }
func (n SystemNotification) RecordID() uint  { return n.ID }
