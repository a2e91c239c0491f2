package domain

import "time"

type Event struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Title                string    `gorm:"size:200;not null" json:"title" binding:"required,max=200"`
	Description          string    `gorm:"type:text" json:"description"`
	EventType            string    `gorm:"size:50;not null" json:"eventType" binding:"required,max=50"`
	StartDatetime        time.Time `gorm:"not null" json:"startDatetime"`
	EndDatetime          time.Time `gorm:"not null" json:"endDatetime"`
	Location             string    `gorm:"size:200" json:"location"`
	MaxAttendees         int       `json:"maxAttendees"`
	RequiresRegistration bool      `json:"requiresRegistration"`
	IsPublic             bool      `gorm:"not null" json:"isPublic"`
	CreatedBy            *uint     `gorm:"index" json:"createdBy"`
	IsActive             bool      `gorm:"not null" json:"isActive"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Event) TableName() string { return "events" }
func (e Event) RecordID() uint  { return e.ID }

type Attendance struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	EventID     uint       `gorm:"index;not null" json:"eventId" binding:"required"`
	UserID      *uint      `gorm:"index;not null" json:"userId" binding:"required"`
	Present     bool       `json:"present"`
	CheckInTime *time.Time `json:"checkInTime"`
	Notes       string     `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (Attendance) TableName() string { return "attendance" }
func (a Attendance) RecordID() uint  { return a.ID }

type MediaContent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title" binding:"required,max=200"`
	Description string    `gorm:"type:text" json:"description"`
	FilePath    string    `gorm:"size:500;not null" json:"filePath" binding:"required,max=500"`
	FileType    string    `gorm:"size:50;not null" json:"fileType" binding:"required,max=50"`
	Category    string    `gorm:"size:100" json:"category"`
	Tags        string    `gorm:"type:text" json:"tags"`
	FileSize    int64     `json:"fileSize"`
	UploadedBy  *uint     `gorm:"index" json:"uploadedBy"`
	IsActive    bool      `gorm:"not null" json:"isActive"`
	UploadedAt  time.Time `gorm:"autoCreateTime" json:"uploadedAt"`
}

func (MediaContent) TableName() string { return "media_content" }
func (m MediaContent) RecordID() uint  { return m.ID }

type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:200;not null" json:"title" binding:"required,max=200"`
	Content   string    `gorm:"type:text;not null" json:"content" binding:"required"`
	PostType  string    `gorm:"size:50" json:"postType"`
	AuthorID  *uint     `gorm:"index;not null" json:"authorId"`
	IsPinned  bool      `json:"isPinned"`
	IsActive  bool      `gorm:"not null" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Post) TableName() string { return "posts" }
func (p Post) RecordID() uint  { return p.ID }

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"postId" binding:"required"`
	AuthorID  *uint     `gorm:"index;not null" json:"authorId"`
	Content   string    `gorm:"type:text;not null" json:"content" binding:"required"`
	IsActive  bool      `gorm:"not null" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Comment) TableName() string { return "comments" }
func (c Comment) RecordID() uint  { return c.ID }

type Routine struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title" binding:"required,max=200"`
	Description string     `gorm:"type:text" json:"description"`
	Frequency   string     `gorm:"size:50;not null" json:"frequency" binding:"required,max=50"`
	AssignedTo  *uint      `gorm:"index" json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
	Completed   bool       `json:"completed"`
	CreatedBy   *uint      `gorm:"index" json:"createdBy"`
	IsActive    bool       `gorm:"not null" json:"isActive"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (Routine) TableName() string { return "routines" }
func (r Routine) RecordID() uint  { return r.ID }
