package domain

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RolePastor Role = "pastor"
	RoleLeader Role = "leader"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePastor, RoleLeader, RoleMember:
		return true
	}
	return false
}

// Actor 本地用户记录，与外部身份 auth_id 一一对应，所有鉴权判断都基于它
type Actor struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthID    string    `gorm:"uniqueIndex;size:64;not null" json:"authId"`
	Username  string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;size:100;not null" json:"email"`
	FullName  string    `gorm:"size:100;not null" json:"fullName"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Role      Role      `gorm:"size:20;not null" json:"role"`
	IsActive  bool      `gorm:"not null" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Actor) TableName() string { return "users" }
func (a Actor) RecordID() uint  { return a.ID }
