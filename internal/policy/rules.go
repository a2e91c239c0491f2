package policy

import (
	"gorm.io/gorm"

	d "church-admin/internal/domain"
)

// Default 返回完整的教会后台策略表
func Default() *Table {
	t := NewTable()
	Register(t, actors())
	Register(t, events())
	Register(t, attendance())
	Register(t, media())
	Register(t, posts())
	Register(t, comments())
	Register(t, routines())
	Register(t, aiConversations())
	Register(t, messages())
	Register(t, meetingReports())
	Register(t, reportTemplates())
	Register(t, notifications())
	Register(t, adminLog[d.SecurityLog]())
	Register(t, adminLog[d.PerformanceLog]())
	Register(t, adminLog[d.AuditLog]())
	Register(t, settings())
	return t
}

func authenticated[T any](ac *Context, _ *T) bool { return ac.Authenticated() }
func admin[T any](ac *Context, _ *T) bool         { return ac.IsAdmin() }
func leader[T any](ac *Context, _ *T) bool        { return ac.IsLeader() }

func activeScope(_ *Context, q *gorm.DB) *gorm.DB { return q.Where("is_active = ?", true) }

func adminScope(ac *Context, q *gorm.DB) *gorm.DB {
	if ac.IsAdmin() {
		return q
	}
	return deny(q)
}

func actors() Policy[d.Actor] {
	return Policy[d.Actor]{
		Select: func(ac *Context, a *d.Actor) bool {
			return (a.IsActive && ac.Authenticated()) || ac.IsAdmin()
		},
		Scope: func(ac *Context, q *gorm.DB) *gorm.DB {
			switch {
			case ac.IsAdmin():
				return q
			case ac.Authenticated():
				return q.Where("is_active = ?", true)
			}
			return deny(q)
		},
		Insert: admin[d.Actor],
		Update: func(ac *Context, a *d.Actor) bool {
			return ac.IsOwner(&a.ID) || ac.IsAdmin()
		},
		// 本人可以改资料，但不能改自己的角色、激活状态和外部身份
		Check: func(ac *Context, a *d.Actor) bool {
			if ac.IsAdmin() {
				return true
			}
			me := ac.Actor()
			return me != nil && me.ID == a.ID &&
				a.Role == me.Role && a.IsActive == me.IsActive && a.AuthID == me.AuthID
		},
		Delete: admin[d.Actor],
	}
}

func events() Policy[d.Event] {
	return Policy[d.Event]{
		Select: func(ac *Context, e *d.Event) bool {
			return e.IsActive && (e.IsPublic || ac.IsLeader() || ac.IsOwner(e.CreatedBy))
		},
		Scope: func(ac *Context, q *gorm.DB) *gorm.DB {
			q = q.Where("is_active = ?", true)
			if ac.IsLeader() {
				return q
			}
			if id := ac.ActorID(); id != nil {
				return q.Where("is_public = ? OR created_by = ?", true, *id)
			}
			return q.Where("is_public = ?", true)
		},
		Insert: leader[d.Event],
		Update: func(ac *Context, e *d.Event) bool { return ac.IsOwner(e.CreatedBy) || ac.IsLeader() },
		Delete: admin[d.Event],
	}
}

func attendance() Policy[d.Attendance] {
	return Policy[d.Attendance]{
		Select: func(ac *Context, a *d.Attendance) bool { return ac.IsOwner(a.UserID) || ac.IsLeader() },
		Scope: func(ac *Context, q *gorm.DB) *gorm.DB {
			if ac.IsLeader() {
				return q
			}
			if id := ac.ActorID(); id != nil {
				return q.Where("user_id = ?", *id)
			}
			return deny(q)
		},
		Insert: leader[d.Attendance],
		Update: leader[d.Attendance],
		Delete: admin[d.Attendance],
	}
}

func media() Policy[d.MediaContent] {
	return Policy[d.MediaContent]{
		Select: func(_ *Context, m *d.MediaContent) bool { return m.IsActive },
		Scope:  activeScope,
		Insert: authenticated[d.MediaContent],
		Update: func(ac *Context, m *d.MediaContent) bool { return ac.IsOwner(m.UploadedBy) || ac.IsLeader() },
		Delete: func(ac *Context, m *d.MediaContent) bool { return ac.IsOwner(m.UploadedBy) || ac.IsAdmin() },
	}
}

func posts() Policy[d.Post] {
	return Policy[d.Post]{
		Select: func(_ *Context, p *d.Post) bool { return p.IsActive },
		Scope:  activeScope,
		Insert: leader[d.Post],
		Update: func(ac *Context, p *d.Post) bool { return ac.IsOwner(p.AuthorID) || ac.IsLeader() },
		Delete: func(ac *Context, p *d.Post) bool { return ac.IsOwner(p.AuthorID) || ac.IsAdmin() },
	}
}

func comments() Policy[d.Comment] {
	return Policy[d.Comment]{
		Select: func(_ *Context, c *d.Comment) bool { return c.IsActive },
		Scope:  activeScope,
		Insert: authenticated[d.Comment],
		Update: func(ac *Context, c *d.Comment) bool { return ac.IsOwner(c.AuthorID) || ac.IsLeader() },
		Delete: func(ac *Context, c *d.Comment) bool { return ac.IsOwner(c.AuthorID) || ac.IsAdmin() },
	}
}

func routines() Policy[d.Routine] {
	involved := func(ac *Context, r *d.Routine) bool {
		return ac.IsOwner(r.AssignedTo) || ac.IsOwner(r.CreatedBy) || ac.IsLeader()
	}
	return Policy[d.Routine]{
		Select: func(ac *Context, r *d.Routine) bool { return r.IsActive && involved(ac, r) },
		Scope: func(ac *Context, q *gorm.DB) *gorm.DB {
			q = q.Where("is_active = ?", true)
			if ac.IsLeader() {
				return q
			}
			if id := ac.ActorID(); id != nil {
				return q.Where("assigned_to = ? OR created_by = ?", *id, *id)
			}
			return deny(q)
		},
		Insert: leader[d.Routine],
		Update: involved,
		Delete: func(ac *Context, r *d.Routine) bool { return ac.IsOwner(r.CreatedBy) || ac.IsAdmin() },
	}
}

func aiConversations() Policy[d.AIConversation] {
	ownerOrAdmin := func(ac *Context, c *d.AIConversation) bool { return ac.IsOwner(c.UserID) || ac.IsAdmin() }
	return Policy[d.AIConversation]{
		Select: ownerOrAdmin,
		Scope: func(ac *Context, q *gorm.DB) *gorm.DB {
			if ac.IsAdmin() {
				return q
			}
			if id := ac.ActorID(); id != nil {
				return q.Where("user_id = ?", *id)
			}
			return deny(q)
		},
		Insert: authenticated[d.AIConversation],
		// 对话一经创建不可修改
		Update: nil,
		Delete: ownerOrAdmin,
	}
}

func messages() Policy[d.Message] {
	return Policy[d.Message]{
		Select: func(ac *Context, m *d.Message) bool {
			return m.IsActive && (ac.IsOwner(m.SenderID) || ac.IsOwner(m.RecipientID) || ac.IsAdmin())
		},
		Scope: func(ac *Context, q *gorm.DB) *gorm.DB {
			q = q.Where("is_active = ?", true)
			if ac.IsAdmin() {
				return q
			}
			if id := ac.ActorID(); id != nil {
				return q.Where("sender_id = ? OR recipient_id = ?", *id, *id)
			}
			return deny(q)
		},
		Insert: authenticated[d.Message],
		Update: func(ac *Context, m *d.Message) bool { return ac.IsOwner(m.RecipientID) || ac.IsAdmin() },
		Delete: func(ac *Context, m *d.Message) bool { return ac.IsOwner(m.SenderID) || ac.IsAdmin() },
	}
}

func meetingReports() Policy[d.MeetingReport] {
	return Policy[d.MeetingReport]{
		Select: func(ac *Context, r *d.MeetingReport) bool {
			return r.Status == d.ReportPublished || ac.IsOwner(r.CreatedBy) || ac.IsLeader()
		},
		Scope: func(ac *Context, q *gorm.DB) *gorm.DB {
			if ac.IsLeader() {
				return q
			}
			if id := ac.ActorID(); id != nil {
				return q.Where("status = ? OR created_by = ?", d.ReportPublished, *id)
			}
			return q.Where("status = ?", d.ReportPublished)
		},
		Insert: leader[d.MeetingReport],
		Update: func(ac *Context, r *d.MeetingReport) bool { return ac.IsOwner(r.CreatedBy) || ac.IsLeader() },
		Delete: func(ac *Context, r *d.MeetingReport) bool { return ac.IsOwner(r.CreatedBy) || ac.IsAdmin() },
	}
}

func reportTemplates() Policy[d.ReportTemplate] {
	return Policy[d.ReportTemplate]{
		Select: func(_ *Context, r *d.ReportTemplate) bool { return r.IsActive },
		Scope:  activeScope,
		Insert: leader[d.ReportTemplate],
		Update: func(ac *Context, r *d.ReportTemplate) bool { return ac.IsOwner(r.CreatedBy) || ac.IsLeader() },
		Delete: func(ac *Context, r *d.ReportTemplate) bool { return ac.IsOwner(r.CreatedBy) || ac.IsAdmin() },
	}
}

func notifications() Policy[d.SystemNotification] {
	return Policy[d.SystemNotification]{
		Select: func(ac *Context, n *d.SystemNotification) bool {
			broadcast := n.UserID == nil && n.TargetRole == nil
			return broadcast || ac.IsOwner(n.UserID) ||
				(n.TargetRole != nil && ac.HasRole(*n.TargetRole)) || ac.IsAdmin()
		},
		Scope: func(ac *Context, q *gorm.DB) *gorm.DB {
			if ac.IsAdmin() {
				return q
			}
			broadcast := "(user_id IS NULL AND target_role IS NULL)"
			if a := ac.Actor(); a != nil {
				return q.Where(broadcast+" OR user_id = ? OR target_role = ?", a.ID, string(a.Role))
			}
			return q.Where(broadcast)
		},
		Insert: admin[d.SystemNotification],
		Update: func(ac *Context, n *d.SystemNotification) bool { return ac.IsOwner(n.UserID) || ac.IsAdmin() },
		Delete: admin[d.SystemNotification],
	}
}

// adminLog 日志表：管理员读/写/删（保留期清理），不可更新
func adminLog[T d.Record]() Policy[T] {
	return Policy[T]{
		Select:     admin[T],
		Scope:      adminScope,
		Insert:     admin[T],
		Delete:     admin[T],
		AppendOnly: true,
	}
}

func settings() Policy[d.SystemSetting] {
	return Policy[d.SystemSetting]{
		Select: admin[d.SystemSetting],
		Scope:  adminScope,
		Insert: admin[d.SystemSetting],
		Update: admin[d.SystemSetting],
		Delete: admin[d.SystemSetting],
	}
}
