package policy

import (
	"context"

	"church-admin/internal/domain"
)

// Identity 身份提供方断言（外部 id、邮箱、可选元数据）
type Identity struct {
	AuthID   string
	Email    string
	Metadata map[string]any
}

// Context 单次请求内的鉴权上下文：调用方身份 + 解析出的 Actor
//
// 不跨请求缓存；角色变化在下一次请求立即生效。
type Context struct {
	identity *Identity
	actor    *domain.Actor
	service  bool
}

// Anonymous 未登录调用方，所有谓词为 false
func Anonymous() *Context { return &Context{} }

// Service 默认特权主体，绕过全部行级策略（仅限后台维护任务）
func Service() *Context { return &Context{service: true} }

// New actor 可以为 nil（身份已认证但本地无记录）
func New(id Identity, actor *domain.Actor) *Context {
	return &Context{identity: &id, actor: actor}
}

func (c *Context) Identity() *Identity {
	if c == nil {
		return nil
	}
	return c.identity
}

func (c *Context) IsService() bool { return c != nil && c.service }

func (c *Context) Authenticated() bool { return c != nil && c.identity != nil }

// Actor 只返回处于激活状态的记录；停用等同于不存在
func (c *Context) Actor() *domain.Actor {
	if c == nil || c.identity == nil || c.actor == nil || !c.actor.IsActive {
		return nil
	}
	return c.actor
}

func (c *Context) ActorID() *uint {
	a := c.Actor()
	if a == nil {
		return nil
	}
	id := a.ID
	return &id
}

func (c *Context) IsAdmin() bool {
	a := c.Actor()
	return a != nil && (a.Role == domain.RoleAdmin || a.Role == domain.RolePastor)
}

func (c *Context) IsPastor() bool {
	a := c.Actor()
	return a != nil && a.Role == domain.RolePastor
}

func (c *Context) IsLeader() bool {
	a := c.Actor()
	return a != nil && (a.Role == domain.RoleAdmin || a.Role == domain.RolePastor || a.Role == domain.RoleLeader)
}

// IsOwner 比较调用方 Actor id 与资源的归属字段
func (c *Context) IsOwner(owner *uint) bool {
	a := c.Actor()
	return a != nil && owner != nil && *owner == a.ID
}

// HasRole 精确匹配，不做权限继承
func (c *Context) HasRole(r domain.Role) bool {
	a := c.Actor()
	return a != nil && a.Role == r
}

type ctxKey struct{}

func WithContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

// FromContext 缺失时返回匿名上下文（fail closed）
func FromContext(ctx context.Context) *Context {
	if ctx != nil {
		if ac, ok := ctx.Value(ctxKey{}).(*Context); ok && ac != nil {
			return ac
		}
	}
	return Anonymous()
}
