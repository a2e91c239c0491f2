package policy

import (
	"fmt"
	"sort"
	"sync"

	"gorm.io/gorm"

	"church-admin/internal/domain"
)

type Operation string

const (
	OpSelect Operation = "select"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

var operations = []Operation{OpSelect, OpInsert, OpUpdate, OpDelete}

// Resource 资源即表名
type Resource string

// Name 例如 events_select_policy
func Name(res Resource, op Operation) string { return fmt.Sprintf("%s_%s_policy", res, op) }

// Rule 行谓词；nil 表示永不允许
type Rule[T any] func(ac *Context, row *T) bool

// Policy 单个资源的四类操作策略
type Policy[T domain.Record] struct {
	Select Rule[T]
	// Scope 与 Select 等价的 SQL 条件，用于列表查询
	Scope  func(ac *Context, q *gorm.DB) *gorm.DB
	Insert Rule[T]
	// Update 作用于修改前的行，Check 作用于修改后的行；Check 为空时沿用 Update
	Update Rule[T]
	Check  Rule[T]
	Delete Rule[T]
	// AppendOnly 日志表：任何主体都不能更新
	AppendOnly bool
}

type rowRule func(ac *Context, row domain.Record) bool

type entry struct {
	appendOnly bool
	rules      map[Operation]rowRule
	check      rowRule
	scope      func(ac *Context, q *gorm.DB) *gorm.DB
}

// Table 策略注册表 + 启用开关
type Table struct {
	mu       sync.RWMutex
	entries  map[Resource]*entry
	disabled map[string]bool
}

func NewTable() *Table {
	return &Table{entries: map[Resource]*entry{}, disabled: map[string]bool{}}
}

// Register 以 T 的表名登记策略
func Register[T domain.Record](t *Table, p Policy[T]) {
	var zero T
	res := Resource(zero.TableName())
	e := &entry{
		appendOnly: p.AppendOnly,
		rules: map[Operation]rowRule{
			OpSelect: wrap(p.Select),
			OpInsert: wrap(p.Insert),
			OpUpdate: wrap(p.Update),
			OpDelete: wrap(p.Delete),
		},
		scope: p.Scope,
	}
	e.check = e.rules[OpUpdate]
	if p.Check != nil {
		e.check = wrap(p.Check)
	}
	t.mu.Lock()
	t.entries[res] = e
	t.mu.Unlock()
}

func wrap[T domain.Record](r Rule[T]) rowRule {
	if r == nil {
		return nil
	}
	return func(ac *Context, row domain.Record) bool {
		switch v := any(row).(type) {
		case *T:
			return v != nil && r(ac, v)
		case T:
			return r(ac, &v)
		}
		return false
	}
}

func (t *Table) lookup(res Resource) *entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[res]
}

// SetEnabled 单独启用/停用一条命名策略；停用等同于拒绝
func (t *Table) SetEnabled(name string, on bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.knownLocked(name) {
		return false
	}
	if on {
		delete(t.disabled, name)
	} else {
		t.disabled[name] = true
	}
	return true
}

func (t *Table) knownLocked(name string) bool {
	for res := range t.entries {
		for _, op := range operations {
			if Name(res, op) == name {
				return true
			}
		}
	}
	return false
}

func (t *Table) enabled(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.disabled[name]
}

type Status struct {
	Name     string    `json:"name"`
	Resource Resource  `json:"resource"`
	Op       Operation `json:"operation"`
	Enabled  bool      `json:"enabled"`
	// Never 表示该操作没有任何允许分支
	Never bool `json:"never"`
}

// Policies 按名称排序列出所有策略
func (t *Table) Policies() []Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Status, 0, len(t.entries)*len(operations))
	for res, e := range t.entries {
		for _, op := range operations {
			n := Name(res, op)
			never := e.rules[op] == nil || (op == OpUpdate && e.appendOnly)
			out = append(out, Status{Name: n, Resource: res, Op: op, Enabled: !t.disabled[n], Never: never})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (t *Table) allow(ac *Context, res Resource, op Operation, r rowRule, row domain.Record) bool {
	name := Name(res, op)
	ok := r != nil && t.enabled(name) && r(ac, row)
	observe(name, ok)
	return ok
}

// Visible 读判断：不可见的行对调用方而言就是不存在
func (t *Table) Visible(ac *Context, row domain.Record) bool {
	if row == nil {
		return false
	}
	if ac.IsService() {
		return true
	}
	res := Resource(row.TableName())
	e := t.lookup(res)
	if e == nil {
		return false
	}
	return t.allow(ac, res, OpSelect, e.rules[OpSelect], row)
}

// Authorize 统一入口。Update 同时校验修改前(before)和修改后(after)的行。
func (t *Table) Authorize(ac *Context, res Resource, op Operation, before, after domain.Record) error {
	e := t.lookup(res)
	if e == nil {
		return &Violation{Policy: Name(res, op), Op: op}
	}
	if op == OpUpdate && e.appendOnly {
		return fmt.Errorf("%w: %s is append-only", ErrUpdateDenied, res)
	}
	if ac.IsService() {
		return nil
	}
	ok := false
	switch op {
	case OpSelect:
		ok = t.allow(ac, res, op, e.rules[OpSelect], before)
	case OpInsert:
		ok = t.allow(ac, res, op, e.rules[OpInsert], after)
	case OpUpdate:
		ok = t.allow(ac, res, op, e.rules[OpUpdate], before) && t.allow(ac, res, op, e.check, after)
	case OpDelete:
		ok = t.allow(ac, res, op, e.rules[OpDelete], before)
	}
	if !ok {
		return &Violation{Policy: Name(res, op), Op: op}
	}
	return nil
}

// Scope 把读策略翻译成查询条件
func (t *Table) Scope(ac *Context, res Resource) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if ac.IsService() {
			return q
		}
		e := t.lookup(res)
		if e == nil || e.scope == nil || e.rules[OpSelect] == nil || !t.enabled(Name(res, OpSelect)) {
			return deny(q)
		}
		return e.scope(ac, q)
	}
}

func deny(q *gorm.DB) *gorm.DB { return q.Where("1 = 0") }

// AppendOnly 该资源是否只允许追加
func (t *Table) AppendOnly(res Resource) bool {
	e := t.lookup(res)
	return e != nil && e.appendOnly
}
