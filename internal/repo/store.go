package repo

import (
	"context"
	"errors"
	"reflect"
	"time"

	"gorm.io/gorm"

	"church-admin/internal/audit"
	"church-admin/internal/domain"
	"church-admin/internal/policy"
)

var (
	// ErrNotFound 行不存在或对调用方不可见，两者不作区分
	ErrNotFound   = errors.New("record not found")
	ErrIDMismatch = errors.New("record id cannot change")
	ErrNoActive   = errors.New("resource has no active flag")
)

// Env 数据访问层共享依赖
type Env struct {
	DB    *gorm.DB
	Table *policy.Table
	Audit *audit.Recorder
}

type Page struct {
	Offset int
	Limit  int
	Order  string
}

func (p Page) normalize() Page {
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Order == "" {
		p.Order = "id DESC"
	}
	return p
}

type Scope = func(*gorm.DB) *gorm.DB

// Store 受策略保护的通用仓储：每次读写前先过策略表
type Store[T domain.Record] struct {
	env Env
	res policy.Resource
}

func NewStore[T domain.Record](env Env) *Store[T] {
	var zero T
	return &Store[T]{env: env, res: policy.Resource(zero.TableName())}
}

func (s *Store[T]) Resource() policy.Resource { return s.res }

// List 不可见的行直接被查询条件过滤掉，不报错
func (s *Store[T]) List(ctx context.Context, ac *policy.Context, p Page, scopes ...Scope) ([]T, int64, error) {
	p = p.normalize()
	q := s.env.Table.Scope(ac, s.res)(s.env.DB.WithContext(ctx).Model(new(T)))
	for _, sc := range scopes {
		q = sc(q)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := make([]T, 0, p.Limit)
	if err := q.Order(p.Order).Limit(p.Limit).Offset(p.Offset).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store[T]) Get(ctx context.Context, ac *policy.Context, id uint) (*T, error) {
	row, err := load[T](s.env.DB.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if !s.env.Table.Visible(ac, *row) {
		return nil, ErrNotFound
	}
	return row, nil
}

func (s *Store[T]) Create(ctx context.Context, ac *policy.Context, row *T) error {
	err := s.env.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.env.Table.Authorize(ac, s.res, policy.OpInsert, nil, *row); err != nil {
			return err
		}
		return tx.Create(row).Error
	})
	if err != nil {
		return err
	}
	s.observe(ctx, ac, audit.OpInsert, (*row).RecordID(), nil, row)
	return nil
}

// Update 在同一事务内：读取修改前的行 → mutate → 对前后两个版本都做策略校验 → 写入
func (s *Store[T]) Update(ctx context.Context, ac *policy.Context, id uint, mutate func(*T) error) (*T, error) {
	if s.env.Table.AppendOnly(s.res) {
		return nil, policy.ErrUpdateDenied
	}
	var before, after *T
	err := s.env.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if before, err = load[T](tx, id); err != nil {
			return err
		}
		if !s.env.Table.Visible(ac, *before) {
			return ErrNotFound
		}
		// 再读一次作为可修改副本，避免与 before 共享指针字段
		if after, err = load[T](tx, id); err != nil {
			return err
		}
		if err := mutate(after); err != nil {
			return err
		}
		if (*after).RecordID() != id {
			return ErrIDMismatch
		}
		if err := s.env.Table.Authorize(ac, s.res, policy.OpUpdate, *before, *after); err != nil {
			return err
		}
		return tx.Save(after).Error
	})
	if err != nil {
		return nil, err
	}
	s.observe(ctx, ac, audit.OpUpdate, id, before, after)
	return after, nil
}

// Deactivate 软删除：is_active = false，走更新策略
func (s *Store[T]) Deactivate(ctx context.Context, ac *policy.Context, id uint) (*T, error) {
	return s.Update(ctx, ac, id, func(row *T) error { return setActive(row, false) })
}

func (s *Store[T]) Delete(ctx context.Context, ac *policy.Context, id uint) error {
	var before *T
	err := s.env.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if before, err = load[T](tx, id); err != nil {
			return err
		}
		if !s.env.Table.Visible(ac, *before) {
			return ErrNotFound
		}
		if err := s.env.Table.Authorize(ac, s.res, policy.OpDelete, *before, nil); err != nil {
			return err
		}
		return tx.Delete(before).Error
	})
	if err != nil {
		return err
	}
	s.observe(ctx, ac, audit.OpDelete, id, before, nil)
	return nil
}

// DeleteOlderThan 保留期清理；删除策略与行内容无关，只对零值行做一次校验
func (s *Store[T]) DeleteOlderThan(ctx context.Context, ac *policy.Context, cutoff time.Time) (int64, error) {
	var zero T
	if err := s.env.Table.Authorize(ac, s.res, policy.OpDelete, zero, nil); err != nil {
		return 0, err
	}
	res := s.env.DB.WithContext(ctx).Where("created_at < ?", cutoff).Delete(new(T))
	return res.RowsAffected, res.Error
}

func (s *Store[T]) observe(ctx context.Context, ac *policy.Context, op audit.Op, id uint, before, after *T) {
	ch := audit.Change{Table: string(s.res), RecordID: id, Op: op}
	if before != nil {
		ch.Before = before
	}
	if after != nil {
		ch.After = after
	}
	s.env.Audit.Record(ctx, ac, ch)
}

func load[T domain.Record](db *gorm.DB, id uint) (*T, error) {
	row := new(T)
	err := db.First(row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func setActive(row any, on bool) error {
	v := reflect.ValueOf(row)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return ErrNoActive
	}
	f := v.Elem().FieldByName("IsActive")
	if !f.IsValid() || f.Kind() != reflect.Bool || !f.CanSet() {
		return ErrNoActive
	}
	f.SetBool(on)
	return nil
}
