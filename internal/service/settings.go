package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"church-admin/internal/core/cache"
	"church-admin/internal/domain"
	"church-admin/internal/policy"
	"church-admin/internal/repo"
)

const settingTTL = 5 * time.Minute

// Settings system_settings 的读写；写走策略表，后台任务读走缓存
type Settings struct {
	store *repo.Store[domain.SystemSetting]
	db    *gorm.DB
	cache *cache.Cache
}

func NewSettings(env repo.Env, c *cache.Cache) *Settings {
	return &Settings{store: repo.NewStore[domain.SystemSetting](env), db: env.DB, cache: c}
}

func byKey(key string) repo.Scope {
	return func(q *gorm.DB) *gorm.DB { return q.Where("setting_key = ?", key) }
}

func (s *Settings) List(ctx context.Context, ac *policy.Context, p repo.Page) ([]domain.SystemSetting, int64, error) {
	if p.Order == "" {
		p.Order = "setting_key"
	}
	return s.store.List(ctx, ac, p)
}

func (s *Settings) Get(ctx context.Context, ac *policy.Context, key string) (*domain.SystemSetting, error) {
	items, _, err := s.store.List(ctx, ac, repo.Page{Limit: 1}, byKey(key))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, repo.ErrNotFound
	}
	return &items[0], nil
}

// Set 按 key 新建或覆盖
func (s *Settings) Set(ctx context.Context, ac *policy.Context, key, value, description string) (*domain.SystemSetting, error) {
	cur, err := s.Get(ctx, ac, key)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		row := &domain.SystemSetting{SettingKey: key, SettingValue: value, Description: description}
		if err := s.store.Create(ctx, ac, row); err != nil {
			return nil, err
		}
		s.invalidate(ctx, key)
		return row, nil
	case err != nil:
		return nil, err
	}
	row, err := s.store.Update(ctx, ac, cur.ID, func(st *domain.SystemSetting) error {
		st.SettingValue = value
		if description != "" {
			st.Description = description
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, key)
	return row, nil
}

func (s *Settings) Delete(ctx context.Context, ac *policy.Context, key string) error {
	cur, err := s.Get(ctx, ac, key)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, ac, cur.ID); err != nil {
		return err
	}
	s.invalidate(ctx, key)
	return nil
}

// Int 供后台任务读取；缺失或非法时返回 def
func (s *Settings) Int(ctx context.Context, key string, def int) int {
	row, err := s.load(ctx, key)
	if err != nil || row == nil {
		return def
	}
	n, err := strconv.Atoi(row.SettingValue)
	if err != nil {
		return def
	}
	return n
}

func (s *Settings) load(ctx context.Context, key string) (*domain.SystemSetting, error) {
	fetch := func(ctx context.Context) (*domain.SystemSetting, error) {
		var row domain.SystemSetting
		err := s.db.WithContext(ctx).Where("setting_key = ?", key).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &row, nil
	}
	return cache.GetOrLoadJSON(s.cache, ctx, "setting:"+key, settingTTL, fetch)
}

func (s *Settings) invalidate(ctx context.Context, key string) {
	_ = s.cache.Invalidate(ctx, "setting:"+key)
}
