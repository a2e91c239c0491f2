package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"church-admin/internal/domain"
)

// ActorRepo 身份解析专用，不经过策略表（调用方此时还没有 Actor）
type ActorRepo struct{ db *gorm.DB }

func NewActorRepo(db *gorm.DB) *ActorRepo { return &ActorRepo{db: db} }

// FindByAuthID 未找到返回 nil, nil；首次出现的身份是常态，不按错误记录
func (r *ActorRepo) FindByAuthID(ctx context.Context, authID string) (*domain.Actor, error) {
	return r.findOne(ctx, "auth_id = ?", authID)
}

func (r *ActorRepo) FindByID(ctx context.Context, id uint) (*domain.Actor, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *ActorRepo) findOne(ctx context.Context, cond string, arg any) (*domain.Actor, error) {
	var a domain.Actor
	res := r.db.WithContext(ctx).Where(cond, arg).Limit(1).Find(&a)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &a, nil
}

// InsertIgnore 冲突即跳过（INSERT ... ON CONFLICT DO NOTHING），返回是否真正插入
func (r *ActorRepo) InsertIgnore(ctx context.Context, a *domain.Actor) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(a)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
