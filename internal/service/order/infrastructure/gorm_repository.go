package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"huerta/internal/pkg/storage"
	"huerta/internal/service/order/domain"
)

// GormRepository 是 domain.OrderRepository 的 GORM 实现
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&OrderModel{}, &OrderLineModel{})
}

// Create 连同订单行一起写入；幂等键冲突时返回的错误能被 storage.IsDuplicateKey 识别
func (r *GormRepository) Create(ctx context.Context, order *domain.Order) error {
	if err := storage.DB(ctx, r.db).Create(FromDomainOrder(order)).Error; err != nil {
		return errors.Wrapf(err, "insert order %s", order.ID)
	}
	return nil
}

func (r *GormRepository) preloaded(ctx context.Context) *gorm.DB {
	return storage.DB(ctx, r.db).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func (r *GormRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	if err := r.preloaded(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, errors.Wrapf(err, "find order %s", id)
	}
	return ToDomainOrder(&model), nil
}

func (r *GormRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	var model OrderModel
	if err := r.preloaded(ctx).Where("idempotency_key = ?", key).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "find order by idempotency key")
	}
	return ToDomainOrder(&model), nil
}

func (r *GormRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	q := r.preloaded(ctx).Order("created_at DESC")
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var models []OrderModel
	if err := q.Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = ToDomainOrder(&models[i])
	}
	return orders, nil
}

// UpdateStatus 以当前状态为条件更新，影响 0 行说明订单已被别人改过或不存在
func (r *GormRepository) UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) error {
	db := storage.DB(ctx, r.db)
	res := db.Model(&OrderModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{"status": string(to), "updated_at": at})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update status of order %s", id)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := db.Model(&OrderModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return errors.Wrapf(err, "check order %s", id)
	}
	if count == 0 {
		return domain.ErrOrderNotFound
	}
	return errors.Wrapf(domain.ErrInvalidTransition, "order %s is no longer %s", id, from)
}
