package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"huerta/internal/pkg/storage"
	"huerta/internal/service/promotion/domain"
)

// GormRepository 是 domain.Repository 的 GORM 实现
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository 创建一个新的 GORM 仓储实例
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&PromotionModel{}, &DiscountCodeModel{}, &RedemptionModel{})
}

// FindCodeForUpdate 使用 SELECT ... FOR UPDATE 锁定折扣码行，并发兑换在此排队
func (r *GormRepository) FindCodeForUpdate(ctx context.Context, code string) (*domain.DiscountCode, error) {
	var model DiscountCodeModel
	err := storage.DB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, errors.Wrapf(err, "find discount code %s", code)
	}
	return ToDomainDiscountCode(&model), nil
}

func (r *GormRepository) FindPromotion(ctx context.Context, id string) (*domain.Promotion, error) {
	var model PromotionModel
	if err := storage.DB(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPromotionNotFound
		}
		return nil, errors.Wrapf(err, "find promotion %s", id)
	}
	return ToDomainPromotion(&model), nil
}

// ConsumeUse 是一条带条件的 UPDATE，影响 0 行说明次数已用完
func (r *GormRepository) ConsumeUse(ctx context.Context, codeID string) error {
	res := storage.DB(ctx, r.db).Model(&DiscountCodeModel{}).
		Where("id = ? AND (max_uses IS NULL OR current_uses < max_uses)", codeID).
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if res.Error != nil {
		return errors.Wrapf(res.Error, "consume use of %s", codeID)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUsageLimitReached
	}
	return nil
}

func (r *GormRepository) CreateRedemption(ctx context.Context, red *domain.Redemption) error {
	return errors.Wrap(storage.DB(ctx, r.db).Create(FromDomainRedemption(red)).Error, "create redemption")
}

func (r *GormRepository) FindRedemption(ctx context.Context, id string) (*domain.Redemption, error) {
	var model RedemptionModel
	err := storage.DB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRedemptionNotFound
		}
		return nil, errors.Wrapf(err, "find redemption %s", id)
	}
	return ToDomainRedemption(&model), nil
}

func (r *GormRepository) BindRedemption(ctx context.Context, id, orderID string) error {
	res := storage.DB(ctx, r.db).Model(&RedemptionModel{}).
		Where("id = ? AND order_id IS NULL", id).
		Update("order_id", orderID)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "bind redemption %s", id)
	}
	if res.RowsAffected == 0 {
		return domain.ErrRedemptionBound
	}
	return nil
}

func (r *GormRepository) CreatePromotion(ctx context.Context, p *domain.Promotion) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	err := storage.DB(ctx, r.db).Create(FromDomainPromotion(p)).Error
	if storage.IsDuplicateKey(err) {
		return errors.Wrapf(domain.ErrInvalidPromotion, "promotion %s already exists", p.ID)
	}
	return errors.Wrap(err, "create promotion")
}

func (r *GormRepository) ListPromotions(ctx context.Context) ([]*domain.Promotion, error) {
	var models []PromotionModel
	if err := storage.DB(ctx, r.db).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list promotions")
	}
	out := make([]*domain.Promotion, len(models))
	for i := range models {
		out[i] = ToDomainPromotion(&models[i])
	}
	return out, nil
}

func (r *GormRepository) CreateCode(ctx context.Context, c *domain.DiscountCode) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	err := storage.DB(ctx, r.db).Create(FromDomainDiscountCode(c)).Error
	if storage.IsDuplicateKey(err) {
		return errors.Wrapf(domain.ErrDuplicateCode, "%s", c.Code)
	}
	return errors.Wrap(err, "create discount code")
}

func (r *GormRepository) ListCodes(ctx context.Context) ([]*domain.DiscountCode, error) {
	var models []DiscountCodeModel
	if err := storage.DB(ctx, r.db).Order("code ASC").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list discount codes")
	}
	out := make([]*domain.DiscountCode, len(models))
	for i := range models {
		out[i] = ToDomainDiscountCode(&models[i])
	}
	return out, nil
}
