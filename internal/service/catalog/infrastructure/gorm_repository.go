package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"huerta/internal/pkg/storage"
	"huerta/internal/service/catalog/domain"
)

// GormRepository 是 domain.Repository 的 GORM 实现
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// AutoMigrate 创建或更新目录相关的表
func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&CategoryModel{}, &ProductModel{})
}

func (r *GormRepository) FindProduct(ctx context.Context, id string) (*domain.Product, error) {
	var model ProductModel
	err := storage.DB(ctx, r.db).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, errors.Wrapf(err, "find product %s", id)
	}
	return ToDomainProduct(&model), nil
}

func (r *GormRepository) FindProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var models []ProductModel
	if err := storage.DB(ctx, r.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "find products")
	}
	for i := range models {
		out[models[i].ID] = ToDomainProduct(&models[i])
	}
	return out, nil
}

func (r *GormRepository) ListProducts(ctx context.Context, includeInactive bool) ([]*domain.Product, error) {
	q := storage.DB(ctx, r.db).Order("sort_order ASC").Order("name ASC")
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	var models []ProductModel
	if err := q.Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	products := make([]*domain.Product, len(models))
	for i := range models {
		products[i] = ToDomainProduct(&models[i])
	}
	return products, nil
}

func (r *GormRepository) SaveProduct(ctx context.Context, p *domain.Product) error {
	return errors.Wrapf(storage.DB(ctx, r.db).Save(FromDomainProduct(p)).Error, "save product %s", p.ID)
}

func (r *GormRepository) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	var models []CategoryModel
	if err := storage.DB(ctx, r.db).Order("sort_order ASC").Order("name ASC").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	out := make([]*domain.Category, len(models))
	for i := range models {
		out[i] = ToDomainCategory(&models[i])
	}
	return out, nil
}

func (r *GormRepository) SaveCategory(ctx context.Context, c *domain.Category) error {
	model := &CategoryModel{ID: c.ID, Name: c.Name, SortOrder: c.SortOrder}
	return errors.Wrapf(storage.DB(ctx, r.db).Save(model).Error, "save category %s", c.ID)
}

func (r *GormRepository) CountExisting(ctx context.Context, table domain.SortTable, ids []string) (int, error) {
	var n int64
	err := storage.DB(ctx, r.db).Table(string(table)).Where("id IN ?", ids).Count(&n).Error
	return int(n), errors.Wrapf(err, "count %s", table)
}

// UpdateSortOrder 只更新 sort_order；MySQL 在值未变化时 RowsAffected 为 0，所以存在性由 CountExisting 保证
func (r *GormRepository) UpdateSortOrder(ctx context.Context, table domain.SortTable, id string, sortOrder int) error {
	err := storage.DB(ctx, r.db).Table(string(table)).Where("id = ?", id).Update("sort_order", sortOrder).Error
	return errors.Wrapf(err, "update %s.sort_order for %s", table, id)
}
