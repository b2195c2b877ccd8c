package application

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"huerta/internal/pkg/lock"
	"huerta/internal/pkg/logger"
	"huerta/internal/pkg/storage"
	"huerta/internal/service/catalog/domain"
)

// CatalogService 提供商品目录的查询、后台维护和批量排序用例
type CatalogService struct {
	repo   domain.Repository
	tx     storage.TxManager
	locker lock.Locker
	tracer trace.Tracer
}

func NewCatalogService(repo domain.Repository, tx storage.TxManager, locker lock.Locker, tracer trace.Tracer) *CatalogService {
	return &CatalogService{repo: repo, tx: tx, locker: locker, tracer: tracer}
}

func (s *CatalogService) ListProducts(ctx context.Context, includeInactive bool) ([]*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.ListProducts")
	defer span.End()
	products, err := s.repo.ListProducts(ctx, includeInactive)
	if err != nil {
		span.RecordError(err)
	}
	return products, err
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.GetProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))
	return s.repo.FindProduct(ctx, id)
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.ListCategories")
	defer span.End()
	return s.repo.ListCategories(ctx)
}

// ProductsByID 返回下单和买赠计算需要的权威商品数据。
// 在事务中调用时读取的是提交时刻的价格。
func (s *CatalogService) ProductsByID(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.ProductsByID")
	defer span.End()
	span.SetAttributes(attribute.Int("product.count", len(ids)))
	products, err := s.repo.FindProducts(ctx, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load products")
	}
	return products, err
}

// UnitPrices 返回在售商品的当前成交单价，下架或不存在的商品不在结果中
func (s *CatalogService) UnitPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	products, err := s.ProductsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	prices := make(map[string]decimal.Decimal, len(products))
	for id, p := range products {
		if p.Active {
			prices[id] = p.EffectivePrice()
		}
	}
	return prices, nil
}

// UpsertProduct 新建或整体更新一件商品
func (s *CatalogService) UpsertProduct(ctx context.Context, req *UpsertProductRequest) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.UpsertProduct")
	defer span.End()

	p := req.ToDomain()
	if err := p.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	var saved *domain.Product
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.SaveProduct(ctx, p); err != nil {
			return err
		}
		var err error
		saved, err = s.repo.FindProduct(ctx, p.ID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save product")
		return nil, err
	}
	logger.Ctx(ctx).Info().Str("product", p.ID).Msg("product saved")
	return saved, nil
}

func (s *CatalogService) UpsertCategory(ctx context.Context, req *UpsertCategoryRequest) (*domain.Category, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.UpsertCategory")
	defer span.End()

	if req.ID == "" || req.Name == "" || req.SortOrder < 0 {
		return nil, errors.Wrap(domain.ErrInvalidProduct, "category id and name are required, sortOrder must not be negative")
	}
	c := &domain.Category{ID: req.ID, Name: req.Name, SortOrder: req.SortOrder}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.SaveCategory(ctx, c)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return c, nil
}

// Reorder 批量更新排序：整批在一个事务内生效或全部不生效，同一张表的排序按表加锁串行执行。
func (s *CatalogService) Reorder(ctx context.Context, req *ReorderRequest) error {
	ctx, span := s.tracer.Start(ctx, "catalog.Reorder")
	defer span.End()

	table := domain.SortTable(req.Table)
	span.SetAttributes(
		attribute.String("reorder.table", req.Table),
		attribute.Int("reorder.items", len(req.Items)),
	)

	if err := domain.ValidateReorder(table, req.Items); err != nil {
		span.RecordError(err)
		return err
	}

	release, err := s.locker.Acquire(ctx, "reorder-"+req.Table)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "acquire reorder lock")
		return errors.Wrap(err, "acquire reorder lock")
	}
	defer release()
	span.AddEvent("reorder lock acquired")

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		ids[i] = item.ID
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := s.repo.CountExisting(ctx, table, ids)
		if err != nil {
			return err
		}
		if n != len(ids) {
			return errors.Wrapf(domain.ErrSortTargetAbsent, "%d of %d %s exist", n, len(ids), table)
		}
		for _, item := range req.Items {
			if err := s.repo.UpdateSortOrder(ctx, table, item.ID, item.SortOrder); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reorder rolled back")
		logger.Ctx(ctx).Warn().Err(err).Str("table", req.Table).Msg("reorder rolled back")
		return err
	}

	logger.Ctx(ctx).Info().Str("table", req.Table).Int("items", len(req.Items)).Msg("reorder applied")
	return nil
}

// Seed 写入演示数据，仅在空库时生效。
func (s *CatalogService) Seed(ctx context.Context) error {
	existing, err := s.repo.ListProducts(ctx, true)
	if err != nil || len(existing) > 0 {
		return err
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for i, c := range []domain.Category{
			{ID: "frutas", Name: "Frutas"},
			{ID: "verduras", Name: "Verduras"},
			{ID: "hierbas", Name: "Hierbas"},
		} {
			c.SortOrder = i
			if err := s.repo.SaveCategory(ctx, &c); err != nil {
				return err
			}
		}
		for i, p := range []domain.Product{
			{ID: "tomate-cherry", Name: "Tomate cherry", CategoryID: "verduras", Unit: "kg", Price: decimal.NewFromInt(1000), SalePrice: decimal.NewNullDecimal(decimal.NewFromInt(800)), IsOnSale: true},
			{ID: "lechuga", Name: "Lechuga", CategoryID: "verduras", Unit: "unidad", Price: decimal.NewFromInt(350)},
			{ID: "frutilla", Name: "Frutilla", CategoryID: "frutas", Unit: "kg", Price: decimal.NewFromInt(2500)},
			{ID: "albahaca", Name: "Albahaca", CategoryID: "hierbas", Unit: "manojo", Price: decimal.NewFromInt(400)},
		} {
			p.Active = true
			p.SortOrder = i
			if err := s.repo.SaveProduct(ctx, &p); err != nil {
				return err
			}
		}
		return nil
	})
}
