package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"huerta/internal/pkg/logger"
	"huerta/internal/pkg/metrics"
	"huerta/internal/pkg/money"
	"huerta/internal/pkg/storage"
	"huerta/internal/service/promotion/domain"
)

// ProductCatalog 提供买赠计算所需的权威单价
type ProductCatalog interface {
	UnitPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
}

// PromotionService 定义了优惠服务提供的所有业务用例
type PromotionService struct {
	repo    domain.Repository
	tx      storage.TxManager
	rules   domain.RuleEngine
	catalog ProductCatalog
	tracer  trace.Tracer
	now     func() time.Time
}

// NewPromotionService 创建一个新的优惠服务实例
func NewPromotionService(repo domain.Repository, tx storage.TxManager, rules domain.RuleEngine, catalog ProductCatalog, tracer trace.Tracer) *PromotionService {
	return &PromotionService{
		repo:    repo,
		tx:      tx,
		rules:   rules,
		catalog: catalog,
		tracer:  tracer,
		now:     time.Now,
	}
}

// Redeem 是兑换折扣码的核心业务逻辑：在一个事务内锁定折扣码、校验资格、消耗一次次数并记录兑换。
// 每次调用都是一次独立的兑换尝试，不具备幂等性。dryRun 只校验和计算，不消耗次数。
func (s *PromotionService) Redeem(ctx context.Context, req *RedeemRequest) (*RedeemResult, error) {
	ctx, span := s.tracer.Start(ctx, "service.Redeem")
	defer span.End()

	code := domain.NormalizeCode(req.Code)
	span.SetAttributes(
		attribute.String("discount.code", code),
		attribute.String("order.total", req.OrderTotal.String()),
		attribute.Bool("discount.dry_run", req.DryRun),
	)

	result, err := s.redeem(ctx, code, req)
	if err != nil {
		s.observe(err)
		span.RecordError(err)
		if domain.IsBusinessRejection(err) {
			span.AddEvent("redemption rejected")
			logger.Ctx(ctx).Info().Str("code", code).Err(err).Msg("redemption rejected")
		} else {
			span.SetStatus(codes.Error, "redemption failed")
			logger.Ctx(ctx).Error().Str("code", code).Err(err).Msg("redemption failed")
		}
		return nil, err
	}

	s.observe(nil)
	logger.Ctx(ctx).Info().
		Str("code", code).
		Str("discount", result.DiscountAmount.String()).
		Bool("dry_run", req.DryRun).
		Msg("🎟️ discount code redeemed")
	return result, nil
}

func (s *PromotionService) redeem(ctx context.Context, code string, req *RedeemRequest) (*RedeemResult, error) {
	if err := domain.ValidateCodeFormat(code); err != nil {
		return nil, err
	}
	if req.OrderTotal.IsNegative() {
		return nil, domain.ErrInvalidOrderTotal
	}
	items, err := s.lineItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	var result *RedeemResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		red, promo, err := s.redeemInTx(ctx, code, req.OrderTotal, items, req.DryRun, nil)
		if err != nil {
			return err
		}
		result = &RedeemResult{
			Success:        true,
			DiscountAmount: red.DiscountAmount,
			PromotionName:  promo.Name,
		}
		if !req.DryRun {
			result.RedemptionID = red.ID
		}
		return nil
	})
	return result, err
}

// redeemInTx 必须在事务中调用。orderID 非空时兑换记录直接绑定到该订单。
func (s *PromotionService) redeemInTx(ctx context.Context, code string, total decimal.Decimal, items []domain.LineItem, dryRun bool, orderID *string) (*domain.Redemption, *domain.Promotion, error) {
	dc, promo, amount, err := s.evaluate(ctx, code, total, items, false)
	if err != nil {
		return nil, nil, err
	}
	red := &domain.Redemption{
		ID:             uuid.NewString(),
		CodeID:         dc.ID,
		Code:           dc.Code,
		PromotionID:    promo.ID,
		OrderTotal:     total,
		DiscountAmount: amount,
		CreatedAt:      s.now(),
		OrderID:        orderID,
	}
	if dryRun {
		return red, promo, nil
	}
	// 条件 UPDATE 是最终的并发防线，即使行锁不可用也不会超发
	if err := s.repo.ConsumeUse(ctx, dc.ID); err != nil {
		return nil, nil, err
	}
	if err := s.repo.CreateRedemption(ctx, red); err != nil {
		return nil, nil, err
	}
	return red, promo, nil
}

// evaluate 锁定折扣码并按顺序校验资格，返回按 total 计算的折扣
func (s *PromotionService) evaluate(ctx context.Context, code string, total decimal.Decimal, items []domain.LineItem, settling bool) (*domain.DiscountCode, *domain.Promotion, decimal.Decimal, error) {
	dc, err := s.repo.FindCodeForUpdate(ctx, code)
	if err != nil {
		return nil, nil, decimal.Zero, err
	}
	promo, err := s.repo.FindPromotion(ctx, dc.PromotionID)
	if err != nil {
		return nil, nil, decimal.Zero, errors.Wrapf(err, "promotion of code %s", code)
	}

	now := s.now()
	check := domain.Eligibility{Code: dc, Promotion: promo, OrderTotal: total, Now: now, SkipUsageLimit: settling}
	if err := check.Check(); err != nil {
		return nil, nil, decimal.Zero, err
	}

	if promo.Condition != "" {
		count := 0
		for _, it := range items {
			count += it.Quantity
		}
		ok, err := s.rules.Evaluate(promo.Condition, domain.Fact{Subtotal: total, ItemCount: count, Code: dc.Code, Now: now})
		if err != nil {
			return nil, nil, decimal.Zero, errors.Wrapf(err, "promotion %s", promo.ID)
		}
		if !ok {
			return nil, nil, decimal.Zero, domain.ErrConditionNotMet
		}
	}
	return dc, promo, promo.DiscountFor(total, items), nil
}

// SettleForOrder 在下单事务内重新计算并确认折扣，客户端提交的金额不参与计算。
// 带 redemptionId 时复用已消耗的次数并把兑换记录绑定到订单；只带 code 时在同一事务内完成一次完整兑换。
func (s *PromotionService) SettleForOrder(ctx context.Context, req *SettleRequest) (*Settlement, error) {
	ctx, span := s.tracer.Start(ctx, "service.SettleForOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("discount.code", req.Code),
		attribute.String("discount.redemption_id", req.RedemptionID),
		attribute.String("order.id", req.OrderID),
	)

	var settlement *Settlement
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if req.RedemptionID != "" {
			settlement, err = s.settleRedemption(ctx, req)
		} else {
			settlement, err = s.settleCode(ctx, req)
		}
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "settlement rejected")
		return nil, err
	}
	span.SetAttributes(attribute.String("discount.amount", settlement.DiscountAmount.String()))
	return settlement, nil
}

func (s *PromotionService) settleRedemption(ctx context.Context, req *SettleRequest) (*Settlement, error) {
	red, err := s.repo.FindRedemption(ctx, req.RedemptionID)
	if err != nil {
		return nil, err
	}
	if red.OrderID != nil {
		return nil, domain.ErrRedemptionBound
	}
	if req.Code != "" && domain.NormalizeCode(req.Code) != red.Code {
		return nil, domain.ErrRedemptionMismatch
	}
	_, promo, amount, err := s.evaluate(ctx, red.Code, req.Subtotal, req.Items, true)
	if err != nil {
		return nil, err
	}
	if err := s.repo.BindRedemption(ctx, red.ID, req.OrderID); err != nil {
		return nil, err
	}
	return &Settlement{Code: red.Code, RedemptionID: red.ID, PromotionName: promo.Name, DiscountAmount: amount}, nil
}

func (s *PromotionService) settleCode(ctx context.Context, req *SettleRequest) (*Settlement, error) {
	code := domain.NormalizeCode(req.Code)
	if err := domain.ValidateCodeFormat(code); err != nil {
		return nil, err
	}
	orderID := req.OrderID
	red, promo, err := s.redeemInTx(ctx, code, req.Subtotal, req.Items, false, &orderID)
	if err != nil {
		return nil, err
	}
	s.observe(nil)
	return &Settlement{Code: code, RedemptionID: red.ID, PromotionName: promo.Name, DiscountAmount: red.DiscountAmount}, nil
}

func (s *PromotionService) lineItems(ctx context.Context, refs []ItemRef) ([]domain.LineItem, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	prices, err := s.catalog.UnitPrices(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load unit prices")
	}
	items := make([]domain.LineItem, 0, len(refs))
	for _, r := range refs {
		price, ok := prices[r.ID]
		if !ok || r.Quantity <= 0 {
			continue
		}
		items = append(items, domain.LineItem{ProductID: r.ID, Quantity: r.Quantity, UnitPrice: price})
	}
	return items, nil
}

func (s *PromotionService) observe(err error) {
	if err == nil {
		metrics.DiscountRedemptions.WithLabelValues("success").Inc()
		return
	}
	if reason, _, ok := domain.ReasonOf(err); ok {
		metrics.DiscountRedemptions.WithLabelValues(string(reason)).Inc()
		return
	}
	metrics.DiscountRedemptions.WithLabelValues("error").Inc()
}

// CreatePromotion 创建促销，条件表达式在保存前编译检查
func (s *PromotionService) CreatePromotion(ctx context.Context, req *CreatePromotionRequest) (*domain.Promotion, error) {
	ctx, span := s.tracer.Start(ctx, "service.CreatePromotion")
	defer span.End()

	p := req.ToDomain()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Condition != "" {
		if err := s.rules.Compile(p.Condition); err != nil {
			return nil, errors.Wrap(domain.ErrInvalidPromotion, err.Error())
		}
	}
	if p.Type == domain.DiscountTypeFixedAmount {
		p.Value = money.Round(p.Value)
	}
	// 内存驱动下事务回滚会恢复整个仓储，所以后台写入也要走事务
	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.CreatePromotion(ctx, p)
	}); err != nil {
		span.RecordError(err)
		return nil, err
	}
	logger.Ctx(ctx).Info().Str("promotion", p.ID).Str("type", string(p.Type)).Msg("promotion created")
	return p, nil
}

// CreateCode 创建折扣码，code 会被规范化
func (s *PromotionService) CreateCode(ctx context.Context, req *CreateCodeRequest) (*domain.DiscountCode, error) {
	ctx, span := s.tracer.Start(ctx, "service.CreateCode")
	defer span.End()

	c := &domain.DiscountCode{
		ID:          uuid.NewString(),
		Code:        domain.NormalizeCode(req.Code),
		PromotionID: req.PromotionID,
		MaxUses:     req.MaxUses,
		Active:      req.Active == nil || *req.Active,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.FindPromotion(ctx, c.PromotionID); err != nil {
			return err
		}
		return s.repo.CreateCode(ctx, c)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	logger.Ctx(ctx).Info().Str("code", c.Code).Str("promotion", c.PromotionID).Msg("discount code created")
	return c, nil
}

func (s *PromotionService) ListPromotions(ctx context.Context) ([]*domain.Promotion, error) {
	return s.repo.ListPromotions(ctx)
}

func (s *PromotionService) ListCodes(ctx context.Context) ([]*domain.DiscountCode, error) {
	return s.repo.ListCodes(ctx)
}
