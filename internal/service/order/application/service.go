// internal/service/order/application/service.go
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
	"huerta/internal/pkg/storage"
	"huerta/internal/service/order/application/saga"
	"huerta/internal/service/order/domain"
	"huerta/internal/service/order/domain/port"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// Options 是下单流程的可调参数
type Options struct {
	PriceTolerancePercent float64
	ProcessingTimeout     time.Duration
}

// OrderApplicationService 只关注业务流程编排，定价、折扣和持久化由 Saga 链完成。
type OrderApplicationService struct {
	orders    domain.OrderRepository
	tx        storage.TxManager
	catalog   port.Catalog
	discounts port.DiscountSettler
	idem      port.IdempotencyStore
	notifier  port.NotificationProducer
	tracer    trace.Tracer

	tolerance         decimal.Decimal
	processingTimeout time.Duration
	now               func() time.Time
}

func NewOrderApplicationService(
	orders domain.OrderRepository,
	tx storage.TxManager,
	catalog port.Catalog,
	discounts port.DiscountSettler,
	idem port.IdempotencyStore,
	notifier port.NotificationProducer,
	tracer trace.Tracer,
	opts Options,
) *OrderApplicationService {
	if opts.ProcessingTimeout <= 0 {
		opts.ProcessingTimeout = 10 * time.Second
	}
	return &OrderApplicationService{
		orders:            orders,
		tx:                tx,
		catalog:           catalog,
		discounts:         discounts,
		idem:              idem,
		notifier:          notifier,
		tracer:            tracer,
		tolerance:         decimal.NewFromFloat(opts.PriceTolerancePercent),
		processingTimeout: opts.ProcessingTimeout,
		now:               time.Now,
	}
}

// PlaceOrder 接收不含价格的下单意图，在一个事务中定价、结算折扣并持久化订单。
// 带幂等键的重复提交返回第一次创建的订单，Replayed 为 true。
func (s *OrderApplicationService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.PlaceOrder")
	defer span.End()

	intent := req.ToIntent()
	if err := intent.Validate(); err != nil {
		s.fail(span, err)
		return nil, err
	}

	orderEntity := domain.NewOrder(uuid.NewString(), intent, s.now())
	key := intent.IdempotencyKey
	span.SetAttributes(
		attribute.String("order.id", orderEntity.ID),
		attribute.Int("order.item_count", len(intent.Items)),
		attribute.Bool("order.idempotent", key != ""),
	)

	orderCtx := &saga.OrderContext{
		Order:          orderEntity,
		Intent:         intent,
		Tracer:         s.tracer,
		Catalog:        s.catalog,
		Discounts:      s.discounts,
		Notifier:       s.notifier,
		Orders:         s.orders,
		PriceTolerance: s.tolerance,
	}

	if key != "" {
		previous, err := s.claim(ctx, orderCtx, key)
		if err != nil {
			s.fail(span, err)
			return nil, err
		}
		if previous != nil {
			span.AddEvent("idempotent replay", trace.WithAttributes(attribute.String("order.previous_id", previous.ID)))
			metrics.OrdersPlaced.WithLabelValues("replayed").Inc()
			return newPlaceOrderResponse(previous, true), nil
		}
	}

	// 为每个订单的处理流程设置独立的超时时间
	processingCtx, cancel := context.WithTimeout(ctx, s.processingTimeout)
	defer cancel()

	err := s.tx.WithinTx(processingCtx, func(txCtx context.Context) error {
		orderCtx.Ctx = txCtx
		return s.buildChain().Handle(orderCtx)
	})
	if err != nil {
		// 补偿不受处理超时限制，但仍挂在本次请求的链路上
		compCtx := trace.ContextWithSpanContext(context.Background(), span.SpanContext())
		orderCtx.TriggerCompensation(compCtx)

		if key != "" && storage.IsDuplicateKey(err) {
			if previous, findErr := s.orders.FindByIdempotencyKey(ctx, key); findErr == nil {
				span.AddEvent("idempotent replay after unique index conflict")
				metrics.OrdersPlaced.WithLabelValues("replayed").Inc()
				return newPlaceOrderResponse(previous, true), nil
			}
		}
		s.fail(span, err)
		return nil, err
	}

	if key != "" {
		if err := s.idem.Complete(ctx, key, orderEntity.ID); err != nil {
			// 唯一索引仍能挡住重复下单
			logger.Ctx(ctx).Warn().Err(err).Str("order", orderEntity.ID).Msg("failed to record idempotency key")
			span.RecordError(err)
		}
	}
	orderCtx.RunAfterCommit(ctx)

	metrics.OrdersPlaced.WithLabelValues("success").Inc()
	logger.Ctx(ctx).Info().
		Str("order", orderEntity.ID).
		Str("total", orderEntity.Total.String()).
		Str("discount", orderEntity.DiscountAmount.String()).
		Msg("order placed")
	return newPlaceOrderResponse(orderEntity, false), nil
}

// claim 认领幂等键。返回非 nil 的订单表示这是一次重放。
func (s *OrderApplicationService) claim(ctx context.Context, orderCtx *saga.OrderContext, key string) (*domain.Order, error) {
	// 幂等存储中的键过期后，仍能从订单表找到原订单
	previous, err := s.orders.FindByIdempotencyKey(ctx, key)
	if err == nil {
		return previous, nil
	}
	if !errors.Is(err, domain.ErrOrderNotFound) {
		return nil, errors.Wrap(err, "lookup idempotency key")
	}

	state, orderID, err := s.idem.Claim(ctx, key)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("idempotency store unavailable, relying on unique index")
		trace.SpanFromContext(ctx).RecordError(err)
		return nil, nil
	}
	switch state {
	case port.ClaimCompleted:
		previous, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return nil, errors.Wrapf(err, "load order %s for idempotency key", orderID)
		}
		return previous, nil
	case port.ClaimInFlight:
		return nil, errors.Wrapf(domain.ErrDuplicateInFlight, "key %s", key)
	}

	orderCtx.AddCompensation(func(ctx context.Context) {
		if err := s.idem.Release(ctx, key); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("failed to release idempotency key")
		}
	})
	return nil, nil
}

func (s *OrderApplicationService) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "order placement failed")
	result := "error"
	if reason, _, ok := domain.ReasonOf(err); ok {
		result = string(reason)
	}
	metrics.OrdersPlaced.WithLabelValues(result).Inc()
}

func (s *OrderApplicationService) buildChain() saga.Handler {
	chain := new(saga.PricingHandler)
	chain.
		SetNext(new(saga.DiscountHandler)).
		SetNext(new(saga.PriceCheckHandler)).
		SetNext(new(saga.CreateOrderHandler)).
		SetNext(new(saga.NotificationHandler))
	return chain
}

func (s *OrderApplicationService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder")
	defer span.End()
	return s.orders.FindByID(ctx, id)
}

// ListOrders 返回后台订单列表，status 为空时不过滤
func (s *OrderApplicationService) ListOrders(ctx context.Context, status string, limit int) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListOrders")
	defer span.End()

	filter := domain.ListFilter{Limit: limit}
	if status != "" {
		st, err := domain.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = st
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	return s.orders.List(ctx, filter)
}

// UpdateStatus 按状态机修改订单状态，并发修改时以先提交者为准
func (s *OrderApplicationService) UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.UpdateOrderStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id), attribute.String("order.status", status))

	next, err := domain.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	var updated *domain.Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.FindByID(ctx, id)
		if err != nil {
			return err
		}
		from := o.Status
		if err := o.TransitionTo(next, s.now()); err != nil {
			return err
		}
		if err := s.orders.UpdateStatus(ctx, id, from, next, o.UpdatedAt); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update status failed")
		return nil, err
	}
	logger.Ctx(ctx).Info().Str("order", id).Str("status", string(next)).Msg("order status updated")
	return updated, nil
}
