package saga

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"

	"huerta/internal/pkg/logger"
	"huerta/internal/service/order/domain"
	"huerta/internal/service/order/domain/port"
)

// OrderContext 在 Saga 流程中传递上下文数据。
// 整条链运行在同一个数据库事务里，Ctx 携带该事务。
type OrderContext struct {
	Ctx    context.Context
	Order  *domain.Order
	Intent *domain.Intent
	Tracer trace.Tracer

	// 依赖出站端口 (Interfaces)
	Catalog   port.Catalog
	Discounts port.DiscountSettler
	Notifier  port.NotificationProducer
	Orders    domain.OrderRepository

	// PriceTolerance 是预期总价允许偏离的百分比
	PriceTolerance decimal.Decimal

	compensations []func(ctx context.Context)
	afterCommit   []func(ctx context.Context)
	compLock      sync.Mutex
}

// AddCompensation 注册一个补偿函数，后注册的先执行
func (c *OrderContext) AddCompensation(comp func(ctx context.Context)) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = append([]func(context.Context){comp}, c.compensations...)
}

func (c *OrderContext) TriggerCompensation(ctx context.Context) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	logger.Ctx(ctx).Info().Str("order", c.Order.ID).Int("count", len(c.compensations)).Msg("executing compensations")
	for _, comp := range c.compensations {
		comp(ctx)
	}
	c.compensations = nil
}

// AddAfterCommit 注册事务提交后才执行的动作，例如发送通知
func (c *OrderContext) AddAfterCommit(fn func(ctx context.Context)) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.afterCommit = append(c.afterCommit, fn)
}

// RunAfterCommit 按注册顺序执行提交后动作
func (c *OrderContext) RunAfterCommit(ctx context.Context) {
	c.compLock.Lock()
	hooks := c.afterCommit
	c.afterCommit = nil
	c.compLock.Unlock()
	for _, fn := range hooks {
		fn(ctx)
	}
}

type Handler interface {
	SetNext(handler Handler) Handler
	Handle(orderCtx *OrderContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(orderCtx *OrderContext) error {
	if h.next != nil {
		return h.next.Handle(orderCtx)
	}
	return nil
}
