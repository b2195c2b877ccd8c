package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"huerta/internal/pkg/lock"
	"huerta/internal/pkg/storage"
	catalogapp "huerta/internal/service/catalog/application"
	cataloginfra "huerta/internal/service/catalog/infrastructure"
	"huerta/internal/service/order/domain"
	"huerta/internal/service/order/domain/port"
	"huerta/internal/service/order/infrastructure"
	"huerta/internal/service/order/infrastructure/adapter"
	promoapp "huerta/internal/service/promotion/application"
	promoinfra "huerta/internal/service/promotion/infrastructure"
	"huerta/internal/service/promotion/infrastructure/rule"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []*domain.OrderCreated
	err    error
}

func (n *recordingNotifier) SendOrderCreated(_ context.Context, event *domain.OrderCreated) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type brokenIdempotencyStore struct{}

func (brokenIdempotencyStore) Claim(context.Context, string) (port.ClaimState, string, error) {
	return 0, "", errors.New("redis: connection refused")
}
func (brokenIdempotencyStore) Complete(context.Context, string, string) error {
	return errors.New("redis: connection refused")
}
func (brokenIdempotencyStore) Release(context.Context, string) error { return nil }

type fixture struct {
	svc      *OrderApplicationService
	orders   *infrastructure.MemoryRepository
	promos   *promoinfra.MemoryRepository
	promoSvc *promoapp.PromotionService
	idem     port.IdempotencyStore
	notifier *recordingNotifier
}

func newFixture(t *testing.T, idem port.IdempotencyStore) *fixture {
	t.Helper()
	ctx := context.Background()
	tracer := noop.NewTracerProvider().Tracer("test")

	catalogRepo := cataloginfra.NewMemoryRepository()
	promoRepo := promoinfra.NewMemoryRepository()
	orderRepo := infrastructure.NewMemoryRepository()
	tx := storage.NewMemoryTxManager(catalogRepo, promoRepo, orderRepo)

	catalogSvc := catalogapp.NewCatalogService(catalogRepo, tx, lock.NewLocalLocker(), tracer)
	require.NoError(t, catalogSvc.Seed(ctx))
	engine, err := rule.NewCELRuleEngine()
	require.NoError(t, err)
	promoSvc := promoapp.NewPromotionService(promoRepo, tx, engine, catalogSvc, tracer)
	require.NoError(t, promoSvc.Seed(ctx))

	if idem == nil {
		idem = adapter.NewIdempotencyMemoryAdapter(time.Hour, time.Minute)
	}
	notifier := &recordingNotifier{}
	svc := NewOrderApplicationService(
		orderRepo, tx,
		adapter.NewCatalogAdapter(catalogSvc),
		adapter.NewDiscountAdapter(promoSvc),
		idem, notifier, tracer,
		Options{PriceTolerancePercent: 1, ProcessingTimeout: 5 * time.Second},
	)
	return &fixture{svc: svc, orders: orderRepo, promos: promoRepo, promoSvc: promoSvc, idem: idem, notifier: notifier}
}

func (f *fixture) usesOf(t *testing.T, code string) int {
	t.Helper()
	codes, err := f.promos.ListCodes(context.Background())
	require.NoError(t, err)
	for _, c := range codes {
		if c.Code == code {
			return c.CurrentUses
		}
	}
	t.Fatalf("code %s not seeded", code)
	return 0
}

func (f *fixture) orderCount(t *testing.T) int {
	t.Helper()
	orders, err := f.orders.List(context.Background(), domain.ListFilter{})
	require.NoError(t, err)
	return len(orders)
}

func tomatoes(qty int) []OrderItem {
	return []OrderItem{{ID: "tomate-cherry", Quantity: qty}}
}

func TestPlaceOrder_ServerComputesTotals(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	redeemed, err := f.promoSvc.Redeem(ctx, &promoapp.RedeemRequest{Code: "TEST10", OrderTotal: decimal.NewFromInt(1600)})
	require.NoError(t, err)

	resp, err := f.svc.PlaceOrder(ctx, &PlaceOrderRequest{
		Items:          tomatoes(2),
		CustomerName:   "  Ana  ",
		DiscountCode:   "TEST10",
		RedemptionID:   redeemed.RedemptionID,
		DiscountAmount: decimal.NewNullDecimal(decimal.NewFromInt(999)),
		ExpectedTotal:  decimal.NewNullDecimal(decimal.NewFromInt(1440)),
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.False(t, resp.Replayed)
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(1600)), "subtotal %s", resp.Subtotal)
	assert.True(t, resp.DiscountAmount.Equal(decimal.NewFromInt(160)), "discount %s", resp.DiscountAmount)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(1440)), "total %s", resp.Total)
	assert.Equal(t, domain.StatusNew, resp.Status)

	// 兑换时已经消耗过一次，结算不再消耗
	assert.Equal(t, 1, f.usesOf(t, "TEST10"))

	stored, err := f.orders.FindByID(ctx, resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", stored.CustomerName)
	assert.Equal(t, redeemed.RedemptionID, stored.RedemptionID)
	require.Len(t, stored.Lines, 1)
	assert.True(t, stored.Lines[0].UnitPrice.Equal(decimal.NewFromInt(800)))

	red, err := f.promos.FindRedemption(ctx, redeemed.RedemptionID)
	require.NoError(t, err)
	require.NotNil(t, red.OrderID)
	assert.Equal(t, resp.OrderID, *red.OrderID)

	require.Equal(t, 1, f.notifier.count())
	assert.Equal(t, resp.OrderID, f.notifier.events[0].OrderID)
}

func TestPlaceOrder_CodeOnlyConsumesUse(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	resp, err := f.svc.PlaceOrder(ctx, &PlaceOrderRequest{Items: tomatoes(2), CustomerName: "Ana", DiscountCode: "unuso"})
	require.NoError(t, err)
	assert.True(t, resp.DiscountAmount.Equal(decimal.NewFromInt(160)))
	assert.Equal(t, 1, f.usesOf(t, "UNUSO"))

	_, err = f.svc.PlaceOrder(ctx, &PlaceOrderRequest{Items: tomatoes(2), CustomerName: "Beto", DiscountCode: "UNUSO", IdempotencyKey: "k-beto"})
	var discErr *domain.DiscountError
	require.ErrorAs(t, err, &discErr)
	assert.Equal(t, "usage_limit_reached", discErr.Reason)
	assert.Equal(t, 1, f.orderCount(t))

	// 失败的下单释放了幂等键，换掉折扣码后可以用同一个键重试
	resp, err = f.svc.PlaceOrder(ctx, &PlaceOrderRequest{Items: tomatoes(2), CustomerName: "Beto", IdempotencyKey: "k-beto"})
	require.NoError(t, err)
	assert.False(t, resp.Replayed)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(1600)))
}

func TestPlaceOrder_RollsBackOnPriceChange(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.PlaceOrder(ctx, &PlaceOrderRequest{
		Items:         tomatoes(2),
		CustomerName:  "Ana",
		DiscountCode:  "UNUSO",
		ExpectedTotal: decimal.NewNullDecimal(decimal.NewFromInt(1000)),
	})
	var priceErr *domain.PriceChangedError
	require.ErrorAs(t, err, &priceErr)
	assert.True(t, priceErr.Total.Equal(decimal.NewFromInt(1440)))
	assert.True(t, priceErr.ExpectedTotal.Equal(decimal.NewFromInt(1000)))

	// 折扣结算和订单在同一个事务里，一起回滚
	assert.Equal(t, 0, f.usesOf(t, "UNUSO"))
	assert.Equal(t, 0, f.orderCount(t))
	assert.Equal(t, 0, f.notifier.count())

	// 1% 以内的偏差可以接受
	resp, err := f.svc.PlaceOrder(ctx, &PlaceOrderRequest{
		Items:         tomatoes(2),
		CustomerName:  "Ana",
		ExpectedTotal: decimal.NewNullDecimal(decimal.NewFromInt(1590)),
	})
	require.NoError(t, err)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(1600)))
}

func TestPlaceOrder_Rejections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.PlaceOrder(ctx, &PlaceOrderRequest{Items: []OrderItem{{ID: "mango", Quantity: 1}}, CustomerName: "Ana"})
	var itemErr *domain.ItemUnavailableError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, "mango", itemErr.ProductID)

	_, err = f.svc.PlaceOrder(ctx, &PlaceOrderRequest{Items: tomatoes(1)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.PlaceOrder(ctx, &PlaceOrderRequest{CustomerName: "Ana"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.PlaceOrder(ctx, &PlaceOrderRequest{Items: tomatoes(1), CustomerName: "Ana", DiscountCode: "EXPIRED"})
	var discErr *domain.DiscountError
	require.ErrorAs(t, err, &discErr)
	assert.Equal(t, "promotion_expired", discErr.Reason)

	_, err = f.svc.PlaceOrder(ctx, &PlaceOrderRequest{Items: tomatoes(1), CustomerName: "Ana", RedemptionID: "missing"})
	require.ErrorAs(t, err, &discErr)

	assert.Equal(t, 0, f.orderCount(t))
}

func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	req := func() *PlaceOrderRequest {
		return &PlaceOrderRequest{Items: tomatoes(1), CustomerName: "Ana", IdempotencyKey: "k-1"}
	}

	first, err := f.svc.PlaceOrder(ctx, req())
	require.NoError(t, err)
	second, err := f.svc.PlaceOrder(ctx, req())
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.True(t, first.Total.Equal(second.Total))
	assert.Equal(t, 1, f.orderCount(t))
	assert.Equal(t, 1, f.notifier.count())
}

func TestPlaceOrder_InFlightKeyRejected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	state, _, err := f.idem.Claim(ctx, "k-busy")
	require.NoError(t, err)
	require.Equal(t, port.ClaimAcquired, state)

	_, err = f.svc.PlaceOrder(ctx, &PlaceOrderRequest{Items: tomatoes(1), CustomerName: "Ana", IdempotencyKey: "k-busy"})
	assert.ErrorIs(t, err, domain.ErrDuplicateInFlight)
	assert.Equal(t, 0, f.orderCount(t))
}

func TestPlaceOrder_ConcurrentSameKey(t *testing.T) {
	f := newFixture(t, nil)

	const attempts = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
	)
	orderIDs := map[string]struct{}{}
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.svc.PlaceOrder(context.Background(), &PlaceOrderRequest{Items: tomatoes(1), CustomerName: "Ana", IdempotencyKey: "k-race"})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrDuplicateInFlight)
				failures++
				return
			}
			orderIDs[resp.OrderID] = struct{}{}
		}()
	}
	wg.Wait()

	assert.Len(t, orderIDs, 1)
	assert.Less(t, failures, attempts)
	assert.Equal(t, 1, f.orderCount(t))
}

func TestPlaceOrder_UniqueIndexGuardsWithoutStore(t *testing.T) {
	f := newFixture(t, brokenIdempotencyStore{})
	ctx := context.Background()

	first, err := f.svc.PlaceOrder(ctx, &PlaceOrderRequest{Items: tomatoes(1), CustomerName: "Ana", IdempotencyKey: "k-db"})
	require.NoError(t, err)
	second, err := f.svc.PlaceOrder(ctx, &PlaceOrderRequest{Items: tomatoes(1), CustomerName: "Ana", IdempotencyKey: "k-db"})
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, 1, f.orderCount(t))
}

func TestPlaceOrder_NotificationFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, nil)
	f.notifier.err = errors.New("kafka unavailable")

	resp, err := f.svc.PlaceOrder(context.Background(), &PlaceOrderRequest{Items: tomatoes(1), CustomerName: "Ana"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, f.orderCount(t))
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	resp, err := f.svc.PlaceOrder(ctx, &PlaceOrderRequest{Items: tomatoes(1), CustomerName: "Ana"})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, resp.OrderID, "entregado")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	o, err := f.svc.UpdateStatus(ctx, resp.OrderID, "procesando")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, o.Status)

	o, err = f.svc.UpdateStatus(ctx, resp.OrderID, "entregado")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, o.Status)

	_, err = f.svc.UpdateStatus(ctx, resp.OrderID, "cancelado")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, resp.OrderID, "pagado")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = f.svc.UpdateStatus(ctx, "missing", "procesando")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	delivered, err := f.svc.ListOrders(ctx, "entregado", 0)
	require.NoError(t, err)
	assert.Len(t, delivered, 1)
	pending, err := f.svc.ListOrders(ctx, "nuevo", 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
