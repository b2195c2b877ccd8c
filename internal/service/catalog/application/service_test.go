package application

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"huerta/internal/pkg/lock"
	"huerta/internal/pkg/storage"
	"huerta/internal/service/catalog/domain"
	"huerta/internal/service/catalog/infrastructure"
)

// failingRepo 在第 failAt 次 UpdateSortOrder 时返回错误
type failingRepo struct {
	*infrastructure.MemoryRepository
	mu      sync.Mutex
	calls   int
	failAt  int
	failErr error
}

func (r *failingRepo) UpdateSortOrder(ctx context.Context, table domain.SortTable, id string, sortOrder int) error {
	r.mu.Lock()
	r.calls++
	n := r.calls
	r.mu.Unlock()
	if n == r.failAt {
		return r.failErr
	}
	return r.MemoryRepository.UpdateSortOrder(ctx, table, id, sortOrder)
}

func newSeededService(t *testing.T, repo domain.Repository, snap storage.Snapshotter) *CatalogService {
	t.Helper()
	svc := NewCatalogService(repo, storage.NewMemoryTxManager(snap), lock.NewLocalLocker(), noop.NewTracerProvider().Tracer("test"))
	require.NoError(t, svc.Seed(context.Background()))
	return svc
}

func sortOrders(t *testing.T, svc *CatalogService) map[string]int {
	t.Helper()
	products, err := svc.ListProducts(context.Background(), true)
	require.NoError(t, err)
	out := make(map[string]int, len(products))
	for _, p := range products {
		out[p.ID] = p.SortOrder
	}
	return out
}

func TestSeed_IsIdempotent(t *testing.T) {
	repo := infrastructure.NewMemoryRepository()
	svc := newSeededService(t, repo, repo)
	require.NoError(t, svc.Seed(context.Background()))

	products, err := svc.ListProducts(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, products, 4)

	tomato, err := svc.GetProduct(context.Background(), "tomate-cherry")
	require.NoError(t, err)
	assert.True(t, tomato.EffectivePrice().Equal(decimal.NewFromInt(800)))
}

func TestReorder_AppliesWholeBatch(t *testing.T) {
	repo := infrastructure.NewMemoryRepository()
	svc := newSeededService(t, repo, repo)

	err := svc.Reorder(context.Background(), &ReorderRequest{
		Table: "products",
		Items: []domain.SortEntry{
			{ID: "albahaca", SortOrder: 0},
			{ID: "tomate-cherry", SortOrder: 3},
		},
	})
	require.NoError(t, err)

	orders := sortOrders(t, svc)
	assert.Equal(t, 0, orders["albahaca"])
	assert.Equal(t, 3, orders["tomate-cherry"])
}

func TestReorder_UnknownIDChangesNothing(t *testing.T) {
	repo := infrastructure.NewMemoryRepository()
	svc := newSeededService(t, repo, repo)
	before := sortOrders(t, svc)

	err := svc.Reorder(context.Background(), &ReorderRequest{
		Table: "products",
		Items: []domain.SortEntry{
			{ID: "albahaca", SortOrder: 9},
			{ID: "no-existe", SortOrder: 1},
		},
	})
	assert.ErrorIs(t, err, domain.ErrSortTargetAbsent)
	assert.Equal(t, before, sortOrders(t, svc))
}

func TestReorder_MidBatchFailureRollsBack(t *testing.T) {
	mem := infrastructure.NewMemoryRepository()
	boom := errors.New("connection reset")
	repo := &failingRepo{MemoryRepository: mem, failAt: 2, failErr: boom}
	svc := newSeededService(t, repo, mem)
	before := sortOrders(t, svc)

	err := svc.Reorder(context.Background(), &ReorderRequest{
		Table: "products",
		Items: []domain.SortEntry{
			{ID: "albahaca", SortOrder: 10},
			{ID: "frutilla", SortOrder: 11},
		},
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, sortOrders(t, svc))
}

func TestReorder_RejectsInvalidBatch(t *testing.T) {
	repo := infrastructure.NewMemoryRepository()
	svc := newSeededService(t, repo, repo)

	tests := []struct {
		name string
		req  ReorderRequest
	}{
		{name: "unknown table", req: ReorderRequest{Table: "orders", Items: []domain.SortEntry{{ID: "x"}}}},
		{name: "empty batch", req: ReorderRequest{Table: "products"}},
		{name: "negative order", req: ReorderRequest{Table: "categories", Items: []domain.SortEntry{{ID: "frutas", SortOrder: -1}}}},
		{name: "duplicate id", req: ReorderRequest{Table: "categories", Items: []domain.SortEntry{{ID: "frutas"}, {ID: "frutas", SortOrder: 2}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Reorder(context.Background(), &tt.req)
			assert.ErrorIs(t, err, domain.ErrInvalidReorder)
		})
	}
}

func TestUpsertProduct(t *testing.T) {
	repo := infrastructure.NewMemoryRepository()
	svc := newSeededService(t, repo, repo)

	inactive := false
	p, err := svc.UpsertProduct(context.Background(), &UpsertProductRequest{
		ID: "zapallo", Name: "Zapallo", CategoryID: "verduras", Unit: "kg",
		Price: decimal.NewFromInt(600), Active: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, p.Active)

	public, err := svc.ListProducts(context.Background(), false)
	require.NoError(t, err)
	for _, p := range public {
		assert.NotEqual(t, "zapallo", p.ID)
	}

	_, err = svc.UpsertProduct(context.Background(), &UpsertProductRequest{ID: "x", Name: "X", IsOnSale: true, Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)
}

// gatedSortRepo 在 UpdateSortOrder 中停住，放行后返回错误，让外层事务回滚
type gatedSortRepo struct {
	*infrastructure.MemoryRepository
	entered chan struct{}
	release chan struct{}
}

func (r *gatedSortRepo) UpdateSortOrder(context.Context, domain.SortTable, string, int) error {
	close(r.entered)
	<-r.release
	return errors.New("connection reset")
}

func TestUpsertProduct_SurvivesConcurrentRollback(t *testing.T) {
	mem := infrastructure.NewMemoryRepository()
	repo := &gatedSortRepo{MemoryRepository: mem, entered: make(chan struct{}), release: make(chan struct{})}
	svc := newSeededService(t, repo, mem)
	ctx := context.Background()

	tomato, err := svc.GetProduct(ctx, "tomate-cherry")
	require.NoError(t, err)

	reorderErr := make(chan error, 1)
	go func() {
		reorderErr <- svc.Reorder(ctx, &ReorderRequest{Table: "products", Items: []domain.SortEntry{{ID: "albahaca", SortOrder: 9}}})
	}()
	<-repo.entered

	upsertErr := make(chan error, 1)
	go func() {
		_, err := svc.UpsertProduct(ctx, &UpsertProductRequest{
			ID: tomato.ID, Name: tomato.Name, CategoryID: tomato.CategoryID, Unit: tomato.Unit,
			Price: decimal.NewFromInt(1200), SortOrder: tomato.SortOrder,
		})
		upsertErr <- err
	}()

	close(repo.release)
	assert.Error(t, <-reorderErr)
	require.NoError(t, <-upsertErr)

	got, err := svc.GetProduct(ctx, "tomate-cherry")
	require.NoError(t, err)
	assert.True(t, got.EffectivePrice().Equal(decimal.NewFromInt(1200)), "got %s", got.EffectivePrice())
}
