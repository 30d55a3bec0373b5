package analytics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/analytics"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite/sqlitetest"
)

var now = time.Date(2025, 3, 10, 15, 0, 0, 0, time.Local)

// ─────────────────────────────────────────────────────────────
//  Fake
// ─────────────────────────────────────────────────────────────

type fakeRepo struct {
	totals    repository.StockTotals
	since     int
	series    []repository.FlowPoint
	stale     []repository.StaleProduct
	err       error
	lastLimit int
}

func (f *fakeRepo) StockTotals(context.Context) (repository.StockTotals, error) { return f.totals, f.err }

func (f *fakeRepo) TopExits(_ context.Context, _, _ time.Time, _ entity.Location, limit int) ([]repository.ProductQuantity, error) {
	f.lastLimit = limit
	return nil, f.err
}

func (f *fakeRepo) Flow(context.Context, time.Time, time.Time, repository.Bucket, entity.Location) ([]repository.FlowPoint, error) {
	return f.series, f.err
}

func (f *fakeRepo) NetDeltaSince(context.Context, time.Time) (int, error) { return f.since, f.err }

func (f *fakeRepo) NetDeltaSeries(context.Context, time.Time, time.Time, repository.Bucket) ([]repository.FlowPoint, error) {
	return f.series, f.err
}

func (f *fakeRepo) StaleProducts(context.Context, time.Time, int) ([]repository.StaleProduct, error) {
	return f.stale, f.err
}

// ─────────────────────────────────────────────────────────────
//  ResolvePeriod
// ─────────────────────────────────────────────────────────────

func TestResolvePeriod_Defaults(t *testing.T) {
	p, err := analytics.ResolvePeriod(dto.PeriodRequest{}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 9, 0, 0, 0, 0, time.Local), p.From)
	assert.Equal(t, time.Date(2025, 3, 10, 23, 59, 59, 0, time.Local), p.To)
	assert.Equal(t, repository.BucketDay, p.Bucket)
	assert.Empty(t, p.Scope)
}

func TestResolvePeriod_Explicit(t *testing.T) {
	p, err := analytics.ResolvePeriod(dto.PeriodRequest{
		StartDate: "2025-01-01", EndDate: "2025-01-31", Bucket: "Month", Scope: "pf",
	}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local), p.From)
	assert.Equal(t, time.Date(2025, 1, 31, 23, 59, 59, 0, time.Local), p.To)
	assert.Equal(t, repository.BucketMonth, p.Bucket)
	assert.Equal(t, entity.LocationPF, p.Scope)

	p, err = analytics.ResolvePeriod(dto.PeriodRequest{Scope: "BOTH"}, now)
	require.NoError(t, err)
	assert.Empty(t, p.Scope)
}

func TestResolvePeriod_Invalid(t *testing.T) {
	for name, req := range map[string]dto.PeriodRequest{
		"inicio":    {StartDate: "10/03/2025"},
		"fin":       {EndDate: "2025-13-01"},
		"invertido": {StartDate: "2025-03-10", EndDate: "2025-03-01"},
		"bucket":    {Bucket: "hour"},
		"scope":     {Scope: "POA"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := analytics.ResolvePeriod(req, now)
			assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
		})
	}
}

// ─────────────────────────────────────────────────────────────
//  Resumen y distribución
// ─────────────────────────────────────────────────────────────

func TestStockDistribution_Percentages(t *testing.T) {
	uc := analytics.NewAnalyticsUseCase(&fakeRepo{totals: repository.StockTotals{Products: 3, Canoas: 1, PF: 2}})

	d, err := uc.StockDistribution(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, d.Total)
	require.Len(t, d.Locations, 2)
	assert.Equal(t, "CANOAS", d.Locations[0].Location)
	assert.Equal(t, "33.33", d.Locations[0].Percent.StringFixed(2))
	assert.Equal(t, "Passo Fundo", d.Locations[1].Label)
	assert.Equal(t, "66.67", d.Locations[1].Percent.StringFixed(2))
}

func TestStockDistribution_EmptyStock(t *testing.T) {
	uc := analytics.NewAnalyticsUseCase(&fakeRepo{})
	d, err := uc.StockDistribution(context.Background())
	require.NoError(t, err)
	for _, l := range d.Locations {
		assert.True(t, l.Percent.IsZero())
	}
}

func TestStockSummary_WrapsErrors(t *testing.T) {
	uc := analytics.NewAnalyticsUseCase(&fakeRepo{err: errors.New("db cerrada")})
	_, err := uc.StockSummary(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.CodeInternal, domain.CodeOf(err))
}

// ─────────────────────────────────────────────────────────────
//  Series
// ─────────────────────────────────────────────────────────────

func TestStockEvolution_ReconstructsBackwards(t *testing.T) {
	repo := &fakeRepo{
		totals: repository.StockTotals{Canoas: 30, PF: 20},
		since:  8,
		series: []repository.FlowPoint{
			{Period: "2025-03-08", Entries: 10, Exits: 4},
			{Period: "2025-03-09", Entries: 0, Exits: 3},
			{Period: "2025-03-10", Entries: 5, Exits: 0},
		},
	}
	uc := analytics.NewAnalyticsUseCase(repo)
	p, err := analytics.ResolvePeriod(dto.PeriodRequest{StartDate: "2025-03-08"}, now)
	require.NoError(t, err)

	ev, err := uc.StockEvolution(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 42, ev.StartTotal)
	assert.Equal(t, []dto.EvolutionPointDTO{
		{Period: "2025-03-08", Total: 48},
		{Period: "2025-03-09", Total: 45},
		{Period: "2025-03-10", Total: 50},
	}, ev.Points)
	assert.Equal(t, 50, ev.EndTotal, "el cierre coincide con el stock actual")
}

func TestFlow_Net(t *testing.T) {
	uc := analytics.NewAnalyticsUseCase(&fakeRepo{series: []repository.FlowPoint{{Period: "2025-W10", Entries: 3, Exits: 5}}})
	points, err := uc.Flow(context.Background(), analytics.Period{})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, -2, points[0].Net)
}

func TestTopExits_LimitBounds(t *testing.T) {
	repo := &fakeRepo{}
	uc := analytics.NewAnalyticsUseCase(repo)

	_, err := uc.TopExits(context.Background(), analytics.Period{})
	require.NoError(t, err)
	assert.Equal(t, 10, repo.lastLimit)

	_, err = uc.TopExits(context.Background(), analytics.Period{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, 200, repo.lastLimit)
}

func TestStaleProducts_IdleDays(t *testing.T) {
	last := now.AddDate(0, 0, -75)
	uc := analytics.NewAnalyticsUseCase(&fakeRepo{stale: []repository.StaleProduct{
		{ProductID: 1, ProductName: "PARADO", Total: 4, LastMovement: &last},
		{ProductID: 2, ProductName: "NUNCA", Total: 1},
	}})

	out, err := uc.StaleProducts(context.Background(), 0, now, 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotNil(t, out[0].IdleDays)
	assert.Equal(t, 75, *out[0].IdleDays)
	assert.Nil(t, out[1].IdleDays)
}

// ─────────────────────────────────────────────────────────────
//  Integración: salidas netas de devoluciones
// ─────────────────────────────────────────────────────────────

func TestTopExits_NetOfReturnsOnSQLite(t *testing.T) {
	store := sqlitetest.NewStore(t)
	db := store.DB()
	ctx := context.Background()
	movements := inventory.NewMovementUseCase(sqlite.NewTxRunner(db), sqlite.NewProductRepository(db), sqlite.NewMovementRepository(db), nil, nil).
		WithClock(func() time.Time { return now })

	a := sqlitetest.SeedProduct(t, store, "A", 10, 10)
	b := sqlitetest.SeedProduct(t, store, "B", 10, 0)

	exitA, err := movements.CreateMovement(ctx, inventory.MovementInput{Type: "EXIT", ProductID: a.ID, Quantity: 6, Origin: "CANOAS"})
	require.NoError(t, err)
	_, err = movements.CreateMovement(ctx, inventory.MovementInput{Type: "EXIT", ProductID: b.ID, Quantity: 4, Origin: "CANOAS"})
	require.NoError(t, err)
	ref := exitA.ID
	_, err = movements.CreateMovement(ctx, inventory.MovementInput{
		Type: "ENTRY", Nature: "RETURN", ProductID: a.ID, Quantity: 5, Destination: "CANOAS", ReferenceMovementID: &ref,
	})
	require.NoError(t, err)

	uc := analytics.NewAnalyticsUseCase(sqlite.NewAnalyticsRepository(db))
	p, err := analytics.ResolvePeriod(dto.PeriodRequest{}, now)
	require.NoError(t, err)

	top, err := uc.TopExits(ctx, p)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "B", top[0].ProductName)
	assert.Equal(t, 4, top[0].Quantity)
	assert.Equal(t, "A", top[1].ProductName)
	assert.Equal(t, 1, top[1].Quantity)

	sum, err := uc.StockSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Products)
	assert.Equal(t, 25, sum.Total)
}
