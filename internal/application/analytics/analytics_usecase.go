// Package analytics contiene las consultas de lectura sobre stock y movimientos:
// resumen, distribución, ranking de salidas, flujo, evolución y productos sin movimiento.
package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

const (
	defaultPeriodDays = 30
	defaultTopN       = 10
	maxTopN           = 200
	defaultStaleDays  = 60
	dateLayout        = "2006-01-02"
)

// Period rango cerrado [From, To] ya resuelto.
type Period struct {
	From   time.Time
	To     time.Time
	Bucket repository.Bucket
	Scope  entity.Location // "" = ambas ubicaciones
	Limit  int
}

// ResolvePeriod aplica defaults y valida el request: últimos 30 días, bucket day, ambas ubicaciones.
// To incluye el día completo.
func ResolvePeriod(req dto.PeriodRequest, now time.Time) (Period, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	p := Period{
		From:   today.AddDate(0, 0, -defaultPeriodDays+1),
		To:     today,
		Bucket: repository.BucketDay,
		Limit:  req.Limit,
	}
	if req.StartDate != "" {
		t, err := time.ParseInLocation(dateLayout, req.StartDate, now.Location())
		if err != nil {
			return p, domain.NewValidation("start_date inválida, use YYYY-MM-DD")
		}
		p.From = t
	}
	if req.EndDate != "" {
		t, err := time.ParseInLocation(dateLayout, req.EndDate, now.Location())
		if err != nil {
			return p, domain.NewValidation("end_date inválida, use YYYY-MM-DD")
		}
		p.To = t
	}
	p.To = p.To.Add(24*time.Hour - time.Second)
	if p.To.Before(p.From) {
		return p, domain.NewValidation("rango de fechas inválido")
	}

	switch repository.Bucket(strings.ToLower(strings.TrimSpace(req.Bucket))) {
	case "", repository.BucketDay:
	case repository.BucketWeek:
		p.Bucket = repository.BucketWeek
	case repository.BucketMonth:
		p.Bucket = repository.BucketMonth
	default:
		return p, domain.NewValidation("bucket inválido %q: use day, week o month", req.Bucket)
	}

	scope := strings.ToUpper(strings.TrimSpace(req.Scope))
	if scope != "" && scope != "BOTH" {
		loc, ok := entity.ParseLocation(scope)
		if !ok {
			return p, domain.NewValidation("scope inválido %q: use CANOAS, PF o BOTH", req.Scope)
		}
		p.Scope = loc
	}
	return p, nil
}

// AnalyticsUseCase reportes de stock. Fuente: AnalyticsRepository (read-only).
type AnalyticsUseCase struct {
	analyticsRepo repository.AnalyticsRepository
}

// NewAnalyticsUseCase construye el caso de uso.
func NewAnalyticsUseCase(analyticsRepo repository.AnalyticsRepository) *AnalyticsUseCase {
	return &AnalyticsUseCase{analyticsRepo: analyticsRepo}
}

// StockSummary totales actuales.
func (uc *AnalyticsUseCase) StockSummary(ctx context.Context) (*dto.StockSummaryDTO, error) {
	t, err := uc.analyticsRepo.StockTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics: stock summary: %w", err)
	}
	return &dto.StockSummaryDTO{
		Products:  t.Products,
		Canoas:    t.Canoas,
		PF:        t.PF,
		Total:     t.Canoas + t.PF,
		ZeroStock: t.ZeroStock,
	}, nil
}

// StockDistribution participación de cada ubicación en el total, redondeada a 2 decimales.
func (uc *AnalyticsUseCase) StockDistribution(ctx context.Context) (*dto.StockDistributionDTO, error) {
	t, err := uc.analyticsRepo.StockTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics: distribution: %w", err)
	}
	total := t.Canoas + t.PF
	out := &dto.StockDistributionDTO{Total: total}
	for _, loc := range entity.Locations {
		qty := t.Canoas
		if loc == entity.LocationPF {
			qty = t.PF
		}
		out.Locations = append(out.Locations, dto.LocationShareDTO{
			Location: string(loc),
			Label:    loc.Label(),
			Quantity: qty,
			Percent:  percent(qty, total),
		})
	}
	return out, nil
}

// TopExits ranking de salidas netas de devoluciones en el período.
func (uc *AnalyticsUseCase) TopExits(ctx context.Context, p Period) ([]dto.TopExitDTO, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = defaultTopN
	}
	if limit > maxTopN {
		limit = maxTopN
	}
	rows, err := uc.analyticsRepo.TopExits(ctx, p.From, p.To, p.Scope, limit)
	if err != nil {
		return nil, fmt.Errorf("analytics: top exits: %w", err)
	}
	out := make([]dto.TopExitDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.TopExitDTO{ProductID: r.ProductID, ProductName: r.ProductName, Quantity: r.Quantity})
	}
	return out, nil
}

// Flow entradas y salidas netas por período.
func (uc *AnalyticsUseCase) Flow(ctx context.Context, p Period) ([]dto.FlowPointDTO, error) {
	rows, err := uc.analyticsRepo.Flow(ctx, p.From, p.To, p.Bucket, p.Scope)
	if err != nil {
		return nil, fmt.Errorf("analytics: flow: %w", err)
	}
	out := make([]dto.FlowPointDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.FlowPointDTO{Period: r.Period, Entries: r.Entries, Exits: r.Exits, Net: r.Entries - r.Exits})
	}
	return out, nil
}

// StockEvolution reconstruye el stock total hacia atrás: inicio = total actual menos
// los deltas desde From; luego suma acumulada por período.
// Las ediciones explícitas de saldo no son movimientos y no se reflejan en la serie.
func (uc *AnalyticsUseCase) StockEvolution(ctx context.Context, p Period) (*dto.StockEvolutionDTO, error) {
	var (
		totals repository.StockTotals
		since  int
		series []repository.FlowPoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = uc.analyticsRepo.StockTotals(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		since, err = uc.analyticsRepo.NetDeltaSince(gctx, p.From)
		return err
	})
	g.Go(func() error {
		var err error
		series, err = uc.analyticsRepo.NetDeltaSeries(gctx, p.From, p.To, p.Bucket)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analytics: evolution: %w", err)
	}

	start := totals.Canoas + totals.PF - since
	out := &dto.StockEvolutionDTO{StartTotal: start, EndTotal: start, Points: make([]dto.EvolutionPointDTO, 0, len(series))}
	running := start
	for _, s := range series {
		running += s.Entries - s.Exits
		out.Points = append(out.Points, dto.EvolutionPointDTO{Period: s.Period, Total: running})
	}
	out.EndTotal = running
	return out, nil
}

// StaleProducts productos activos sin movimiento en los últimos days días.
func (uc *AnalyticsUseCase) StaleProducts(ctx context.Context, days int, asOf time.Time, limit int) ([]dto.StaleProductDTO, error) {
	if days <= 0 {
		days = defaultStaleDays
	}
	cutoff := asOf.AddDate(0, 0, -days)
	rows, err := uc.analyticsRepo.StaleProducts(ctx, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("analytics: stale products: %w", err)
	}
	out := make([]dto.StaleProductDTO, 0, len(rows))
	for _, r := range rows {
		item := dto.StaleProductDTO{
			ProductID:    r.ProductID,
			ProductName:  r.ProductName,
			Total:        r.Total,
			LastMovement: r.LastMovement,
		}
		if r.LastMovement != nil {
			idle := int(asOf.Sub(*r.LastMovement).Hours() / 24)
			item.IdleDays = &idle
		}
		out = append(out, item)
	}
	return out, nil
}

// percent part/total*100 con 2 decimales; total 0 = 0.
func percent(part, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}
