package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

// ReconcilerUseCase sesiones de conteo físico y su conversión en movimientos de ajuste.
type ReconcilerUseCase struct {
	txRunner  TxRunner
	invRepo   repository.InventoryRepository
	movements *MovementUseCase
	log       *logger.Logger
	metrics   *metrics.LedgerMetrics
	clock     func() time.Time
}

// NewReconcilerUseCase construye el caso de uso. Los ajustes pasan por movements.ApplyInTx.
func NewReconcilerUseCase(
	txRunner TxRunner,
	invRepo repository.InventoryRepository,
	movements *MovementUseCase,
	log *logger.Logger,
	m *metrics.LedgerMetrics,
) *ReconcilerUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ReconcilerUseCase{
		txRunner:  txRunner,
		invRepo:   invRepo,
		movements: movements,
		log:       log,
		metrics:   m,
		clock:     time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *ReconcilerUseCase) WithClock(clock func() time.Time) *ReconcilerUseCase {
	uc.clock = clock
	return uc
}

// ApplyResult resultado de aplicar una sesión.
type ApplyResult struct {
	Session   *entity.InventorySession
	Movements []*entity.Movement
}

// CreateSession abre una sesión y congela el saldo de cada producto activo en la ubicación.
func (uc *ReconcilerUseCase) CreateSession(ctx context.Context, name, location, note string) (*entity.InventorySession, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidation("el nombre de la sesión es obligatorio")
	}
	loc, ok := entity.ParseLocation(location)
	if !ok || loc == "" {
		return nil, domain.NewValidation("ubicación inválida %q: use CANOAS o PF", location)
	}

	s := &entity.InventorySession{
		Name:      name,
		Location:  loc,
		Note:      strings.TrimSpace(note),
		CreatedAt: uc.clock(),
	}
	err := uc.txRunner.RunInventory(ctx, func(
		_ repository.MovementRepository,
		_ repository.ProductRepository,
		_ repository.HistoryRepository,
		invRepo repository.InventoryRepository,
	) error {
		if err := invRepo.CreateSession(ctx, s); err != nil {
			return err
		}
		n, err := invRepo.SnapshotCounts(ctx, s.ID, loc)
		if err != nil {
			return err
		}
		s.TotalItems = n
		return nil
	})
	if err != nil {
		uc.fail("create_session", err, 0)
		return nil, err
	}
	return s, nil
}

// UpdateCounts registra conteos físicos. El lote entero es una transacción.
func (uc *ReconcilerUseCase) UpdateCounts(ctx context.Context, sessionID int64, items []entity.CountItem) (*entity.InventorySession, error) {
	if len(items) == 0 {
		return nil, domain.NewValidation("no se enviaron conteos")
	}
	now := uc.clock()

	var session *entity.InventorySession
	err := uc.txRunner.RunInventory(ctx, func(
		_ repository.MovementRepository,
		_ repository.ProductRepository,
		_ repository.HistoryRepository,
		invRepo repository.InventoryRepository,
	) error {
		s, err := openSession(ctx, invRepo, sessionID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := uc.updateCount(ctx, invRepo, s.ID, item, now); err != nil {
				return err
			}
		}
		if err := invRepo.TouchSession(ctx, s.ID, now); err != nil {
			return err
		}
		session, err = invRepo.GetSession(ctx, s.ID)
		return err
	})
	if err != nil {
		uc.fail("update_counts", err, sessionID)
		return nil, err
	}
	return session, nil
}

func (uc *ReconcilerUseCase) updateCount(ctx context.Context, invRepo repository.InventoryRepository, sessionID int64, item entity.CountItem, now time.Time) error {
	if item.PhysicalQty < 0 {
		return domain.NewValidation("cantidad física negativa para el producto %d", item.ProductID)
	}
	c, err := invRepo.GetCount(ctx, sessionID, item.ProductID)
	if err != nil {
		return err
	}
	if c == nil {
		return domain.NewValidation("el producto %d no pertenece a la sesión %d", item.ProductID, sessionID)
	}

	physical := item.PhysicalQty
	divergence := physical - c.SystemQty
	c.PhysicalQty = &physical
	c.Divergence = &divergence
	c.Note = strings.TrimSpace(item.Note)
	c.Reason = ""
	if divergence != 0 {
		reason, ok := entity.ParseAdjustmentReason(item.Reason)
		if !ok || reason == "" {
			return domain.NewValidation("motivo obligatorio para la divergencia del producto %s", c.ProductName)
		}
		c.Reason = reason
	}
	c.AppliedMovementID = nil
	return invRepo.UpdateCount(ctx, c, now)
}

// ApplySessionAdjustments convierte cada divergencia pendiente en un movimiento ADJUSTMENT
// y cierra la sesión. Cualquier falla aborta el lote completo.
func (uc *ReconcilerUseCase) ApplySessionAdjustments(ctx context.Context, sessionID int64, note string) (*ApplyResult, error) {
	now := uc.clock()
	note = strings.TrimSpace(note)
	result := &ApplyResult{}

	err := uc.txRunner.RunInventory(ctx, func(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
		historyRepo repository.HistoryRepository,
		invRepo repository.InventoryRepository,
	) error {
		s, err := openSession(ctx, invRepo, sessionID)
		if err != nil {
			return err
		}
		pending, err := invRepo.PendingDivergences(ctx, s.ID)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return domain.NewValidation("la sesión %d no tiene divergencias pendientes", s.ID)
		}

		for _, c := range pending {
			m, err := uc.applyCount(ctx, movRepo, productRepo, historyRepo, s, c, note, now)
			if err != nil {
				return err
			}
			if err := invRepo.LinkMovement(ctx, s.ID, c.ProductID, m.ID, now); err != nil {
				return err
			}
			result.Movements = append(result.Movements, m)
		}
		if err := invRepo.MarkApplied(ctx, s.ID, now); err != nil {
			return err
		}
		result.Session, err = invRepo.GetSession(ctx, s.ID)
		return err
	})
	if err != nil {
		uc.fail("apply_session", err, sessionID)
		return nil, err
	}
	uc.metrics.IncSessionApplied()
	for _, m := range result.Movements {
		uc.metrics.IncMovement(string(m.Type), string(m.Nature))
	}
	uc.log.Info().Int64("session_id", sessionID).Int("movements", len(result.Movements)).Msg("sesión de inventario aplicada")
	return result, nil
}

func (uc *ReconcilerUseCase) applyCount(
	ctx context.Context,
	movRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
	historyRepo repository.HistoryRepository,
	s *entity.InventorySession,
	c *entity.InventoryCount,
	applyNote string,
	now time.Time,
) (*entity.Movement, error) {
	if c.Reason == "" {
		return nil, domain.NewValidation("falta el motivo del producto %s", c.ProductName)
	}
	// cada fila lleva su propia observación; la del cierre sólo se agrega
	if c.Note == "" {
		return nil, domain.NewValidation("falta la observación del ajuste del producto %s", c.ProductName)
	}
	rowNote := c.Note
	if applyNote != "" {
		rowNote += " | " + applyNote
	}

	product, err := productRepo.GetByID(ctx, c.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.NewNotFound("producto %d no encontrado", c.ProductID)
	}

	divergence := *c.Divergence
	input := MovementInput{
		ProductID: c.ProductID,
		Nature:    string(entity.NatureAdjustment),
		Reason:    string(c.Reason),
		Document:  fmt.Sprintf("INV-%d", s.ID),
		Note: fmt.Sprintf("Ajuste inventario sessao #%d (%s) | Motivo: %s | Sistema: %d | Fisico: %d | Divergencia: %d | %s",
			s.ID, s.Name, c.Reason, c.SystemQty, *c.PhysicalQty, divergence, rowNote),
	}
	if divergence > 0 {
		input.Type = string(entity.MovementEntry)
		input.Destination = string(s.Location)
		input.Quantity = divergence
	} else {
		input.Type = string(entity.MovementExit)
		input.Origin = string(s.Location)
		input.Quantity = -divergence
	}
	return uc.movements.ApplyInTx(ctx, movRepo, productRepo, historyRepo, product, input, now, entity.HistoryOpAdjustment)
}

// GetSession sesión con sus totales.
func (uc *ReconcilerUseCase) GetSession(ctx context.Context, id int64) (*entity.InventorySession, error) {
	s, err := uc.invRepo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.NewNotFound("sesión %d no encontrada", id)
	}
	return s, nil
}

// ListSessions sesiones más recientes primero.
func (uc *ReconcilerUseCase) ListSessions(ctx context.Context, limit, offset int) ([]*entity.InventorySession, int, error) {
	return uc.invRepo.ListSessions(ctx, limit, offset)
}

// ListCounts conteos de una sesión; onlyDivergent filtra divergencia distinta de cero.
func (uc *ReconcilerUseCase) ListCounts(ctx context.Context, sessionID int64, onlyDivergent bool, limit, offset int) ([]*entity.InventoryCount, int, error) {
	if _, err := uc.GetSession(ctx, sessionID); err != nil {
		return nil, 0, err
	}
	return uc.invRepo.ListCounts(ctx, sessionID, onlyDivergent, limit, offset)
}

func openSession(ctx context.Context, invRepo repository.InventoryRepository, id int64) (*entity.InventorySession, error) {
	s, err := invRepo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.NewNotFound("sesión %d no encontrada", id)
	}
	if s.Status != entity.SessionOpen {
		return nil, domain.NewValidation("la sesión %d ya fue aplicada", id)
	}
	return s, nil
}

func (uc *ReconcilerUseCase) fail(op string, err error, sessionID int64) {
	switch domain.CodeOf(err) {
	case domain.CodeValidation, domain.CodeNotFound, domain.CodeInsufficientBalance:
		uc.log.Debug().Err(err).Int64("session_id", sessionID).Msg("operación de inventario rechazada")
	default:
		uc.log.WithOp(op, uuid.NewString()).Error().Err(err).Int64("session_id", sessionID).Msg("falló la operación de inventario")
	}
}
