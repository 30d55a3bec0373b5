package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

// MovementUseCase registra movimientos de stock de forma transaccional:
// saldo, histórico y ledger se confirman juntos o no se confirma nada.
type MovementUseCase struct {
	txRunner     TxRunner
	productRepo  repository.ProductRepository
	movementRepo repository.MovementRepository
	log          *logger.Logger
	metrics      *metrics.LedgerMetrics
	clock        func() time.Time
}

// NewMovementUseCase construye el caso de uso. log y m pueden ser nil.
func NewMovementUseCase(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	movementRepo repository.MovementRepository,
	log *logger.Logger,
	m *metrics.LedgerMetrics,
) *MovementUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &MovementUseCase{
		txRunner:     txRunner,
		productRepo:  productRepo,
		movementRepo: movementRepo,
		log:          log,
		metrics:      m,
		clock:        time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *MovementUseCase) WithClock(clock func() time.Time) *MovementUseCase {
	uc.clock = clock
	return uc
}

// MovementInput entrada cruda de un movimiento; los textos se normalizan antes de validar.
// ENTRY usa Destination, EXIT usa Origin y TRANSFER ambos.
type MovementInput struct {
	Type                string
	ProductID           int64
	Quantity            int
	Origin              string
	Destination         string
	Nature              string
	Reason              string
	ExternalLocation    string
	Document            string
	ReferenceMovementID *int64
	Note                string
	OccurredAt          *time.Time
}

// CreateMovement valida la entrada y aplica el movimiento en una sola transacción.
func (uc *MovementUseCase) CreateMovement(ctx context.Context, input MovementInput) (*entity.Movement, error) {
	m, err := normalizeMovement(input)
	if err != nil {
		uc.metrics.IncRejection(string(domain.CodeOf(err)))
		return nil, err
	}
	now := uc.clock()
	if input.OccurredAt != nil {
		now = *input.OccurredAt
	}

	err = uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
		historyRepo repository.HistoryRepository,
	) error {
		product, err := productRepo.GetByID(ctx, m.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.NewNotFound("producto %d no encontrado", m.ProductID)
		}
		return uc.apply(ctx, movRepo, productRepo, historyRepo, product, m, now, entity.HistoryOperationFor(m.Type))
	})
	if err != nil {
		uc.fail("create_movement", err, m.ProductID)
		return nil, err
	}
	uc.metrics.IncMovement(string(m.Type), string(m.Nature))
	return m, nil
}

// ApplyInTx mismo camino que CreateMovement dentro de una transacción que ya tiene el caller.
// product debe haberse leído en esa misma transacción. historyOp vacío = operación del tipo.
// Las métricas quedan a cargo del caller, que conoce el resultado del commit.
func (uc *MovementUseCase) ApplyInTx(
	ctx context.Context,
	movRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
	historyRepo repository.HistoryRepository,
	product *entity.Product,
	input MovementInput,
	now time.Time,
	historyOp string,
) (*entity.Movement, error) {
	if product == nil {
		return nil, domain.NewNotFound("producto %d no encontrado", input.ProductID)
	}
	input.ProductID = product.ID
	m, err := normalizeMovement(input)
	if err != nil {
		return nil, err
	}
	if historyOp == "" {
		historyOp = entity.HistoryOperationFor(m.Type)
	}
	if err := uc.apply(ctx, movRepo, productRepo, historyRepo, product, m, now, historyOp); err != nil {
		return nil, err
	}
	return m, nil
}

// apply ejecuta las reglas dependientes del estado y escribe saldo, histórico y movimiento.
func (uc *MovementUseCase) apply(
	ctx context.Context,
	movRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
	historyRepo repository.HistoryRepository,
	product *entity.Product,
	m *entity.Movement,
	now time.Time,
	historyOp string,
) error {
	if !product.Active {
		return domain.NewValidation("el producto %s está inactivo", product.Name)
	}

	if m.Nature == entity.NatureReturn {
		ref, err := movRepo.GetByID(ctx, *m.ReferenceMovementID)
		if err != nil {
			return err
		}
		if ref == nil {
			return domain.NewValidation("movimiento de referencia %d no encontrado", *m.ReferenceMovementID)
		}
		if ref.Type != entity.MovementExit {
			return domain.NewValidation("la devolución debe referenciar una salida")
		}
		if ref.ProductID != product.ID {
			return domain.NewValidation("el movimiento de referencia pertenece a otro producto")
		}
		returned, err := movRepo.SumReturnsFor(ctx, ref.ID)
		if err != nil {
			return err
		}
		if limit := inventory.ReturnableCap(ref.Quantity, returned); m.Quantity > limit {
			return domain.NewValidation("cantidad a devolver %d supera el saldo devolvible %d", m.Quantity, limit)
		}
	}

	d := inventory.ComputeDeltas(m.Type, m.Quantity, m.Origin, m.Destination)
	if loc := inventory.FirstShortfall(product, d); loc != "" {
		return domain.NewInsufficientBalance("saldo insuficiente en %s: disponible %d, solicitado %d",
			loc.Label(), product.Balance(loc), -d.For(loc))
	}

	if err := productRepo.IncrementBalances(ctx, product.ID, d.Canoas, d.PF, now); err != nil {
		return err
	}
	product.QtyCanoas += d.Canoas
	product.QtyPF += d.PF
	product.UpdatedAt = now

	m.ProductName = product.Name
	m.CreatedAt = now
	if err := historyRepo.Insert(ctx, &entity.HistoryEntry{
		Operation:   historyOp,
		ProductName: product.Name,
		Quantity:    m.Quantity,
		Note:        inventory.HistoryNote(m),
		CreatedAt:   now,
	}); err != nil {
		return err
	}
	return movRepo.Insert(ctx, m)
}

// normalizeMovement reglas estructurales y de naturaleza, sin tocar el store.
func normalizeMovement(in MovementInput) (*entity.Movement, error) {
	t, ok := entity.ParseMovementType(in.Type)
	if !ok {
		return nil, domain.NewValidation("tipo de movimiento inválido: %q", in.Type)
	}
	origin, ok := entity.ParseLocation(in.Origin)
	if !ok {
		return nil, domain.NewValidation("origen inválido %q: use CANOAS o PF", in.Origin)
	}
	dest, ok := entity.ParseLocation(in.Destination)
	if !ok {
		return nil, domain.NewValidation("destino inválido %q: use CANOAS o PF", in.Destination)
	}
	nature, ok := entity.ParseNature(in.Nature)
	if !ok {
		return nil, domain.NewValidation("naturaleza inválida: %q", in.Nature)
	}
	if in.ProductID <= 0 {
		return nil, domain.NewValidation("producto requerido")
	}
	if in.Quantity <= 0 {
		return nil, domain.NewValidation("la cantidad debe ser mayor que cero")
	}

	switch t {
	case entity.MovementEntry:
		if dest == "" {
			return nil, domain.NewValidation("la entrada requiere destino")
		}
		origin = ""
	case entity.MovementExit:
		if origin == "" {
			return nil, domain.NewValidation("la salida requiere origen")
		}
		dest = ""
	case entity.MovementTransfer:
		if origin == "" || dest == "" {
			return nil, domain.NewValidation("la transferencia requiere origen y destino")
		}
		if origin == dest {
			return nil, domain.NewValidation("origen y destino deben ser distintos")
		}
	}

	m := &entity.Movement{
		Type:        t,
		ProductID:   in.ProductID,
		Quantity:    in.Quantity,
		Origin:      origin,
		Destination: dest,
		Nature:      nature,
		Document:    strings.TrimSpace(in.Document),
		Note:        strings.TrimSpace(in.Note),
	}

	switch nature {
	case entity.NatureReturn:
		if t != entity.MovementEntry {
			return nil, domain.NewValidation("la devolución debe ser una entrada")
		}
		if in.ReferenceMovementID == nil || *in.ReferenceMovementID <= 0 {
			return nil, domain.NewValidation("la devolución requiere el movimiento de salida de referencia")
		}
		ref := *in.ReferenceMovementID
		m.ReferenceMovementID = &ref
	case entity.NatureExternalTransfer:
		if t != entity.MovementExit {
			return nil, domain.NewValidation("la transferencia externa debe ser una salida")
		}
		m.ExternalLocation = strings.TrimSpace(in.ExternalLocation)
		if m.ExternalLocation == "" {
			return nil, domain.NewValidation("la transferencia externa requiere el local externo")
		}
	case entity.NatureAdjustment:
		if t == entity.MovementTransfer {
			return nil, domain.NewValidation("el ajuste debe ser entrada o salida")
		}
		reason, ok := entity.ParseAdjustmentReason(in.Reason)
		if !ok || reason == "" {
			return nil, domain.NewValidation("motivo de ajuste inválido: %q", in.Reason)
		}
		m.AdjustmentReason = reason
	}
	return m, nil
}

// GetMovement devuelve un movimiento por id.
func (uc *MovementUseCase) GetMovement(ctx context.Context, id int64) (*entity.Movement, error) {
	m, err := uc.movementRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("leer movimiento: %w", err)
	}
	if m == nil {
		return nil, domain.NewNotFound("movimiento %d no encontrado", id)
	}
	return m, nil
}

// ListMovements lista con filtros; devuelve también el total sin paginar.
func (uc *MovementUseCase) ListMovements(ctx context.Context, f entity.MovementFilter) ([]*entity.Movement, int, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, 0, domain.NewValidation("rango de fechas inválido")
	}
	return uc.movementRepo.List(ctx, f)
}

// ReturnableQuantity saldo aún devolvible de una salida.
func (uc *MovementUseCase) ReturnableQuantity(ctx context.Context, exitID int64) (int, error) {
	m, err := uc.GetMovement(ctx, exitID)
	if err != nil {
		return 0, err
	}
	if m.Type != entity.MovementExit {
		return 0, domain.NewValidation("el movimiento %d no es una salida", exitID)
	}
	returned, err := uc.movementRepo.SumReturnsFor(ctx, exitID)
	if err != nil {
		return 0, err
	}
	return inventory.ReturnableCap(m.Quantity, returned), nil
}

// fail registra el rechazo; las fallas no de negocio se loguean con op_id.
func (uc *MovementUseCase) fail(op string, err error, productID int64) {
	code := domain.CodeOf(err)
	uc.metrics.IncRejection(string(code))
	switch code {
	case domain.CodeValidation, domain.CodeNotFound, domain.CodeInsufficientBalance:
		uc.log.Debug().Err(err).Int64("product_id", productID).Msg("movimiento rechazado")
	default:
		uc.log.WithOp(op, uuid.NewString()).Error().Err(err).Int64("product_id", productID).Msg("falló la escritura del movimiento")
	}
}
