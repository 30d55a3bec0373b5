package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ProductUseCase catálogo de productos. Los saldos sólo cambian aquí por edición explícita;
// el resto pasa por movimientos. Cada cambio deja una fila en el histórico.
type ProductUseCase struct {
	txRunner inventory.TxRunner
	repo     repository.ProductRepository
	log      *logger.Logger
	clock    func() time.Time
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(txRunner inventory.TxRunner, repo repository.ProductRepository, log *logger.Logger) *ProductUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ProductUseCase{
		txRunner: txRunner,
		repo:     repo,
		log:      log,
		clock:    time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *ProductUseCase) WithClock(clock func() time.Time) *ProductUseCase {
	uc.clock = clock
	return uc
}

// Register crea un producto con saldos iniciales.
func (uc *ProductUseCase) Register(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	name := entity.NormalizeProductName(in.Name)
	if name == "" {
		return nil, domain.NewValidation("el nombre del producto es obligatorio")
	}
	if in.QtyCanoas < 0 || in.QtyPF < 0 {
		return nil, domain.NewValidation("las cantidades no pueden ser negativas")
	}
	now := uc.clock()
	product := &entity.Product{
		Name:      name,
		QtyCanoas: in.QtyCanoas,
		QtyPF:     in.QtyPF,
		Note:      strings.TrimSpace(in.Note),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := uc.txRunner.Run(ctx, func(_ repository.MovementRepository, productRepo repository.ProductRepository, historyRepo repository.HistoryRepository) error {
		if err := productRepo.Create(ctx, product); err != nil {
			return err
		}
		return historyRepo.Insert(ctx, &entity.HistoryEntry{
			Operation:   entity.HistoryOpRegister,
			ProductName: product.Name,
			Quantity:    product.Total(),
			Note:        fmt.Sprintf("Canoas: %d | Passo Fundo: %d", product.QtyCanoas, product.QtyPF),
			CreatedAt:   now,
		})
	})
	if err != nil {
		uc.fail("register_product", err, 0)
		return nil, err
	}
	return dto.NewProductResponse(product), nil
}

// GetByID obtiene un producto por ID.
func (uc *ProductUseCase) GetByID(ctx context.Context, id int64) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.NewNotFound("producto %d no encontrado", id)
	}
	return dto.NewProductResponse(product), nil
}

// Update edición explícita de nombre, nota y saldos.
func (uc *ProductUseCase) Update(ctx context.Context, id int64, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	now := uc.clock()
	var product *entity.Product

	err := uc.txRunner.Run(ctx, func(_ repository.MovementRepository, productRepo repository.ProductRepository, historyRepo repository.HistoryRepository) error {
		var err error
		product, err = productRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.NewNotFound("producto %d no encontrado", id)
		}

		var changes []string
		if in.Name != nil {
			name := entity.NormalizeProductName(*in.Name)
			if name == "" {
				return domain.NewValidation("el nombre del producto es obligatorio")
			}
			if name != product.Name {
				changes = append(changes, fmt.Sprintf("Nome: %s -> %s", product.Name, name))
				product.Name = name
			}
		}
		if in.Note != nil {
			product.Note = strings.TrimSpace(*in.Note)
		}
		if in.QtyCanoas != nil {
			if *in.QtyCanoas < 0 {
				return domain.NewValidation("las cantidades no pueden ser negativas")
			}
			if *in.QtyCanoas != product.QtyCanoas {
				changes = append(changes, fmt.Sprintf("Canoas: %d -> %d", product.QtyCanoas, *in.QtyCanoas))
				product.QtyCanoas = *in.QtyCanoas
			}
		}
		if in.QtyPF != nil {
			if *in.QtyPF < 0 {
				return domain.NewValidation("las cantidades no pueden ser negativas")
			}
			if *in.QtyPF != product.QtyPF {
				changes = append(changes, fmt.Sprintf("Passo Fundo: %d -> %d", product.QtyPF, *in.QtyPF))
				product.QtyPF = *in.QtyPF
			}
		}
		product.UpdatedAt = now
		if err := productRepo.Update(ctx, product); err != nil {
			return err
		}

		note := "Dados atualizados"
		if len(changes) > 0 {
			note = strings.Join(changes, " | ")
		}
		return historyRepo.Insert(ctx, &entity.HistoryEntry{
			Operation:   entity.HistoryOpEdit,
			ProductName: product.Name,
			Quantity:    product.Total(),
			Note:        note,
			CreatedAt:   now,
		})
	})
	if err != nil {
		uc.fail("update_product", err, id)
		return nil, err
	}
	return dto.NewProductResponse(product), nil
}

// SetActive activa o inactiva en lote. Sólo se registran los productos que cambian de estado.
func (uc *ProductUseCase) SetActive(ctx context.Context, in dto.SetProductStatusRequest) (*dto.SetProductStatusResponse, error) {
	if len(in.IDs) == 0 || in.Active == nil {
		return nil, domain.NewValidation("ids y estado son obligatorios")
	}
	active := *in.Active
	reason := strings.TrimSpace(in.Reason)
	now := uc.clock()
	var updated int

	err := uc.txRunner.Run(ctx, func(_ repository.MovementRepository, productRepo repository.ProductRepository, historyRepo repository.HistoryRepository) error {
		products, err := productRepo.GetByIDs(ctx, in.IDs)
		if err != nil {
			return err
		}
		found := make(map[int64]*entity.Product, len(products))
		for _, p := range products {
			found[p.ID] = p
		}
		var changed []*entity.Product
		seen := make(map[int64]bool, len(in.IDs))
		for _, id := range in.IDs {
			p, ok := found[id]
			if !ok {
				return domain.NewNotFound("producto %d no encontrado", id)
			}
			if p.Active != active && !seen[id] {
				changed = append(changed, p)
			}
			seen[id] = true
		}
		if len(changed) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(changed))
		for _, p := range changed {
			ids = append(ids, p.ID)
		}
		if updated, err = productRepo.SetActive(ctx, ids, active, reason, now); err != nil {
			return err
		}

		op, note := entity.HistoryOpActivate, "Produto reativado"
		if !active {
			op, note = entity.HistoryOpDeactivate, "Produto inativado"
			if reason != "" {
				note += " | Motivo: " + reason
			}
		}
		for _, p := range changed {
			if err := historyRepo.Insert(ctx, &entity.HistoryEntry{
				Operation:   op,
				ProductName: p.Name,
				Quantity:    p.Total(),
				Note:        note,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		uc.fail("set_product_active", err, 0)
		return nil, err
	}
	return &dto.SetProductStatusResponse{Updated: updated}, nil
}

// Delete borra el producto. Con movimientos asociados devuelve un error de validación
// sugiriendo inactivarlo.
func (uc *ProductUseCase) Delete(ctx context.Context, id int64) error {
	now := uc.clock()
	err := uc.txRunner.Run(ctx, func(_ repository.MovementRepository, productRepo repository.ProductRepository, historyRepo repository.HistoryRepository) error {
		product, err := productRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.NewNotFound("producto %d no encontrado", id)
		}
		if err := productRepo.Delete(ctx, id); err != nil {
			return err
		}
		return historyRepo.Insert(ctx, &entity.HistoryEntry{
			Operation:   entity.HistoryOpDelete,
			ProductName: product.Name,
			Quantity:    product.Total(),
			Note:        "Produto excluido",
			CreatedAt:   now,
		})
	})
	if err != nil {
		uc.fail("delete_product", err, id)
	}
	return err
}

// List lista productos con búsqueda por nombre y paginación.
func (uc *ProductUseCase) List(ctx context.Context, in dto.ProductListRequest) (*dto.ProductListResponse, error) {
	in.DefaultPage()
	list, total, err := uc.repo.List(ctx, entity.ProductFilter{
		Query:           in.Query,
		IncludeInactive: in.IncludeInactive,
		Limit:           in.Limit,
		Offset:          in.Offset,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *dto.NewProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	}, nil
}

func (uc *ProductUseCase) fail(op string, err error, productID int64) {
	switch domain.CodeOf(err) {
	case domain.CodeValidation, domain.CodeNotFound:
		return
	}
	uc.log.WithOp(op, uuid.NewString()).Error().Err(err).Int64("product_id", productID).Msg("falló la operación de catálogo")
}
