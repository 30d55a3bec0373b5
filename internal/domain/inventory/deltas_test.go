package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

// ──────────────────────────────────────────────────────────────────────────────
// ComputeDeltas
// ──────────────────────────────────────────────────────────────────────────────

func TestComputeDeltas(t *testing.T) {
	cases := []struct {
		name   string
		typ    entity.MovementType
		origin entity.Location
		dest   entity.Location
		want   inventory.Deltas
	}{
		{"entrada canoas", entity.MovementEntry, "", entity.LocationCanoas, inventory.Deltas{Canoas: 4}},
		{"entrada pf", entity.MovementEntry, "", entity.LocationPF, inventory.Deltas{PF: 4}},
		{"salida canoas", entity.MovementExit, entity.LocationCanoas, "", inventory.Deltas{Canoas: -4}},
		{"salida pf", entity.MovementExit, entity.LocationPF, "", inventory.Deltas{PF: -4}},
		{"transfer canoas->pf", entity.MovementTransfer, entity.LocationCanoas, entity.LocationPF, inventory.Deltas{Canoas: -4, PF: 4}},
		{"transfer pf->canoas", entity.MovementTransfer, entity.LocationPF, entity.LocationCanoas, inventory.Deltas{Canoas: 4, PF: -4}},
		{"transfer misma ubicación", entity.MovementTransfer, entity.LocationPF, entity.LocationPF, inventory.Deltas{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, inventory.ComputeDeltas(tc.typ, 4, tc.origin, tc.dest))
		})
	}
}

func TestFirstShortfall(t *testing.T) {
	p := &entity.Product{QtyCanoas: 1, QtyPF: 0}

	assert.Equal(t, entity.LocationCanoas, inventory.FirstShortfall(p, inventory.Deltas{Canoas: -2}))
	assert.Equal(t, entity.Location(""), inventory.FirstShortfall(p, inventory.Deltas{Canoas: -1}))
	assert.Equal(t, entity.LocationPF, inventory.FirstShortfall(p, inventory.Deltas{Canoas: 1, PF: -1}))
}

func TestReturnableCap(t *testing.T) {
	assert.Equal(t, 5, inventory.ReturnableCap(5, 0))
	assert.Equal(t, 0, inventory.ReturnableCap(5, 5))
	// datos heredados inconsistentes no producen cupo negativo
	assert.Equal(t, 0, inventory.ReturnableCap(5, 7))
}

// ──────────────────────────────────────────────────────────────────────────────
// HistoryNote
// ──────────────────────────────────────────────────────────────────────────────

func TestHistoryNote(t *testing.T) {
	ref := int64(12)

	assert.Equal(t, "Canoas -> Passo Fundo", inventory.HistoryNote(&entity.Movement{
		Type: entity.MovementTransfer, Origin: entity.LocationCanoas, Destination: entity.LocationPF, Nature: entity.NatureNormal,
	}))

	assert.Equal(t, "Entrada em Canoas | Natureza: Devolucao | Movimento ref: 12 | cliente devolveu",
		inventory.HistoryNote(&entity.Movement{
			Type: entity.MovementEntry, Destination: entity.LocationCanoas, Nature: entity.NatureReturn,
			ReferenceMovementID: &ref, Note: "cliente devolveu",
		}))

	assert.Equal(t, "Saida em Passo Fundo | Natureza: Transferencia externa | Local externo: Filial POA | Documento: NF-1",
		inventory.HistoryNote(&entity.Movement{
			Type: entity.MovementExit, Origin: entity.LocationPF, Nature: entity.NatureExternalTransfer,
			ExternalLocation: "Filial POA", Document: "NF-1",
		}))
}
