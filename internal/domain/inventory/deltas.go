package inventory

import (
	"fmt"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Deltas variación de saldo por ubicación que produce un movimiento (servicio de dominio).
type Deltas struct {
	Canoas int
	PF     int
}

// For delta de la ubicación indicada.
func (d Deltas) For(loc entity.Location) int {
	switch loc {
	case entity.LocationCanoas:
		return d.Canoas
	case entity.LocationPF:
		return d.PF
	}
	return 0
}

// ComputeDeltas ENTRY -> +destino; EXIT -> -origen; TRANSFER -> -origen/+destino.
func ComputeDeltas(t entity.MovementType, qty int, origin, dest entity.Location) Deltas {
	var d Deltas
	add := func(loc entity.Location, v int) {
		switch loc {
		case entity.LocationCanoas:
			d.Canoas += v
		case entity.LocationPF:
			d.PF += v
		}
	}
	switch t {
	case entity.MovementEntry:
		add(dest, qty)
	case entity.MovementExit:
		add(origin, -qty)
	case entity.MovementTransfer:
		if origin != dest {
			add(origin, -qty)
			add(dest, qty)
		}
	}
	return d
}

// FirstShortfall primera ubicación que quedaría negativa al aplicar d sobre p; "" si ninguna.
func FirstShortfall(p *entity.Product, d Deltas) entity.Location {
	for _, loc := range entity.Locations {
		if p.Balance(loc)+d.For(loc) < 0 {
			return loc
		}
	}
	return ""
}

// ReturnableCap cantidad aún devolvible de una salida: max(salida - devuelto, 0).
func ReturnableCap(exitQty, alreadyReturned int) int {
	if rest := exitQty - alreadyReturned; rest > 0 {
		return rest
	}
	return 0
}

// HistoryNote arma la observación legible del histórico para un movimiento.
// Formato heredado: "Canoas -> Passo Fundo | Natureza: ... | Documento: ... | nota".
func HistoryNote(m *entity.Movement) string {
	var base string
	switch m.Type {
	case entity.MovementTransfer:
		base = fmt.Sprintf("%s -> %s", m.Origin.Label(), m.Destination.Label())
	case entity.MovementEntry:
		base = "Entrada em " + m.Destination.Label()
	default:
		base = "Saida em " + m.Origin.Label()
	}

	var details []string
	if m.Nature != entity.NatureNormal && m.Nature != "" {
		details = append(details, "Natureza: "+m.Nature.Label())
	}
	if m.ExternalLocation != "" {
		details = append(details, "Local externo: "+m.ExternalLocation)
	}
	if m.Document != "" {
		details = append(details, "Documento: "+m.Document)
	}
	if m.ReferenceMovementID != nil {
		details = append(details, fmt.Sprintf("Movimento ref: %d", *m.ReferenceMovementID))
	}
	if m.Note != "" {
		details = append(details, m.Note)
	}
	if len(details) == 0 {
		return base
	}
	return base + " | " + strings.Join(details, " | ")
}
