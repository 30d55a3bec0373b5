package entity

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Product producto con saldo por ubicación.
// Los saldos sólo cambian por deltas de movimientos o edición explícita; nunca son negativos.
type Product struct {
	ID                 int64
	Name               string // normalizado a mayúsculas
	QtyCanoas          int
	QtyPF              int
	Note               string
	Active             bool
	DeactivatedAt      *time.Time
	DeactivationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Total suma de ambas ubicaciones.
func (p *Product) Total() int {
	return p.QtyCanoas + p.QtyPF
}

// Balance saldo en la ubicación indicada.
func (p *Product) Balance(loc Location) int {
	switch loc {
	case LocationCanoas:
		return p.QtyCanoas
	case LocationPF:
		return p.QtyPF
	}
	return 0
}

// ProductFilter filtros de listado.
type ProductFilter struct {
	Query           string
	IncludeInactive bool
	Limit           int
	Offset          int
}

// NormalizeProductName recorta y pasa a mayúsculas con reglas Unicode (ç -> Ç, á -> Á).
// Un Caser no es seguro entre goroutines, así que se crea por llamada.
func NormalizeProductName(name string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(name))
}
