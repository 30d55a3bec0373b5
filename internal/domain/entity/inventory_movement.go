package entity

import (
	"strings"
	"time"
)

// MovementType tipo estructural del movimiento.
type MovementType string

const (
	MovementEntry    MovementType = "ENTRY"    // entrada en destino
	MovementExit     MovementType = "EXIT"     // salida de origen
	MovementTransfer MovementType = "TRANSFER" // origen -> destino
)

// Nature clasificación de negocio, ortogonal al tipo.
type Nature string

const (
	NatureNormal           Nature = "NORMAL"
	NatureExternalTransfer Nature = "EXTERNAL_TRANSFER"
	NatureReturn           Nature = "RETURN"
	NatureAdjustment       Nature = "ADJUSTMENT"
)

// AdjustmentReason motivo de ajuste de inventario.
type AdjustmentReason string

const (
	ReasonDamage           AdjustmentReason = "DAMAGE"
	ReasonLoss             AdjustmentReason = "LOSS"
	ReasonCorrection       AdjustmentReason = "CORRECTION"
	ReasonOperationalError AdjustmentReason = "OPERATIONAL_ERROR"
	ReasonTransfer         AdjustmentReason = "TRANSFER"
)

// Valores heredados de la base anterior (portugués).
var legacyTypes = map[string]MovementType{
	"ENTRADA":       MovementEntry,
	"SAIDA":         MovementExit,
	"TRANSFERENCIA": MovementTransfer,
}

var legacyNatures = map[string]Nature{
	"OPERACAO_NORMAL":       NatureNormal,
	"TRANSFERENCIA_EXTERNA": NatureExternalTransfer,
	"DEVOLUCAO":             NatureReturn,
	"AJUSTE":                NatureAdjustment,
}

var legacyReasons = map[string]AdjustmentReason{
	"AVARIA":              ReasonDamage,
	"PERDA":               ReasonLoss,
	"CORRECAO_INVENTARIO": ReasonCorrection,
	"ERRO_OPERACIONAL":    ReasonOperationalError,
	"TRANSFERENCIA":       ReasonTransfer,
}

var natureLabels = map[Nature]string{
	NatureNormal:           "Operacao normal",
	NatureExternalTransfer: "Transferencia externa",
	NatureReturn:           "Devolucao",
	NatureAdjustment:       "Ajuste",
}

// ParseMovementType acepta ENTRY/EXIT/TRANSFER y los nombres heredados.
func ParseMovementType(s string) (MovementType, bool) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch MovementType(v) {
	case MovementEntry, MovementExit, MovementTransfer:
		return MovementType(v), true
	}
	t, ok := legacyTypes[v]
	return t, ok
}

// ParseNature vacío = NORMAL.
func ParseNature(s string) (Nature, bool) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return NatureNormal, true
	}
	switch Nature(v) {
	case NatureNormal, NatureExternalTransfer, NatureReturn, NatureAdjustment:
		return Nature(v), true
	}
	n, ok := legacyNatures[v]
	return n, ok
}

// ParseAdjustmentReason vacío devuelve ("", true).
func ParseAdjustmentReason(s string) (AdjustmentReason, bool) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return "", true
	}
	switch AdjustmentReason(v) {
	case ReasonDamage, ReasonLoss, ReasonCorrection, ReasonOperationalError, ReasonTransfer:
		return AdjustmentReason(v), true
	}
	r, ok := legacyReasons[v]
	return r, ok
}

// Label etiqueta legible de la naturaleza (usada en el histórico).
func (n Nature) Label() string {
	if l, ok := natureLabels[n]; ok {
		return l
	}
	return string(n)
}

// Movement registro inmutable del ledger.
type Movement struct {
	ID                  int64
	Type                MovementType
	ProductID           int64
	ProductName         string // sólo lectura (join)
	Quantity            int
	Origin              Location
	Destination         Location
	Nature              Nature
	AdjustmentReason    AdjustmentReason
	ExternalLocation    string
	Document            string
	ReferenceMovementID *int64 // sólo RETURN
	Note                string
	CreatedAt           time.Time
}

// MovementFilter filtros de listado de movimientos.
type MovementFilter struct {
	ProductID *int64
	Type      MovementType
	Nature    Nature
	Location  Location // origen o destino
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}
