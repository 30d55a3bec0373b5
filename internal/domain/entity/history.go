package entity

import "time"

// Operaciones registradas en el histórico (valores persistidos, compatibles con la base anterior).
const (
	HistoryOpEntry      = "ENTRADA"
	HistoryOpExit       = "SAIDA"
	HistoryOpTransfer   = "TRANSFERENCIA"
	HistoryOpAdjustment = "AJUSTE"
	HistoryOpRegister   = "CADASTRO"
	HistoryOpEdit       = "EDICAO"
	HistoryOpActivate   = "ATIVACAO"
	HistoryOpDeactivate = "INATIVACAO"
	HistoryOpDelete     = "EXCLUSAO"
)

// HistoryEntry fila de auditoría legible; nunca se usa para calcular saldos.
type HistoryEntry struct {
	ID          int64
	Operation   string
	ProductName string
	Quantity    int
	Note        string
	CreatedAt   time.Time
}

// HistoryOperationFor operación de histórico para un tipo de movimiento.
func HistoryOperationFor(t MovementType) string {
	switch t {
	case MovementEntry:
		return HistoryOpEntry
	case MovementExit:
		return HistoryOpExit
	default:
		return HistoryOpTransfer
	}
}
