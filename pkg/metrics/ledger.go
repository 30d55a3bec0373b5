package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics contadores del motor de movimientos y del reconciliador.
type LedgerMetrics struct {
	movements   *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	adjustments prometheus.Counter
}

// NewLedgerMetrics registra las métricas en el registerer dado. reg nil = métricas desactivadas.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_movements_total",
		Help: "Movimientos confirmados por tipo y naturaleza.",
	}, []string{"type", "nature"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_movement_rejections_total",
		Help: "Movimientos rechazados por código de error.",
	}, []string{"code"})
	adjustments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_inventory_sessions_applied_total",
		Help: "Sesiones de inventario aplicadas.",
	})
	reg.MustRegister(movements, rejections, adjustments)
	return &LedgerMetrics{movements: movements, rejections: rejections, adjustments: adjustments}
}

// IncMovement cuenta un movimiento confirmado.
func (m *LedgerMetrics) IncMovement(movType, nature string) {
	if m == nil || m.movements == nil {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(movType), normalizeLabel(nature)).Inc()
}

// IncRejection cuenta un movimiento rechazado.
func (m *LedgerMetrics) IncRejection(code string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(code)).Inc()
}

// IncSessionApplied cuenta una sesión de inventario aplicada.
func (m *LedgerMetrics) IncSessionApplied() {
	if m == nil || m.adjustments == nil {
		return
	}
	m.adjustments.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
