package backup

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

// MinInterval intervalo mínimo entre evaluaciones del agendamiento.
const MinInterval = 15 * time.Second

const jobName = "backup_auto"

// DueRunner evalúa y ejecuta el backup programado (implementado por Manager).
type DueRunner interface {
	RunDue(ctx context.Context, now time.Time) (entity.RunResult, error)
}

// Scheduler loop en segundo plano que evalúa el agendamiento cada interval.
type Scheduler struct {
	runner   DueRunner
	interval time.Duration
	log      *logger.Logger
	metrics  *metrics.JobMetrics
	clock    func() time.Time

	// mu evita ejecuciones solapadas (loop y disparo manual).
	mu sync.Mutex
}

// NewScheduler construye el scheduler; intervalos menores a MinInterval se elevan al mínimo.
func NewScheduler(runner DueRunner, interval time.Duration, log *logger.Logger, m *metrics.JobMetrics) *Scheduler {
	if interval < MinInterval {
		interval = MinInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		log:      log.WithComponent("backup_scheduler"),
		metrics:  m,
		clock:    time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (s *Scheduler) WithClock(clock func() time.Time) *Scheduler {
	s.clock = clock
	return s
}

// Interval intervalo efectivo.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run evalúa al iniciar y luego en cada tick, hasta que se cancele ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.interval).Msg("scheduler de backup iniciado")
	_, _ = s.TriggerOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler de backup detenido")
			return nil
		case <-ticker.C:
			_, _ = s.TriggerOnce(ctx)
		}
	}
}

// TriggerOnce una evaluación inmediata; registra duración y resultado.
func (s *Scheduler) TriggerOnce(ctx context.Context) (entity.RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	res, err := s.runner.RunDue(ctx, s.clock())
	s.metrics.ObserveDuration(jobName, time.Since(start))

	switch {
	case err != nil:
		s.metrics.IncFailure(jobName)
		s.log.Error().Err(err).Str("job", jobName).Msg("backup automático falló")
	case res.Executed:
		s.metrics.IncSuccess(jobName)
		s.log.Info().Str("job", jobName).Str("snapshot", res.Snapshot).Int("removed", res.Removed).Msg("backup automático ejecutado")
	default:
		s.metrics.IncSkipped(jobName, res.Reason)
		s.log.Debug().Str("job", jobName).Str("reason", res.Reason).Msg("backup automático no corresponde")
	}
	return res, err
}
