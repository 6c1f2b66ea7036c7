// Package scheduler corre jobs periódicos (conciliación de tránsito) sobre robfig/cron.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jhoicas/spare-ledger/pkg/logger"
)

// Job trabajo periódico; recibe un contexto con el timeout del job.
type Job func(ctx context.Context) error

// Scheduler envuelve cron.Cron con protección contra ejecuciones solapadas y timeout por corrida.
type Scheduler struct {
	cron  *cron.Cron
	chain cron.Chain
	log   *logger.Logger
}

// New crea el scheduler. Las expresiones usan el formato estándar de 5 campos.
// Cada job pasa por SkipIfStillRunning: si la corrida anterior no terminó, la nueva se omite.
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithLogger(cron.PrintfLogger(log))),
		chain: cron.NewChain(cron.Recover(cron.PrintfLogger(log)), cron.SkipIfStillRunning(cron.VerbosePrintfLogger(log))),
		log:   log,
	}
}

// Add registra job bajo name. Si la corrida anterior sigue activa, la nueva se salta.
func (s *Scheduler) Add(name, schedule string, timeout time.Duration, job Job) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("scheduler: expresión inválida para %s: %w", name, err)
	}
	_, err := s.cron.AddJob(schedule, s.wrap(name, timeout, job))
	if err != nil {
		return fmt.Errorf("scheduler: registrar %s: %w", name, err)
	}
	s.log.Info().Str("job", name).Str("schedule", schedule).Msg("job programado")
	return nil
}

// wrap arma el cron.Job que se registra: la cadena del scheduler más un contexto con timeout.
func (s *Scheduler) wrap(name string, timeout time.Duration, job Job) cron.Job {
	return s.chain.Then(cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			s.log.Error().Err(err).Str("job", name).Dur("elapsed", time.Since(start)).Msg("job falló")
			return
		}
		s.log.Info().Str("job", name).Dur("elapsed", time.Since(start)).Msg("job terminado")
	}))
}

// Start arranca el cron en su propia goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop detiene el cron y espera a que terminen los jobs en curso o a que venza ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler: apagado sin esperar jobs en curso")
	}
}
