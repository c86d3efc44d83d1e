// Package infra holds process-level plumbing: the simulation scheduler.
package infra

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"rtlab-dashboard/internal/service"
)

// Scheduler drives the mock telemetry simulator on a fixed interval. It only
// runs in mock mode; in real mode telemetry comes from the upstream stream.
type Scheduler struct {
	cron      *cron.Cron
	simulator *service.Simulator
	interval  time.Duration
}

// NewScheduler creates a scheduler ticking the simulator every interval.
func NewScheduler(simulator *service.Simulator, interval time.Duration) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		simulator: simulator,
		interval:  interval,
	}
}

// Start registers the tick job and starts the cron loop.
func (s *Scheduler) Start() error {
	schedule := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(schedule, func() {
		event := s.simulator.Tick()
		log.Debug().Str("type", event.Type).Str("module", event.Module).Msg("simulator tick")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule simulator tick: %w", err)
	}
	s.cron.Start()
	log.Info().Dur("interval", s.interval).Msg("mock simulator started")
	return nil
}

// Stop stops the cron loop. Running ticks finish; no new ones start.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info().Msg("mock simulator stopped")
}
