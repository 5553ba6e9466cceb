package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"familyphotos/api/internal/config"
	"familyphotos/api/internal/export"
)

// Scheduler runs housekeeping on a cron schedule. Its only job removes
// export archives orphaned by a crash mid-download.
type Scheduler struct {
	cron *cron.Cron
	cfg  config.ExportConfig
	log  zerolog.Logger
	now  func() time.Time
}

func NewScheduler(cfg config.ExportConfig, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron: c,
		cfg:  cfg,
		log:  log,
		now:  time.Now,
	}
}

func (s *Scheduler) Start() error {
	if s.cfg.SweepSchedule == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, s.sweepScratch); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the schedule; the returned context is done once a running
// sweep has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) sweepScratch() {
	removed, err := s.Sweep()
	if err != nil {
		s.log.Error().Err(err).Msg("sweep export scratch failed")
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("removed stale export archives")
	}
}

func (s *Scheduler) Sweep() (int, error) {
	return export.SweepScratch(s.cfg.ScratchDir, s.now().Add(-s.cfg.MaxScratchAge))
}
