package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Hussein-Osamaa/madas-inventory/internal/config"
	"github.com/Hussein-Osamaa/madas-inventory/internal/service/inventory"
)

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron         *cron.Cron
	inventorySvc *inventory.Service
	cfg          config.Config
	logger       *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.Config, inventorySvc *inventory.Service, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:         cron.New(),
		inventorySvc: inventorySvc,
		cfg:          cfg,
		logger:       logger,
	}
}

// Start registers the balance rebuild job and starts the cron loop. The job
// re-derives every cached balance from the ledger; it is the recovery path
// for any staleness the sequential write fallback leaves behind.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.Rebuild.CronSchedule))

	_, err := s.cron.AddFunc(s.cfg.Rebuild.CronSchedule, s.rebuildBalances)
	if err != nil {
		s.logger.Error("failed to schedule balance rebuild", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) rebuildBalances() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rebuilt, err := s.inventorySvc.RebuildBalances(ctx)
	if err != nil {
		s.logger.Error("balance rebuild failed", zap.Error(err))
		return
	}
	s.logger.Info("balance rebuild completed", zap.Int("keys", rebuilt))
}
