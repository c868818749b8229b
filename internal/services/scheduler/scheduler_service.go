package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/common"
	"github.com/ternarybob/taberna/internal/interfaces"
)

// Service periodically resubmits index jobs for stores whose data has gone
// stale. Coalescing in the job manager makes overlapping submissions safe.
type Service struct {
	jobService interfaces.JobService
	syncStates interfaces.SyncStateStorage
	cron       *cron.Cron
	schedule   string
	staleAfter time.Duration
	logger     arbor.ILogger
	running    bool
}

// NewService creates the refresh scheduler.
func NewService(jobService interfaces.JobService, syncStates interfaces.SyncStateStorage, config *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		jobService: jobService,
		syncStates: syncStates,
		cron:       cron.New(),
		schedule:   config.Scheduler.Schedule,
		staleAfter: common.Duration(config.Indexing.StaleAfter, 24*time.Hour),
		logger:     logger,
	}
}

// Start registers the refresh task and launches the cron loop.
func (s *Service) Start() error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	schedule := s.schedule
	if schedule == "" {
		schedule = "0 */6 * * *"
	}
	if _, err := s.cron.AddFunc(schedule, s.refreshStaleStores); err != nil {
		return fmt.Errorf("failed to register refresh schedule: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Refresh scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for a running task to finish.
func (s *Service) Stop() {
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Refresh scheduler stopped")
}

// refreshStaleStores submits a full index for every store whose last run is
// older than the staleness window.
func (s *Service) refreshStaleStores() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	states, err := s.syncStates.ListSyncStates(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to list sync states for scheduled refresh")
		return
	}

	submitted := 0
	for _, state := range states {
		if state.LastIndexedAt != nil && time.Since(*state.LastIndexedAt) <= s.staleAfter {
			continue
		}
		if _, err := s.jobService.SubmitIndexJob(ctx, state.StoreID); err != nil {
			s.logger.Warn().
				Str("store_id", state.StoreID).
				Err(err).
				Msg("Failed to submit scheduled refresh")
			continue
		}
		submitted++
	}

	if submitted > 0 {
		s.logger.Info().
			Int("submitted", submitted).
			Int("stores", len(states)).
			Msg("Scheduled refresh submitted index jobs")
	}
}
