package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"storefront/internal/metrics"
	"storefront/internal/repositories/interfaces"
	"storefront/internal/utils"
	"storefront/pkg/logger"
)

// RollupService rebuilds DailyAnalytics rows from the event store. The nightly
// run overwrites the previous day's rows, repairing any increments the async
// projector dropped.
type RollupService struct {
	events   interfaces.AnalyticsRepository
	rollups  interfaces.RollupRepository
	schedule string
	timeout  time.Duration
	log      *logger.Logger
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func NewRollupService(events interfaces.AnalyticsRepository, rollups interfaces.RollupRepository, schedule string, log *logger.Logger) *RollupService {
	return &RollupService{
		events:   events,
		rollups:  rollups,
		schedule: schedule,
		timeout:  10 * time.Minute,
		log:      log,
		now:      time.Now,
	}
}

// RebuildDay recomputes every rollup row of day's UTC date and returns the
// number of rows written.
func (s *RollupService) RebuildDay(ctx context.Context, day time.Time) (int, error) {
	start := utils.StartOfDay(day)
	end := start.AddDate(0, 0, 1)

	rows, err := s.events.DailyEntityRollups(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate rollups for %s: %w", utils.DateKey(start), err)
	}

	written := 0
	for _, row := range rows {
		row.UpdatedAt = s.now().UTC()
		if err := s.rollups.Replace(ctx, row); err != nil {
			return written, fmt.Errorf("failed to write rollup %s/%s/%s: %w", row.Date, row.EntityType, row.EntityID, err)
		}
		written++
	}
	return written, nil
}

func (s *RollupService) RebuildYesterday(ctx context.Context) (int, error) {
	start, _ := utils.Yesterday(s.now())
	return s.RebuildDay(ctx, start)
}

// Start schedules the nightly rebuild. An empty schedule disables it.
func (s *RollupService) Start() error {
	if s.schedule == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithLocation(time.UTC), cron.WithLogger(cron.PrintfLogger(s.log)))
	if _, err := c.AddFunc(s.schedule, s.runScheduled); err != nil {
		return fmt.Errorf("invalid rollup schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c

	s.log.WithField("schedule", s.schedule).Info("rollup rebuild scheduled")
	return nil
}

// Stop halts the scheduler and waits for a running rebuild to finish.
func (s *RollupService) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *RollupService) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.RebuildYesterday(ctx)
	if err != nil {
		metrics.RollupRebuilds.WithLabelValues("error").Inc()
		s.log.WithError(err).Error("rollup rebuild failed")
		return
	}
	metrics.RollupRebuilds.WithLabelValues("ok").Inc()
	s.log.LogPerformanceMetric("rollup_rebuild_duration", time.Since(start).Seconds(), "s", map[string]string{
		"rows": strconv.Itoa(n),
	})
}
