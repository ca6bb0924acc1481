// Package retention periodically removes events that ended long ago.
package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/metrics"
	"github.com/lomoval/sharedcal/internal/storage"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidDays = errors.New("retention days must be positive")

type Config struct {
	Schedule string
	Days     int
}

type Job struct {
	storage storage.Storage
	days    int
	now     func() time.Time
	metrics *metrics.Metrics
	cron    *cron.Cron
}

// New builds a job removing the events of stor that ended more than
// config.Days days ago, on the cron schedule config.Schedule.
func New(stor storage.Storage, config Config, m *metrics.Metrics) (*Job, error) {
	if config.Days <= 0 {
		return nil, fmt.Errorf("%d: %w", config.Days, ErrInvalidDays)
	}
	j := &Job{
		storage: stor,
		days:    config.Days,
		now:     time.Now,
		metrics: m,
		cron:    cron.New(),
	}
	if _, err := j.cron.AddFunc(config.Schedule, j.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", config.Schedule, err)
	}
	return j, nil
}

// Cutoff is the first day that is kept.
func (j *Job) Cutoff() date.Day {
	return date.Of(j.now()).AddDays(-j.days)
}

// Run removes the expired events once and returns how many were removed.
func (j *Job) Run(ctx context.Context) (int, error) {
	cutoff := j.Cutoff()
	removed, err := j.storage.RemoveEndedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to remove events ended before %s: %w", cutoff, err)
	}
	j.metrics.RetentionRemoved(len(removed))
	log.WithField("cutoff", cutoff).WithField("removed", len(removed)).Info("retention done")
	return len(removed), nil
}

// Start runs the job on its schedule until ctx is done, then waits for a
// running pass to finish.
func (j *Job) Start(ctx context.Context) {
	j.cron.Start()
	<-ctx.Done()
	<-j.cron.Stop().Done()
}

func (j *Job) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := j.Run(ctx); err != nil {
		log.Errorf("retention failed: %v", err)
	}
}
