package observability

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/learntracker/learntracker/pkg/storage"
)

// Refresher updates gauges that mirror current store state
type Refresher interface {
	Refresh(ctx context.Context)
}

// BusinessSource is the store surface the refresher reads from
type BusinessSource interface {
	CountAll(ctx context.Context, kind storage.EntityKind) (int64, error)
	PoolStats() sql.DBStats
}

const defaultRefreshTimeout = 5 * time.Second

// BusinessMetricsRefresher sets courses_total, students_total and the connection
// gauges from the store. Refresh is best effort: failures are logged and counted,
// never returned, and gauges keep their last value.
type BusinessMetricsRefresher struct {
	source  BusinessSource
	metrics *Metrics
	logger  *Logger
	timeout time.Duration
}

// NewBusinessMetricsRefresher creates a refresher
func NewBusinessMetricsRefresher(source BusinessSource, metrics *Metrics, logger *Logger) *BusinessMetricsRefresher {
	if logger == nil {
		logger = NewLogger(InfoLevel, nil)
	}
	return &BusinessMetricsRefresher{
		source:  source,
		metrics: metrics,
		logger:  logger,
		timeout: defaultRefreshTimeout,
	}
}

// Refresh recomputes the business gauges
func (r *BusinessMetricsRefresher) Refresh(ctx context.Context) {
	defer RecoverPanic(r.logger, "business metrics refresh")

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		return r.setCount(ctx, storage.KindCourse, r.metrics.CoursesTotal.Set)
	})
	g.Go(func() error {
		return r.setCount(ctx, storage.KindStudent, r.metrics.StudentsTotal.Set)
	})

	if err := g.Wait(); err != nil {
		r.metrics.MetricsRefreshErrors.Inc()
		r.logger.WithError(err).Warn("Error updating business metrics")
	}

	stats := r.source.PoolStats()
	r.metrics.DBConnectionsActive.Set(float64(stats.InUse))
	r.metrics.DBConnectionsIdle.Set(float64(stats.Idle))
}

func (r *BusinessMetricsRefresher) setCount(ctx context.Context, kind storage.EntityKind, set func(float64)) (err error) {
	defer func() {
		if perr := MustRecover(recover()); perr != nil {
			err = fmt.Errorf("count %s: %w", kind, perr)
		}
	}()

	n, err := r.source.CountAll(ctx, kind)
	if err != nil {
		return fmt.Errorf("count %s: %w", kind, err)
	}
	set(float64(n))
	return nil
}

// StartSchedule refreshes on the given cron spec (e.g. "@every 15s") until the
// returned scheduler is stopped.
func (r *BusinessMetricsRefresher) StartSchedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		r.Refresh(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("invalid metrics refresh schedule %q: %w", spec, err)
	}
	c.Start()
	r.logger.Infof("Business metrics refresh scheduled: %s", spec)
	return c, nil
}
