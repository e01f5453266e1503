package observability

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learntracker/learntracker/pkg/storage"
)

type fakeBusinessSource struct {
	mu     sync.Mutex
	counts map[storage.EntityKind]int64
	errs   map[storage.EntityKind]error
	stats  sql.DBStats
	panics bool
}

func (f *fakeBusinessSource) CountAll(ctx context.Context, kind storage.EntityKind) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("count exploded")
	}
	if err := f.errs[kind]; err != nil {
		return 0, err
	}
	return f.counts[kind], nil
}

func (f *fakeBusinessSource) PoolStats() sql.DBStats {
	return f.stats
}

func (f *fakeBusinessSource) fail(kind storage.EntityKind, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[kind] = err
}

func newFakeBusinessSource() *fakeBusinessSource {
	return &fakeBusinessSource{
		counts: map[storage.EntityKind]int64{storage.KindCourse: 3, storage.KindStudent: 7},
		errs:   map[storage.EntityKind]error{},
		stats:  sql.DBStats{InUse: 2, Idle: 5},
	}
}

func TestBusinessMetricsRefresher_Refresh(t *testing.T) {
	metrics := newTestMetrics(t)
	source := newFakeBusinessSource()
	refresher := NewBusinessMetricsRefresher(source, metrics, NewLogger(ErrorLevel, &bytes.Buffer{}))

	refresher.Refresh(context.Background())

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.CoursesTotal))
	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.StudentsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DBConnectionsActive))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.DBConnectionsIdle))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.MetricsRefreshErrors))
}

func TestBusinessMetricsRefresher_FailureKeepsLastValue(t *testing.T) {
	metrics := newTestMetrics(t)
	source := newFakeBusinessSource()
	logs := &bytes.Buffer{}
	refresher := NewBusinessMetricsRefresher(source, metrics, NewLogger(InfoLevel, logs))

	refresher.Refresh(context.Background())
	require.Equal(t, 3.0, testutil.ToFloat64(metrics.CoursesTotal))

	source.fail(storage.KindCourse, errors.New("connection reset"))
	source.counts[storage.KindStudent] = 9

	assert.NotPanics(t, func() { refresher.Refresh(context.Background()) })

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.CoursesTotal), "gauge keeps its previous value")
	assert.Equal(t, 9.0, testutil.ToFloat64(metrics.StudentsTotal), "independent gauge still updates")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MetricsRefreshErrors))
	assert.Contains(t, logs.String(), "Error updating business metrics")
	assert.Contains(t, logs.String(), "connection reset")
}

func TestBusinessMetricsRefresher_PanicIsContained(t *testing.T) {
	metrics := newTestMetrics(t)
	source := newFakeBusinessSource()
	source.panics = true
	logs := &bytes.Buffer{}
	refresher := NewBusinessMetricsRefresher(source, metrics, NewLogger(InfoLevel, logs))

	assert.NotPanics(t, func() { refresher.Refresh(context.Background()) })
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MetricsRefreshErrors))
	assert.Contains(t, logs.String(), "count exploded")
}

func TestBusinessMetricsRefresher_StartSchedule(t *testing.T) {
	refresher := NewBusinessMetricsRefresher(newFakeBusinessSource(), newTestMetrics(t), NewLogger(ErrorLevel, &bytes.Buffer{}))

	t.Run("valid spec", func(t *testing.T) {
		c, err := refresher.StartSchedule("@every 1h")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Len(t, c.Entries(), 1)
		<-c.Stop().Done()
	})

	t.Run("invalid spec", func(t *testing.T) {
		c, err := refresher.StartSchedule("whenever")
		assert.Error(t, err)
		assert.Nil(t, c)
	})
}
