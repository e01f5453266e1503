package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learntracker/learntracker/pkg/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
}

// TestParseReplicaURLs tests the ParseReplicaURLs function
func TestParseReplicaURLs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single URL",
			input:    "postgres://localhost:5432/learntracker",
			expected: []string{"postgres://localhost:5432/learntracker"},
		},
		{
			name:  "URLs with whitespace",
			input: " postgres://host1:5432/db , postgres://host2:5432/db ",
			expected: []string{
				"postgres://host1:5432/db",
				"postgres://host2:5432/db",
			},
		},
		{
			name:     "URLs with empty entries",
			input:    "postgres://host1:5432/db,,postgres://host2:5432/db,",
			expected: []string{"postgres://host1:5432/db", "postgres://host2:5432/db"},
		},
		{
			name:     "only commas and whitespace",
			input:    " , , , ",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseReplicaURLs(tt.input))
		})
	}
}

// TestNewConnectionManager_UnreachablePrimary tests connection manager with a dead primary
func TestNewConnectionManager_UnreachablePrimary(t *testing.T) {
	config := ConnectionConfig{
		PrimaryURL:  "postgres://nonexistent:9999/learntracker?connect_timeout=1",
		MaxConns:    10,
		MinConns:    2,
		Timeout:     2 * time.Second,
		MaxLifetime: time.Hour,
		MaxIdleTime: 10 * time.Minute,
	}

	cm, err := NewConnectionManager(context.Background(), config, testLogger())
	assert.Error(t, err)
	assert.Nil(t, cm)
	assert.Contains(t, err.Error(), "failed to connect to primary")
}

// TestConnectionManager_Replica tests replica selection
func TestConnectionManager_Replica(t *testing.T) {
	t.Run("no replicas - fallback to primary", func(t *testing.T) {
		primaryDB := &sql.DB{}
		cm := &ConnectionManager{primary: primaryDB}

		assert.Equal(t, primaryDB, cm.Replica(), "Should return primary when no replicas")
		assert.Equal(t, 0, cm.ReplicaCount())
	})

	t.Run("round-robin selection with multiple replicas", func(t *testing.T) {
		replica1 := &sql.DB{}
		replica2 := &sql.DB{}
		replica3 := &sql.DB{}

		cm := &ConnectionManager{
			primary:  &sql.DB{},
			replicas: []*sql.DB{replica1, replica2, replica3},
		}

		selections := make(map[*sql.DB]int)
		for i := 0; i < 30; i++ {
			selections[cm.Replica()]++
		}

		assert.Equal(t, 10, selections[replica1])
		assert.Equal(t, 10, selections[replica2])
		assert.Equal(t, 10, selections[replica3])
	})

	t.Run("concurrent replica selection", func(t *testing.T) {
		replica1 := &sql.DB{}
		replica2 := &sql.DB{}
		cm := &ConnectionManager{
			primary:  &sql.DB{},
			replicas: []*sql.DB{replica1, replica2},
		}

		var wg sync.WaitGroup
		results := make(chan *sql.DB, 100)
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- cm.Replica()
			}()
		}
		wg.Wait()
		close(results)

		for db := range results {
			assert.True(t, db == replica1 || db == replica2)
		}
	})
}

// TestConnectionManager_HealthCheck tests health check functionality
func TestConnectionManager_HealthCheck(t *testing.T) {
	t.Run("healthy primary and replicas", func(t *testing.T) {
		primaryDB, primaryMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer primaryDB.Close()

		replicaDB, replicaMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer replicaDB.Close()

		primaryMock.ExpectPing()
		replicaMock.ExpectPing()

		cm := &ConnectionManager{primary: primaryDB, replicas: []*sql.DB{replicaDB}}
		assert.NoError(t, cm.HealthCheck(context.Background()))

		assert.NoError(t, primaryMock.ExpectationsWereMet())
		assert.NoError(t, replicaMock.ExpectationsWereMet())
	})

	t.Run("unhealthy primary", func(t *testing.T) {
		primaryDB, primaryMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer primaryDB.Close()

		primaryMock.ExpectPing().WillReturnError(errors.New("connection refused"))

		cm := &ConnectionManager{primary: primaryDB}
		err = cm.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "primary unhealthy")
	})

	t.Run("all replicas down is degraded", func(t *testing.T) {
		primaryDB, primaryMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer primaryDB.Close()

		replicaDB, replicaMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer replicaDB.Close()

		primaryMock.ExpectPing()
		replicaMock.ExpectPing().WillReturnError(errors.New("timeout"))

		cm := &ConnectionManager{primary: primaryDB, replicas: []*sql.DB{replicaDB}}
		err = cm.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "all replicas unhealthy")
	})
}

// TestConnectionManager_RemoveUnhealthyReplicas tests replica pruning
func TestConnectionManager_RemoveUnhealthyReplicas(t *testing.T) {
	replica1DB, replica1Mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	replica2DB, replica2Mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer replica2DB.Close()

	replica1Mock.ExpectPing().WillReturnError(errors.New("gone"))
	replica1Mock.ExpectClose()
	replica2Mock.ExpectPing()

	cm := &ConnectionManager{
		primary:  &sql.DB{},
		replicas: []*sql.DB{replica1DB, replica2DB},
		logger:   testLogger(),
	}

	removed := cm.RemoveUnhealthyReplicas(context.Background())
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, cm.ReplicaCount())
	assert.Equal(t, replica2DB, cm.Replica())
	assert.NoError(t, replica1Mock.ExpectationsWereMet())
}

// TestConnectionManager_StartHealthCheckRoutine tests the background pruning loop
func TestConnectionManager_StartHealthCheckRoutine(t *testing.T) {
	replicaDB, replicaMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	replicaMock.ExpectPing().WillReturnError(errors.New("gone"))
	replicaMock.ExpectClose()

	cm := &ConnectionManager{
		primary:  &sql.DB{},
		replicas: []*sql.DB{replicaDB},
		logger:   testLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cm.StartHealthCheckRoutine(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return cm.ReplicaCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

// TestConnectionManager_Close tests closing all connections
func TestConnectionManager_Close(t *testing.T) {
	primaryDB, primaryMock, err := sqlmock.New()
	require.NoError(t, err)
	replicaDB, replicaMock, err := sqlmock.New()
	require.NoError(t, err)

	primaryMock.ExpectClose()
	replicaMock.ExpectClose().WillReturnError(errors.New("close failed"))

	cm := &ConnectionManager{primary: primaryDB, replicas: []*sql.DB{replicaDB}}
	err = cm.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replica-0 close error")
	assert.Equal(t, 0, cm.ReplicaCount())
}

// TestConnectionStats_Total tests pool statistics aggregation
func TestConnectionStats_Total(t *testing.T) {
	stats := ConnectionStats{
		Primary: sql.DBStats{OpenConnections: 4, InUse: 3, Idle: 1},
		Replicas: []sql.DBStats{
			{OpenConnections: 2, InUse: 1, Idle: 1},
			{OpenConnections: 3, InUse: 0, Idle: 3},
		},
	}

	total := stats.Total()
	assert.Equal(t, 9, total.OpenConnections)
	assert.Equal(t, 4, total.InUse)
	assert.Equal(t, 5, total.Idle)
}
