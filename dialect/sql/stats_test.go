package sql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dal/dialect"
)

func TestStatsDriver(t *testing.T) {
	drv, mock := newMock(t, dialect.MySQL)
	ctx := context.Background()

	var slow []string
	stats := NewStatsDriver(drv,
		WithSlowThreshold(-1),
		WithSlowQueryHook(func(_ context.Context, query string, _ map[string]any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)
	assert.Equal(t, time.Duration(-1), stats.SlowThreshold())

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("DELETE FROM t").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM u").WillReturnError(errors.New("denied"))

	require.NoError(t, stats.Query(ctx, "SELECT 1", nil, func(dialect.Row) error { return nil }))
	n, err := stats.Exec(ctx, "DELETE FROM t", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, err = stats.Exec(ctx, "DELETE FROM u", nil)
	require.Error(t, err)

	snap := stats.QueryStats().Stats()
	assert.Equal(t, int64(1), snap.TotalQueries)
	assert.Equal(t, int64(2), snap.TotalExecs)
	assert.Equal(t, int64(1), snap.Errors)
	assert.Equal(t, int64(3), snap.SlowQueries)
	assert.Equal(t, []string{"SELECT 1", "DELETE FROM t", "DELETE FROM u"}, slow)
	assert.Contains(t, snap.String(), "queries=1 execs=2")
	assert.Equal(t, dialect.MySQL, stats.Dialect().Name())

	stats.QueryStats().Reset()
	stats.SetSlowThreshold(time.Hour)
	assert.Equal(t, StatsSnapshot{}, stats.QueryStats().Stats())
	assert.Zero(t, StatsSnapshot{}.AvgQueryDuration())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDebugDriver(t *testing.T) {
	drv, mock := newMock(t, dialect.SQLite)
	ctx := context.Background()

	var logs []any
	debug := NewDebugDriver(drv, DebugWithLog(func(_ context.Context, v ...any) {
		logs = append(logs, v...)
	}))

	mock.ExpectExec("UPDATE t SET a = ?").WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	_, err := debug.Exec(ctx, "UPDATE t SET a = :a", map[string]any{"a": 1})
	require.NoError(t, err)

	mock.ExpectExec("DELETE FROM t WHERE a = ?").WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = debug.BatchExec(ctx, "DELETE FROM t WHERE a = :a", []map[string]any{{"a": 1}})
	require.NoError(t, err)

	require.Len(t, logs, 2)
	assert.Contains(t, logs[0], "exec: UPDATE t SET a = :a")
	assert.Contains(t, logs[1], "batch: DELETE FROM t WHERE a = :a size: 1")
	require.NoError(t, mock.ExpectationsWereMet())
}
