package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syssam/dal/dialect"
)

// QueryStats holds query execution statistics.
type QueryStats struct {
	// TotalQueries is the total number of row returning statements executed.
	TotalQueries atomic.Int64
	// TotalExecs is the total number of exec statements executed.
	TotalExecs atomic.Int64
	// TotalDuration is the total time spent executing statements.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowQueries is the count of statements exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of failed statements.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of query statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration returns the average statement duration.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is a function called when a slow statement is detected.
type SlowQueryHook func(ctx context.Context, query string, params map[string]any, duration time.Duration)

// StatsDriver wraps a dialect.Driver with statistics collection.
type StatsDriver struct {
	dialect.Driver
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

// StatsOption configures the StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the threshold for slow query detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback function for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow statements to the given logger, or the
// default logger when nil.
func WithSlowQueryLog(logger *slog.Logger) StatsOption {
	if logger == nil {
		logger = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, query string, params map[string]any, duration time.Duration) {
		logger.WarnContext(ctx, "slow query detected", "duration", duration, "query", query, "params", len(params))
	})
}

// NewStatsDriver wraps a Driver with statistics collection.
//
//	drv, _ := sql.Open("mysql", dsn, nil)
//	stats := sql.NewStatsDriver(drv,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(nil),
//	)
//	c, _ := client.New(stats, reg)
//	fmt.Println(stats.QueryStats().Stats())
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:        drv,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the underlying QueryStats for reading statistics.
func (d *StatsDriver) QueryStats() *QueryStats {
	return d.stats
}

// SlowThreshold returns the current slow query threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slowThreshold
}

// SetSlowThreshold updates the slow query threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slowThreshold = threshold
}

// Exec executes a statement and records statistics.
func (d *StatsDriver) Exec(ctx context.Context, query string, params map[string]any) (int64, error) {
	start := time.Now()
	n, err := d.Driver.Exec(ctx, query, params)
	d.record(ctx, query, params, start, err, false)
	return n, err
}

// Query executes a query and records statistics.
func (d *StatsDriver) Query(ctx context.Context, query string, params map[string]any, fn func(dialect.Row) error) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, params, fn)
	d.record(ctx, query, params, start, err, true)
	return err
}

// QueryScalar executes a scalar query and records statistics.
func (d *StatsDriver) QueryScalar(ctx context.Context, query string, params map[string]any, dest any) error {
	start := time.Now()
	err := d.Driver.QueryScalar(ctx, query, params, dest)
	d.record(ctx, query, params, start, err, true)
	return err
}

// InsertReturningKey executes an insert and records statistics.
func (d *StatsDriver) InsertReturningKey(ctx context.Context, query string, params map[string]any, keyColumn string) (any, error) {
	start := time.Now()
	key, err := d.Driver.InsertReturningKey(ctx, query, params, keyColumn)
	d.record(ctx, query, params, start, err, false)
	return key, err
}

// BatchExec executes a batch and records it as one exec.
func (d *StatsDriver) BatchExec(ctx context.Context, query string, batch []map[string]any) ([]int64, error) {
	start := time.Now()
	counts, err := d.Driver.BatchExec(ctx, query, batch)
	d.record(ctx, query, nil, start, err, false)
	return counts, err
}

// Call invokes a procedure and records statistics.
func (d *StatsDriver) Call(ctx context.Context, query string, params map[string]any, specs []dialect.ParamSpec) (map[string]any, error) {
	start := time.Now()
	out, err := d.Driver.Call(ctx, query, params, specs)
	d.record(ctx, query, params, start, err, false)
	return out, err
}

func (d *StatsDriver) record(ctx context.Context, query string, params map[string]any, start time.Time, err error, isQuery bool) {
	duration := time.Since(start)
	if isQuery {
		d.stats.TotalQueries.Add(1)
	} else {
		d.stats.TotalExecs.Add(1)
	}
	d.stats.TotalDuration.Add(int64(duration))

	if err != nil {
		d.stats.Errors.Add(1)
	}

	d.mu.RLock()
	threshold := d.slowThreshold
	hook := d.slowHook
	d.mu.RUnlock()

	if duration > threshold {
		d.stats.SlowQueries.Add(1)
		if hook != nil {
			hook(ctx, query, params, duration)
		}
	}
}

// DebugDriver wraps a dialect.Driver with debug logging.
type DebugDriver struct {
	dialect.Driver
	log func(context.Context, ...any)
}

// DebugOption configures the DebugDriver.
type DebugOption func(*DebugDriver)

// DebugWithLog sets a custom log function.
func DebugWithLog(logFunc func(context.Context, ...any)) DebugOption {
	return func(d *DebugDriver) {
		d.log = logFunc
	}
}

// NewDebugDriver wraps a Driver with debug logging.
func NewDebugDriver(drv dialect.Driver, opts ...DebugOption) *DebugDriver {
	d := &DebugDriver{
		Driver: drv,
		log: func(ctx context.Context, v ...any) {
			slog.DebugContext(ctx, fmt.Sprint(v...))
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Exec logs and executes a statement.
func (d *DebugDriver) Exec(ctx context.Context, query string, params map[string]any) (int64, error) {
	d.log(ctx, fmt.Sprintf("exec: %s params: %v", query, params))
	return d.Driver.Exec(ctx, query, params)
}

// Query logs and executes a query.
func (d *DebugDriver) Query(ctx context.Context, query string, params map[string]any, fn func(dialect.Row) error) error {
	d.log(ctx, fmt.Sprintf("query: %s params: %v", query, params))
	return d.Driver.Query(ctx, query, params, fn)
}

// QueryScalar logs and executes a scalar query.
func (d *DebugDriver) QueryScalar(ctx context.Context, query string, params map[string]any, dest any) error {
	d.log(ctx, fmt.Sprintf("scalar: %s params: %v", query, params))
	return d.Driver.QueryScalar(ctx, query, params, dest)
}

// InsertReturningKey logs and executes an insert.
func (d *DebugDriver) InsertReturningKey(ctx context.Context, query string, params map[string]any, keyColumn string) (any, error) {
	d.log(ctx, fmt.Sprintf("insert: %s key: %s params: %v", query, keyColumn, params))
	return d.Driver.InsertReturningKey(ctx, query, params, keyColumn)
}

// BatchExec logs and executes a batch.
func (d *DebugDriver) BatchExec(ctx context.Context, query string, batch []map[string]any) ([]int64, error) {
	d.log(ctx, fmt.Sprintf("batch: %s size: %d", query, len(batch)))
	return d.Driver.BatchExec(ctx, query, batch)
}

// Call logs and invokes a procedure.
func (d *DebugDriver) Call(ctx context.Context, query string, params map[string]any, specs []dialect.ParamSpec) (map[string]any, error) {
	d.log(ctx, fmt.Sprintf("call: %s params: %v", query, params))
	return d.Driver.Call(ctx, query, params, specs)
}

// Ensure interfaces are implemented.
var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
)

// OpenWithStats opens a database connection with statistics collection enabled.
func OpenWithStats(driverName, source string, d dialect.Dialect, opts ...StatsOption) (*StatsDriver, *QueryStats, error) {
	drv, err := Open(driverName, source, d)
	if err != nil {
		return nil, nil, err
	}
	statsDriver := NewStatsDriver(drv, opts...)
	return statsDriver, statsDriver.QueryStats(), nil
}
