package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"

	"github.com/syssam/dal"
	"github.com/syssam/dal/privacy"
)

var snapshotConfig = spew.ConfigState{
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// params renders a parameter map with sorted keys, and only when the
// record is actually logged.
type params map[string]any

// LogValue implements slog.LogValuer.
func (p params) LogValue() slog.Value {
	return slog.StringValue(snapshotConfig.Sprint(map[string]any(p)))
}

// trace times one substrate invocation.
type trace struct {
	c      *Client
	ctx    context.Context
	op     string
	stmt   dal.Statement
	callID string
	start  time.Time
}

// writes are the operations a policy sees as modifying data.
var writes = map[string]bool{
	"persist":     true,
	"merge":       true,
	"remove":      true,
	"execute":     true,
	"batchUpdate": true,
	"call":        true,
}

// begin authorizes the call, logs it at debug level and starts its clock.
func (c *Client) begin(ctx context.Context, op string, stmt dal.Statement, args map[string]any) (*trace, error) {
	if c.policy != nil {
		decision := privacy.Operation{Op: op, Statement: stmt.ID, Entity: stmt.Entity, Write: writes[op], Params: args}
		if err := c.policy.Eval(ctx, decision); err != nil {
			c.logger.DebugContext(ctx, "dal call denied", "op", op, "statement", stmt.ID, "error", err)
			return nil, fmt.Errorf("dal: %s %s: %w", op, stmt.ID, err)
		}
	}
	t := &trace{c: c, ctx: ctx, op: op, stmt: stmt}
	if c.logger.Enabled(ctx, slog.LevelDebug) {
		t.callID = uuid.NewString()
		c.logger.DebugContext(ctx, "dal call",
			"call", t.callID,
			"op", op,
			"statement", stmt.ID,
			"sql", stmt.Final,
			"params", params(args),
		)
	}
	t.start = time.Now()
	return t, nil
}

// end logs slow calls and wraps substrate failures.
func (t *trace) end(err error) error {
	elapsed := time.Since(t.start)
	logger := t.c.logger
	if t.callID != "" {
		logger = logger.With("call", t.callID)
	}
	if elapsed >= t.c.slow {
		logger.WarnContext(t.ctx, "slow dal call", "op", t.op, "statement", t.stmt.ID, "elapsed", elapsed)
	}
	if err != nil {
		err = wrap(t.op, t.stmt, err)
		logger.DebugContext(t.ctx, "dal call failed", "op", t.op, "statement", t.stmt.ID, "error", err)
		return err
	}
	logger.DebugContext(t.ctx, "dal call done", "op", t.op, "statement", t.stmt.ID, "elapsed", elapsed)
	return nil
}
