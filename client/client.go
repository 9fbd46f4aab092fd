package client

import (
	"errors"
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/syssam/dal"
	"github.com/syssam/dal/compiler"
	"github.com/syssam/dal/dialect"
	dsql "github.com/syssam/dal/dialect/sql"
	"github.com/syssam/dal/marshal"
	"github.com/syssam/dal/privacy"
	"github.com/syssam/dal/registry"
	"github.com/syssam/dal/render"
)

// DefaultSlowThreshold is the elapsed time from which a call is logged as
// slow.
const DefaultSlowThreshold = 10 * time.Millisecond

// Client executes entity and named statement operations against a
// dialect.Driver. A Client holds no per-call state and is safe for
// concurrent use.
type Client struct {
	driver    dialect.Driver
	registry  *registry.Registry
	dialect   dialect.Dialect
	entities  *compiler.Cache
	marshal   *marshal.Marshaller
	renderer  render.Renderer
	policy    privacy.Rule
	logger    *slog.Logger
	slow      time.Duration
	unbounded int
	stats     *dsql.QueryStats
	closer    io.Closer
}

// Option configures a Client.
type Option func(*Client) error

// WithLogger sets the logger for call diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) error {
		if l == nil {
			return dal.NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.logger = l
		return nil
	}
}

// WithSlowThreshold sets the elapsed time from which calls are logged as
// slow. Default is 10ms.
func WithSlowThreshold(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return dal.NewConfigError("SlowThreshold", d, "threshold cannot be negative")
		}
		c.slow = d
		return nil
	}
}

// WithRenderer replaces the text/template renderer.
func WithRenderer(r render.Renderer) Option {
	return func(c *Client) error {
		if r == nil {
			return dal.NewConfigError("Renderer", nil, "renderer cannot be nil")
		}
		c.renderer = r
		return nil
	}
}

// WithUnboundedPageSize sets the page size used when a paged query asks
// for no limit. Default is dal.DefaultUnboundedPageSize.
func WithUnboundedPageSize(n int) Option {
	return func(c *Client) error {
		if n <= 0 {
			return dal.NewConfigError("UnboundedPageSize", n, "page size must be positive")
		}
		c.unbounded = n
		return nil
	}
}

// WithDialect sets the dialect used to compile entities and rewrite
// statements. It defaults to the driver's dialect.
func WithDialect(d dialect.Dialect) Option {
	return func(c *Client) error {
		if d == nil {
			return dal.NewConfigError("Dialect", nil, "dialect cannot be nil")
		}
		c.dialect = d
		return nil
	}
}

// WithCompilerCache shares a compiled entity cache between clients. The
// cache dialect must match the client dialect.
func WithCompilerCache(cache *compiler.Cache) Option {
	return func(c *Client) error {
		if cache == nil {
			return dal.NewConfigError("CompilerCache", nil, "cache cannot be nil")
		}
		c.entities = cache
		return nil
	}
}

// WithMarshaller sets the marshaller converting parameters and rows.
func WithMarshaller(m *marshal.Marshaller) Option {
	return func(c *Client) error {
		if m == nil {
			return dal.NewConfigError("Marshaller", nil, "marshaller cannot be nil")
		}
		c.marshal = m
		return nil
	}
}

// WithPolicy installs an authorization policy evaluated before every call
// reaches the driver. Denied calls fail without touching the database.
func WithPolicy(p privacy.Rule) Option {
	return func(c *Client) error {
		if p == nil {
			return dal.NewConfigError("Policy", nil, "policy cannot be nil")
		}
		c.policy = p
		return nil
	}
}

func newClient(opts []Option) (*Client, error) {
	c := &Client{
		slow:      DefaultSlowThreshold,
		unbounded: dal.DefaultUnboundedPageSize,
		renderer:  render.NewText(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// New returns a Client executing on drv with the statements of reg.
func New(drv dialect.Driver, reg *registry.Registry, opts ...Option) (*Client, error) {
	c, err := newClient(opts)
	if err != nil {
		return nil, err
	}
	if err := c.init(drv, reg); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) init(drv dialect.Driver, reg *registry.Registry) error {
	switch {
	case drv == nil:
		return dal.NewConfigError("Driver", nil, "driver is required")
	case reg == nil:
		return dal.NewConfigError("Registry", nil, "statement registry is required")
	}
	c.driver, c.registry = drv, reg
	if c.dialect == nil {
		c.dialect = drv.Dialect()
	}
	if c.entities == nil {
		c.entities = compiler.NewCache(c.dialect)
	} else if c.entities.Dialect().Name() != c.dialect.Name() {
		return dal.NewConfigError("CompilerCache", c.entities.Dialect().Name(), "cache dialect differs from client dialect "+c.dialect.Name())
	}
	if c.marshal == nil {
		c.marshal = marshal.New(marshal.WithLogger(c.logger))
	}
	return nil
}

// Dialect returns the configured dialect.
func (c *Client) Dialect() dialect.Dialect {
	return c.dialect
}

// Registry returns the statement registry.
func (c *Client) Registry() *registry.Registry {
	return c.registry
}

// Stats returns the driver statistics of a client built by Open.
func (c *Client) Stats() (dsql.StatsSnapshot, bool) {
	if c.stats == nil {
		return dsql.StatsSnapshot{}, false
	}
	return c.stats.Stats(), true
}

// Close releases the database of a client built by Open. Clients built by
// New do not own their driver; Close is a no-op for them.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// prepared is one named statement ready for execution.
type prepared struct {
	stmt    dal.Statement
	dialect dialect.Dialect
	params  map[string]any
}

// prepare resolves id, renders it against params and returns a private
// copy of the parameters. A dialect declared by the statement replaces the
// configured one for rewriting; binding always follows the driver.
func (c *Client) prepare(id string, params any, strip bool) (*prepared, error) {
	e, err := c.registry.Lookup(id)
	if err != nil {
		return nil, err
	}
	d := c.dialect
	if e.Dialect != "" {
		if d, err = dialect.For(e.Dialect); err != nil {
			return nil, err
		}
	}
	pm, err := c.marshal.ToParamMap(params)
	if err != nil {
		return nil, err
	}
	args := make(map[string]any, len(pm)+2)
	maps.Copy(args, pm)
	rendered, err := c.renderer.Render(e.SQL, args)
	if err != nil {
		return nil, err
	}
	if strip {
		args = marshal.StripEmpty(args)
	}
	return &prepared{
		stmt:    dal.Statement{ID: id, Raw: e.SQL, Rendered: rendered, Final: rendered},
		dialect: d,
		params:  args,
	}, nil
}

// wrap converts a driver failure into a SubstrateError. Errors raised by
// this package's own layers keep their type.
func wrap(op string, stmt dal.Statement, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dal.ErrMapping), errors.Is(err, dal.ErrSubstrate):
		return err
	}
	return &dal.SubstrateError{
		Op:          op,
		StatementID: stmt.ID,
		SQL:         stmt.Final,
		Code:        dsql.ErrorCode(err),
		Err:         err,
	}
}
