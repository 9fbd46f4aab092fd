package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"github.com/syssam/dal"
	"github.com/syssam/dal/dialect"
	dsql "github.com/syssam/dal/dialect/sql"
	"github.com/syssam/dal/registry"
)

// Config is the file configuration of a Client:
//
//	driver: mysql
//	mysql:
//	  user: app
//	  password: secret
//	  addr: 127.0.0.1:3306
//	  dbname: app
//	resources: ./sqlmap
//	slow_threshold: 20ms
type Config struct {
	// Dialect names the SQL dialect. It defaults to the driver name.
	Dialect string `yaml:"dialect"`
	// Driver is the database/sql driver name, e.g. mysql, postgres, sqlite.
	Driver string `yaml:"driver"`
	// DSN is the data source name. Exclusive with MySQL.
	DSN string `yaml:"dsn"`
	// MySQL describes a MySQL data source field by field.
	MySQL *MySQLConfig `yaml:"mysql"`
	// Resources is the statement resource directory.
	Resources string `yaml:"resources"`
	// SlowThreshold overrides DefaultSlowThreshold when positive.
	SlowThreshold time.Duration `yaml:"slow_threshold"`
	// UnboundedPageSize overrides dal.DefaultUnboundedPageSize when positive.
	UnboundedPageSize int `yaml:"unbounded_page_size"`
	// Debug logs every driver call at debug level.
	Debug bool `yaml:"debug"`
}

// MySQLConfig is the structured form of a MySQL DSN.
type MySQLConfig struct {
	User     string            `yaml:"user"`
	Password string            `yaml:"password"`
	Net      string            `yaml:"net"`
	Addr     string            `yaml:"addr"`
	DBName   string            `yaml:"dbname"`
	Params   map[string]string `yaml:"params"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("client: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("client: parse config %s: %w", path, errors.Join(dal.ErrConfig, err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting as a ConfigError.
func (cfg *Config) Validate() error {
	switch {
	case cfg.Driver == "":
		return dal.NewConfigError("driver", nil, "driver is required")
	case cfg.DSN == "" && cfg.MySQL == nil:
		return dal.NewConfigError("dsn", nil, "dsn or mysql is required")
	case cfg.DSN != "" && cfg.MySQL != nil:
		return dal.NewConfigError("dsn", cfg.DSN, "dsn and mysql are exclusive")
	case cfg.Resources == "":
		return dal.NewConfigError("resources", nil, "resource directory is required")
	case cfg.SlowThreshold < 0:
		return dal.NewConfigError("slow_threshold", cfg.SlowThreshold, "threshold cannot be negative")
	case cfg.UnboundedPageSize < 0:
		return dal.NewConfigError("unbounded_page_size", cfg.UnboundedPageSize, "page size cannot be negative")
	}
	if _, err := cfg.dialect(); err != nil {
		return err
	}
	return nil
}

func (cfg *Config) dialect() (dialect.Dialect, error) {
	if cfg.Dialect != "" {
		return dialect.For(cfg.Dialect)
	}
	return dialect.For(cfg.Driver)
}

// DataSourceName returns the DSN, formatting the MySQL block when present.
func (cfg *Config) DataSourceName() string {
	if cfg.MySQL == nil {
		return cfg.DSN
	}
	mc := mysql.NewConfig()
	mc.User = cfg.MySQL.User
	mc.Passwd = cfg.MySQL.Password
	mc.Net = cfg.MySQL.Net
	if mc.Net == "" {
		mc.Net = "tcp"
	}
	mc.Addr = cfg.MySQL.Addr
	mc.DBName = cfg.MySQL.DBName
	mc.Params = cfg.MySQL.Params
	mc.ParseTime = true
	return mc.FormatDSN()
}

// Open opens the configured database, loads the statement registry and
// returns a Client owning both. A registry that fails to load aborts Open.
func Open(ctx context.Context, cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := cfg.dialect()
	if err != nil {
		return nil, err
	}
	var base []Option
	if cfg.SlowThreshold > 0 {
		base = append(base, WithSlowThreshold(cfg.SlowThreshold))
	}
	if cfg.UnboundedPageSize > 0 {
		base = append(base, WithUnboundedPageSize(cfg.UnboundedPageSize))
	}
	c, err := newClient(append(base, opts...))
	if err != nil {
		return nil, err
	}
	reg, err := registry.Load(ctx, cfg.Resources, registry.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}
	drv, err := dsql.Open(cfg.Driver, cfg.DataSourceName(), d)
	if err != nil {
		return nil, err
	}
	stats := dsql.NewStatsDriver(drv, dsql.WithSlowThreshold(c.slow))
	var exec dialect.Driver = stats
	if cfg.Debug {
		logger := c.logger
		exec = dsql.NewDebugDriver(stats, dsql.DebugWithLog(func(ctx context.Context, v ...any) {
			logger.DebugContext(ctx, fmt.Sprint(v...))
		}))
	}
	if err := c.init(exec, reg); err != nil {
		return nil, errors.Join(err, drv.Close())
	}
	c.stats, c.closer = stats.QueryStats(), drv
	c.logger.InfoContext(ctx, "dal client opened",
		slog.String("driver", cfg.Driver),
		slog.String("dialect", c.dialect.Name()),
		slog.Int("statements", reg.Len()),
	)
	return c, nil
}
