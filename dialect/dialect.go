package dialect

import (
	"strconv"
	"strings"

	"github.com/syssam/dal"
)

// Dialect names.
const (
	MySQL    = "mysql"
	Oracle   = "oracle"
	DB2      = "db2"
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// Parameter names injected by the orchestrator for windowed queries.
const (
	LimitParam  = "_limit"
	OffsetParam = "_offset"
)

// Dialect rewrites SQL text for a database vendor.
type Dialect interface {
	// Name returns the dialect name (e.g. "oracle").
	Name() string

	// RowCountSQL wraps sql so that it returns the total row count.
	RowCountSQL(sql string) string

	// LimitString bounds sql to the window of :_limit rows starting after
	// :_offset rows.
	LimitString(sql string) string

	// LimitStringForRandom bounds sql to its first :_limit rows.
	LimitStringForRandom(sql string) string

	// LimitOne bounds sql to a single row.
	LimitOne(sql string) string

	// SequenceIdentity reports whether identities are generated from a
	// sequence rather than by auto-increment.
	SequenceIdentity() bool

	// NextVal returns the expression yielding the next value of sequence.
	NextVal(sequence string) string

	// Placeholder returns the positional bind placeholder for the n-th
	// (1-based) argument.
	Placeholder(n int) string
}

var dialects = map[string]Dialect{}

func register(d Dialect, altnames ...string) {
	dialects[d.Name()] = d
	for _, n := range altnames {
		dialects[n] = d
	}
}

func init() {
	register(oracleDialect{})
	register(mysqlDialect{}, "mariadb")
	register(db2Dialect{}, "ibm_db2", "go_ibm_db")
	register(postgresDialect{}, "pq", "postgresql", "pgx")
	register(sqliteDialect{name: SQLite}, "sqlite3")
}

// For returns the dialect registered under name. Matching is
// case-insensitive and accepts the usual driver aliases
// (e.g. "MySql", "pq", "sqlite3").
func For(name string) (Dialect, error) {
	d, ok := dialects[strings.TrimSpace(strings.ToLower(name))]
	if !ok {
		return nil, dal.NewConfigError("dialect", name, "unknown dialect; use oracle, mysql, db2, postgres or sqlite")
	}
	return d, nil
}

// MustFor is like For but panics on unknown names.
func MustFor(name string) Dialect {
	d, err := For(name)
	if err != nil {
		panic(err)
	}
	return d
}

// Names returns the canonical dialect names.
func Names() []string {
	return []string{Oracle, MySQL, DB2, Postgres, SQLite}
}

// trimSQL removes surrounding whitespace and trailing statement terminators.
func trimSQL(sql string) string {
	return strings.TrimRight(strings.TrimSpace(sql), "; \t\r\n")
}

// countWithAlias wraps sql in a counting derived table. MySQL, Postgres and
// DB2 require the derived table to be named.
func countWithAlias(sql string) string {
	var b strings.Builder
	b.Grow(len(sql) + 40)
	b.WriteString("SELECT COUNT(1) FROM (")
	b.WriteString(trimSQL(sql))
	b.WriteString(") tmp_count")
	return b.String()
}

func questionPlaceholder(int) string { return "?" }

func numberedPlaceholder(prefix string, n int) string {
	return prefix + strconv.Itoa(n)
}
