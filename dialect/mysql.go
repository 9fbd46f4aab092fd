package dialect

// mysqlDialect appends LIMIT clauses. Identities are auto-increment.
type mysqlDialect struct{}

func (mysqlDialect) Name() string { return MySQL }

func (mysqlDialect) RowCountSQL(sql string) string { return countWithAlias(sql) }

func (mysqlDialect) LimitString(sql string) string {
	return trimSQL(sql) + " LIMIT :" + LimitParam + " OFFSET :" + OffsetParam
}

func (mysqlDialect) LimitStringForRandom(sql string) string {
	return trimSQL(sql) + " LIMIT :" + LimitParam
}

func (mysqlDialect) LimitOne(sql string) string { return trimSQL(sql) + " LIMIT 1" }

func (mysqlDialect) SequenceIdentity() bool { return false }

func (mysqlDialect) NextVal(string) string { return "" }

func (mysqlDialect) Placeholder(n int) string { return questionPlaceholder(n) }

// sqliteDialect shares the MySQL windowing syntax.
type sqliteDialect struct {
	mysqlDialect
	name string
}

func (d sqliteDialect) Name() string { return d.name }

// postgresDialect uses LIMIT/OFFSET with sequence backed identities.
type postgresDialect struct {
	mysqlDialect
}

func (postgresDialect) Name() string { return Postgres }

func (postgresDialect) SequenceIdentity() bool { return true }

func (postgresDialect) NextVal(sequence string) string { return "nextval('" + sequence + "')" }

func (postgresDialect) Placeholder(n int) string { return numberedPlaceholder("$", n) }
