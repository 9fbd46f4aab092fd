package dialect

import "regexp"

var (
	// db2Fetch matches a FETCH FIRST/NEXT clause ending the statement. A
	// clause inside a subquery is followed by its closing parenthesis.
	db2Fetch = regexp.MustCompile(`(?i)\bfetch\s+(first|next)(\s+\S+)?\s+rows?\s+only$`)
	// db2Isolation matches a trailing isolation clause such as
	// "WITH UR" or "WITH RS USE AND KEEP UPDATE LOCKS".
	db2Isolation = regexp.MustCompile(`(?i)\s+with\s+(ur|cs|rs|rr)\b[\w\s]*$`)
)

// db2Dialect inserts FETCH FIRST clauses ahead of trailing isolation clauses.
type db2Dialect struct{}

func (db2Dialect) Name() string { return DB2 }

func (db2Dialect) RowCountSQL(sql string) string { return countWithAlias(sql) }

func (db2Dialect) LimitString(sql string) string {
	return db2Clause(sql, "OFFSET :"+OffsetParam+" ROWS FETCH FIRST :"+LimitParam+" ROWS ONLY")
}

func (db2Dialect) LimitStringForRandom(sql string) string {
	return db2Clause(sql, "FETCH FIRST :"+LimitParam+" ROWS ONLY")
}

func (db2Dialect) LimitOne(sql string) string {
	return db2Clause(sql, "FETCH FIRST 1 ROWS ONLY")
}

func (db2Dialect) SequenceIdentity() bool { return true }

func (db2Dialect) NextVal(sequence string) string { return "NEXT VALUE FOR " + sequence }

func (db2Dialect) Placeholder(n int) string { return questionPlaceholder(n) }

// db2Clause places clause before a trailing WITH isolation clause if present,
// otherwise at the end. Statements whose outermost select already fetches a
// bounded set are left untouched.
func db2Clause(sql, clause string) string {
	sql = trimSQL(sql)
	body, tail := sql, ""
	if loc := db2Isolation.FindStringIndex(sql); loc != nil {
		body, tail = sql[:loc[0]], sql[loc[0]:]
	}
	if db2Fetch.MatchString(body) {
		return sql
	}
	return body + " " + clause + tail
}
