package dialect

import "strings"

// oracleDialect windows results with nested ROWNUM filters.
type oracleDialect struct{}

func (oracleDialect) Name() string { return Oracle }

func (oracleDialect) RowCountSQL(sql string) string {
	return "SELECT COUNT(1) FROM (" + trimSQL(sql) + ")"
}

func (oracleDialect) LimitString(sql string) string {
	var b strings.Builder
	b.Grow(len(sql) + 128)
	b.WriteString("SELECT * FROM (SELECT t.*, ROWNUM rn FROM (")
	b.WriteString(trimSQL(sql))
	b.WriteString(") t WHERE ROWNUM <= :")
	b.WriteString(OffsetParam)
	b.WriteString(" + :")
	b.WriteString(LimitParam)
	b.WriteString(") WHERE rn > :")
	b.WriteString(OffsetParam)
	return b.String()
}

func (oracleDialect) LimitStringForRandom(sql string) string {
	return "SELECT t.*, ROWNUM rn FROM (" + trimSQL(sql) + ") t WHERE ROWNUM <= :" + LimitParam
}

// LimitOne wraps the statement instead of appending "AND ROWNUM = 1", which
// only works for statements ending in a WHERE clause.
func (oracleDialect) LimitOne(sql string) string {
	return "SELECT * FROM (" + trimSQL(sql) + ") WHERE ROWNUM <= 1"
}

func (oracleDialect) SequenceIdentity() bool { return true }

func (oracleDialect) NextVal(sequence string) string { return sequence + ".nextval" }

func (oracleDialect) Placeholder(n int) string { return numberedPlaceholder(":", n) }
