package client

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dal"
	"github.com/syssam/dal/dialect"
	dsql "github.com/syssam/dal/dialect/sql"
	"github.com/syssam/dal/registry"
)

func mockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	reg, err := registry.New(testEntries...)
	require.NoError(t, err)
	c, err := New(dsql.OpenDB(dialect.MustFor(dialect.MySQL), db), reg)
	require.NoError(t, err)
	return c, mock
}

func TestSQLPersist(t *testing.T) {
	t.Parallel()
	c, mock := mockClient(t)

	mock.ExpectExec("INSERT INTO TMS_USER (USER_NAME, EMAIL) VALUES (?, ?)").
		WithArgs("lydck", "l@x").
		WillReturnResult(sqlmock.NewResult(11, 1))
	key, err := c.Persist(context.Background(), &User{Name: "lydck", Email: "l@x"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), key)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLQueryPage(t *testing.T) {
	t.Parallel()
	c, mock := mockClient(t)

	mock.ExpectQuery("SELECT COUNT(1) FROM (SELECT * FROM TMS_USER WHERE 1 = 1 AND USER_NAME = ?) tmp_count").
		WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(1)"}).AddRow(int64(45)))
	mock.ExpectQuery("SELECT * FROM TMS_USER WHERE 1 = 1 AND USER_NAME = ? LIMIT ? OFFSET ?").
		WithArgs("a", int64(10), int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"USER_ID", "USER_NAME", "EMAIL"}).
			AddRow(int64(21), "a", "a@x").
			AddRow(int64(22), "a", nil))

	res, err := QueryPage[User](context.Background(), c, "user.findByName", map[string]any{"name": "a"}, dal.NewPage(3, 10))
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, User{ID: 22, Name: "a"}, res.Items[1])
	assert.Equal(t, 5, res.Page.PageCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLErrorCode(t *testing.T) {
	t.Parallel()
	c, mock := mockClient(t)

	mock.ExpectExec("UPDATE TMS_USER SET USER_NAME = ? WHERE USER_ID = ?").
		WithArgs("b", int64(1)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'b'"})
	_, err := c.Execute(context.Background(), "user.rename", map[string]any{"name": "b", "id": int64(1)})
	require.Error(t, err)

	var serr *dal.SubstrateError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "1062", serr.Code)
	assert.Equal(t, "UPDATE TMS_USER SET USER_NAME = :name WHERE USER_ID = :id", serr.SQL)
	assert.True(t, dsql.IsUniqueConstraintError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMissingParam(t *testing.T) {
	t.Parallel()
	c, mock := mockClient(t)

	// The stripped parameter leaves :name unbound.
	_, err := c.Execute(context.Background(), "user.rename", map[string]any{"name": "", "id": 1})
	require.Error(t, err)
	assert.True(t, dal.IsSubstrateError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBatchUpdate(t *testing.T) {
	t.Parallel()
	c, mock := mockClient(t)

	for i, name := range []string{"a", "b"} {
		mock.ExpectExec("UPDATE TMS_USER SET USER_NAME = ? WHERE USER_ID = ?").
			WithArgs(name, int64(i+1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec("UPDATE TMS_USER SET USER_NAME = ? WHERE USER_ID = ?").
		WithArgs("c", int64(3)).
		WillReturnError(errors.New("lock wait timeout exceeded"))

	counts, err := c.BatchUpdate(context.Background(), "user.rename",
		User{ID: 1, Name: "a"}, User{ID: 2, Name: "b"}, User{ID: 3, Name: "c"})
	require.Error(t, err)
	assert.Equal(t, []int64{1, 1}, counts)
	assert.True(t, dal.IsSubstrateError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
