package dataloader

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dal"
	"github.com/syssam/dal/client"
	"github.com/syssam/dal/dialect"
	dsql "github.com/syssam/dal/dialect/sql"
	"github.com/syssam/dal/registry"
)

type user struct {
	ID   int64  `dal:"id,column=user_id"`
	Name string `dal:"column=name"`
}

func (user) TableName() string { return "users" }

func userKey(u user) int64 { return u.ID }

func newLoader(t *testing.T, opts ...Option) (*Loader[int64, user], sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	reg, err := registry.New()
	require.NoError(t, err)
	c, err := client.New(dsql.OpenDB(dialect.MustFor(dialect.MySQL), db), reg)
	require.NoError(t, err)
	l, err := New(c, userKey, opts...)
	require.NoError(t, err)
	return l, mock
}

func rows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"user_id", "name"})
}

func TestOrderByKeys(t *testing.T) {
	t.Parallel()

	values := []user{{ID: 3, Name: "c"}, {ID: 1, Name: "a"}}
	result, errs := OrderByKeys([]int64{1, 2, 3}, values, userKey)
	require.Len(t, result, 3)
	assert.Equal(t, "a", result[0].Name)
	assert.Equal(t, user{}, result[1])
	assert.Equal(t, "c", result[2].Name)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], ErrNotFound)
	assert.NoError(t, errs[2])

	result, errs = OrderByKeys(nil, values, userKey)
	assert.Empty(t, result)
	assert.Empty(t, errs)
}

func TestGroupByKey(t *testing.T) {
	t.Parallel()

	type post struct{ UserID, ID int64 }
	grouped := GroupByKey([]post{{1, 10}, {2, 20}, {1, 11}}, func(p post) int64 { return p.UserID })
	assert.Equal(t, []post{{1, 10}, {1, 11}}, grouped[1])
	assert.Len(t, grouped[2], 1)
	assert.Empty(t, grouped[3])
}

func TestLoadMany(t *testing.T) {
	t.Parallel()
	l, mock := newLoader(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT user_id, name FROM users WHERE user_id IN (?,?,?)").
		WithArgs(int64(3), int64(1), int64(2)).
		WillReturnRows(rows().AddRow(int64(1), "a").AddRow(int64(3), "c"))

	values, errs, err := l.LoadMany(ctx, []int64{3, 1, 3, 2})
	require.NoError(t, err)
	assert.Equal(t, []user{{3, "c"}, {1, "a"}, {3, "c"}, {}}, values)
	assert.ErrorIs(t, errs[3], ErrNotFound)

	// Cached keys are not loaded again; misses are retried.
	mock.ExpectQuery("SELECT user_id, name FROM users WHERE user_id IN (?)").
		WithArgs(int64(2)).
		WillReturnRows(rows().AddRow(int64(2), "b"))
	u, err := l.Load(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "b", u.Name)
	u, err = l.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", u.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadBatches(t *testing.T) {
	t.Parallel()
	l, mock := newLoader(t, WithMaxBatch(2), WithWorkers(1))

	mock.ExpectQuery("SELECT user_id, name FROM users WHERE user_id IN (?,?)").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(rows().AddRow(int64(1), "a").AddRow(int64(2), "b"))
	mock.ExpectQuery("SELECT user_id, name FROM users WHERE user_id IN (?)").
		WithArgs(int64(3)).
		WillReturnRows(rows().AddRow(int64(3), "c"))

	values, errs, err := l.LoadMany(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []error{nil, nil, nil}, errs)
	assert.Equal(t, "c", values[2].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrimeClear(t *testing.T) {
	t.Parallel()
	l, mock := newLoader(t)
	ctx := context.Background()

	l.Prime(user{ID: 7, Name: "primed"})
	u, err := l.Load(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "primed", u.Name)

	l.Clear(7)
	mock.ExpectQuery("SELECT user_id, name FROM users WHERE user_id IN (?)").
		WithArgs(int64(7)).
		WillReturnError(errors.New("connection refused"))
	_, err = l.Load(ctx, 7)
	assert.True(t, dal.IsSubstrateError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New[int64, user](nil, userKey)
	assert.ErrorIs(t, err, dal.ErrConfig)
	_, err = New[int64, user](nil, userKey, WithMaxBatch(0))
	assert.ErrorIs(t, err, dal.ErrConfig)
	_, err = New[int64, user](nil, userKey, WithWorkers(-1))
	assert.ErrorIs(t, err, dal.ErrConfig)
}

func TestWithLoaders(t *testing.T) {
	t.Parallel()

	type loaders struct{ name string }
	ctx := WithLoaders(context.Background(), &loaders{name: "request"})
	assert.Equal(t, "request", For[*loaders](ctx).name)
	assert.Nil(t, For[*loaders](context.Background()))
}
