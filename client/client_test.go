package client

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dal"
	"github.com/syssam/dal/compiler"
	"github.com/syssam/dal/contrib/mixin"
	"github.com/syssam/dal/dialect"
	"github.com/syssam/dal/registry"
	"github.com/syssam/dal/render"
)

type User struct {
	_     struct{} `dal:"table=TMS_USER"`
	ID    int64    `dal:"id,column=USER_ID,sequence=TESTUSER"`
	Name  string   `dal:"column=USER_NAME"`
	Email string   `dal:"column=EMAIL"`
}

type Note struct {
	mixin.ID
	Body string `dal:"column=body"`
}

func (Note) TableName() string { return "notes" }

type Tag struct {
	ID int64 `dal:"id,column=tag_id"`
}

type fakeRow struct {
	cols []string
	vals []any
}

func (r *fakeRow) Columns() ([]string, error) { return r.cols, nil }

func (r *fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		switch d := d.(type) {
		case sql.Scanner:
			if err := d.Scan(r.vals[i]); err != nil {
				return err
			}
		case *any:
			*d = r.vals[i]
		default:
			reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.vals[i]))
		}
	}
	return nil
}

type recorded struct {
	op     string
	query  string
	params map[string]any
	extra  any
}

// fakeDriver records every call and answers from canned results.
type fakeDriver struct {
	dialect  dialect.Dialect
	cols     []string
	rows     [][]any
	scalar   any
	key      any
	affected int64
	err      error

	mu    sync.Mutex
	calls []recorded
}

func (f *fakeDriver) record(op, query string, params map[string]any, extra any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recorded{op: op, query: query, params: params, extra: extra})
}

func (f *fakeDriver) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeDriver) Exec(_ context.Context, query string, params map[string]any) (int64, error) {
	f.record("exec", query, params, nil)
	return f.affected, f.err
}

func (f *fakeDriver) Query(_ context.Context, query string, params map[string]any, fn func(dialect.Row) error) error {
	f.record("query", query, params, nil)
	if f.err != nil {
		return f.err
	}
	for _, vals := range f.rows {
		if err := fn(&fakeRow{cols: f.cols, vals: vals}); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeDriver) QueryScalar(_ context.Context, query string, params map[string]any, dest any) error {
	f.record("scalar", query, params, nil)
	if f.err != nil {
		return f.err
	}
	reflect.ValueOf(dest).Elem().Set(reflect.ValueOf(f.scalar))
	return nil
}

func (f *fakeDriver) InsertReturningKey(_ context.Context, query string, params map[string]any, keyColumn string) (any, error) {
	f.record("insert", query, params, keyColumn)
	return f.key, f.err
}

func (f *fakeDriver) BatchExec(_ context.Context, query string, batch []map[string]any) ([]int64, error) {
	f.record("batch", query, nil, batch)
	counts := make([]int64, len(batch))
	for i := range counts {
		counts[i] = f.affected
	}
	return counts, f.err
}

func (f *fakeDriver) Call(_ context.Context, query string, params map[string]any, specs []dialect.ParamSpec) (map[string]any, error) {
	f.record("call", query, params, specs)
	out := map[string]any{}
	for _, s := range specs {
		if s.Mode != dialect.In {
			out[s.Name] = "ok"
		}
	}
	return out, f.err
}

func (f *fakeDriver) Dialect() dialect.Dialect { return f.dialect }

var testEntries = []registry.Entry{
	{Namespace: "user", LocalID: "findByName", SQL: `SELECT * FROM TMS_USER WHERE 1 = 1{{if has "name"}} AND USER_NAME = :name{{end}}`},
	{Namespace: "user", LocalID: "all", SQL: "SELECT * FROM TMS_USER"},
	{Namespace: "user", LocalID: "rename", SQL: "UPDATE TMS_USER SET USER_NAME = :name WHERE USER_ID = :id"},
	{Namespace: "user", LocalID: "count", SQL: "SELECT COUNT(1) FROM TMS_USER"},
	{Namespace: "user", LocalID: "onMySQL", SQL: "SELECT * FROM TMS_USER", Dialect: dialect.MySQL},
	{Namespace: "user", LocalID: "broken", SQL: "SELECT {{.missing}}"},
	{Namespace: "user", LocalID: "proc", SQL: "CALL RENAME(:id, :name, :result)"},
}

func newTestClient(t *testing.T, drv *fakeDriver, opts ...Option) *Client {
	t.Helper()
	if drv.dialect == nil {
		drv.dialect = dialect.MustFor(dialect.Oracle)
	}
	reg, err := registry.New(testEntries...)
	require.NoError(t, err)
	c, err := New(drv, reg, opts...)
	require.NoError(t, err)
	return c
}

func TestNewValidation(t *testing.T) {
	t.Parallel()
	reg, err := registry.New()
	require.NoError(t, err)
	drv := &fakeDriver{dialect: dialect.MustFor(dialect.MySQL)}

	tests := map[string]struct {
		drv  dialect.Driver
		reg  *registry.Registry
		opts []Option
	}{
		"nil driver":     {reg: reg},
		"nil registry":   {drv: drv},
		"nil logger":     {drv: drv, reg: reg, opts: []Option{WithLogger(nil)}},
		"negative slow":  {drv: drv, reg: reg, opts: []Option{WithSlowThreshold(-time.Second)}},
		"nil renderer":   {drv: drv, reg: reg, opts: []Option{WithRenderer(nil)}},
		"zero page size": {drv: drv, reg: reg, opts: []Option{WithUnboundedPageSize(0)}},
		"nil dialect":    {drv: drv, reg: reg, opts: []Option{WithDialect(nil)}},
		"nil cache":      {drv: drv, reg: reg, opts: []Option{WithCompilerCache(nil)}},
		"nil marshaller": {drv: drv, reg: reg, opts: []Option{WithMarshaller(nil)}},
		"cache dialect":  {drv: drv, reg: reg, opts: []Option{WithCompilerCache(compiler.NewCache(dialect.MustFor(dialect.Oracle)))}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.drv, tt.reg, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, dal.ErrConfig)
		})
	}
}

func TestPersist(t *testing.T) {
	t.Parallel()
	drv := &fakeDriver{key: int64(42)}
	c := newTestClient(t, drv)

	key, err := c.Persist(context.Background(), &User{Name: "lydck", Email: "l@x"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), key)

	got := drv.last()
	assert.Equal(t, "insert", got.op)
	assert.Equal(t, "INSERT INTO TMS_USER (USER_ID, USER_NAME, EMAIL) VALUES (TESTUSER.nextval, :name, :email)", got.query)
	assert.Equal(t, "USER_ID", got.extra)
	assert.Equal(t, "lydck", got.params["name"])
}

func TestPersistAssigned(t *testing.T) {
	t.Parallel()
	drv := &fakeDriver{dialect: dialect.MustFor(dialect.MySQL), affected: 1}
	c := newTestClient(t, drv)

	n := &Note{Body: "hi"}
	id := n.NewID()
	key, err := c.Persist(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, id, key)

	got := drv.last()
	assert.Equal(t, "exec", got.op)
	assert.Equal(t, "INSERT INTO notes (id, body) VALUES (:id, :body)", got.query)
	assert.IsType(t, uuid.UUID{}, got.params["id"])
}

func TestMergeRemoveFind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	drv := &fakeDriver{
		affected: 1,
		cols:     []string{"USER_ID", "USER_NAME", "EMAIL"},
		rows:     [][]any{{int64(7), "lydck", "l@x"}},
	}
	c := newTestClient(t, drv)

	n, err := c.Merge(ctx, User{ID: 7, Name: "new"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, "UPDATE TMS_USER SET USER_NAME = :name, EMAIL = :email WHERE USER_ID = :id", drv.last().query)

	n, err = c.Remove(ctx, &User{ID: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, "DELETE FROM TMS_USER WHERE USER_ID = :id", drv.last().query)
	assert.Equal(t, int64(7), drv.last().params["id"])

	u, err := Find(ctx, c, &User{ID: 7})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, User{ID: 7, Name: "lydck", Email: "l@x"}, *u)

	drv.rows = nil
	u, err = Find(ctx, c, &User{ID: 8})
	require.NoError(t, err)
	assert.Nil(t, u)

	_, err = c.Merge(ctx, Tag{ID: 1})
	assert.True(t, dal.IsCompileError(err))

	_, err = c.Persist(ctx, struct{ A int }{})
	assert.True(t, dal.IsUnmappedEntity(err))
}

func TestQueryForList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	drv := &fakeDriver{
		cols: []string{"USER_ID", "USER_NAME"},
		rows: [][]any{{int64(1), "a"}, {int64(2), "b"}},
	}
	c := newTestClient(t, drv)

	params := map[string]any{"name": "a", "email": "", "age": nil}
	users, err := QueryForList[User](ctx, c, "user.findByName", params)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "b", users[1].Name)

	got := drv.last()
	assert.Equal(t, "SELECT * FROM TMS_USER WHERE 1 = 1 AND USER_NAME = :name", got.query)
	assert.Equal(t, map[string]any{"name": "a"}, got.params, "empty values are stripped")
	assert.Len(t, params, 3, "caller parameters are not modified")

	// The conditional fragment disappears with its parameter.
	_, err = QueryForList[User](ctx, c, "user.findByName", map[string]any{"name": ""})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM TMS_USER WHERE 1 = 1", drv.last().query)

	maps, err := c.QueryForMaps(ctx, "user.all", nil)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"USER_ID": int64(1), "USER_NAME": "a"}, {"USER_ID": int64(2), "USER_NAME": "b"}}, maps)
}

func TestQueryForObject(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv := &fakeDriver{
		cols: []string{"USER_ID", "USER_NAME"},
		rows: [][]any{{int64(1), "a"}, {int64(2), "b"}},
	}
	c := newTestClient(t, drv, WithLogger(logger))

	u, err := QueryForObject[User](ctx, c, "user.findByName", User{Name: "a"})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "SELECT * FROM (SELECT * FROM TMS_USER WHERE 1 = 1 AND USER_NAME = :name) WHERE ROWNUM <= 1", drv.last().query)
	assert.Contains(t, buf.String(), "single result expected")

	// Declared dialect wins for rewriting.
	_, err = QueryForObject[User](ctx, c, "user.onMySQL", nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM TMS_USER LIMIT 1", drv.last().query)

	name, err := QueryForObjectWith(ctx, c, "user.all", nil, func(r dialect.Row, _ int) (string, error) {
		var id int64
		var name string
		err := r.Scan(&id, &name)
		return fmt.Sprintf("%d:%s", id, name), err
	})
	require.NoError(t, err)
	assert.Equal(t, "1:a", *name)

	m, err := c.QueryForMap(ctx, "user.all", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"USER_ID": int64(1), "USER_NAME": "a"}, m)

	drv.rows = nil
	m, err = c.QueryForMap(ctx, "user.all", nil)
	require.NoError(t, err)
	assert.Nil(t, m)
	u, err = QueryForObject[User](ctx, c, "user.all", nil)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestQueryPage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	drv := &fakeDriver{
		scalar: int64(45),
		cols:   []string{"USER_ID"},
		rows:   [][]any{{int64(21)}, {int64(22)}},
	}
	c := newTestClient(t, drv)

	page := dal.NewPage(3, 10)
	res, err := QueryPage[User](ctx, c, "user.all", nil, page)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Len())
	assert.Equal(t, dal.Page{Current: 3, Size: 10, RowCount: 45, PageCount: 5}, res.Page)
	assert.Equal(t, res.Page, *page)

	require.Len(t, drv.calls, 2)
	assert.Equal(t, "SELECT COUNT(1) FROM (SELECT * FROM TMS_USER)", drv.calls[0].query)
	assert.Equal(t, "SELECT * FROM (SELECT t.*, ROWNUM rn FROM (SELECT * FROM TMS_USER) t WHERE ROWNUM <= :_offset + :_limit) WHERE rn > :_offset", drv.calls[1].query)
	assert.Equal(t, 20, drv.calls[1].params[dialect.OffsetParam])
	assert.Equal(t, 10, drv.calls[1].params[dialect.LimitParam])

	// A known row count skips the count query.
	_, err = QueryPage[User](ctx, c, "user.all", nil, &dal.Page{Current: 2, Size: 10, RowCount: 45})
	require.NoError(t, err)
	require.Len(t, drv.calls, 3)
	assert.Equal(t, "query", drv.last().op)
}

func TestQueryPageNormalization(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	drv := &fakeDriver{scalar: int64(12), cols: []string{"USER_ID"}, rows: [][]any{{int64(1)}}}
	c := newTestClient(t, drv)

	res, err := QueryPage[User](ctx, c, "user.all", nil, &dal.Page{Current: 4, Size: -1})
	require.NoError(t, err)
	assert.Equal(t, dal.DefaultUnboundedPageSize, res.Page.Size)
	assert.Equal(t, 1, res.Page.Current)
	assert.Equal(t, dal.DefaultUnboundedPageSize, drv.last().params[dialect.LimitParam])
	assert.Equal(t, 0, drv.last().params[dialect.OffsetParam])

	// Clamped pages use the clamped offset.
	res, err = QueryPage[User](ctx, c, "user.all", nil, dal.NewPage(9, 5))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Page.Current)
	assert.Equal(t, 10, drv.last().params[dialect.OffsetParam])

	// Nothing to page through.
	drv.scalar = int64(0)
	before := len(drv.calls)
	res, err = QueryPage[User](ctx, c, "user.all", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Len(t, drv.calls, before+1)

	c2 := newTestClient(t, &fakeDriver{scalar: int64(3)}, WithUnboundedPageSize(50))
	res, err = QueryPage[User](ctx, c2, "user.all", nil, dal.NewPage(1, 0))
	require.NoError(t, err)
	assert.Equal(t, 50, res.Page.Size)
}

func TestExecuteBatchCallScalar(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	drv := &fakeDriver{affected: 1, scalar: int64(3)}
	c := newTestClient(t, drv)

	n, err := c.Execute(ctx, "user.rename", map[string]any{"id": 1, "name": "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	counts, err := c.BatchUpdate(ctx, "user.rename", User{ID: 1, Name: "a"}, map[string]any{"id": 2, "name": "b"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1}, counts)
	batch := drv.last().extra.([]map[string]any)
	assert.Equal(t, "a", batch[0]["name"])
	assert.Equal(t, 2, batch[1]["id"])

	counts, err = c.BatchUpdate(ctx, "user.rename")
	require.NoError(t, err)
	assert.Empty(t, counts)
	_, err = c.BatchUpdate(ctx, "user.nope")
	assert.True(t, dal.IsStatementNotFound(err))

	var result string
	out, err := c.Call(ctx, "user.proc", map[string]any{"id": 1, "name": "x"},
		dialect.ParamSpec{Name: "result", Mode: dialect.Out, Dest: &result})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": "ok"}, out)
	assert.Equal(t, "call", drv.last().op)

	var total int64
	require.NoError(t, c.QueryScalar(ctx, "user.count", nil, &total))
	assert.Equal(t, int64(3), total)
}

func TestErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cause := errors.New("connection reset")
	drv := &fakeDriver{err: cause}
	c := newTestClient(t, drv)

	_, err := QueryForList[User](ctx, c, "user.nope", nil)
	assert.True(t, dal.IsStatementNotFound(err))

	_, err = QueryForList[User](ctx, c, "user.broken", nil)
	assert.True(t, dal.IsTemplateRenderError(err))
	assert.Empty(t, drv.calls, "nothing reaches the driver on render failure")

	_, err = c.Execute(ctx, "user.rename", map[string]any{"id": 1, "name": "x"})
	require.Error(t, err)
	var serr *dal.SubstrateError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "execute", serr.Op)
	assert.Equal(t, "user.rename", serr.StatementID)
	assert.Equal(t, "UPDATE TMS_USER SET USER_NAME = :name WHERE USER_ID = :id", serr.SQL)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, dal.ErrSubstrate)

	_, err = c.Persist(ctx, &User{Name: "x"})
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "client.User", serr.StatementID)

	// Mapping failures keep their type.
	drv.err = nil
	drv.cols, drv.rows = []string{"A", "B"}, [][]any{{1, 2}}
	_, err = QueryForList[int](ctx, c, "user.all", nil)
	assert.True(t, dal.IsMappingError(err))
	assert.False(t, dal.IsSubstrateError(err))
}

func TestLogging(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv := &fakeDriver{affected: 1}
	c := newTestClient(t, drv, WithLogger(logger), WithSlowThreshold(0))

	_, err := c.Execute(context.Background(), "user.rename", map[string]any{"name": "x", "id": 1})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "op=execute")
	assert.Contains(t, out, "statement=user.rename")
	assert.Contains(t, out, "slow dal call")
	assert.Contains(t, out, "call=")
	// Parameters are rendered with sorted keys.
	assert.Less(t, strings.Index(out, "id:"), strings.Index(out, "name:"))
}

func TestCustomRenderer(t *testing.T) {
	t.Parallel()
	drv := &fakeDriver{}
	c := newTestClient(t, drv, WithRenderer(render.Func(func(text string, _ map[string]any) (string, error) {
		return strings.ReplaceAll(text, "TMS_USER", "USERS"), nil
	})))
	_, err := c.QueryForMaps(context.Background(), "user.all", nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM USERS", drv.last().query)
}

func TestConcurrentUse(t *testing.T) {
	t.Parallel()
	drv := &fakeDriver{key: int64(1), cols: []string{"USER_ID"}, rows: [][]any{{int64(1)}}}
	c := newTestClient(t, drv)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := context.Background()
			_, err := c.Persist(ctx, &User{Name: fmt.Sprint(i)})
			assert.NoError(t, err)
			_, err = QueryForList[User](ctx, c, "user.all", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, drv.calls, 32)
}

func TestFindAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	drv := &fakeDriver{
		cols: []string{"USER_ID", "USER_NAME", "EMAIL"},
		rows: [][]any{{int64(2), "b", "b@x"}, {int64(1), "a", "a@x"}},
	}
	c := newTestClient(t, drv)

	users, err := FindAll[User](ctx, c)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Empty(t, drv.calls)

	users, err = FindAll[User](ctx, c, int64(1), int64(2))
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "b", users[0].Name)
	call := drv.last()
	assert.Equal(t, "SELECT USER_ID, USER_NAME, EMAIL FROM TMS_USER WHERE USER_ID IN (:_ids)", call.query)
	assert.Equal(t, []any{int64(1), int64(2)}, call.params["_ids"])
}
