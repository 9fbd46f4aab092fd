package compiler

import (
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dal"
	"github.com/syssam/dal/contrib/mixin"
	"github.com/syssam/dal/dialect"
)

type User struct {
	_        struct{} `dal:"table=TMS_USER"`
	ID       int64    `dal:"id,column=USER_ID,sequence=TESTUSER"`
	UserName string   `dal:"column=USER_NAME"`
	Email    string   `dal:"column=EMAIL"`
}

type Pet struct {
	PetID int64  `dal:"id,column=PET_ID"`
	Name  string `dal:"column=NAME"`
}

func (Pet) TableName() string { return "PET" }

type Token struct {
	_ struct{} `dal:"table=TOKEN"`
	mixin.ID
	Value string `dal:"column=VALUE"`
}

type Lonely struct {
	_  struct{} `dal:"table=LONELY"`
	ID int      `dal:"id,column=ID"`
}

type Anonymous struct {
	Name string
}

func TestCompileOracleUser(t *testing.T) {
	t.Parallel()

	h, err := Compile(reflect.TypeFor[User](), dialect.MustFor(dialect.Oracle))
	require.NoError(t, err)

	assert.Equal(t, "TMS_USER", h.Table)
	assert.Equal(t, "INSERT INTO TMS_USER (USER_ID, USER_NAME, EMAIL) VALUES (TESTUSER.nextval, :userName, :email)", h.Insert)
	assert.True(t, strings.HasPrefix(h.Insert, "INSERT INTO TMS_USER (USER_ID, USER_NAME"))
	assert.Contains(t, h.Insert, "VALUES (TESTUSER.nextval, :userName")
	assert.Equal(t, "UPDATE TMS_USER SET USER_NAME = :userName, EMAIL = :email WHERE USER_ID = :id", h.Update)
	assert.Equal(t, "DELETE FROM TMS_USER WHERE USER_ID = :id", h.Delete)
	assert.Equal(t, "SELECT USER_ID, USER_NAME, EMAIL FROM TMS_USER WHERE USER_ID = :id", h.Select)
	assert.Equal(t, "SELECT USER_ID, USER_NAME, EMAIL FROM TMS_USER WHERE USER_ID IN (:_ids)", h.SelectIn)
	assert.Equal(t, "USER_ID", h.Identity().Column)
	assert.True(t, h.GeneratesKey())
}

func TestCompileInsertByDialect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dialect string
		want    string
	}{
		{dialect.Oracle, "INSERT INTO TMS_USER (USER_ID, USER_NAME, EMAIL) VALUES (TESTUSER.nextval, :userName, :email)"},
		{dialect.DB2, "INSERT INTO TMS_USER (USER_ID, USER_NAME, EMAIL) VALUES (NEXT VALUE FOR TESTUSER, :userName, :email)"},
		{dialect.Postgres, "INSERT INTO TMS_USER (USER_ID, USER_NAME, EMAIL) VALUES (nextval('TESTUSER'), :userName, :email)"},
		{dialect.MySQL, "INSERT INTO TMS_USER (USER_NAME, EMAIL) VALUES (:userName, :email)"},
		{dialect.SQLite, "INSERT INTO TMS_USER (USER_NAME, EMAIL) VALUES (:userName, :email)"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			t.Parallel()
			h, err := Compile(reflect.TypeFor[User](), dialect.MustFor(tt.dialect))
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.Insert)
		})
	}
}

func TestCompileIdentityWithoutSequence(t *testing.T) {
	t.Parallel()

	h, err := Compile(reflect.TypeFor[Pet](), dialect.MustFor(dialect.Oracle))
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO PET (NAME) VALUES (:name)", h.Insert)
	assert.Equal(t, "SELECT PET_ID, NAME FROM PET WHERE PET_ID = :petID", h.Select)
}

func TestCompileAssignedIdentity(t *testing.T) {
	t.Parallel()

	for _, name := range []string{dialect.MySQL, dialect.Oracle} {
		h, err := Compile(reflect.TypeFor[Token](), dialect.MustFor(name))
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO TOKEN (id, VALUE) VALUES (:id, :value)", h.Insert, name)
		assert.False(t, h.GeneratesKey())
	}
}

func TestCompileIdentityOnly(t *testing.T) {
	t.Parallel()

	h, err := Compile(reflect.TypeFor[Lonely](), dialect.MustFor(dialect.MySQL))
	require.NoError(t, err)
	assert.Empty(t, h.Update)
	assert.Equal(t, "SELECT ID FROM LONELY WHERE ID = :id", h.Select)
}

func TestCompileDeterministic(t *testing.T) {
	t.Parallel()

	d := dialect.MustFor(dialect.Oracle)
	a, err := Compile(reflect.TypeFor[User](), d)
	require.NoError(t, err)
	b, err := Compile(reflect.TypeFor[*User](), d)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotSame(t, a, b)
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	d := dialect.MustFor(dialect.MySQL)
	_, err := Compile(reflect.TypeFor[Anonymous](), d)
	require.Error(t, err)
	assert.True(t, dal.IsUnmappedEntity(err))
	assert.Contains(t, err.Error(), "compiler.Anonymous")

	type noID struct {
		_    struct{} `dal:"table=X"`
		Name string
	}
	_, err = Compile(reflect.TypeFor[noID](), d)
	require.Error(t, err)
	assert.True(t, dal.IsMissingIdentity(err))
}

func TestCache(t *testing.T) {
	t.Parallel()

	c := NewCache(dialect.MustFor(dialect.Oracle))
	assert.Equal(t, dialect.Oracle, c.Dialect().Name())

	const workers = 16
	holders := make([]*Holder, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := c.Of(&User{})
			assert.NoError(t, err)
			holders[i] = h
		}()
	}
	wg.Wait()

	for _, h := range holders[1:] {
		assert.Same(t, holders[0], h)
	}
	assert.Equal(t, 1, c.Len())

	h, err := c.Get(reflect.TypeFor[User]())
	require.NoError(t, err)
	assert.Same(t, holders[0], h)
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	t.Parallel()

	store := dal.NewSyncStore[reflect.Type, *Holder]()
	c := NewCache(dialect.MustFor(dialect.MySQL), WithStore(store))
	_, err := c.Of(Anonymous{})
	require.Error(t, err)
	_, err = c.Of(nil)
	require.Error(t, err)
	assert.Zero(t, store.Len())
}

func TestCacheSameNameDifferentTypes(t *testing.T) {
	t.Parallel()

	c := NewCache(dialect.MustFor(dialect.MySQL))
	h1 := func() *Holder {
		type Item struct {
			ID int `dal:"id,column=A_ID"`
		}
		h, err := c.Of(Item{})
		require.NoError(t, err)
		return h
	}()
	h2 := func() *Holder {
		type Item struct {
			ID int `dal:"id,column=B_ID"`
		}
		h, err := c.Of(Item{})
		require.NoError(t, err)
		return h
	}()
	assert.Equal(t, "A_ID", h1.Identity().Column)
	assert.Equal(t, "B_ID", h2.Identity().Column)
	assert.Equal(t, 2, c.Len())
}
