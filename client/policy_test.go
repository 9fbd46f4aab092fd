package client

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dal"
	"github.com/syssam/dal/privacy"
)

func TestPolicy(t *testing.T) {
	t.Parallel()
	drv := &fakeDriver{cols: []string{"USER_ID"}, rows: [][]any{{int64(1)}}, affected: 1, key: int64(5)}
	c := newTestClient(t, drv, WithPolicy(privacy.NewPolicy(
		privacy.DenyIfNoViewer(),
		privacy.HasRole("admin"),
		privacy.OnReads(privacy.AlwaysAllowRule()),
		privacy.IsOwner("id"),
		privacy.AlwaysDenyRule(),
	)))

	anon := context.Background()
	_, err := c.QueryForMaps(anon, "user.all", nil)
	require.Error(t, err)
	assert.True(t, privacy.IsDenied(err))
	assert.Contains(t, err.Error(), "queryForMaps user.all")
	assert.Empty(t, drv.calls, "denied calls must not reach the driver")

	user := privacy.WithViewer(anon, &privacy.SimpleViewer{UserID: "7", Roles: []string{"user"}})
	_, err = c.QueryForMaps(user, "user.all", nil)
	require.NoError(t, err)

	_, err = c.Execute(user, "user.rename", map[string]any{"id": 8, "name": "x"})
	assert.ErrorIs(t, err, privacy.Deny)
	n, err := c.Execute(user, "user.rename", map[string]any{"id": 7, "name": "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = c.Persist(user, &User{Name: "ann"})
	assert.ErrorIs(t, err, privacy.Deny)

	admin := privacy.WithViewer(anon, &privacy.SimpleViewer{UserID: "1", Roles: []string{"admin"}})
	key, err := c.Persist(admin, &User{Name: "ann"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), key)

	_, err = c.Persist(privacy.DecisionContext(anon, privacy.Allow), &User{Name: "bob"})
	require.NoError(t, err)
}

func TestPolicyOperations(t *testing.T) {
	t.Parallel()
	var seen []privacy.Operation
	drv := &fakeDriver{scalar: int64(3), affected: 1}
	c := newTestClient(t, drv, WithPolicy(privacy.RuleFunc(func(_ context.Context, op privacy.Operation) error {
		seen = append(seen, op)
		return nil
	})))
	ctx := context.Background()

	var n int64
	require.NoError(t, c.QueryScalar(ctx, "user.count", nil, &n))
	_, err := c.BatchUpdate(ctx, "user.rename", map[string]any{"id": 1, "name": "a"})
	require.NoError(t, err)
	_, err = c.Remove(ctx, &User{ID: 9})
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, privacy.Operation{Op: "queryScalar", Statement: "user.count", Params: map[string]any{}}, seen[0])
	assert.Equal(t, "batchUpdate", seen[1].Op)
	assert.True(t, seen[1].Write)
	assert.Equal(t, "remove", seen[2].Op)
	assert.Equal(t, "client.User", seen[2].Statement)
	assert.Equal(t, int64(9), seen[2].Params["id"])
	assert.Equal(t, reflect.TypeFor[User](), seen[2].Entity)
	assert.Empty(t, seen[2].Namespace())
}

func TestPolicyNamespaceIgnoresEntities(t *testing.T) {
	t.Parallel()
	drv := &fakeDriver{affected: 1, key: int64(3)}
	c := newTestClient(t, drv, WithPolicy(privacy.NewPolicy(
		privacy.OnNamespace(privacy.AlwaysDenyRule(), "client", "user"),
	)))
	ctx := context.Background()

	_, err := c.Persist(ctx, &User{Name: "ann"})
	require.NoError(t, err)
	_, err = c.Execute(ctx, "user.rename", map[string]any{"id": 1, "name": "x"})
	assert.ErrorIs(t, err, privacy.Deny)
}

func TestPolicyValidation(t *testing.T) {
	t.Parallel()
	_, err := newClient([]Option{WithPolicy(nil)})
	var cerr *dal.ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "Policy", cerr.Option)
}
