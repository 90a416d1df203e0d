package provenance

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawArgs(t *testing.T, args ...any) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		require.NoError(t, err)
		out[i] = b
	}
	return out
}

func TestCanisterLegacySurface(t *testing.T) {
	svc, _, _ := setup(t)
	c := NewCanister(svc)
	ctx := context.Background()

	t.Run("add_product rejected returns empty id", func(t *testing.T) {
		id, err := c.AddProduct(ctx, "anonymous product", "")
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	id, err := c.AddProduct(as(alice), "Coffee", "beans")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	t.Run("add_stage false on missing product", func(t *testing.T) {
		ok, err := c.AddStage(as(alice), "missing", "Farm", "Harvested", nil, "Juan")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("add_stage false on non-owner", func(t *testing.T) {
		ok, err := c.AddStage(as(bob), id, "Farm", "Harvested", nil, "Juan")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("history of missing product is empty", func(t *testing.T) {
		stages, err := c.GetProductHistory(ctx, "missing")
		require.NoError(t, err)
		assert.NotNil(t, stages)
		assert.Empty(t, stages)
	})

	t.Run("get_product variants", func(t *testing.T) {
		res, err := c.GetProduct(ctx, "missing")
		require.NoError(t, err)
		assert.Equal(t, "ProductNotFound", res.Err)

		res, err = c.GetProduct(ctx, id)
		require.NoError(t, err)
		require.Empty(t, res.Err)
		p, ok := res.Ok.(*Product)
		require.True(t, ok)
		assert.Equal(t, "Coffee", p.Name)
	})

	t.Run("create_product variants", func(t *testing.T) {
		res, err := c.CreateProduct(as(alice), Product{})
		require.NoError(t, err)
		assert.Equal(t, "InvalidInput", res.Err)

		res, err = c.CreateProduct(ctx, Product{Name: "x"})
		require.NoError(t, err)
		assert.Equal(t, "Unauthorized", res.Err)
	})

	assert.Equal(t, alice, c.Whoami(as(alice)))
}

func TestCanisterCall(t *testing.T) {
	svc, _, _ := setup(t)
	c := NewCanister(svc)

	out, err := c.Call(as(alice), "add_product", rawArgs(t, "Coffee", "beans"))
	require.NoError(t, err)
	id, ok := out.(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	out, err = c.Call(as(alice), "add_stage", rawArgs(t, id, "Farm", "Harvested", []string{"Organic"}, "Juan"))
	require.NoError(t, err)
	assert.Equal(t, true, out)

	out, err = c.Call(as(alice), "get_product_history", rawArgs(t, id))
	require.NoError(t, err)
	assert.Len(t, out, 1)

	out, err = c.Call(as(alice), "transfer_product", rawArgs(t, map[string]string{
		"product_id": id, "recipient": "bob", "location": "Port", "notes": "export",
	}))
	require.NoError(t, err)
	assert.Equal(t, Result{Ok: id}, out)

	out, err = c.Call(as(bob), "whoami", nil)
	require.NoError(t, err)
	assert.Equal(t, bob, out)

	out, err = c.Call(as(bob), "get_products", nil)
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, err = c.Call(as(alice), "get_product", nil)
	assert.ErrorIs(t, err, errBadArgs)

	_, err = c.Call(as(alice), "get_product", rawArgs(t, 42))
	assert.ErrorIs(t, err, errBadArgs)

	_, err = c.Call(as(alice), "delete_product", nil)
	assert.ErrorIs(t, err, errUnknownMethod)
}
