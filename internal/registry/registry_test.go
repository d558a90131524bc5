package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemasync/internal/core"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	shop := core.NewSchemaDefinition("shop", "app")
	require.NoError(t, r.Register("", shop))

	assert.Same(t, shop, r.Lookup("default", "shop"))
	assert.Same(t, shop, r.Lookup("", "SHOP"))
	assert.Nil(t, r.Lookup("reporting", "shop"))
	assert.Nil(t, r.Lookup("default", "catalog"))
}

func TestRegisterSameSchemaTwiceIsNoop(t *testing.T) {
	r := New()
	shop := core.NewSchemaDefinition("shop", "app")
	require.NoError(t, r.Register("default", shop))
	require.NoError(t, r.Register("default", shop))
	assert.Len(t, r.Keys(), 1)
}

func TestRegisterDuplicateName(t *testing.T) {
	r := New()
	first := core.NewSchemaDefinition("shop", "app")
	first.Source = "a.json"
	second := core.NewSchemaDefinition("shop", "other")
	second.Source = "b.json"

	require.NoError(t, r.Register("default", first))
	err := r.Register("default", second)

	var ce *core.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "b.json", ce.Source)
	assert.Contains(t, err.Error(), "a.json")
	assert.Same(t, first, r.Lookup("default", "shop"))
}

func TestSameNameOnDifferentConnections(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("default", core.NewSchemaDefinition("shop", "app")))
	require.NoError(t, r.Register("reporting", core.NewSchemaDefinition("shop", "app")))

	assert.Equal(t, []Key{
		{Connection: "default", Schema: "shop"},
		{Connection: "reporting", Schema: "shop"},
	}, r.Keys())
}
