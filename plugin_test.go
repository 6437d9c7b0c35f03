package showdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	factory := func(c *Client) []Plugin { return nil }

	require.NoError(t, reg.Register("echo", factory))

	got, err := reg.Lookup("echo")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestRegistryDuplicateName(t *testing.T) {
	reg := NewRegistry()
	factory := func(c *Client) []Plugin { return nil }

	require.NoError(t, reg.Register("echo", factory))
	assert.ErrorIs(t, reg.Register("echo", factory), ErrPluginExists)
}

func TestRegistryLookupMissing(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Lookup("missing")
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestRegistryNames(t *testing.T) {
	reg := NewRegistry()
	factory := func(c *Client) []Plugin { return nil }

	require.NoError(t, reg.Register("a", factory))
	require.NoError(t, reg.Register("b", factory))

	assert.ElementsMatch(t, []string{"a", "b"}, reg.Names())
}

func TestBasePluginScrollbackDefault(t *testing.T) {
	assert.False(t, BasePlugin{}.ScrollbackAccess())
}
