package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAddr(t *testing.T) {
	host, port, err := splitAddr("storefront-1", ":8080")
	require.NoError(t, err)
	assert.Equal(t, "storefront-1", host)
	assert.Equal(t, 8080, port)

	host, port, err = splitAddr("ignored", "10.0.0.5:9000")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", host)
	assert.Equal(t, 9000, port)

	_, _, err = splitAddr("x", "no-port")
	require.Error(t, err)
	_, _, err = splitAddr("x", "host:http")
	require.Error(t, err)
}
