package clip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridge_SetGetRoundTrip(t *testing.T) {
	b := New()

	require.NoError(t, b.Set("copied text"))
	v, err := b.Get()
	require.NoError(t, err)
	assert.Equal(t, "copied text", v)
}

func TestBridge_OverwriteKeepsLatest(t *testing.T) {
	b := New()

	require.NoError(t, b.Set("first"))
	require.NoError(t, b.Set("second"))
	v, err := b.Get()
	require.NoError(t, err)
	assert.Equal(t, "second", v)
}
