package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}

	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestRoundTrip(t *testing.T) {
	type doc struct {
		Version int    `json:"version"`
		Name    string `json:"name"`
	}

	for _, c := range []Codec{JSON{}, GoJSON{}} {
		in := doc{Version: 1, Name: "idx"}

		b, err := c.Marshal(in)
		require.NoError(t, err)

		var out doc
		require.NoError(t, c.Unmarshal(b, &out))
		assert.Equal(t, in, out, c.Name())
	}
}

func TestCrossCodecCompatibility(t *testing.T) {
	in := map[string]any{"m": float64(10), "edgeType": "vv"}

	b, err := (JSON{}).Marshal(in)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, (GoJSON{}).Unmarshal(b, &out))
	assert.Equal(t, in, out)
}
