package types

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/go-viper/mapstructure/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeWithTextHook(t *testing.T, input map[string]any, result any) error {
	t.Helper()

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.TextUnmarshallerHookFunc(),
		Result:     result,
	})
	require.NoError(t, err)

	return dec.Decode(input)
}

func TestIdentityDecodesFromConfigString(t *testing.T) {
	seed := base64.StdEncoding.EncodeToString(make([]byte, ed25519.SeedSize))

	var out struct {
		Identity Identity `mapstructure:"identity"`
	}
	require.NoError(t, decodeWithTextHook(t, map[string]any{"identity": seed}, &out))
	assert.Len(t, []byte(out.Identity.PrivateKey()), ed25519.PrivateKeySize)
}

func TestIdentityDecodeRejectsBadSeed(t *testing.T) {
	tests := []struct {
		name string
		seed string
	}{
		{"not base64", "!!not-base64!!"},
		{"wrong length", base64.StdEncoding.EncodeToString(make([]byte, 16))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Identity Identity `mapstructure:"identity"`
			}
			assert.Error(t, decodeWithTextHook(t, map[string]any{"identity": tt.seed}, &out))
		})
	}
}

func TestUUIDDecodesFromConfigString(t *testing.T) {
	var out struct {
		NodeID UUID `mapstructure:"node_id"`
	}
	require.NoError(t, decodeWithTextHook(t, map[string]any{"node_id": "8f14c9b2-7d31-4a6e-9c5d-2b8f0c4e1a37"}, &out))
	assert.Equal(t, "8f14c9b2-7d31-4a6e-9c5d-2b8f0c4e1a37", out.NodeID.String())
}

func TestUUIDDecodeRejectsMalformed(t *testing.T) {
	var out struct {
		NodeID UUID `mapstructure:"node_id"`
	}
	assert.Error(t, decodeWithTextHook(t, map[string]any{"node_id": "not-a-uuid"}, &out))
}
