package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id := Keccak256ID([]byte("x"))

	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	parsed, err = ParseID(id.String()[2:])
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = ParseID("0x1234")
	require.Error(t, err)
	_, err = ParseID("zz")
	require.Error(t, err)
}

func TestID_JSON(t *testing.T) {
	type wrapper struct {
		ID ID `json:"id"`
	}
	in := wrapper{ID: Keccak256ID([]byte("y"))}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	require.Contains(t, string(raw), in.ID.String())

	var out wrapper
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, in, out)
}

func TestKeccak256ID_PartsAreLengthPrefixed(t *testing.T) {
	require.NotEqual(t, Keccak256ID([]byte("ab"), []byte("c")), Keccak256ID([]byte("a"), []byte("bc")))
	require.Equal(t, Keccak256ID([]byte("a")), Keccak256ID([]byte("a")))
	require.True(t, ID{}.IsZero())
	require.False(t, Keccak256ID().IsZero())
}

func TestNormalizeIdentity(t *testing.T) {
	require.Equal(t, Identity("0xabc"), NormalizeIdentity("  0xABC\n"))
	require.True(t, NormalizeIdentity("   ").IsZero())
}

func TestParseAssetClass(t *testing.T) {
	c, err := ParseAssetClass("JEWELRY")
	require.NoError(t, err)
	require.Equal(t, AssetClassJewelry, c)

	_, err = ParseAssetClass("jewelry")
	require.Error(t, err)
}
