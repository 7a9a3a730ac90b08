package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/apperr"
)

func TestTypeSetCheck(t *testing.T) {
	set := NewTypeSet("entity type", "Server", " database ")

	t.Run("Normalizes before lookup", func(t *testing.T) {
		got, err := set.Check("type", "  SERVER ")
		require.NoError(t, err)
		assert.Equal(t, "server", got)
	})

	t.Run("Rejects unknown value", func(t *testing.T) {
		_, err := set.Check("type", "router")
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	t.Run("Rejects blank value", func(t *testing.T) {
		_, err := set.Check("type", "   ")
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	t.Run("Members are sorted", func(t *testing.T) {
		assert.Equal(t, []string{"database", "server"}, set.Members())
	})
}

func TestObservationTypesAreFixed(t *testing.T) {
	for _, typ := range []string{"state", "metric", "event", "configuration", "dependency", "security", "performance", "test"} {
		assert.True(t, ObservationTypes.Contains(typ), typ)
	}
	assert.False(t, ObservationTypes.Contains("status"))
}

func TestMetadataMerge(t *testing.T) {
	base := Metadata{"env": "prod", "owner": "ops"}
	merged := base.Merge(Metadata{"env": "staging", "tier": 1})

	assert.Equal(t, Metadata{"env": "staging", "owner": "ops", "tier": 1}, merged)
	assert.Equal(t, "prod", base["env"], "merge must not modify the receiver")
}

func TestMetadataScan(t *testing.T) {
	var m Metadata
	require.NoError(t, m.Scan(`{"a":1}`))
	assert.Equal(t, float64(1), m["a"])

	require.NoError(t, m.Scan(nil))
	assert.Empty(t, m)

	assert.Error(t, m.Scan(42))
}

func TestTagsRoundTrip(t *testing.T) {
	v, err := CleanTags([]string{" web ", "", "prod"}).Value()
	require.NoError(t, err)
	assert.Equal(t, `["web","prod"]`, v)

	var tags Tags
	require.NoError(t, tags.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, Tags{"a", "b"}, tags)
}

func TestIsStructuredJSON(t *testing.T) {
	cases := map[string]bool{
		`{"cpu": 0.4}`: true,
		` [1, 2] `:     true,
		`42`:           false,
		`"text"`:       false,
		`null`:         false,
		`true`:         false,
		`{broken`:      false,
		``:             false,
	}
	for raw, want := range cases {
		assert.Equal(t, want, IsStructuredJSON(json.RawMessage(raw)), raw)
	}
	assert.True(t, IsJSONObject(json.RawMessage(`{"type":"string"}`)))
	assert.False(t, IsJSONObject(json.RawMessage(`[]`)))
}
