package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/apperr"
)

func TestRawJSON(t *testing.T) {
	raw, err := rawJSON("value", nil)
	require.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = rawJSON("value", map[string]any{"cpu": 0.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cpu":0.5}`, string(raw))

	_, err = rawJSON("value", func() {})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestParseTime(t *testing.T) {
	ts, err := parseTime("created_after", "")
	require.NoError(t, err)
	assert.Nil(t, ts)

	ts, err = parseTime("created_after", "2024-03-01T12:00:00Z")
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

	_, err = parseTime("created_after", "yesterday")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestToolError(t *testing.T) {
	res := toolError(apperr.NotFound("entity", 7))
	require.True(t, res.IsError)
	require.Len(t, res.Content, 1)
}
