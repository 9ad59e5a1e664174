package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{Level: "debug", Format: "json", Output: &buf}))
	t.Cleanup(func() { _ = Init(Options{}) })

	log := Component("sequencer")
	log.Debug().Int("active", 2).Msg("tick")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "sequencer", line["component"])
	assert.Equal(t, "tick", line["message"])
	assert.Equal(t, float64(2), line["active"])
}

func TestInitLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{Level: "warn", Format: "json", Output: &buf}))
	t.Cleanup(func() { _ = Init(Options{}) })

	log := Component("test")
	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
}

func TestInitInvalidLevel(t *testing.T) {
	assert.Error(t, Init(Options{Level: "loud"}))
}
