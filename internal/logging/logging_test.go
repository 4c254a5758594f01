package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("warn", "json", &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("record_id", "7").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"record_id":"7"`)
	assert.Contains(t, out, `"message":"shown"`)
}

func TestSetup_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("loud", "json", &buf)

	logger.Debug().Msg("debug")
	logger.Info().Msg("info")

	assert.NotContains(t, buf.String(), `"message":"debug"`)
	assert.Contains(t, buf.String(), `"message":"info"`)
}
