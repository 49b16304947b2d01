package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLoggerAttachesTurnID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf), WithLevel("debug"))

	ctx := WithTurnID(context.Background(), "turn-42")
	logger.Info(ctx, "input approved", map[string]interface{}{"length": 12})

	out := buf.String()
	assert.Contains(t, out, "input approved")
	assert.Contains(t, out, "turn_id=turn-42")
	assert.Contains(t, out, "length=12")
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf), WithLevel("warn"))

	logger.Debug(context.Background(), "hidden debug", nil)
	logger.Info(context.Background(), "hidden info", nil)
	logger.Warn(context.Background(), "visible warn", nil)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible warn")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Error(context.Background(), "dropped", map[string]interface{}{"k": "v"})
	})
}
