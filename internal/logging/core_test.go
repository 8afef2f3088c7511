package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fyrsmithlabs/toolgate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func captureConsole(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := consoleWriter
	consoleWriter = &buf
	t.Cleanup(func() { consoleWriter = prev })
	return &buf
}

func TestNewCore_WritesRedactedJSON(t *testing.T) {
	buf := captureConsole(t)
	cfg := NewDefaultConfig()
	cfg.Sampling.Enabled = false

	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)

	logger.Info(context.Background(), "upstream said token=abc123",
		zap.String("password", "hunter2"),
		zap.String("detail", "Authorization: Bearer xyz"),
		zap.String("key", "issues_create"),
	)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "upstream said token: ****", line["msg"])
	assert.Equal(t, "[REDACTED]", line["password"])
	assert.Equal(t, "Authorization: **** xyz", line["detail"])
	assert.Equal(t, "issues_create", line["key"])
	assert.Equal(t, "toolgate", line["service"])
}

func TestNewCore_NoOutputs(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Console = false
	cfg.Output.OTEL = true

	_, err := newCore(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one output")
}

func TestNewSampledCore_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	sampled := newSampledCore(core, SamplingConfig{Enabled: false})
	assert.Equal(t, core, sampled)
}

func TestNewSampledCore_ErrorsNeverSampled(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	sampled := newSampledCore(core, SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Second),
		Levels: map[zapcore.Level]LevelSamplingConfig{
			zapcore.InfoLevel: {Initial: 1, Thereafter: 0},
		},
	})
	logger := &Logger{zap: zap.New(sampled), config: NewDefaultConfig()}

	for i := 0; i < 50; i++ {
		logger.Error(context.Background(), "error message")
		logger.Info(context.Background(), "info message")
	}

	assert.Equal(t, 50, observed.FilterMessage("error message").Len())
	assert.Equal(t, 1, observed.FilterMessage("info message").Len())
}

func TestLevelFilterCore(t *testing.T) {
	core, _ := observer.New(TraceLevel)

	below := &levelFilterCore{Core: core, max: zapcore.WarnLevel, hasMax: true}
	assert.True(t, below.Enabled(zapcore.InfoLevel))
	assert.True(t, below.Enabled(zapcore.WarnLevel))
	assert.False(t, below.Enabled(zapcore.ErrorLevel))

	above := &levelFilterCore{Core: core, min: zapcore.ErrorLevel, hasMin: true}
	assert.False(t, above.Enabled(zapcore.InfoLevel))
	assert.True(t, above.Enabled(zapcore.ErrorLevel))

	child, ok := above.With([]zapcore.Field{zap.String("a", "b")}).(*levelFilterCore)
	require.True(t, ok)
	assert.False(t, child.Enabled(zapcore.WarnLevel))
}
