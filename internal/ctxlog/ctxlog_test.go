package ctxlog

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContextRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New("debug", "text", &buf)
	ctx := WithLogger(context.Background(), logger)

	FromContext(ctx).Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "k=v")
}

func TestFromContextMissingDiscards(t *testing.T) {
	t.Parallel()

	logger := FromContext(context.Background())
	assert.NotNil(t, logger)
	logger.Info("nobody hears this")
}

func TestNewLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New("warn", "json", &buf)
	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
}

func TestNewFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		json   bool
	}{
		{"json", true},
		{"JSON", true},
		{"Json", true},
		{"text", false},
		{"TEXT", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			New("info", tt.format, &buf).Info("hello")

			var obj map[string]any
			err := json.Unmarshal(buf.Bytes(), &obj)
			if tt.json {
				assert.NoError(t, err, "output: %s", buf.String())
				assert.Equal(t, "hello", obj["msg"])
			} else {
				assert.Error(t, err)
				assert.Contains(t, buf.String(), "msg=hello")
			}
		})
	}
}
