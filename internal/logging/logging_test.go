package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestWithEnrichesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)).With("request_id", "req-1"))
	ctx = With(ctx, "principal_id", "alice")

	FromContext(ctx).Info("reserved")
	entry := decode(t, &buf)
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "alice", entry["principal_id"])

	bare := context.Background()
	assert.Equal(t, bare, With(bare, "principal_id", "alice"))
	assert.Nil(t, FromContext(bare))
}

func TestScopedPrefersRequestLogger(t *testing.T) {
	var reqBuf, fallbackBuf bytes.Buffer
	fallback := slog.New(slog.NewJSONHandler(&fallbackBuf, nil))
	ctx := ContextWithLogger(context.Background(), slog.New(slog.NewJSONHandler(&reqBuf, nil)))

	Scoped(ctx, fallback, "service", "DeskService", "ReserveDesk", "desk_id", "D-1").Info("ok")
	entry := decode(t, &reqBuf)
	assert.Equal(t, "DeskService", entry["service"])
	assert.Equal(t, "ReserveDesk", entry["operation"])
	assert.Equal(t, "D-1", entry["desk_id"])
	assert.Zero(t, fallbackBuf.Len())

	Scoped(context.Background(), fallback, "handler", "DeskHandler", "").Info("ok")
	entry = decode(t, &fallbackBuf)
	assert.Equal(t, "DeskHandler", entry["handler"])
	assert.NotContains(t, entry, "operation")
}
