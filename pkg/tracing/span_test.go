package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "query", "t1")
	_, child := StartChildSpan(ctx, "score")
	child.SetAttr("terms", 2)
	child.End()
	root.End()

	require.Len(t, root.Children, 1)
	assert.Equal(t, "t1", child.TraceID)
	assert.Same(t, root, SpanFromContext(ctx))

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "span=query")
	assert.Contains(t, lines[1], "span=score")
	assert.Contains(t, lines[1], "terms=2")
	assert.Contains(t, lines[1], "depth=1")
}

func TestChildWithoutParentIsNil(t *testing.T) {
	ctx := context.Background()
	got, span := StartChildSpan(ctx, "orphan")
	assert.Nil(t, span)
	assert.Equal(t, ctx, got)
	assert.NotPanics(t, func() {
		span.SetAttr("k", 1)
		span.End()
		span.Log(slog.Default())
	})
}
