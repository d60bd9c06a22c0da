package events

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contextimage/internal/logger"
)

func TestSetCustomEmitterFillsRequestID(t *testing.T) {
	var got []Event
	SetCustomEmitter(func(_ context.Context, name string, evt Event) {
		assert.Equal(t, GalleryEvent, name)
		got = append(got, evt)
	})
	t.Cleanup(func() { SetCustomEmitter(nil) })

	ctx := WithRequest(context.Background(), "req-1")
	Emit(ctx, GalleryEvent, NewInfo("added"))

	require.Len(t, got, 1)
	assert.Equal(t, "req-1", got[0].RequestID)
	assert.Equal(t, EventInfo, got[0].Type)
	assert.NotEmpty(t, got[0].ID)
}

func TestWithRequestIgnoresBlank(t *testing.T) {
	ctx := WithRequest(context.Background(), "  ")
	assert.Equal(t, "", RequestFromContext(ctx))
}

func TestWithMetaCopies(t *testing.T) {
	base := NewSuccess("ok").WithMeta("a", "1")
	next := base.WithMeta("b", "2")

	assert.Len(t, base.Metadata, 1)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, next.Metadata)
}

func TestEnableLogEmitterWritesEntry(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	EnableLogEmitter()
	t.Cleanup(func() { SetCustomEmitter(nil) })

	ctx := logger.WithContext(context.Background(), logrus.NewEntry(l))
	Emit(ctx, GenerationEvent, NewError("boom").WithMeta("message_id", "3"))

	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"msg":"boom"`)
	assert.Contains(t, out, `"message_id":"3"`)
}
