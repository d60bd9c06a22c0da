package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInfo    EventType = "info"
	EventWarn    EventType = "warn"
	EventSuccess EventType = "success"
	EventError   EventType = "error"
)

const (
	GenerationEvent = "event:cig:generation"
	GalleryEvent    = "event:cig:gallery"
)

// Event is a notification for whoever presents results to the user.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	RequestID string            `json:"requestId,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type contextKey string

const requestContextKey contextKey = "contextimage/events/request"

// WithRequest returns a derived context annotated with the given request id
// so emitters can correlate events of one generation.
func WithRequest(ctx context.Context, requestID string) context.Context {
	if strings.TrimSpace(requestID) == "" {
		return ctx
	}
	return context.WithValue(ctx, requestContextKey, requestID)
}

// RequestFromContext extracts the request id associated with ctx.
func RequestFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestContextKey).(string); ok {
		return v
	}
	return ""
}

func CreateEvent(eventType EventType, message string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewInfo(message string) Event {
	return CreateEvent(EventInfo, message)
}

func NewWarn(message string) Event {
	return CreateEvent(EventWarn, message)
}

func NewError(message string) Event {
	return CreateEvent(EventError, message)
}

func NewSuccess(message string) Event {
	return CreateEvent(EventSuccess, message)
}

// WithMeta returns a copy of e with key set in its metadata.
func (e Event) WithMeta(key, value string) Event {
	meta := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	meta[key] = value
	e.Metadata = meta
	return e
}
