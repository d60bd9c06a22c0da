package events

import (
	"context"

	"github.com/sirupsen/logrus"

	"contextimage/internal/logger"
)

func logEvent(ctx context.Context, name string, event Event) {
	entry := logger.FromContext(ctx).WithFields(logrus.Fields{
		"event":    name,
		"event_id": event.ID,
	})
	if event.RequestID != "" {
		entry = entry.WithField("request_id", event.RequestID)
	}
	for k, v := range event.Metadata {
		entry = entry.WithField(k, v)
	}

	switch event.Type {
	case EventError:
		entry.Error(event.Message)
	case EventWarn:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}
}
