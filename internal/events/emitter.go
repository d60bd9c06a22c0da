package events

import "context"

var Emit = func(ctx context.Context, name string, evt Event) {}

// EnableLogEmitter routes every event to the structured log.
func EnableLogEmitter() {
	Emit = func(ctx context.Context, name string, evt Event) {
		logEvent(ctx, name, withRequest(ctx, evt))
	}
}

func SetCustomEmitter(f func(ctx context.Context, name string, evt Event)) {
	if f == nil {
		Emit = func(context.Context, string, Event) {}
		return
	}
	Emit = func(ctx context.Context, name string, evt Event) {
		f(ctx, name, withRequest(ctx, evt))
	}
}

func withRequest(ctx context.Context, evt Event) Event {
	if evt.RequestID == "" {
		evt.RequestID = RequestFromContext(ctx)
	}
	return evt
}
