package unit_tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"contextimage/internal/events"
	"contextimage/internal/host"
	"contextimage/internal/services"
	"contextimage/internal/tests/mocks"
)

type testEnv struct {
	repo      *mocks.ExtensionSettingsRepositoryMock
	chat      *mocks.ChatStateMock
	generator *mocks.GeneratorMock
	svcs      *services.Services
}

// newTestEnv wires the real services against in-memory collaborators. The
// settings debounce is long enough that tests only persist through Flush.
func newTestEnv(t *testing.T, chat *mocks.ChatStateMock, generator *mocks.GeneratorMock) *testEnv {
	t.Helper()
	if chat == nil {
		chat = &mocks.ChatStateMock{}
	}
	if generator == nil {
		generator = &mocks.GeneratorMock{}
	}
	repo := &mocks.ExtensionSettingsRepositoryMock{}
	svcs := newServices(t, repo, chat, generator)
	return &testEnv{repo: repo, chat: chat, generator: generator, svcs: svcs}
}

func newServices(t *testing.T, repo *mocks.ExtensionSettingsRepositoryMock, chat host.ChatState, generator *mocks.GeneratorMock) *services.Services {
	t.Helper()
	catalog := services.NewModelCatalogService()
	settings := services.NewSettingsService(repo, catalog, services.WithSaveDelay(time.Hour))
	contextSvc := services.NewContextService(chat)
	avatars := services.NewAvatarService(nil, chat, nil, nil)
	assembler := services.NewRequestAssembler(contextSvc, avatars)

	svcs := &services.Services{
		Catalog:    catalog,
		Settings:   settings,
		Gallery:    services.NewGalleryService(settings),
		Context:    contextSvc,
		Avatars:    avatars,
		Assembler:  assembler,
		Generation: services.NewGenerationService(settings, assembler, generator, &mocks.CredentialSourceMock{}),
	}
	require.NoError(t, svcs.Startup(context.Background()))
	return svcs
}

type recordedEvent struct {
	name  string
	event events.Event
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) all() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *eventRecorder) named(name string) []events.Event {
	var out []events.Event
	for _, e := range r.all() {
		if e.name == name {
			out = append(out, e.event)
		}
	}
	return out
}

// recordEvents captures emitted events for the rest of the test.
func recordEvents(t *testing.T) *eventRecorder {
	t.Helper()
	rec := &eventRecorder{}
	events.SetCustomEmitter(func(ctx context.Context, name string, evt events.Event) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.events = append(rec.events, recordedEvent{name: name, event: evt})
	})
	t.Cleanup(func() { events.SetCustomEmitter(nil) })
	return rec
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

var _ host.ChatState = (*mocks.ChatStateMock)(nil)
