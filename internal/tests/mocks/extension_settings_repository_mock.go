package mocks

import (
	"context"
	"sync"

	"contextimage/internal/models"
)

// ExtensionSettingsRepositoryMock keeps documents in memory unless a Func
// field overrides the call.
type ExtensionSettingsRepositoryMock struct {
	GetFunc    func(ctx context.Context, name string) (*models.ExtensionSettings, error)
	SaveFunc   func(ctx context.Context, name string, data string) error
	DeleteFunc func(ctx context.Context, name string) error

	mu        sync.Mutex
	docs      map[string]string
	saveCalls int
}

// Seed stores data for name as if it had been saved earlier.
func (m *ExtensionSettingsRepositoryMock) Seed(name, data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs == nil {
		m.docs = map[string]string{}
	}
	m.docs[name] = data
}

// Stored returns the document last saved under name.
func (m *ExtensionSettingsRepositoryMock) Stored(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[name]
	return data, ok
}

func (m *ExtensionSettingsRepositoryMock) SaveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCalls
}

func (m *ExtensionSettingsRepositoryMock) Get(ctx context.Context, name string) (*models.ExtensionSettings, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[name]
	if !ok {
		return nil, nil
	}
	return &models.ExtensionSettings{ID: 1, Name: name, Data: data}, nil
}

func (m *ExtensionSettingsRepositoryMock) Save(ctx context.Context, name string, data string) error {
	m.mu.Lock()
	m.saveCalls++
	m.mu.Unlock()
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, name, data)
	}
	m.Seed(name, data)
	return nil
}

func (m *ExtensionSettingsRepositoryMock) Delete(ctx context.Context, name string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, name)
	return nil
}
