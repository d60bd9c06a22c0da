package mocks

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"contextimage/internal/host"
	"contextimage/internal/models"
)

// ChatStateMock is an in-memory chat. Set Chat before use; afterwards read it
// through Messages or Message.
type ChatStateMock struct {
	Chat          []models.ChatMessage
	User          string
	CharName      string
	PersonaText   string
	CharacterCard *models.Character
	SaveChatFunc  func(ctx context.Context) error

	mu        sync.Mutex
	saveCalls int
}

func (m *ChatStateMock) Messages() []models.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ChatMessage, len(m.Chat))
	for i, msg := range m.Chat {
		out[i] = msg.Clone()
	}
	return out
}

func (m *ChatStateMock) Message(id int) (models.ChatMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 0 || id >= len(m.Chat) {
		return models.ChatMessage{}, false
	}
	return m.Chat[id].Clone(), true
}

func (m *ChatStateMock) UpdateMessage(id int, fn func(msg *models.ChatMessage)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 0 || id >= len(m.Chat) {
		return fmt.Errorf("%w: %d", host.ErrMessageNotFound, id)
	}
	fn(&m.Chat[id])
	return nil
}

func (m *ChatStateMock) Character() (models.Character, bool) {
	if m.CharacterCard == nil {
		return models.Character{}, false
	}
	return *m.CharacterCard, true
}

func (m *ChatStateMock) UserName() string      { return m.User }
func (m *ChatStateMock) CharacterName() string { return m.CharName }
func (m *ChatStateMock) Persona() string       { return m.PersonaText }

func (m *ChatStateMock) SaveChat(ctx context.Context) error {
	m.mu.Lock()
	m.saveCalls++
	m.mu.Unlock()
	if m.SaveChatFunc != nil {
		return m.SaveChatFunc(ctx)
	}
	return nil
}

func (m *ChatStateMock) SaveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCalls
}

type AvatarLocatorMock struct {
	UserURL      string
	CharacterURL string
}

func (m *AvatarLocatorMock) UserAvatarURL() (string, bool) {
	return m.UserURL, m.UserURL != ""
}

func (m *AvatarLocatorMock) CharacterAvatarURL() (string, bool) {
	return m.CharacterURL, m.CharacterURL != ""
}

type MediaStoreMock struct {
	SaveImageFunc func(ctx context.Context, base64Data, folder, fileName, ext string) (string, error)
}

func (m *MediaStoreMock) SaveImage(ctx context.Context, base64Data, folder, fileName, ext string) (string, error) {
	if m.SaveImageFunc != nil {
		return m.SaveImageFunc(ctx, base64Data, folder, fileName, ext)
	}
	return "user/images/" + folder + "/" + fileName + "." + ext, nil
}

type HeaderSourceMock struct {
	Headers http.Header
}

func (m *HeaderSourceMock) RequestHeaders() http.Header {
	if m.Headers == nil {
		return http.Header{}
	}
	return m.Headers.Clone()
}

type CredentialSourceMock struct {
	Credentials models.ProxyCredentials
}

func (m *CredentialSourceMock) ProxyCredentials(ctx context.Context) models.ProxyCredentials {
	return m.Credentials
}

type ButtonInjectorMock struct {
	Injected []int
	AllCalls int
}

func (m *ButtonInjectorMock) InjectMessageButton(messageID int) {
	m.Injected = append(m.Injected, messageID)
}

func (m *ButtonInjectorMock) InjectAllMessageButtons() {
	m.AllCalls++
}
