// Package host declares what the extension needs from the chat application
// it runs inside of, and what it hands back to it.
package host

import (
	"context"
	"errors"
	"net/http"

	"contextimage/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const (
	DefaultUserName      = "User"
	DefaultCharacterName = "Character"
)

// ChatState is the host's live chat: message log, selected character and
// display names. Messages and Message return copies. Edits go through
// UpdateMessage, which runs fn while the host holds its chat lock, and become
// durable on the next SaveChat.
type ChatState interface {
	Messages() []models.ChatMessage
	Message(id int) (models.ChatMessage, bool)
	UpdateMessage(id int, fn func(msg *models.ChatMessage)) error
	Character() (models.Character, bool)
	UserName() string
	CharacterName() string
	Persona() string
	SaveChat(ctx context.Context) error
}

// AvatarLocator resolves avatar URLs. ok is false when there is no avatar.
type AvatarLocator interface {
	UserAvatarURL() (url string, ok bool)
	CharacterAvatarURL() (url string, ok bool)
}

// MediaStore persists a base64 image and returns the URL it is served from.
type MediaStore interface {
	SaveImage(ctx context.Context, base64Data, folder, fileName, ext string) (string, error)
}

// HeaderSource supplies authentication headers for backend requests.
type HeaderSource interface {
	RequestHeaders() http.Header
}

// CredentialSource supplies the reverse proxy configured for chat completions.
type CredentialSource interface {
	ProxyCredentials(ctx context.Context) models.ProxyCredentials
}

// ButtonInjector adds the per-message generate control.
type ButtonInjector interface {
	InjectMessageButton(messageID int)
	InjectAllMessageButtons()
}

// NameOr returns name, or fallback when name is empty.
func NameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
