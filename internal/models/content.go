package models

import "fmt"

type PartKind string

const (
	PartText  PartKind = "text"
	PartImage PartKind = "image"
)

// ContentPart is one text or image unit of a request. Order is significant.
type ContentPart struct {
	Kind     PartKind
	Text     string
	MIMEType string
	Data     string
}

func TextPart(text string) ContentPart {
	return ContentPart{Kind: PartText, Text: text}
}

func ImagePart(mimeType, data string) ContentPart {
	return ContentPart{Kind: PartImage, MIMEType: mimeType, Data: data}
}

// DataURL renders an image part as data:<mime>;base64,<payload>.
func (p ContentPart) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", p.MIMEType, p.Data)
}

// Message is a role-tagged sequence of content parts.
type Message struct {
	Role    string
	Content []ContentPart
}

const (
	AvatarRoleUser      = "user"
	AvatarRoleCharacter = "character"
)

// AvatarDescriptor is a fetched avatar image, valid for a single request.
type AvatarDescriptor struct {
	MIMEType string
	Data     string
	Role     string
	Name     string
}

// GenerationResult is the normalized success value of a generation.
type GenerationResult struct {
	ImageData string `json:"imageData"`
	MIMEType  string `json:"mimeType"`
}

func (r GenerationResult) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", r.MIMEType, r.ImageData)
}

// ProxyCredentials are passed through from the host's chat-completion settings.
type ProxyCredentials struct {
	ReverseProxy  string
	ProxyPassword string
}
