package client

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"contextimage/internal/models"
)

const (
	DefaultProvider    = "makersuite"
	DefaultAspectRatio = "1:1"
	MaxTokens          = 8192
	Temperature        = 1
)

// Request is a transport-neutral image generation request.
type Request struct {
	Provider    string
	Model       string
	Messages    []models.Message
	AspectRatio string
	ImageSize   string
	// ReasoningEffort and WebSearch are only set for models that accept them.
	ReasoningEffort string
	WebSearch       bool
	Credentials     models.ProxyCredentials
}

// Generator sends one non-streaming request and resolves it to an image.
type Generator interface {
	Generate(ctx context.Context, req Request) (models.GenerationResult, error)
}

// WireMessage is a chat-completions message whose content is a part list.
type WireMessage struct {
	Role    schema.RoleType          `json:"role"`
	Content []schema.ChatMessagePart `json:"content"`
}

// Payload is the JSON body accepted by the chat-completions generate endpoint.
type Payload struct {
	ChatCompletionSource    string        `json:"chat_completion_source"`
	Model                   string        `json:"model"`
	Messages                []WireMessage `json:"messages"`
	MaxTokens               int           `json:"max_tokens"`
	Temperature             float64       `json:"temperature"`
	RequestImages           bool          `json:"request_images"`
	RequestImageAspectRatio string        `json:"request_image_aspect_ratio"`
	RequestImageResolution  string        `json:"request_image_resolution,omitempty"`
	Stream                  bool          `json:"stream"`
	ReverseProxy            string        `json:"reverse_proxy"`
	ProxyPassword           string        `json:"proxy_password"`
	ReasoningEffort         string        `json:"reasoning_effort,omitempty"`
	EnableWebSearch         bool          `json:"enable_web_search,omitempty"`
}

// NewPayload maps req onto the wire payload, filling the fixed fields.
func NewPayload(req Request) Payload {
	provider := req.Provider
	if provider == "" {
		provider = DefaultProvider
	}
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = DefaultAspectRatio
	}

	return Payload{
		ChatCompletionSource:    provider,
		Model:                   req.Model,
		Messages:                toWireMessages(req.Messages),
		MaxTokens:               MaxTokens,
		Temperature:             Temperature,
		RequestImages:           true,
		RequestImageAspectRatio: aspect,
		RequestImageResolution:  req.ImageSize,
		Stream:                  false,
		ReverseProxy:            req.Credentials.ReverseProxy,
		ProxyPassword:           req.Credentials.ProxyPassword,
		ReasoningEffort:         req.ReasoningEffort,
		EnableWebSearch:         req.WebSearch,
	}
}

func toWireMessages(msgs []models.Message) []WireMessage {
	out := make([]WireMessage, 0, len(msgs))
	for _, msg := range msgs {
		parts := make([]schema.ChatMessagePart, 0, len(msg.Content))
		for _, p := range msg.Content {
			switch p.Kind {
			case models.PartText:
				parts = append(parts, schema.ChatMessagePart{
					Type: schema.ChatMessagePartTypeText,
					Text: p.Text,
				})
			case models.PartImage:
				parts = append(parts, schema.ChatMessagePart{
					Type:     schema.ChatMessagePartTypeImageURL,
					ImageURL: &schema.ChatMessageImageURL{URL: p.DataURL()},
				})
			}
		}
		out = append(out, WireMessage{Role: schema.RoleType(msg.Role), Content: parts})
	}
	return out
}
