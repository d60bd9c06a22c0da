package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"contextimage/internal/logger"
	"contextimage/internal/models"
	"contextimage/internal/utils"
)

// GenAIClient talks to the Gemini API directly instead of going through the
// backend proxy. Results and errors use the same classification.
type GenAIClient struct {
	client *genai.Client
}

type GenAIOptions struct {
	APIKey string
	// BaseURL overrides the Gemini endpoint; empty uses the default.
	BaseURL string
}

func NewGenAIClient(ctx context.Context, opts GenAIOptions) (*GenAIClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini API key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIClient{client: c}, nil
}

func (c *GenAIClient) Generate(ctx context.Context, req Request) (models.GenerationResult, error) {
	log := logger.FromContext(ctx)

	contents, err := toGenAIContents(req.Messages)
	if err != nil {
		return models.GenerationResult{}, err
	}

	model := strings.TrimPrefix(req.Model, "google/")
	log.WithFields(logrus.Fields{
		"provider": "genai",
		"model":    model,
		"parts":    countParts(req.Messages),
	}).Info("generating image")

	res, err := c.client.Models.GenerateContent(ctx, model, contents, genAIConfig(req))
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			log.WithField("status", apiErr.Code).Errorf("API error response: %s", apiErr.Message)
			return models.GenerationResult{}, NewTransportError(apiErr.Code, apiErr.Message, err)
		}
		return models.GenerationResult{}, NewTransportError(0, err.Error(), err)
	}

	var text strings.Builder
	if res != nil && len(res.Candidates) > 0 && res.Candidates[0].Content != nil {
		for _, part := range res.Candidates[0].Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = utils.DefaultImageMIME
				}
				return models.GenerationResult{
					ImageData: base64.StdEncoding.EncodeToString(part.InlineData.Data),
					MIMEType:  mime,
				}, nil
			}
			if part.Text != "" && !part.Thought {
				text.WriteString(part.Text)
			}
		}
	}

	if s := strings.TrimSpace(text.String()); s != "" {
		log.WithField("text", s).Info("text response received")
		return models.GenerationResult{}, NewWrongModalityError()
	}
	return models.GenerationResult{}, NewNoContentError()
}

func toGenAIContents(msgs []models.Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		parts := make([]*genai.Part, 0, len(msg.Content))
		for _, p := range msg.Content {
			switch p.Kind {
			case models.PartText:
				parts = append(parts, genai.NewPartFromText(p.Text))
			case models.PartImage:
				data, err := base64.StdEncoding.DecodeString(p.Data)
				if err != nil {
					return nil, fmt.Errorf("decode image part: %w", err)
				}
				parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: p.MIMEType, Data: data}})
			}
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	}
	return contents, nil
}

func genAIConfig(req Request) *genai.GenerateContentConfig {
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = DefaultAspectRatio
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:        genai.Ptr[float32](Temperature),
		MaxOutputTokens:    MaxTokens,
		ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: aspect,
			ImageSize:   req.ImageSize,
		},
	}
	if level := thinkingLevel(req.ReasoningEffort); level != "" {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingLevel: level}
	}
	if req.WebSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

// thinkingLevel maps a reasoning effort onto the two Gemini thinking levels.
func thinkingLevel(effort string) genai.ThinkingLevel {
	switch strings.ToLower(effort) {
	case "minimal", "low":
		return genai.ThinkingLevelLow
	case "medium", "high":
		return genai.ThinkingLevelHigh
	}
	return ""
}
