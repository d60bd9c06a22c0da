package services

import (
	"context"

	"github.com/google/uuid"

	"contextimage/internal/events"
	"contextimage/internal/host"
	"contextimage/internal/llm/client"
	"contextimage/internal/logger"
	"contextimage/internal/models"
)

// GenerationService turns a prompt into a generated image using the
// current settings. It does not touch the gallery.
type GenerationService interface {
	GenerateImageFromPrompt(ctx context.Context, prompt string, sender *string, messageID *int) (models.GenerationResult, error)
	// NewRequest builds the transport request without sending it.
	NewRequest(ctx context.Context, prompt string, sender *string, messageID *int) client.Request
}

type generationService struct {
	settings    SettingsService
	assembler   RequestAssembler
	generator   client.Generator
	credentials host.CredentialSource
}

func NewGenerationService(settings SettingsService, assembler RequestAssembler, generator client.Generator, credentials host.CredentialSource) GenerationService {
	return &generationService{
		settings:    settings,
		assembler:   assembler,
		generator:   generator,
		credentials: credentials,
	}
}

func (s *generationService) NewRequest(ctx context.Context, prompt string, sender *string, messageID *int) client.Request {
	st := s.settings.Snapshot()

	req := client.Request{
		Provider:    st.Provider,
		Model:       st.Model,
		Messages:    s.assembler.BuildMessages(ctx, st, prompt, sender, messageID),
		AspectRatio: st.AspectRatio,
		ImageSize:   st.ImageSize,
	}
	if models.IsFlash2Model(st.Model) {
		if st.ThinkingLevel != "" && st.ThinkingLevel != models.ThinkingLevelAuto {
			req.ReasoningEffort = st.ThinkingLevel
		}
		req.WebSearch = st.UseGoogleSearch
	}
	if s.credentials != nil {
		req.Credentials = s.credentials.ProxyCredentials(ctx)
	}
	return req
}

func (s *generationService) GenerateImageFromPrompt(ctx context.Context, prompt string, sender *string, messageID *int) (models.GenerationResult, error) {
	requestID := uuid.NewString()
	ctx = logger.WithRequestID(ctx, requestID)
	ctx = events.WithRequest(ctx, requestID)

	result, err := s.generator.Generate(ctx, s.NewRequest(ctx, prompt, sender, messageID))
	if err != nil {
		events.Emit(ctx, events.GenerationEvent, events.NewError(err.Error()))
		return models.GenerationResult{}, err
	}
	events.Emit(ctx, events.GenerationEvent, events.NewSuccess("image generated").WithMeta("mime_type", result.MIMEType))
	return result, nil
}
