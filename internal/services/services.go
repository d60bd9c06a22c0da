package services

import (
	"context"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"contextimage/internal/host"
	"contextimage/internal/llm/client"
	"contextimage/internal/repositories"
)

// Services aggregates all domain services.
type Services struct {
	Catalog    ModelCatalogService
	Settings   SettingsService
	Gallery    GalleryService
	Context    ContextService
	Avatars    AvatarService
	Assembler  RequestAssembler
	Generation GenerationService
}

// Deps are the collaborators the services are wired against.
type Deps struct {
	DB          *gorm.DB
	Chat        host.ChatState
	Avatars     host.AvatarLocator
	Headers     host.HeaderSource
	Credentials host.CredentialSource
	Generator   client.Generator
	HTTPClient  *http.Client
	Settings    []SettingsOption
}

// NewServices constructs the service container.
func NewServices(deps Deps) *Services {
	settingsRepo := repositories.NewExtensionSettingsRepository(deps.DB)

	catalog := NewModelCatalogService()
	settings := NewSettingsService(settingsRepo, catalog, deps.Settings...)
	contextSvc := NewContextService(deps.Chat)
	avatars := NewAvatarService(deps.Avatars, deps.Chat, deps.Headers, deps.HTTPClient)
	assembler := NewRequestAssembler(contextSvc, avatars)

	return &Services{
		Catalog:    catalog,
		Settings:   settings,
		Gallery:    NewGalleryService(settings),
		Context:    contextSvc,
		Avatars:    avatars,
		Assembler:  assembler,
		Generation: NewGenerationService(settings, assembler, deps.Generator, deps.Credentials),
	}
}

// Startup loads the model catalog and then the settings document.
func (s *Services) Startup(ctx context.Context) error {
	if err := s.Catalog.Startup(ctx); err != nil {
		return fmt.Errorf("start model catalog: %w", err)
	}
	if err := s.Settings.Startup(ctx); err != nil {
		return fmt.Errorf("start settings: %w", err)
	}
	return nil
}

// Shutdown writes any pending settings change.
func (s *Services) Shutdown(ctx context.Context) error {
	return s.Settings.Flush(ctx)
}
