package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/bytedance/sonic"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"contextimage/internal/llm/client"
	"contextimage/internal/logger"
	"contextimage/internal/models"
	"contextimage/internal/repositories"
)

// ExtensionName keys the settings document in the settings store.
const ExtensionName = "context-image-generation"

const DefaultSaveDelay = 500 * time.Millisecond

var (
	ErrUnknownSetting = errors.New("unknown setting")
	ErrInvalidSetting = errors.New("invalid setting")
)

var (
	AspectRatios   = []string{"1:1", "2:3", "3:2", "3:4", "4:3", "4:5", "5:4", "9:16", "16:9", "21:9"}
	ThinkingLevels = []string{models.ThinkingLevelAuto, "minimal", "low", "medium", "high"}
)

// SettingsService owns the process-wide settings document: load and merge
// with defaults, serialized mutation, and debounced persistence.
type SettingsService interface {
	Startup(ctx context.Context) error
	Snapshot() models.Settings
	// Update applies fn to a copy of the settings and commits it if fn
	// returns nil. A save is scheduled after every commit.
	Update(ctx context.Context, fn func(*models.Settings) error) error
	Set(ctx context.Context, key, value string) error
	Document() map[string]any
	Flush(ctx context.Context) error
}

type settingsService struct {
	repo    repositories.ExtensionSettingsRepository
	catalog ModelCatalogService
	name    string

	mu       sync.Mutex
	settings models.Settings
	extra    map[string]any

	saveMu    sync.Mutex
	debounced func(f func())
}

type SettingsOption func(*settingsService)

// WithSaveDelay overrides the debounce interval for persistence.
func WithSaveDelay(d time.Duration) SettingsOption {
	return func(s *settingsService) {
		s.debounced = debounce.New(d)
	}
}

func NewSettingsService(repo repositories.ExtensionSettingsRepository, catalog ModelCatalogService, opts ...SettingsOption) SettingsService {
	s := &settingsService{
		repo:      repo,
		catalog:   catalog,
		name:      ExtensionName,
		settings:  DefaultSettings(),
		extra:     map[string]any{},
		debounced: debounce.New(DefaultSaveDelay),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() models.Settings {
	return models.Settings{
		Provider:          client.DefaultProvider,
		Model:             "gemini-2.5-flash-image",
		AspectRatio:       client.DefaultAspectRatio,
		ImageSize:         "",
		ThinkingLevel:     models.ThinkingLevelAuto,
		MessageDepth:      models.MinMessageDepth,
		SystemInstruction: client.DefaultSystemInstruction(),
		Gallery:           []models.GalleryEntry{},
	}
}

// documentJSON keeps numbers as json.Number so unknown keys round-trip exactly.
var documentJSON = sonic.Config{UseNumber: true}.Froze()

var knownKeys = sync.OnceValue(func() map[string]bool {
	doc := map[string]any{}
	data, _ := sonic.Marshal(DefaultSettings())
	_ = sonic.Unmarshal(data, &doc)
	keys := make(map[string]bool, len(doc))
	for k := range doc {
		keys[k] = true
	}
	return keys
})

func (s *settingsService) Startup(ctx context.Context) error {
	log := logger.FromContext(ctx)

	row, err := s.repo.Get(ctx, s.name)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	settings := DefaultSettings()
	extra := map[string]any{}
	backfilled := row == nil

	if row != nil {
		doc := map[string]any{}
		if err := documentJSON.UnmarshalFromString(row.Data, &doc); err != nil {
			return fmt.Errorf("decode settings: %w", err)
		}
		for key, value := range doc {
			if !knownKeys()[key] {
				extra[key] = value
				continue
			}
			if err := decodeSettingKey(&settings, key, value); err != nil {
				log.WithField("key", key).WithError(err).Warn("ignoring malformed setting")
			}
		}
		for key := range knownKeys() {
			if _, ok := doc[key]; !ok {
				backfilled = true
			}
		}
	}

	normalizeSettings(&settings)

	s.mu.Lock()
	s.settings = settings
	s.extra = extra
	s.mu.Unlock()

	log.WithFields(logrus.Fields{
		"provider":   settings.Provider,
		"model":      settings.Model,
		"gallery":    len(settings.Gallery),
		"backfilled": backfilled,
	}).Debug("settings loaded")

	if backfilled {
		s.scheduleSave()
	}
	return nil
}

// decodeSettingKey decodes one document key onto settings, leaving the other
// fields untouched.
func decodeSettingKey(settings *models.Settings, key string, value any) error {
	data, err := sonic.Marshal(map[string]any{key: value})
	if err != nil {
		return err
	}
	return sonic.Unmarshal(data, settings)
}

func normalizeSettings(settings *models.Settings) {
	settings.MessageDepth = lo.Clamp(settings.MessageDepth, models.MinMessageDepth, models.MaxMessageDepth)
	if settings.Gallery == nil {
		settings.Gallery = []models.GalleryEntry{}
	}
	if len(settings.Gallery) > models.MaxGallerySize {
		settings.Gallery = settings.Gallery[:models.MaxGallerySize]
	}
}

func (s *settingsService) Snapshot() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Clone()
}

func (s *settingsService) Update(ctx context.Context, fn func(*models.Settings) error) error {
	s.mu.Lock()
	next := s.settings.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.settings = next
	s.mu.Unlock()

	s.scheduleSave()
	return nil
}

func (s *settingsService) Set(ctx context.Context, key, value string) error {
	return s.Update(ctx, func(st *models.Settings) error {
		return s.apply(st, strings.TrimSpace(key), value)
	})
}

func (s *settingsService) apply(st *models.Settings, key, value string) error {
	switch key {
	case "provider":
		provider := strings.TrimSpace(value)
		if !s.catalog.HasProvider(provider) {
			return fmt.Errorf("%w: provider %q", ErrInvalidSetting, value)
		}
		st.Provider = provider
		st.Model = s.catalog.ResolveModelForProvider(provider, st.Model)
		dropUnsupportedSize(st)
	case "model":
		model := strings.TrimSpace(value)
		if !s.catalog.HasModel(st.Provider, model) {
			return fmt.Errorf("%w: model %q is not offered by %s", ErrInvalidSetting, value, st.Provider)
		}
		st.Model = model
		dropUnsupportedSize(st)
	case "aspect_ratio":
		if !slices.Contains(AspectRatios, value) {
			return fmt.Errorf("%w: aspect_ratio %q", ErrInvalidSetting, value)
		}
		st.AspectRatio = value
	case "image_size":
		if !models.SupportsImageSize(st.Model, value) {
			return fmt.Errorf("%w: image_size %q is not supported by %s", ErrInvalidSetting, value, st.Model)
		}
		st.ImageSize = value
	case "thinking_level":
		if !slices.Contains(ThinkingLevels, value) {
			return fmt.Errorf("%w: thinking_level %q", ErrInvalidSetting, value)
		}
		st.ThinkingLevel = value
	case "use_google_search", "use_avatars", "include_descriptions", "use_previous_image":
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s %q", ErrInvalidSetting, key, value)
		}
		switch key {
		case "use_google_search":
			st.UseGoogleSearch = b
		case "use_avatars":
			st.UseAvatars = b
		case "include_descriptions":
			st.IncludeDescriptions = b
		case "use_previous_image":
			st.UsePreviousImage = b
		}
	case "message_depth":
		st.MessageDepth = ParseMessageDepth(value)
	case "system_instruction":
		st.SystemInstruction = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}
	return nil
}

// ParseMessageDepth parses a depth, mapping non-numeric input to 1 and
// clamping the rest to 1..10.
func ParseMessageDepth(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return models.MinMessageDepth
	}
	return lo.Clamp(n, models.MinMessageDepth, models.MaxMessageDepth)
}

func dropUnsupportedSize(st *models.Settings) {
	if !models.SupportsImageSize(st.Model, st.ImageSize) {
		st.ImageSize = ""
	}
}

// Document returns the flat settings document, unknown keys included.
func (s *settingsService) Document() map[string]any {
	s.mu.Lock()
	settings := s.settings.Clone()
	doc := make(map[string]any, len(s.extra)+len(knownKeys()))
	for k, v := range s.extra {
		doc[k] = v
	}
	s.mu.Unlock()

	data, err := sonic.Marshal(settings)
	if err == nil {
		known := map[string]any{}
		if err := sonic.Unmarshal(data, &known); err == nil {
			for k, v := range known {
				doc[k] = v
			}
		}
	}
	return doc
}

func (s *settingsService) Flush(ctx context.Context) error {
	return s.save(ctx)
}

func (s *settingsService) scheduleSave() {
	s.debounced(func() {
		if err := s.save(context.Background()); err != nil {
			logrus.WithError(err).Warn("failed to persist settings")
		}
	})
}

func (s *settingsService) save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	data, err := sonic.MarshalString(s.Document())
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.repo.Save(ctx, s.name, data); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
