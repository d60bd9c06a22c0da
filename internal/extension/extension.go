// Package extension is the integration surface the host calls into:
// lifecycle hooks and the three ways of starting a generation.
package extension

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"contextimage/internal/events"
	"contextimage/internal/host"
	"contextimage/internal/llm/client"
	"contextimage/internal/logger"
	"contextimage/internal/models"
	"contextimage/internal/services"
)

const (
	CommandName = "proimagine"
	ImageExt    = "png"
)

var CommandAliases = []string{"proimg", "geminiimg"}

var (
	ErrBusy            = errors.New("generation already in progress for this message")
	ErrMessageNotFound = host.ErrMessageNotFound
)

const msgNoMessageContent = "No message content to generate from."

type Extension struct {
	settings   services.SettingsService
	gallery    services.GalleryService
	context    services.ContextService
	generation services.GenerationService

	chat    host.ChatState
	media   host.MediaStore
	buttons host.ButtonInjector

	mu     sync.Mutex
	busy   map[int]bool
	saveMu sync.Mutex
	now    func() time.Time
}

// New wires the extension. buttons may be nil for hosts without a UI.
func New(svcs *services.Services, chat host.ChatState, media host.MediaStore, buttons host.ButtonInjector) *Extension {
	return &Extension{
		settings:   svcs.Settings,
		gallery:    svcs.Gallery,
		context:    svcs.Context,
		generation: svcs.Generation,
		chat:       chat,
		media:      media,
		buttons:    buttons,
		busy:       make(map[int]bool),
		now:        time.Now,
	}
}

// OnMessageRendered adds the generate control to a freshly rendered message.
func (e *Extension) OnMessageRendered(messageID int) {
	if e.buttons != nil {
		e.buttons.InjectMessageButton(messageID)
	}
}

// OnChatChanged drops busy state of the previous chat and re-adds controls.
func (e *Extension) OnChatChanged() {
	e.mu.Lock()
	e.busy = make(map[int]bool)
	e.mu.Unlock()

	if e.buttons != nil {
		e.buttons.InjectAllMessageButtons()
	}
}

func (e *Extension) IsBusy(messageID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy[messageID]
}

// GenerateLatest illustrates the most recent eligible message, using up to
// message_depth messages of story context.
func (e *Extension) GenerateLatest(ctx context.Context) (models.GenerationResult, error) {
	log := logger.FromContext(ctx)

	recent := e.context.RecentMessages(e.settings.Snapshot().Depth(), nil)
	if len(recent) == 0 {
		err := client.NewEmptyContextError()
		events.Emit(ctx, events.GenerationEvent, events.NewWarn(err.Error()))
		return models.GenerationResult{}, err
	}

	last := recent[len(recent)-1]
	sender := services.SenderLabel(last.IsUser, last.Name)

	result, err := e.generation.GenerateImageFromPrompt(ctx, last.Text, &sender, nil)
	if err != nil {
		log.WithError(err).Error("generation error")
		return models.GenerationResult{}, fmt.Errorf("failed to generate image: %w", err)
	}

	if _, err := e.gallery.Add(ctx, result.ImageData, last.Text, nil); err != nil {
		return models.GenerationResult{}, fmt.Errorf("add to gallery: %w", err)
	}
	return result, nil
}

// GenerateForMessage illustrates one message, saves the image, attaches it
// to the message, persists the chat and records it in the gallery. A
// repeated call for a message that is still generating returns ErrBusy.
func (e *Extension) GenerateForMessage(ctx context.Context, messageID int) (models.GenerationResult, string, error) {
	log := logger.FromContext(ctx).WithField("message_id", messageID)

	if !e.acquire(messageID) {
		log.Debug("already generating")
		return models.GenerationResult{}, "", ErrBusy
	}
	defer e.release(messageID)

	msg, ok := e.chat.Message(messageID)
	if !ok {
		log.Error("could not find message for generation")
		return models.GenerationResult{}, "", fmt.Errorf("%w: %d", ErrMessageNotFound, messageID)
	}

	prompt := msg.Mes
	if prompt == "" {
		err := &client.GenerationError{Kind: client.KindEmptyContext, Message: msgNoMessageContent}
		events.Emit(ctx, events.GenerationEvent, events.NewWarn(err.Error()))
		return models.GenerationResult{}, "", err
	}

	name := host.NameOr(e.chat.CharacterName(), host.DefaultCharacterName)
	if msg.IsUser {
		name = host.NameOr(e.chat.UserName(), host.DefaultUserName)
	}
	sender := services.SenderLabel(msg.IsUser, name)

	result, err := e.generation.GenerateImageFromPrompt(ctx, prompt, &sender, &messageID)
	if err != nil {
		log.WithError(err).Error("message generation error")
		return models.GenerationResult{}, "", fmt.Errorf("failed to generate: %w", err)
	}

	url, err := e.media.SaveImage(ctx, result.ImageData, services.ExtensionName, e.imageFileName(), ImageExt)
	if err != nil {
		return models.GenerationResult{}, "", fmt.Errorf("save image: %w", err)
	}
	log.WithField("path", url).Info("image saved")

	err = e.attachAndSave(ctx, messageID, models.MediaAttachment{
		URL:    url,
		Type:   models.MediaTypeImage,
		Title:  truncateRunes(prompt, models.MaxTitleLength),
		Source: models.MediaSourceGenerated,
	})
	if err != nil {
		return models.GenerationResult{}, "", err
	}

	if _, err := e.gallery.Add(ctx, result.ImageData, prompt, &messageID); err != nil {
		return models.GenerationResult{}, "", fmt.Errorf("add to gallery: %w", err)
	}
	return result, url, nil
}

// RunCommand is the prompt command: it returns the image as a data URL, or
// "" when the prompt is blank or generation fails.
func (e *Extension) RunCommand(ctx context.Context, prompt string) string {
	log := logger.FromContext(ctx).WithField("command", CommandName)

	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		events.Emit(ctx, events.GenerationEvent, events.NewWarn("Please provide a prompt for image generation."))
		return ""
	}

	result, err := e.generation.GenerateImageFromPrompt(ctx, trimmed, nil, nil)
	if err != nil {
		log.WithError(err).Error("command generation error")
		return ""
	}

	if _, err := e.gallery.Add(ctx, result.ImageData, trimmed, nil); err != nil {
		log.WithError(err).Error("add to gallery")
		return ""
	}
	return result.DataURL()
}

// ViewGalleryImage returns the gallery entry at index.
func (e *Extension) ViewGalleryImage(index int) (models.GalleryEntry, error) {
	return e.gallery.Get(index)
}

// attachAndSave appends att to the message and persists the chat. If the save
// fails the message's extra is put back. Calls are serialized so a restore
// never drops an attachment another generation added in between.
func (e *Extension) attachAndSave(ctx context.Context, messageID int, att models.MediaAttachment) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	var previous map[string]any
	err := e.chat.UpdateMessage(messageID, func(msg *models.ChatMessage) {
		previous = maps.Clone(msg.Extra)
		AttachMedia(msg, att)
	})
	if err != nil {
		return err
	}

	if err := e.chat.SaveChat(ctx); err != nil {
		if restoreErr := e.chat.UpdateMessage(messageID, func(msg *models.ChatMessage) {
			msg.Extra = previous
		}); restoreErr != nil {
			logger.FromContext(ctx).WithError(restoreErr).Warn("restore message extra")
		}
		return fmt.Errorf("save chat: %w", err)
	}
	return nil
}

// imageFileName is cig_<epoch ms>_<random>, unique across parallel generations.
func (e *Extension) imageFileName() string {
	return "cig_" + strconv.FormatInt(e.now().UnixMilli(), 10) + "_" + uuid.NewString()[:8]
}

func (e *Extension) acquire(messageID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy[messageID] {
		return false
	}
	e.busy[messageID] = true
	return true
}

func (e *Extension) release(messageID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.busy, messageID)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
