package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"contextimage/internal/events"
	"contextimage/internal/models"
)

var ErrGalleryIndexOutOfRange = errors.New("gallery index out of range")

// GalleryService keeps the bounded, newest-first history of generations
// inside the settings document.
type GalleryService interface {
	Add(ctx context.Context, imageData, prompt string, messageID *int) (models.GalleryEntry, error)
	Delete(ctx context.Context, index int) error
	Clear(ctx context.Context) error
	Get(index int) (models.GalleryEntry, error)
	List() []models.GalleryEntry
	Latest() (models.GalleryEntry, bool)
}

type galleryService struct {
	settings SettingsService
	now      func() time.Time
}

func NewGalleryService(settings SettingsService) GalleryService {
	return &galleryService{settings: settings, now: time.Now}
}

func (s *galleryService) Add(ctx context.Context, imageData, prompt string, messageID *int) (models.GalleryEntry, error) {
	entry := models.GalleryEntry{
		ImageData: imageData,
		Prompt:    truncateRunes(prompt, models.MaxPromptLength),
		Timestamp: s.now().UnixMilli(),
	}
	if messageID != nil {
		id := *messageID
		entry.MessageID = &id
	}

	size := 0
	err := s.settings.Update(ctx, func(st *models.Settings) error {
		gallery := make([]models.GalleryEntry, 0, len(st.Gallery)+1)
		gallery = append(gallery, entry)
		gallery = append(gallery, st.Gallery...)
		if len(gallery) > models.MaxGallerySize {
			gallery = gallery[:models.MaxGallerySize]
		}
		st.Gallery = gallery
		size = len(gallery)
		return nil
	})
	if err != nil {
		return models.GalleryEntry{}, err
	}

	emitGallery(ctx, "image added to gallery", size)
	return entry, nil
}

func (s *galleryService) Delete(ctx context.Context, index int) error {
	size := 0
	err := s.settings.Update(ctx, func(st *models.Settings) error {
		if index < 0 || index >= len(st.Gallery) {
			return fmt.Errorf("%w: %d (size %d)", ErrGalleryIndexOutOfRange, index, len(st.Gallery))
		}
		st.Gallery = append(st.Gallery[:index:index], st.Gallery[index+1:]...)
		size = len(st.Gallery)
		return nil
	})
	if err != nil {
		return err
	}
	emitGallery(ctx, "image deleted from gallery", size)
	return nil
}

func (s *galleryService) Clear(ctx context.Context) error {
	if err := s.settings.Update(ctx, func(st *models.Settings) error {
		st.Gallery = []models.GalleryEntry{}
		return nil
	}); err != nil {
		return err
	}
	emitGallery(ctx, "Gallery cleared.", 0)
	return nil
}

func (s *galleryService) Get(index int) (models.GalleryEntry, error) {
	gallery := s.settings.Snapshot().Gallery
	if index < 0 || index >= len(gallery) {
		return models.GalleryEntry{}, fmt.Errorf("%w: %d (size %d)", ErrGalleryIndexOutOfRange, index, len(gallery))
	}
	return gallery[index], nil
}

func (s *galleryService) List() []models.GalleryEntry {
	return s.settings.Snapshot().Gallery
}

func (s *galleryService) Latest() (models.GalleryEntry, bool) {
	gallery := s.settings.Snapshot().Gallery
	if len(gallery) == 0 {
		return models.GalleryEntry{}, false
	}
	return gallery[0], true
}

func emitGallery(ctx context.Context, message string, size int) {
	events.Emit(ctx, events.GalleryEvent, events.NewInfo(message).WithMeta("size", strconv.Itoa(size)))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
