package models

// GalleryEntry is one past generation. Entries are never edited in place.
type GalleryEntry struct {
	ImageData string `json:"imageData"`
	Prompt    string `json:"prompt"`
	Timestamp int64  `json:"timestamp"`
	MessageID *int   `json:"messageId"`
}
