package models

const (
	MaxGallerySize    = 50
	MaxPromptLength   = 200
	MaxTitleLength    = 100
	MinMessageDepth   = 1
	MaxMessageDepth   = 10
	ThinkingLevelAuto = "auto"
)

// Settings is the extension's process-wide mutable state. Field names map
// 1:1 onto the keys of the persisted settings document.
type Settings struct {
	Provider            string         `json:"provider"`
	Model               string         `json:"model"`
	AspectRatio         string         `json:"aspect_ratio"`
	ImageSize           string         `json:"image_size"`
	ThinkingLevel       string         `json:"thinking_level"`
	UseGoogleSearch     bool           `json:"use_google_search"`
	UseAvatars          bool           `json:"use_avatars"`
	IncludeDescriptions bool           `json:"include_descriptions"`
	UsePreviousImage    bool           `json:"use_previous_image"`
	MessageDepth        int            `json:"message_depth"`
	SystemInstruction   string         `json:"system_instruction"`
	Gallery             []GalleryEntry `json:"gallery"`
}

// Clone returns a copy that shares no slice backing array with s.
func (s Settings) Clone() Settings {
	out := s
	out.Gallery = make([]GalleryEntry, len(s.Gallery))
	copy(out.Gallery, s.Gallery)
	return out
}

// Depth returns the configured message depth, treating unset as 1.
func (s Settings) Depth() int {
	if s.MessageDepth < MinMessageDepth {
		return MinMessageDepth
	}
	return s.MessageDepth
}
