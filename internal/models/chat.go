package models

import "maps"

// ChatMessage is the host's view of one chat log entry.
type ChatMessage struct {
	Name     string         `json:"name"`
	IsUser   bool           `json:"is_user"`
	IsSystem bool           `json:"is_system"`
	Mes      string         `json:"mes"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Clone copies the message with its own top-level Extra map. Nested values
// are shared and must be replaced, not edited in place.
func (m ChatMessage) Clone() ChatMessage {
	m.Extra = maps.Clone(m.Extra)
	return m
}

// Character is the currently selected character record.
type Character struct {
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	Description string `json:"description"`
	Scenario    string `json:"scenario"`
}

// ChatMessageSnapshot is a read-only projection used for story context.
type ChatMessageSnapshot struct {
	Text   string
	IsUser bool
	Name   string
}

// CharacterDescriptions never holds nil-like values; missing fields are "".
type CharacterDescriptions struct {
	UserName        string
	UserPersona     string
	CharName        string
	CharDescription string
	CharScenario    string
}

const (
	MediaTypeImage       = "image"
	MediaSourceGenerated = "generated"
	MediaDisplayGallery  = "gallery"
)

// MediaAttachment is appended to a message's extra.media list.
type MediaAttachment struct {
	URL    string `json:"url"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Source string `json:"source"`
}
