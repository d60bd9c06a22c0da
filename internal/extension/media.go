package extension

import "contextimage/internal/models"

// AttachMedia appends att to the message's extra.media list, points
// media_index at it and marks the message as showing an inline image.
func AttachMedia(msg *models.ChatMessage, att models.MediaAttachment) {
	if msg.Extra == nil {
		msg.Extra = map[string]any{}
	}

	var media []any
	switch existing := msg.Extra["media"].(type) {
	case []any:
		media = make([]any, 0, len(existing)+1)
		media = append(media, existing...)
	case []map[string]any:
		media = make([]any, 0, len(existing)+1)
		for _, m := range existing {
			media = append(media, m)
		}
	}
	media = append(media, map[string]any{
		"url":    att.URL,
		"type":   att.Type,
		"title":  att.Title,
		"source": att.Source,
	})
	msg.Extra["media"] = media

	if display, _ := msg.Extra["media_display"].(string); display == "" {
		msg.Extra["media_display"] = models.MediaDisplayGallery
	}
	msg.Extra["media_index"] = len(media) - 1
	msg.Extra["inline_image"] = true
}
