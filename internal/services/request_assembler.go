package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"contextimage/internal/logger"
	"contextimage/internal/models"
	"contextimage/internal/utils"
)

const (
	storyContextHeader   = "[Story Context - Generate an image for the final message]:"
	previousImageLabel   = "[Reference: Previously generated image for style consistency]"
	characterAvatarLabel = "[Reference image for {{char}}]"
	userAvatarLabel      = "[Reference image for {{user}}]"
	userPlaceholder      = "{{user}}"
	characterPlaceholder = "{{char}}"
	descriptionSeparator = "\n\n"
	currentScenarioLabel = "Current Scenario"
)

// RequestAssembler builds the ordered content sequence for one generation:
// system instruction, descriptions, story context or prompt, previous image
// reference, then character and user avatars.
type RequestAssembler interface {
	BuildMessages(ctx context.Context, settings models.Settings, prompt string, sender *string, messageID *int) []models.Message
}

type requestAssembler struct {
	context ContextService
	avatars AvatarService
}

func NewRequestAssembler(contextSvc ContextService, avatars AvatarService) RequestAssembler {
	return &requestAssembler{context: contextSvc, avatars: avatars}
}

func (a *requestAssembler) BuildMessages(ctx context.Context, settings models.Settings, prompt string, sender *string, messageID *int) []models.Message {
	log := logger.FromContext(ctx)
	parts := make([]models.ContentPart, 0, 8)

	if settings.SystemInstruction != "" {
		parts = append(parts, models.TextPart(settings.SystemInstruction))
	}

	if settings.IncludeDescriptions {
		if text := DescriptionsBlock(a.context.CharacterDescriptions()); text != "" {
			parts = append(parts, models.TextPart(text))
		}
	}

	parts = append(parts, models.TextPart(a.primaryContent(settings, prompt, sender, messageID)))

	if settings.UsePreviousImage && len(settings.Gallery) > 0 {
		log.Debug("adding previous generated image as reference")
		parts = append(parts,
			models.TextPart(previousImageLabel),
			models.ImagePart(utils.DefaultImageMIME, settings.Gallery[0].ImageData),
		)
	}

	if settings.UseAvatars && a.avatars != nil {
		userAvatar, hasUser := a.avatars.UserAvatar(ctx)
		charAvatar, hasChar := a.avatars.CharacterAvatar(ctx)

		if hasChar {
			log.WithField("name", charAvatar.Name).Debug("adding character avatar")
			parts = append(parts,
				models.TextPart(characterAvatarLabel),
				models.ImagePart(charAvatar.MIMEType, charAvatar.Data),
			)
		}
		if hasUser {
			log.WithField("name", userAvatar.Name).Debug("adding user avatar")
			parts = append(parts,
				models.TextPart(userAvatarLabel),
				models.ImagePart(userAvatar.MIMEType, userAvatar.Data),
			)
		}
	}

	log.WithFields(logrus.Fields{"parts": len(parts)}).Debug("assembled request")
	return []models.Message{{Role: "user", Content: parts}}
}

// primaryContent picks story context, a sender-labelled line or the bare
// prompt. Without a message id or sender there is no history lookup.
func (a *requestAssembler) primaryContent(settings models.Settings, prompt string, sender *string, messageID *int) string {
	if messageID == nil && sender == nil {
		return prompt
	}

	recent := a.context.RecentMessages(settings.Depth(), messageID)
	if len(recent) > 0 {
		return StoryContext(recent)
	}
	if sender != nil && *sender != "" {
		return fmt.Sprintf("[Message from %s]: %s", *sender, prompt)
	}
	return prompt
}

// DescriptionsBlock renders the persona, character description and scenario
// lines that are non-empty.
func DescriptionsBlock(d models.CharacterDescriptions) string {
	var b strings.Builder
	if d.UserPersona != "" {
		fmt.Fprintf(&b, "[%s (User) Description]: %s%s", d.UserName, d.UserPersona, descriptionSeparator)
	}
	if d.CharDescription != "" {
		fmt.Fprintf(&b, "[%s (Character) Description]: %s%s", d.CharName, d.CharDescription, descriptionSeparator)
	}
	if d.CharScenario != "" {
		fmt.Fprintf(&b, "[%s]: %s%s", currentScenarioLabel, d.CharScenario, descriptionSeparator)
	}
	return strings.TrimSpace(b.String())
}

// StoryContext renders recent messages as a labelled transcript.
func StoryContext(msgs []models.ChatMessageSnapshot) string {
	var b strings.Builder
	b.WriteString(storyContextHeader)
	b.WriteString(descriptionSeparator)
	for _, msg := range msgs {
		tag := characterPlaceholder
		if msg.IsUser {
			tag = userPlaceholder
		}
		fmt.Fprintf(&b, "[%s (%s)]: %s%s", tag, msg.Name, msg.Text, descriptionSeparator)
	}
	return strings.TrimSpace(b.String())
}

// SenderLabel formats the sender tag used for fallback prompt lines.
func SenderLabel(isUser bool, name string) string {
	if isUser {
		return fmt.Sprintf("%s (%s)", userPlaceholder, name)
	}
	return fmt.Sprintf("%s (%s)", characterPlaceholder, name)
}
