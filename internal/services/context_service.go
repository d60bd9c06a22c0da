package services

import (
	"github.com/samber/lo"

	"contextimage/internal/host"
	"contextimage/internal/models"
)

// ContextService reads story context out of the host chat state.
type ContextService interface {
	// RecentMessages scans backward from fromIndex (nil means the last
	// message), skipping system and empty messages, and returns up to depth
	// snapshots oldest first.
	RecentMessages(depth int, fromIndex *int) []models.ChatMessageSnapshot
	CharacterDescriptions() models.CharacterDescriptions
}

type contextService struct {
	chat host.ChatState
}

func NewContextService(chat host.ChatState) ContextService {
	return &contextService{chat: chat}
}

func (s *contextService) RecentMessages(depth int, fromIndex *int) []models.ChatMessageSnapshot {
	out := []models.ChatMessageSnapshot{}
	if s.chat == nil {
		return out
	}
	chat := s.chat.Messages()
	if len(chat) == 0 {
		return out
	}
	if depth < models.MinMessageDepth {
		depth = models.MinMessageDepth
	}

	start := len(chat) - 1
	if fromIndex != nil {
		if *fromIndex < 0 {
			return out
		}
		start = min(*fromIndex, len(chat)-1)
	}

	userName := host.NameOr(s.chat.UserName(), host.DefaultUserName)
	charName := host.NameOr(s.chat.CharacterName(), host.DefaultCharacterName)

	for i := start; i >= 0 && len(out) < depth; i-- {
		msg := chat[i]
		if msg.Mes == "" || msg.IsSystem {
			continue
		}
		out = append(out, models.ChatMessageSnapshot{
			Text:   msg.Mes,
			IsUser: msg.IsUser,
			Name:   lo.Ternary(msg.IsUser, userName, charName),
		})
	}

	return lo.Reverse(out)
}

func (s *contextService) CharacterDescriptions() models.CharacterDescriptions {
	desc := models.CharacterDescriptions{
		UserName: host.DefaultUserName,
		CharName: host.DefaultCharacterName,
	}
	if s.chat == nil {
		return desc
	}
	desc.UserName = host.NameOr(s.chat.UserName(), host.DefaultUserName)
	desc.CharName = host.NameOr(s.chat.CharacterName(), host.DefaultCharacterName)
	desc.UserPersona = s.chat.Persona()
	if character, ok := s.chat.Character(); ok {
		desc.CharDescription = character.Description
		desc.CharScenario = character.Scenario
	}
	return desc
}
