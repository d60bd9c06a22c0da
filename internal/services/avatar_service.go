package services

import (
	"context"
	"io"
	"net/http"

	"contextimage/internal/host"
	"contextimage/internal/logger"
	"contextimage/internal/models"
	"contextimage/internal/utils"
)

// AvatarService fetches avatar images for use as reference parts. Failures
// are logged and reported as ok == false, never as errors.
type AvatarService interface {
	Fetch(ctx context.Context, url string) (models.AvatarDescriptor, bool)
	UserAvatar(ctx context.Context) (models.AvatarDescriptor, bool)
	CharacterAvatar(ctx context.Context) (models.AvatarDescriptor, bool)
}

type avatarService struct {
	locator    host.AvatarLocator
	chat       host.ChatState
	headers    host.HeaderSource
	httpClient *http.Client
}

func NewAvatarService(locator host.AvatarLocator, chat host.ChatState, headers host.HeaderSource, httpClient *http.Client) AvatarService {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &avatarService{locator: locator, chat: chat, headers: headers, httpClient: httpClient}
}

func (s *avatarService) Fetch(ctx context.Context, url string) (models.AvatarDescriptor, bool) {
	log := logger.FromContext(ctx).WithField("url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.WithError(err).Warn("error fetching avatar")
		return models.AvatarDescriptor{}, false
	}
	if s.headers != nil {
		if cookie := s.headers.RequestHeaders().Get("Cookie"); cookie != "" {
			req.Header.Set("Cookie", cookie)
		}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("error fetching avatar")
		return models.AvatarDescriptor{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status", resp.StatusCode).Warn("avatar fetch returned non-success status")
		return models.AvatarDescriptor{}, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.WithError(err).Warn("error reading avatar")
		return models.AvatarDescriptor{}, false
	}

	mime, data := utils.SplitDataURL(utils.ToDataURL(resp.Header.Get("Content-Type"), body))
	return models.AvatarDescriptor{MIMEType: mime, Data: data}, true
}

func (s *avatarService) UserAvatar(ctx context.Context) (models.AvatarDescriptor, bool) {
	if s.locator == nil {
		return models.AvatarDescriptor{}, false
	}
	url, ok := s.locator.UserAvatarURL()
	if !ok || url == "" {
		return models.AvatarDescriptor{}, false
	}
	desc, ok := s.Fetch(ctx, url)
	if !ok {
		return desc, false
	}
	desc.Role = models.AvatarRoleUser
	desc.Name = host.DefaultUserName
	if s.chat != nil {
		desc.Name = host.NameOr(s.chat.UserName(), host.DefaultUserName)
	}
	return desc, true
}

func (s *avatarService) CharacterAvatar(ctx context.Context) (models.AvatarDescriptor, bool) {
	if s.locator == nil {
		return models.AvatarDescriptor{}, false
	}
	url, ok := s.locator.CharacterAvatarURL()
	if !ok || url == "" {
		return models.AvatarDescriptor{}, false
	}
	desc, ok := s.Fetch(ctx, url)
	if !ok {
		return desc, false
	}
	desc.Role = models.AvatarRoleCharacter
	desc.Name = host.DefaultCharacterName
	if s.chat != nil {
		desc.Name = host.NameOr(s.chat.CharacterName(), host.DefaultCharacterName)
	}
	return desc, true
}
