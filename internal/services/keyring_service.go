package services

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zalando/go-keyring"
)

const serviceName = "contextimage"

const (
	SecretProxyPassword = "proxy_password"
	SecretGeminiAPIKey  = "gemini_api_key"
)

// KnownSecrets lists the secret names the CLI manages.
var KnownSecrets = []string{SecretProxyPassword, SecretGeminiAPIKey}

type KeyringService struct {
}

func NewKeyringService() *KeyringService {
	return &KeyringService{}
}

func (s *KeyringService) StoreSecret(name string, value []byte) error {
	if len(value) == 0 {
		return errors.New("secret is empty")
	}
	if err := validateSecretName(name); err != nil {
		return err
	}
	return keyring.Set(serviceName, name, string(value))
}

// GetSecret returns "" without error when the secret is not stored.
func (s *KeyringService) GetSecret(name string) (string, error) {
	if err := validateSecretName(name); err != nil {
		return "", err
	}
	value, err := keyring.Get(serviceName, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return value, err
}

func (s *KeyringService) DeleteSecret(name string) error {
	if err := validateSecretName(name); err != nil {
		return err
	}
	err := keyring.Delete(serviceName, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// ListSecrets reports which known secrets are currently stored.
func (s *KeyringService) ListSecrets() ([]map[string]string, error) {
	var results []map[string]string
	for _, name := range KnownSecrets {
		if _, err := keyring.Get(serviceName, name); err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				continue
			}
			return nil, err
		}
		results = append(results, map[string]string{
			"name":        name,
			"description": secretDescription(name),
		})
	}
	return results, nil
}

func validateSecretName(name string) error {
	if name == "" {
		return errors.New("secret name is required")
	}
	if !slices.Contains(KnownSecrets, name) {
		return fmt.Errorf("unknown secret %q", name)
	}
	return nil
}

func secretDescription(name string) string {
	switch name {
	case SecretProxyPassword:
		return "Reverse proxy password sent with chat-completion requests"
	case SecretGeminiAPIKey:
		return "Gemini API key used in direct backend mode"
	}
	return name
}
