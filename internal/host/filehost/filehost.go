// Package filehost is a host backed by a SillyTavern data directory: a JSONL
// chat log, a character card and the server's avatar endpoints.
package filehost

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"

	"contextimage/internal/host"
	"contextimage/internal/models"
	"contextimage/internal/utils"
)

var jsonAPI = sonic.Config{UseNumber: true}.Froze()

// SecretSource reads a named secret, returning "" when it is not set.
type SecretSource interface {
	GetSecret(name string) (string, error)
}

type Options struct {
	ChatFile      string
	CharacterFile string
	BaseURL       string
	UserName      string
	UserAvatar    string
	Persona       string
	ImagesDir     string
	CSRFToken     string
	Cookie        string
	ReverseProxy  string
	// ProxyPasswordSecret names the secret holding the proxy password.
	ProxyPasswordSecret string
	Secrets             SecretSource
}

type FileHost struct {
	opts Options

	mu        sync.Mutex
	header    map[string]any
	raw       []map[string]any
	messages  []models.ChatMessage
	character *models.Character
}

// Open reads the chat log and character card named in opts. Either may be
// empty, which yields an empty chat or no selected character.
func Open(opts Options) (*FileHost, error) {
	h := &FileHost{opts: opts}
	if opts.ChatFile != "" {
		if err := h.loadChat(opts.ChatFile); err != nil {
			return nil, err
		}
	}
	if opts.CharacterFile != "" {
		character, err := loadCharacter(opts.CharacterFile)
		if err != nil {
			return nil, err
		}
		h.character = character
	}
	return h, nil
}

func (h *FileHost) loadChat(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open chat: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	first := true
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		raw := map[string]any{}
		if err := jsonAPI.Unmarshal(line, &raw); err != nil {
			return fmt.Errorf("decode chat line: %w", err)
		}
		if first {
			first = false
			if isHeader(raw) {
				h.header = raw
				continue
			}
		}
		var msg models.ChatMessage
		if err := jsonAPI.Unmarshal(line, &msg); err != nil {
			return fmt.Errorf("decode chat message: %w", err)
		}
		h.raw = append(h.raw, raw)
		h.messages = append(h.messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read chat: %w", err)
	}
	return nil
}

// isHeader reports whether the first line is chat metadata, not a message.
func isHeader(raw map[string]any) bool {
	if _, ok := raw["mes"]; ok {
		return false
	}
	_, hasUser := raw["user_name"]
	_, hasMeta := raw["chat_metadata"]
	return hasUser || hasMeta
}

func loadCharacter(path string) (*models.Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read character: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("character card %s is not valid JSON", path)
	}
	card := gjson.ParseBytes(data)
	field := func(name string) string {
		if v := card.Get("data." + name); v.Exists() && v.String() != "" {
			return v.String()
		}
		return card.Get(name).String()
	}

	character := &models.Character{
		Name:        field("name"),
		Description: field("description"),
		Scenario:    field("scenario"),
		Avatar:      card.Get("avatar").String(),
	}
	if character.Avatar == "" || character.Avatar == "none" {
		base := filepath.Base(path)
		character.Avatar = strings.TrimSuffix(base, filepath.Ext(base)) + ".png"
	}
	return character, nil
}

func (h *FileHost) Messages() []models.ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.ChatMessage, len(h.messages))
	for i, msg := range h.messages {
		out[i] = msg.Clone()
	}
	return out
}

func (h *FileHost) Message(id int) (models.ChatMessage, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id < 0 || id >= len(h.messages) {
		return models.ChatMessage{}, false
	}
	return h.messages[id].Clone(), true
}

// UpdateMessage applies fn to message id under the chat lock, so it never
// overlaps a SaveChat encoding the log.
func (h *FileHost) UpdateMessage(id int, fn func(msg *models.ChatMessage)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id < 0 || id >= len(h.messages) {
		return fmt.Errorf("%w: %d", host.ErrMessageNotFound, id)
	}
	fn(&h.messages[id])
	return nil
}

func (h *FileHost) Character() (models.Character, bool) {
	if h.character == nil {
		return models.Character{}, false
	}
	return *h.character, true
}

func (h *FileHost) UserName() string {
	if h.opts.UserName != "" {
		return h.opts.UserName
	}
	name, _ := h.header["user_name"].(string)
	return name
}

func (h *FileHost) CharacterName() string {
	if h.character != nil && h.character.Name != "" {
		return h.character.Name
	}
	name, _ := h.header["character_name"].(string)
	return name
}

func (h *FileHost) Persona() string {
	return h.opts.Persona
}

// SaveChat rewrites the chat log atomically. Fields the extension does not
// know about are written back unchanged.
func (h *FileHost) SaveChat(ctx context.Context) error {
	if h.opts.ChatFile == "" {
		return errors.New("no chat file configured")
	}

	h.mu.Lock()
	var buf bytes.Buffer
	if h.header != nil {
		line, err := jsonAPI.Marshal(h.header)
		if err != nil {
			h.mu.Unlock()
			return fmt.Errorf("encode chat header: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	for i, msg := range h.messages {
		record := map[string]any{}
		for k, v := range h.raw[i] {
			record[k] = v
		}
		record["name"] = msg.Name
		record["is_user"] = msg.IsUser
		record["is_system"] = msg.IsSystem
		record["mes"] = msg.Mes
		if msg.Extra != nil {
			record["extra"] = msg.Extra
		}
		line, err := jsonAPI.Marshal(record)
		if err != nil {
			h.mu.Unlock()
			return fmt.Errorf("encode chat message %d: %w", i, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	h.mu.Unlock()

	return utils.WriteFileAtomic(h.opts.ChatFile, buf.Bytes(), 0o644)
}

func (h *FileHost) UserAvatarURL() (string, bool) {
	if h.opts.BaseURL == "" || h.opts.UserAvatar == "" {
		return "", false
	}
	return h.endpoint("User Avatars", h.opts.UserAvatar), true
}

func (h *FileHost) CharacterAvatarURL() (string, bool) {
	if h.opts.BaseURL == "" || h.character == nil || h.character.Avatar == "" {
		return "", false
	}
	return h.endpoint("characters", h.character.Avatar), true
}

func (h *FileHost) endpoint(dir, file string) string {
	return strings.TrimRight(h.opts.BaseURL, "/") + "/" + url.PathEscape(dir) + "/" + url.PathEscape(file)
}

// SaveImage writes the decoded image under <ImagesDir>/<folder>/ and returns
// the path it was written to.
func (h *FileHost) SaveImage(ctx context.Context, base64Data, folder, fileName, ext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(base64Data)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	dir := filepath.Join(h.opts.ImagesDir, folder)
	if !utils.DirectoryExists(dir) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create image dir: %w", err)
		}
	}
	path := filepath.Join(dir, fileName+"."+strings.TrimPrefix(ext, "."))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return filepath.ToSlash(path), nil
}

func (h *FileHost) RequestHeaders() http.Header {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	if h.opts.CSRFToken != "" {
		headers.Set("X-CSRF-Token", h.opts.CSRFToken)
	}
	if h.opts.Cookie != "" {
		headers.Set("Cookie", h.opts.Cookie)
	}
	return headers
}

func (h *FileHost) ProxyCredentials(ctx context.Context) models.ProxyCredentials {
	creds := models.ProxyCredentials{ReverseProxy: h.opts.ReverseProxy}
	if h.opts.Secrets != nil && h.opts.ProxyPasswordSecret != "" {
		if pw, err := h.opts.Secrets.GetSecret(h.opts.ProxyPasswordSecret); err == nil {
			creds.ProxyPassword = pw
		}
	}
	return creds
}

var (
	_ host.ChatState        = (*FileHost)(nil)
	_ host.AvatarLocator    = (*FileHost)(nil)
	_ host.MediaStore       = (*FileHost)(nil)
	_ host.HeaderSource     = (*FileHost)(nil)
	_ host.CredentialSource = (*FileHost)(nil)
)
