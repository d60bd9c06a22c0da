package filehost

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"contextimage/internal/host"
	"contextimage/internal/models"
)

const chatFixture = `{"user_name":"Ann","character_name":"Bob","create_date":"2025-01-01","chat_metadata":{"note":"x"}}
{"name":"Bob","is_user":false,"is_system":false,"mes":"Welcome in.","send_date":"2025-01-01","swipes":["Welcome in.","Hi."]}
{"name":"Ann","is_user":true,"mes":"Hello there.","extra":{"bias":"b"}}

{"name":"System","is_user":false,"is_system":true,"mes":"typing"}
`

const cardV2 = `{"spec":"chara_card_v2","name":"old","avatar":"bob.png","data":{"name":"Bob","description":"A grumpy wizard.","scenario":"A rainy tavern."}}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecret(name string) (string, error) { return f[name], nil }

func TestOpen_ReadsChatAndCard(t *testing.T) {
	dir := t.TempDir()
	h, err := Open(Options{
		ChatFile:      writeFile(t, dir, "chat.jsonl", chatFixture),
		CharacterFile: writeFile(t, dir, "Bob.json", cardV2),
	})
	require.NoError(t, err)

	msgs := h.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Welcome in.", msgs[0].Mes)
	assert.True(t, msgs[1].IsUser)
	assert.Equal(t, "b", msgs[1].Extra["bias"])
	assert.True(t, msgs[2].IsSystem)

	assert.Equal(t, "Ann", h.UserName())
	assert.Equal(t, "Bob", h.CharacterName())

	character, ok := h.Character()
	require.True(t, ok)
	assert.Equal(t, models.Character{Name: "Bob", Avatar: "bob.png", Description: "A grumpy wizard.", Scenario: "A rainy tavern."}, character)
}

func TestOpen_MissingChatIsEmpty(t *testing.T) {
	h, err := Open(Options{ChatFile: filepath.Join(t.TempDir(), "nope.jsonl")})
	require.NoError(t, err)
	assert.Empty(t, h.Messages())
	_, ok := h.Character()
	assert.False(t, ok)
	assert.Equal(t, "", h.UserName())
}

func TestOpen_InvalidChatLine(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(Options{ChatFile: writeFile(t, dir, "chat.jsonl", "{not json}\n")})
	assert.Error(t, err)
}

func TestOpen_ChatWithoutHeader(t *testing.T) {
	dir := t.TempDir()
	h, err := Open(Options{ChatFile: writeFile(t, dir, "chat.jsonl", `{"name":"Bob","mes":"first"}`+"\n")})
	require.NoError(t, err)
	require.Len(t, h.Messages(), 1)
	assert.Equal(t, "first", h.Messages()[0].Mes)
}

func TestLoadCharacter_V1AndDefaultAvatar(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Seraphina.json", `{"name":"Seraphina","description":"A guardian.","scenario":"","avatar":"none"}`)

	character, err := loadCharacter(path)
	require.NoError(t, err)
	assert.Equal(t, "Seraphina", character.Name)
	assert.Equal(t, "A guardian.", character.Description)
	assert.Equal(t, "Seraphina.png", character.Avatar)

	_, err = loadCharacter(writeFile(t, dir, "bad.json", "nope"))
	assert.Error(t, err)
}

func TestSaveChat_PreservesUnknownFields(t *testing.T) {
	dir := t.TempDir()
	chatPath := writeFile(t, dir, "chat.jsonl", chatFixture)
	h, err := Open(Options{ChatFile: chatPath})
	require.NoError(t, err)

	require.NoError(t, h.UpdateMessage(0, func(msg *models.ChatMessage) {
		msg.Extra = map[string]any{"inline_image": true}
	}))
	require.NoError(t, h.SaveChat(context.Background()))

	data, err := os.ReadFile(chatPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, "Ann", gjson.Get(lines[0], "user_name").String())
	assert.Equal(t, "x", gjson.Get(lines[0], "chat_metadata.note").String())
	assert.Equal(t, "2025-01-01", gjson.Get(lines[1], "send_date").String())
	assert.Equal(t, int64(2), gjson.Get(lines[1], "swipes.#").Int())
	assert.True(t, gjson.Get(lines[1], "extra.inline_image").Bool())
	assert.Equal(t, "b", gjson.Get(lines[2], "extra.bias").String())

	reopened, err := Open(Options{ChatFile: chatPath})
	require.NoError(t, err)
	assert.Equal(t, h.Messages(), reopened.Messages())
}

func TestMessage_ReturnsCopy(t *testing.T) {
	dir := t.TempDir()
	h, err := Open(Options{ChatFile: writeFile(t, dir, "chat.jsonl", chatFixture)})
	require.NoError(t, err)

	msg, ok := h.Message(1)
	require.True(t, ok)
	msg.Extra["bias"] = "changed"

	again, _ := h.Message(1)
	assert.Equal(t, "b", again.Extra["bias"])

	_, ok = h.Message(7)
	assert.False(t, ok)
	err = h.UpdateMessage(7, func(*models.ChatMessage) {})
	assert.ErrorIs(t, err, host.ErrMessageNotFound)
}

func TestUpdateMessage_ConcurrentWithSaveChat(t *testing.T) {
	dir := t.TempDir()
	chatPath := writeFile(t, dir, "chat.jsonl", chatFixture)
	h, err := Open(Options{ChatFile: chatPath})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				key := fmt.Sprintf("k%d_%d", g, i)
				assert.NoError(t, h.UpdateMessage(g%2, func(msg *models.ChatMessage) {
					if msg.Extra == nil {
						msg.Extra = map[string]any{}
					}
					msg.Extra[key] = i
				}))
				assert.NoError(t, h.SaveChat(context.Background()))
			}
		}(g)
	}
	wg.Wait()

	reopened, err := Open(Options{ChatFile: chatPath})
	require.NoError(t, err)
	msgs := reopened.Messages()
	// message 1 carries its original "bias" key too
	assert.Len(t, msgs[0].Extra, 50)
	assert.Len(t, msgs[1].Extra, 51)
}

func TestSaveChat_NoFile(t *testing.T) {
	h, err := Open(Options{})
	require.NoError(t, err)
	assert.Error(t, h.SaveChat(context.Background()))
}

func TestAvatarURLs(t *testing.T) {
	dir := t.TempDir()
	h, err := Open(Options{
		BaseURL:       "http://127.0.0.1:8000/",
		UserAvatar:    "my avatar.png",
		CharacterFile: writeFile(t, dir, "Bob.json", cardV2),
	})
	require.NoError(t, err)

	url, ok := h.UserAvatarURL()
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:8000/User%20Avatars/my%20avatar.png", url)

	url, ok = h.CharacterAvatarURL()
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:8000/characters/bob.png", url)

	bare, err := Open(Options{BaseURL: "http://127.0.0.1:8000"})
	require.NoError(t, err)
	_, ok = bare.UserAvatarURL()
	assert.False(t, ok)
	_, ok = bare.CharacterAvatarURL()
	assert.False(t, ok)
}

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	h, err := Open(Options{ImagesDir: dir})
	require.NoError(t, err)

	payload := []byte{0x89, 'P', 'N', 'G'}
	path, err := h.SaveImage(context.Background(), base64.StdEncoding.EncodeToString(payload), "context-image-generation", "cig_1", "png")
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(filepath.Join(dir, "context-image-generation", "cig_1.png")), path)

	written, err := os.ReadFile(filepath.FromSlash(path))
	require.NoError(t, err)
	assert.Equal(t, payload, written)

	second, err := h.SaveImage(context.Background(), base64.StdEncoding.EncodeToString(payload), "context-image-generation", "cig_2", "png")
	require.NoError(t, err)
	assert.FileExists(t, filepath.FromSlash(second))

	_, err = h.SaveImage(context.Background(), "!!!", "x", "y", "png")
	assert.Error(t, err)
}

func TestSaveImage_ImagesDirIsAFile(t *testing.T) {
	file := writeFile(t, t.TempDir(), "images", "not a dir")
	h, err := Open(Options{ImagesDir: file})
	require.NoError(t, err)

	_, err = h.SaveImage(context.Background(), base64.StdEncoding.EncodeToString([]byte("x")), "context-image-generation", "cig_1", "png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create image dir")
}

func TestRequestHeadersAndCredentials(t *testing.T) {
	h, err := Open(Options{
		CSRFToken:           "tok",
		Cookie:              "session=1",
		ReverseProxy:        "https://proxy",
		ProxyPasswordSecret: "proxy_password",
		Secrets:             fakeSecrets{"proxy_password": "pw"},
	})
	require.NoError(t, err)

	headers := h.RequestHeaders()
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "tok", headers.Get("X-CSRF-Token"))
	assert.Equal(t, "session=1", headers.Get("Cookie"))

	creds := h.ProxyCredentials(context.Background())
	assert.Equal(t, models.ProxyCredentials{ReverseProxy: "https://proxy", ProxyPassword: "pw"}, creds)

	plain, err := Open(Options{})
	require.NoError(t, err)
	assert.Empty(t, plain.RequestHeaders().Get("X-CSRF-Token"))
	assert.Equal(t, models.ProxyCredentials{}, plain.ProxyCredentials(context.Background()))
}
