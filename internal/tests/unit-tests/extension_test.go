package unit_tests

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contextimage/internal/extension"
	"contextimage/internal/host/filehost"
	"contextimage/internal/llm/client"
	"contextimage/internal/models"
	"contextimage/internal/services"
	"contextimage/internal/tests/mocks"
)

func newExtension(t *testing.T, chat *mocks.ChatStateMock, gen *mocks.GeneratorMock, media *mocks.MediaStoreMock, buttons *mocks.ButtonInjectorMock) (*extension.Extension, *testEnv) {
	t.Helper()
	env := newTestEnv(t, chat, gen)
	if media == nil {
		media = &mocks.MediaStoreMock{}
	}
	if buttons == nil {
		return extension.New(env.svcs, env.chat, media, nil), env
	}
	return extension.New(env.svcs, env.chat, media, buttons), env
}

func TestExtension_GenerateForMessage_AttachesImage(t *testing.T) {
	var savedFolder, savedExt string
	media := &mocks.MediaStoreMock{
		SaveImageFunc: func(ctx context.Context, base64Data, folder, fileName, ext string) (string, error) {
			savedFolder, savedExt = folder, ext
			assert.True(t, strings.HasPrefix(fileName, "cig_"))
			assert.Equal(t, mocks.PixelPNG, base64Data)
			return "user/images/" + folder + "/" + fileName + "." + ext, nil
		},
	}
	ext, env := newExtension(t, sampleChat(), nil, media, nil)

	result, url, err := ext.GenerateForMessage(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, mocks.PixelPNG, result.ImageData)
	assert.Equal(t, services.ExtensionName, savedFolder)
	assert.Equal(t, "png", savedExt)
	assert.Equal(t, 1, env.chat.SaveCalls())

	msg, ok := env.chat.Message(1)
	require.True(t, ok)
	media0 := msg.Extra["media"].([]any)
	require.Len(t, media0, 1)
	attachment := media0[0].(map[string]any)
	assert.Equal(t, url, attachment["url"])
	assert.Equal(t, "image", attachment["type"])
	assert.Equal(t, "generated", attachment["source"])
	assert.Equal(t, "Hello there.", attachment["title"])
	assert.Equal(t, "gallery", msg.Extra["media_display"])
	assert.Equal(t, 0, msg.Extra["media_index"])
	assert.Equal(t, true, msg.Extra["inline_image"])

	gallery := env.svcs.Gallery.List()
	require.Len(t, gallery, 1)
	require.NotNil(t, gallery[0].MessageID)
	assert.Equal(t, 1, *gallery[0].MessageID)
	assert.Equal(t, "Hello there.", gallery[0].Prompt)

	reqs := env.generator.Requests()
	require.Len(t, reqs, 1)
	assert.False(t, ext.IsBusy(1))
}

func TestExtension_GenerateForMessage_UniqueFileNames(t *testing.T) {
	var mu sync.Mutex
	names := map[string]bool{}
	media := &mocks.MediaStoreMock{
		SaveImageFunc: func(ctx context.Context, base64Data, folder, fileName, ext string) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			names[fileName] = true
			return folder + "/" + fileName + "." + ext, nil
		},
	}
	ext, _ := newExtension(t, sampleChat(), nil, media, nil)

	for _, id := range []int{0, 1, 4, 0, 1, 4} {
		_, _, err := ext.GenerateForMessage(context.Background(), id)
		require.NoError(t, err)
	}
	assert.Len(t, names, 6)
}

func TestExtension_GenerateForMessage_ParallelOnFileHost(t *testing.T) {
	dir := t.TempDir()
	chatPath := filepath.Join(dir, "chat.jsonl")
	require.NoError(t, os.WriteFile(chatPath, []byte(`{"user_name":"Ann","character_name":"Bob"}
{"name":"Bob","is_user":false,"mes":"Welcome in."}
{"name":"Ann","is_user":true,"mes":"Hello there."}
{"name":"Bob","is_user":false,"mes":"Sit by the fire."}
{"name":"Ann","is_user":true,"mes":"Thanks."}
`), 0o644))
	imagesDir := filepath.Join(dir, "images")

	fh, err := filehost.Open(filehost.Options{ChatFile: chatPath, ImagesDir: imagesDir})
	require.NoError(t, err)
	svcs := newServices(t, &mocks.ExtensionSettingsRepositoryMock{}, fh, &mocks.GeneratorMock{})
	ext := extension.New(svcs, fh, fh, nil)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded = map[int]int{}
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for round := 0; round < 5; round++ {
				id := (g + round) % 4
				_, _, err := ext.GenerateForMessage(context.Background(), id)
				if errors.Is(err, extension.ErrBusy) {
					continue
				}
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				succeeded[id]++
				mu.Unlock()
			}
		}(g)
	}
	wg.Wait()

	total := 0
	for _, n := range succeeded {
		total += n
	}
	require.Positive(t, total)

	files, err := os.ReadDir(filepath.Join(imagesDir, services.ExtensionName))
	require.NoError(t, err)
	assert.Len(t, files, total)
	assert.Len(t, svcs.Gallery.List(), total)

	reopened, err := filehost.Open(filehost.Options{ChatFile: chatPath})
	require.NoError(t, err)
	for id, msg := range reopened.Messages() {
		media, _ := msg.Extra["media"].([]any)
		assert.Len(t, media, succeeded[id], "message %d", id)
	}
}

func TestExtension_GenerateForMessage_Busy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gen := &mocks.GeneratorMock{
		GenerateFunc: func(ctx context.Context, req client.Request) (models.GenerationResult, error) {
			close(started)
			<-release
			return models.GenerationResult{ImageData: mocks.PixelPNG, MIMEType: "image/png"}, nil
		},
	}
	ext, env := newExtension(t, sampleChat(), gen, nil, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, _, firstErr = ext.GenerateForMessage(context.Background(), 0)
	}()

	<-started
	assert.True(t, ext.IsBusy(0))
	_, _, err := ext.GenerateForMessage(context.Background(), 0)
	assert.ErrorIs(t, err, extension.ErrBusy)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.False(t, ext.IsBusy(0))
	assert.Len(t, env.generator.Requests(), 1)
}

func TestExtension_GenerateForMessage_EmptyMessage(t *testing.T) {
	ext, env := newExtension(t, sampleChat(), nil, nil, nil)

	_, _, err := ext.GenerateForMessage(context.Background(), 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrEmptyContext)
	assert.Equal(t, "No message content to generate from.", err.Error())
	assert.Empty(t, env.generator.Requests())
}

func TestExtension_GenerateForMessage_NotFound(t *testing.T) {
	ext, _ := newExtension(t, sampleChat(), nil, nil, nil)
	_, _, err := ext.GenerateForMessage(context.Background(), 42)
	assert.ErrorIs(t, err, extension.ErrMessageNotFound)
}

func TestExtension_GenerateForMessage_SaveChatFailureRestoresExtra(t *testing.T) {
	chat := sampleChat()
	chat.Chat[0].Extra = map[string]any{"bias": "x"}
	chat.SaveChatFunc = func(ctx context.Context) error { return errors.New("read-only") }
	ext, env := newExtension(t, chat, nil, nil, nil)

	_, _, err := ext.GenerateForMessage(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")

	msg, _ := env.chat.Message(0)
	assert.Equal(t, map[string]any{"bias": "x"}, msg.Extra)
	assert.Empty(t, env.svcs.Gallery.List())
}

func TestExtension_GenerateForMessage_GenerationFailure(t *testing.T) {
	gen := &mocks.GeneratorMock{
		GenerateFunc: func(ctx context.Context, req client.Request) (models.GenerationResult, error) {
			return models.GenerationResult{}, client.NewWrongModalityError()
		},
	}
	ext, env := newExtension(t, sampleChat(), gen, nil, nil)

	_, _, err := ext.GenerateForMessage(context.Background(), 0)
	assert.ErrorIs(t, err, client.ErrWrongModality)
	assert.Equal(t, 0, env.chat.SaveCalls())
	assert.False(t, ext.IsBusy(0))
}

func TestExtension_GenerateLatest(t *testing.T) {
	ext, env := newExtension(t, sampleChat(), nil, nil, nil)

	_, err := ext.GenerateLatest(context.Background())
	require.NoError(t, err)

	reqs := env.generator.Requests()
	require.Len(t, reqs, 1)
	primary := reqs[0].Messages[0].Content[1].Text
	assert.Equal(t, "[Story Context - Generate an image for the final message]:\n\n[{{char}} (Bob)]: Sit by the fire.", primary)

	latest, ok := env.svcs.Gallery.Latest()
	require.True(t, ok)
	assert.Nil(t, latest.MessageID)
	assert.Equal(t, "Sit by the fire.", latest.Prompt)
}

func TestExtension_GenerateLatest_EmptyChat(t *testing.T) {
	ext, env := newExtension(t, &mocks.ChatStateMock{}, nil, nil, nil)

	_, err := ext.GenerateLatest(context.Background())
	assert.ErrorIs(t, err, client.ErrEmptyContext)
	assert.Equal(t, client.MsgEmptyContext, err.Error())
	assert.Empty(t, env.generator.Requests())
}

func TestExtension_RunCommand(t *testing.T) {
	ext, env := newExtension(t, sampleChat(), nil, nil, nil)

	assert.Equal(t, "", ext.RunCommand(context.Background(), "   "))
	assert.Empty(t, env.generator.Requests())

	url := ext.RunCommand(context.Background(), "  a lighthouse  ")
	assert.Equal(t, "data:image/png;base64,"+mocks.PixelPNG, url)

	reqs := env.generator.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "a lighthouse", reqs[0].Messages[0].Content[1].Text)

	entry, err := ext.ViewGalleryImage(0)
	require.NoError(t, err)
	assert.Equal(t, "a lighthouse", entry.Prompt)
}

func TestExtension_RunCommand_Failure(t *testing.T) {
	gen := &mocks.GeneratorMock{
		GenerateFunc: func(ctx context.Context, req client.Request) (models.GenerationResult, error) {
			return models.GenerationResult{}, client.NewNoContentError()
		},
	}
	ext, env := newExtension(t, sampleChat(), gen, nil, nil)

	assert.Equal(t, "", ext.RunCommand(context.Background(), "a lighthouse"))
	assert.Empty(t, env.svcs.Gallery.List())
}

func TestExtension_Hooks(t *testing.T) {
	buttons := &mocks.ButtonInjectorMock{}
	ext, _ := newExtension(t, sampleChat(), nil, nil, buttons)

	ext.OnMessageRendered(2)
	ext.OnChatChanged()
	assert.Equal(t, []int{2}, buttons.Injected)
	assert.Equal(t, 1, buttons.AllCalls)

	noUI, _ := newExtension(t, sampleChat(), nil, nil, nil)
	noUI.OnMessageRendered(1)
	noUI.OnChatChanged()
}

func TestAttachMedia_AppendsToExistingList(t *testing.T) {
	msg := &models.ChatMessage{Extra: map[string]any{
		"media":         []any{map[string]any{"url": "old.png"}},
		"media_display": "list",
	}}

	extension.AttachMedia(msg, models.MediaAttachment{URL: "new.png", Type: "image", Title: "t", Source: "generated"})

	media := msg.Extra["media"].([]any)
	require.Len(t, media, 2)
	assert.Equal(t, "new.png", media[1].(map[string]any)["url"])
	assert.Equal(t, 1, msg.Extra["media_index"])
	assert.Equal(t, "list", msg.Extra["media_display"])
}
