package cmd

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"

	"contextimage/internal/config"
	"contextimage/internal/database"
	"contextimage/internal/events"
	"contextimage/internal/extension"
	"contextimage/internal/host/filehost"
	"contextimage/internal/llm/client"
	"contextimage/internal/repositories"
	"contextimage/internal/services"
)

// avatarTimeout bounds avatar fetches; generation requests are not bounded.
const avatarTimeout = 30 * time.Second

// App holds everything a command needs once the configuration is loaded.
type App struct {
	cfg       *config.Config
	keyring   *services.KeyringService
	host      *filehost.FileHost
	svcs      *services.Services
	extension *extension.Extension
	dbClose   func() error
}

// newApp opens the database, the chat files and the generator, then starts
// the services.
func newApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg, keyring: services.NewKeyringService()}

	gormLevel := logger.Warn
	if database.IsDevelopment() && strings.EqualFold(cfg.Log.Level, "debug") {
		gormLevel = logger.Info
	}
	db, err := database.Init(database.Config{
		Path:     cfg.Database.Path,
		LogLevel: gormLevel,
		Models:   repositories.Models(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.dbClose = func() error { return database.Close(db) }

	a.host, err = filehost.Open(filehost.Options{
		ChatFile:            cfg.Host.ChatFile,
		CharacterFile:       cfg.Host.CharacterFile,
		BaseURL:             cfg.Backend.BaseURL,
		UserName:            cfg.Host.UserName,
		UserAvatar:          cfg.Host.UserAvatar,
		Persona:             cfg.Host.Persona,
		ImagesDir:           cfg.Host.ImagesDir,
		CSRFToken:           cfg.Backend.CSRFToken,
		Cookie:              cfg.Backend.Cookie,
		ReverseProxy:        cfg.Backend.ReverseProxy,
		ProxyPasswordSecret: services.SecretProxyPassword,
		Secrets:             a.keyring,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to open chat: %w", err)
	}

	generator, err := a.newGenerator(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	a.svcs = services.NewServices(services.Deps{
		DB:          db,
		Chat:        a.host,
		Avatars:     a.host,
		Headers:     a.host,
		Credentials: a.host,
		Generator:   generator,
		HTTPClient:  &http.Client{Timeout: avatarTimeout},
	})
	if err := a.svcs.Startup(ctx); err != nil {
		a.close()
		return nil, err
	}

	a.extension = extension.New(a.svcs, a.host, a.host, nil)
	events.EnableLogEmitter()

	logrus.WithFields(logrus.Fields{
		"backend":  cfg.Backend.Mode,
		"database": cfg.Database.Path,
		"messages": len(a.host.Messages()),
	}).Debug("app started")
	return a, nil
}

// newGenerator chooses the transport for the configured backend mode.
func (a *App) newGenerator(ctx context.Context) (client.Generator, error) {
	if a.cfg.Backend.Mode != config.BackendModeDirect {
		return client.NewProxyClient(a.cfg.Backend.BaseURL, a.host, nil), nil
	}

	apiKey := a.cfg.GenAI.APIKey
	if apiKey == "" {
		stored, err := a.keyring.GetSecret(services.SecretGeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("read gemini API key: %w", err)
		}
		apiKey = stored
	}
	gen, err := client.NewGenAIClient(ctx, client.GenAIOptions{APIKey: apiKey, BaseURL: a.cfg.GenAI.BaseURL})
	if err != nil {
		return nil, fmt.Errorf("direct backend: %w (set genai.api_key or run `keys set %s`)", err, services.SecretGeminiAPIKey)
	}
	return gen, nil
}

// shutdown flushes pending settings and closes the database.
func (a *App) shutdown(ctx context.Context) {
	if a.svcs != nil {
		if err := a.svcs.Shutdown(ctx); err != nil {
			logrus.WithError(err).Error("failed to persist settings")
		}
	}
	a.close()
}

func (a *App) close() {
	if a.dbClose == nil {
		return
	}
	if err := a.dbClose(); err != nil {
		logrus.WithError(err).Error("failed to close database")
	} else {
		logrus.Debug("database closed")
	}
	a.dbClose = nil
}
