// Package cmd is the command line front end of the extension.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"contextimage/internal/config"
	"contextimage/internal/logger"
	"contextimage/internal/utils"
)

type rootOptions struct {
	cfgFile       string
	envFile       string
	logLevel      string
	chatFile      string
	characterFile string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "cig",
		Short:         "Context-aware image generation for roleplay chats",
		Long:          "cig illustrates chat messages with Gemini image models, using recent story context, character descriptions, avatars and the previous image as references.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is ./config.yaml or $HOME/.config/cig/config.yaml)")
	flags.StringVar(&opts.envFile, "env-file", "", "load this .env instead of ./.env, the config file's directory and $HOME/.config/cig/.env")
	flags.StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	flags.StringVar(&opts.chatFile, "chat", "", "override host.chat_file")
	flags.StringVar(&opts.characterFile, "character", "", "override host.character_file")

	root.AddCommand(
		newImagineCmd(opts),
		newGenerateCmd(opts),
		newGalleryCmd(opts),
		newSettingsCmd(opts),
		newModelsCmd(opts),
		newKeysCmd(),
	)
	return root
}

func (o *rootOptions) load() error {
	var envFiles []string
	if o.envFile != "" {
		if err := utils.LoadEnvFile(o.envFile); err != nil {
			return err
		}
		envFiles = []string{o.envFile}
	} else {
		loaded, err := utils.LoadEnv(o.cfgFile)
		if err != nil {
			return err
		}
		envFiles = loaded
	}

	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.chatFile != "" {
		cfg.Host.ChatFile = o.chatFile
	}
	if o.characterFile != "" {
		cfg.Host.CharacterFile = o.characterFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Setup(logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}); err != nil {
		return err
	}
	if len(envFiles) > 0 {
		logrus.WithField("files", envFiles).Debug("loaded .env")
	}
	o.cfg = cfg
	return nil
}

// withApp starts the application for the duration of fn.
func (o *rootOptions) withApp(ctx context.Context, fn func(ctx context.Context, app *App) error) error {
	app, err := newApp(ctx, o.cfg)
	if err != nil {
		return err
	}
	defer app.shutdown(context.WithoutCancel(ctx))
	return fn(ctx, app)
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
