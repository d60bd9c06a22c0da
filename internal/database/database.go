package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"contextimage/internal/utils"
)

const memoryPath = ":memory:"

// Config holds DB configuration
type Config struct {
	Path     string
	LogLevel logger.LogLevel
	// Models are auto-migrated right after opening. Each repository package
	// owns the list of tables it reads.
	Models []any
}

// Init opens the SQLite settings store, creating its directory on first run,
// and migrates cfg.Models.
func Init(cfg Config) (*gorm.DB, error) {
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Warn
	}
	if cfg.Path == "" {
		cfg.Path = GetDefaultDBPath()
	}
	if err := ensureDir(cfg.Path); err != nil {
		return nil, err
	}

	gormLogger := logger.New(
		log.New(logrusWriter{}, "", 0),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  cfg.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn(cfg.Path)), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
	}

	// One connection: sqlite reports "database is locked" under concurrent
	// writers, and a :memory: database lives only as long as its connection.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if len(cfg.Models) > 0 {
		if err := db.AutoMigrate(cfg.Models...); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return db, nil
}

// Close releases the underlying connection.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dsn(path string) string {
	const params = "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

func ensureDir(path string) error {
	if path == memoryPath || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if utils.DirectoryExists(dir) {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database dir %s: %w", dir, err)
	}
	return nil
}

// logrusWriter receives the GORM logger's lines and forwards them to logrus
// at the level GORM tagged them with.
type logrusWriter struct{}

func (logrusWriter) Write(p []byte) (int, error) {
	line := strings.TrimSpace(string(p))
	entry := logrus.WithField("component", "gorm")
	switch {
	case strings.Contains(line, "[error]"):
		entry.Error(line)
	case strings.Contains(line, "[warn]"), strings.Contains(line, "SLOW SQL"):
		entry.Warn(line)
	default:
		entry.Debug(line)
	}
	return len(p), nil
}
