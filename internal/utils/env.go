package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const appDirName = "cig"

// ConfigDir is $HOME/.config/cig.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appDirName), nil
}

// EnvFileCandidates lists the .env files cig looks at, nearest first: the
// working directory, the directory of configFile and ConfigDir. Duplicates
// are dropped.
func EnvFileCandidates(configFile string) []string {
	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if configFile != "" {
		if abs, err := filepath.Abs(configFile); err == nil {
			dirs = append(dirs, filepath.Dir(abs))
		}
	}
	if dir, err := ConfigDir(); err == nil {
		dirs = append(dirs, dir)
	}

	seen := make(map[string]bool, len(dirs))
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		path := filepath.Join(dir, ".env")
		if seen[path] {
			continue
		}
		seen[path] = true
		out = append(out, path)
	}
	return out
}

// LoadEnv loads every existing candidate .env and returns the ones it read.
// Variables already set are never overridden, so nearer files win. A missing
// file is not an error; a malformed one is.
func LoadEnv(configFile string) ([]string, error) {
	var loaded []string
	for _, path := range EnvFileCandidates(configFile) {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("load %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

// LoadEnvFile loads one explicitly named .env file, which must exist.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
