//go:build prod

package database

import (
	"path/filepath"

	"github.com/sirupsen/logrus"

	"contextimage/internal/utils"
)

// GetDefaultDBPath places the database in $HOME/.config/cig next to the
// config file. Init creates the directory.
func GetDefaultDBPath() string {
	dir, err := utils.ConfigDir()
	if err != nil {
		logrus.WithError(err).Warn("no home directory, using ./cig.db")
		return "cig.db"
	}
	return filepath.Join(dir, "cig.db")
}

func IsDevelopment() bool {
	return false
}
