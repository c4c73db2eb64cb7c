package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/gazette/internal/config"
)

// CheckExisting returns an error if dir already holds a gazette.yml
func CheckExisting(dir string) error {
	path := filepath.Join(dir, config.DefaultPath)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("project already initialized: found existing %s", config.DefaultPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check for %s: %w", config.DefaultPath, err)
	}
	return nil
}
