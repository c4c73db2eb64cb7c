package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/gazette/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name      string
		force     bool
		setupFunc func(string)
		wantErr   bool
	}{
		{
			name:      "fresh initialization",
			setupFunc: func(dir string) {},
		},
		{
			name:  "existing config without force",
			force: false,
			setupFunc: func(dir string) {
				os.WriteFile(filepath.Join(dir, "gazette.yml"), []byte("old content"), 0644)
			},
			wantErr: true,
		},
		{
			name:  "force overwrites existing config",
			force: true,
			setupFunc: func(dir string) {
				os.WriteFile(filepath.Join(dir, "gazette.yml"), []byte("old content"), 0644)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setupFunc(dir)

			created, err := Initialize(dir, tt.force)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "already initialized")

				content, readErr := os.ReadFile(filepath.Join(dir, "gazette.yml"))
				require.NoError(t, readErr)
				assert.Equal(t, "old content", string(content), "existing file is untouched")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, []string{filepath.Join(dir, "gazette.yml")}, created)

			cfg, err := config.Load(created[0])
			require.NoError(t, err)
			assert.Equal(t, "My News Site", cfg.Site.Name)
			assert.True(t, cfg.Ads.Enabled)
			assert.True(t, cfg.Comments.Enabled)
		})
	}
}

func TestInitialize_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "site")
	_, err := Initialize(dir, false)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "gazette.yml"))
}

func TestCheckExisting(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, CheckExisting(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "gazette.yml"), []byte("x"), 0644))
	assert.Error(t, CheckExisting(dir))
}
