package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ant-crawler/internal/simulation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		content  string // empty means no file
		validate func(*testing.T, *Config)
		wantErr  string
	}{
		{
			name: "NewFile_Defaults",
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 25, cfg.Overlay.SpriteSize)
				assert.Equal(t, 50.0, cfg.Overlay.Speed)
				assert.Equal(t, 100.0, cfg.Overlay.SpawnInset)
				assert.Equal(t, BackendEbiten, cfg.Surface.Backend)
				assert.Equal(t, simulation.DefaultParams(), cfg.Motion.Params())
			},
		},
		{
			name:    "ExistingFile_Override",
			content: "overlay:\n  sprite_size: 40\nmotion:\n  tick_interval: 33ms\n  pause_max: 2s\nsurface:\n  backend: terminal\n",
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 40, cfg.Overlay.SpriteSize)
				assert.Equal(t, 50.0, cfg.Overlay.Speed, "unset values keep defaults")
				assert.Equal(t, 33*time.Millisecond, time.Duration(cfg.Motion.TickInterval))
				assert.Equal(t, 2*time.Second, time.Duration(cfg.Motion.PauseMax))
				assert.Equal(t, BackendTerminal, cfg.Surface.Backend)
			},
		},
		{
			name:    "BadDuration",
			content: "motion:\n  tick_interval: fast\n",
			wantErr: "failed to parse config file",
		},
		{
			name:    "InvalidMotion",
			content: "motion:\n  pause_min: 5s\n  pause_max: 1s\n",
			wantErr: "invalid motion config",
		},
		{
			name:    "SpriteSizeAboveMax",
			content: "overlay:\n  sprite_size: 600\n",
			wantErr: "invalid overlay.max_sprite_size",
		},
		{
			name:    "MaxSpriteSizeTooLarge",
			content: "overlay:\n  max_sprite_size: 100000\n",
			wantErr: "invalid overlay.max_sprite_size",
		},
		{
			name:    "UnknownBackend",
			content: "surface:\n  backend: opengl\n",
			wantErr: "invalid surface.backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "conf", "antcrawler.yaml")
			if tt.content != "" {
				require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
				require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			}

			cfg, err := Load(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validate(t, cfg)
			assert.FileExists(t, path)
		})
	}
}

func TestLoadWritesReadableDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "antcrawler.yaml")
	_, err := Load(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tick_interval: 16ms")
	assert.Contains(t, string(data), "pause_max: 3s")
	assert.Contains(t, string(data), "sprite_size: 25")

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), again)
}
