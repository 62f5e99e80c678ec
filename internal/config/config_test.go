package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yaml")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q) failed: %v", path, err)
		}
		if cfg.Surface.Width != 800 || cfg.Surface.Height != 450 || cfg.Surface.FPS != 60 {
			t.Errorf("Unexpected surface defaults %+v", cfg.Surface)
		}
		if cfg.Playback.MinSpeed != 0.25 || cfg.Playback.MaxSpeed != 2 || cfg.Playback.SkipStep != 1 {
			t.Errorf("Unexpected playback defaults %+v", cfg.Playback)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Defaults should validate: %v", err)
		}
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
surface:
  width: 1280
  height: 720
playback:
  speed: 1.5
server:
  port: 9000
  read_timeout: 2s
logging:
  level: debug
  pretty: false
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Surface.Width != 1280 || cfg.Surface.Height != 720 {
		t.Errorf("Expected 1280x720, got %dx%d", cfg.Surface.Width, cfg.Surface.Height)
	}
	if cfg.Surface.FPS != 60 {
		t.Errorf("Unset field should keep default, got fps %d", cfg.Surface.FPS)
	}
	if cfg.Playback.Speed != 1.5 {
		t.Errorf("Expected speed 1.5, got %v", cfg.Playback.Speed)
	}
	if cfg.Server.ReadTimeout != 2*time.Second {
		t.Errorf("Expected 2s read timeout, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Addr() != "127.0.0.1:9000" {
		t.Errorf("Unexpected addr %s", cfg.Addr())
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Pretty {
		t.Errorf("Unexpected logging %+v", cfg.Logging)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	os.WriteFile(path, []byte("surface: [unclosed"), 0644)

	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Surface.Width = 0 }},
		{"zero fps", func(c *Config) { c.Surface.FPS = 0 }},
		{"max below min speed", func(c *Config) { c.Playback.MaxSpeed = 0.1 }},
		{"no workers", func(c *Config) { c.Cache.Workers = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"no ffmpeg", func(c *Config) { c.Cache.FFmpegPath = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}
