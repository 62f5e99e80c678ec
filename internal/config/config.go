package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Surface  SurfaceConfig  `yaml:"surface"`
	Playback PlaybackConfig `yaml:"playback"`
	Cache    CacheConfig    `yaml:"cache"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Set from flags only
	TimelinePath string `yaml:"-"`
	ShowStats    bool   `yaml:"-"`
	BuildVersion string `yaml:"-"`
}

type SurfaceConfig struct {
	Width    int     `yaml:"width" validate:"gt=0,lte=7680"`
	Height   int     `yaml:"height" validate:"gt=0,lte=4320"`
	FPS      int     `yaml:"fps" validate:"gt=0,lte=240"`
	FontSize float64 `yaml:"font_size" validate:"gt=0"`
}

type PlaybackConfig struct {
	Speed    float64 `yaml:"speed" validate:"gt=0"`
	MinSpeed float64 `yaml:"min_speed" validate:"gt=0"`
	MaxSpeed float64 `yaml:"max_speed" validate:"gtefield=MinSpeed"`
	SkipStep float64 `yaml:"skip_step" validate:"gt=0"` // seconds
}

type CacheConfig struct {
	MaxBytes       int64         `yaml:"max_bytes" validate:"gte=0"` // 0 = derived from host memory
	Workers        int           `yaml:"workers" validate:"gte=1"`
	MaxWidth       int           `yaml:"max_width" validate:"gte=0"`
	MaxHeight      int           `yaml:"max_height" validate:"gte=0"`
	DPI            int           `yaml:"dpi" validate:"gt=0"`
	FFmpegPath     string        `yaml:"ffmpeg_path" validate:"required"`
	PreloadTimeout time.Duration `yaml:"preload_timeout" validate:"gte=0"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	FrameRateLimit  float64       `yaml:"frame_rate_limit" validate:"gte=0"` // frame.png renders per second, 0 = unlimited
	FrameBurst      int           `yaml:"frame_burst" validate:"gte=0"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `yaml:"pretty"`
}

var validate = validator.New()

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Surface: SurfaceConfig{
			Width:    800,
			Height:   450,
			FPS:      60,
			FontSize: 24,
		},
		Playback: PlaybackConfig{
			Speed:    1,
			MinSpeed: 0.25,
			MaxSpeed: 2,
			SkipStep: 1,
		},
		Cache: CacheConfig{
			Workers:        4,
			MaxWidth:       1920,
			MaxHeight:      1080,
			DPI:            150,
			FFmpegPath:     "ffmpeg",
			PreloadTimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            6541,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			FrameRateLimit:  30,
			FrameBurst:      10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load applies the YAML file at path on top of the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks ranges after flags have been applied
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Addr is the listen address for the preview server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
