package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "VOXLATE"

const (
	ProviderModeLocal  = "local"
	ProviderModeRemote = "remote"

	AudioBackendPortAudio = "portaudio"
	AudioBackendFFMPEG    = "ffmpeg"
)

// Config stores runtime configuration. Every field maps to a VOXLATE_*
// environment variable, e.g. VOXLATE_PROVIDER_APP_KEY.
type Config struct {
	Provider ProviderConfig `envconfig:"PROVIDER"`
	Audio    AudioConfig    `envconfig:"AUDIO"`
	Session  SessionConfig  `envconfig:"SESSION"`
	Log      LogConfig      `envconfig:"LOG"`
	Signer   SignerConfig   `envconfig:"SIGNER"`

	// MetricsAddr enables a Prometheus endpoint in the desktop app when set.
	MetricsAddr string `envconfig:"METRICS_ADDR"`
	PrefsPath   string `envconfig:"PREFS_PATH"`
}

type ProviderConfig struct {
	// Mode is "local" (sign in process) or "remote" (ask the signer service).
	Mode           string        `envconfig:"MODE" default:"local"`
	AppKey         string        `envconfig:"APP_KEY"`
	AppSecret      string        `envconfig:"APP_SECRET"`
	Endpoint       string        `envconfig:"ENDPOINT" default:"wss://openapi.youdao.com/stream_speech_trans"`
	SignerURL      string        `envconfig:"SIGNER_URL" default:"http://127.0.0.1:8787"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
}

type AudioConfig struct {
	Backend          string `envconfig:"BACKEND" default:"portaudio"`
	FFMPEGCommand    string `envconfig:"FFMPEG_COMMAND" default:"ffmpeg"`
	InputFormat      string `envconfig:"INPUT_FORMAT" default:"pulse"`
	InputDevice      string `envconfig:"INPUT_DEVICE" default:"default"`
	SampleRate       int    `envconfig:"SAMPLE_RATE" default:"16000"`
	Channels         int    `envconfig:"CHANNELS" default:"1"`
	BlockSize        int    `envconfig:"BLOCK_SIZE" default:"4096"`
	EchoCancellation bool   `envconfig:"ECHO_CANCELLATION" default:"true"`
	NoiseSuppression bool   `envconfig:"NOISE_SUPPRESSION" default:"true"`
}

type SessionConfig struct {
	KeepaliveInterval time.Duration `envconfig:"KEEPALIVE_INTERVAL" default:"5s"`
	ToggleDebounce    time.Duration `envconfig:"TOGGLE_DEBOUNCE" default:"300ms"`
	DialTimeout       time.Duration `envconfig:"DIAL_TIMEOUT" default:"10s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"5s"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Pretty bool   `envconfig:"PRETTY" default:"false"`
}

type SignerConfig struct {
	Addr string `envconfig:"ADDR" default:":8787"`
}

// Load reads an optional .env file from the working directory, then the
// environment.
func Load() (Config, error) {
	return LoadFiles()
}

// LoadFiles reads the given .env files (default ".env") when they exist,
// without overriding variables already set, then processes the environment.
func LoadFiles(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.Provider.Mode = strings.ToLower(strings.TrimSpace(c.Provider.Mode))
	switch c.Provider.Mode {
	case ProviderModeLocal, ProviderModeRemote:
	default:
		return fmt.Errorf("unsupported provider mode %q", c.Provider.Mode)
	}
	c.Provider.AppKey = strings.TrimSpace(c.Provider.AppKey)
	c.Provider.AppSecret = strings.TrimSpace(c.Provider.AppSecret)
	if c.Provider.RequestTimeout <= 0 {
		c.Provider.RequestTimeout = 10 * time.Second
	}

	c.Audio.Backend = strings.ToLower(strings.TrimSpace(c.Audio.Backend))
	switch c.Audio.Backend {
	case AudioBackendPortAudio, AudioBackendFFMPEG:
	default:
		return fmt.Errorf("unsupported audio backend %q", c.Audio.Backend)
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = 1
	}
	if c.Audio.BlockSize < 256 {
		c.Audio.BlockSize = 4096
	}

	if c.Session.KeepaliveInterval <= 0 {
		c.Session.KeepaliveInterval = 5 * time.Second
	}
	if c.Session.ToggleDebounce <= 0 {
		c.Session.ToggleDebounce = 300 * time.Millisecond
	}
	if c.Session.DialTimeout <= 0 {
		c.Session.DialTimeout = 10 * time.Second
	}
	if c.Session.WriteTimeout <= 0 {
		c.Session.WriteTimeout = 5 * time.Second
	}

	if strings.TrimSpace(c.PrefsPath) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.New("could not determine home directory")
		}
		c.PrefsPath = filepath.Join(home, ".config", "voxlate", "preferences.yaml")
	}
	return nil
}

// HasCredentials reports whether in-process signing can work.
func (c Config) HasCredentials() bool {
	return c.Provider.AppKey != "" && c.Provider.AppSecret != ""
}
