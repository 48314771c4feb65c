package bootstrap

import (
	"fmt"

	"github.com/rs/zerolog"

	"voxlate/internal/audio"
	"voxlate/internal/config"
	"voxlate/internal/domain"
	"voxlate/internal/ports"
	"voxlate/internal/prefs"
	"voxlate/internal/providers/youdao"
	"voxlate/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Config     config.Config
	Prefs      *prefs.Store
	// Languages is the restored language selection.
	Languages domain.LanguagePair
}

// Build loads configuration and wires all backend dependencies.
func Build(eventSink ports.EventSink, clipboard ports.Clipboard, logger zerolog.Logger) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	return BuildWithConfig(cfg, eventSink, clipboard, logger)
}

// BuildWithConfig wires dependencies for an already loaded configuration.
func BuildWithConfig(cfg config.Config, eventSink ports.EventSink, clipboard ports.Clipboard, logger zerolog.Logger) (Services, error) {
	capture, err := newCapture(cfg, logger)
	if err != nil {
		return Services{}, err
	}
	urls, err := newURLProvider(cfg)
	if err != nil {
		return Services{}, err
	}

	store := prefs.NewStore(cfg.PrefsPath)
	languages, err := store.Load()
	if err != nil {
		logger.Warn().Err(err).Str("path", store.Path()).Msg("failed to read preferences, using defaults")
	}

	controller := usecase.NewSessionController(
		capture,
		urls,
		youdao.NewDialer(youdao.DialerConfig{
			HandshakeTimeout: cfg.Session.DialTimeout,
			WriteTimeout:     cfg.Session.WriteTimeout,
		}, logger),
		clipboard,
		eventSink,
		usecase.Config{
			Audio: ports.AudioConfig{
				SampleRate:       cfg.Audio.SampleRate,
				Channels:         cfg.Audio.Channels,
				BlockSize:        cfg.Audio.BlockSize,
				EchoCancellation: cfg.Audio.EchoCancellation,
				NoiseSuppression: cfg.Audio.NoiseSuppression,
				InputFormat:      cfg.Audio.InputFormat,
				InputDevice:      cfg.Audio.InputDevice,
			},
			KeepaliveInterval: cfg.Session.KeepaliveInterval,
			ToggleDebounce:    cfg.Session.ToggleDebounce,
		},
		logger,
	)
	controller.ChangeLanguages(languages)

	return Services{Controller: controller, Config: cfg, Prefs: store, Languages: languages}, nil
}

func newCapture(cfg config.Config, logger zerolog.Logger) (ports.AudioCapture, error) {
	switch cfg.Audio.Backend {
	case config.AudioBackendPortAudio:
		return audio.NewPortAudioCapture(logger), nil
	case config.AudioBackendFFMPEG:
		return audio.NewFFMPEGCapture(cfg.Audio.FFMPEGCommand, logger), nil
	default:
		return nil, fmt.Errorf("unsupported audio backend %q", cfg.Audio.Backend)
	}
}

func newURLProvider(cfg config.Config) (ports.URLProvider, error) {
	switch cfg.Provider.Mode {
	case config.ProviderModeLocal:
		return youdao.NewSigner(youdao.Config{
			AppKey:     cfg.Provider.AppKey,
			AppSecret:  cfg.Provider.AppSecret,
			Endpoint:   cfg.Provider.Endpoint,
			SampleRate: cfg.Audio.SampleRate,
		}), nil
	case config.ProviderModeRemote:
		return youdao.NewRemoteURLProvider(cfg.Provider.SignerURL, cfg.Provider.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported provider mode %q", cfg.Provider.Mode)
	}
}
