package main

import (
	"bytes"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimiro1/banner"

	"voxlate/internal/config"
	"voxlate/internal/observability"
	"voxlate/internal/providers/youdao"
	"voxlate/internal/signer"
)

const bannerTemplate = `{{ .Title "voxlate-signer" "" 0 }}
  GoVersion: {{ .GoVersion }}
  Now: {{ .Now "2006-01-02 15:04:05" }}
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := observability.GetLogger()
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger(cfg.Log.Level, cfg.Log.Pretty)
	logger := observability.GetLogger()

	if !cfg.HasCredentials() {
		logger.Warn().Msg("VOXLATE_PROVIDER_APP_KEY/APP_SECRET not set; stream-url requests will fail")
	}

	banner.Init(os.Stdout, true, true, bytes.NewBufferString(bannerTemplate))

	urls := youdao.NewSigner(youdao.Config{
		AppKey:     cfg.Provider.AppKey,
		AppSecret:  cfg.Provider.AppSecret,
		Endpoint:   cfg.Provider.Endpoint,
		SampleRate: cfg.Audio.SampleRate,
	})
	server := signer.NewServer(urls, youdao.SupportedLanguages, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Signer.Addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("signer service failed")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
}
