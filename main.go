package main

import (
	"embed"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"voxlate/internal/config"
	"voxlate/internal/observability"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	if cfg, err := config.Load(); err == nil {
		observability.InitLogger(cfg.Log.Level, cfg.Log.Pretty)
	}
	logger := observability.GetLogger()

	app := NewApp()
	err := wails.Run(&options.App{
		Title:     "Voxlate",
		Width:     960,
		Height:    720,
		MinWidth:  640,
		MinHeight: 480,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("application failed")
	}
}
