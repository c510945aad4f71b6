package main

import (
	"context"
	"embed"
	"log/slog"
	"os"
	"time"

	"github.com/wailsapp/wails/v3/pkg/application"

	"coverhue/internal/config"
	"coverhue/internal/db"
	"coverhue/internal/logging"
	"coverhue/internal/palette"
	"coverhue/internal/scanner"
	"coverhue/internal/theme"
	"coverhue/internal/themecache"
)

// Wails uses Go's `embed` package to embed the frontend files into the binary.
// Any files in the frontend/dist folder will be embedded into the binary and
// made available to the frontend.
// See https://pkg.go.dev/embed for more information.

//go:embed all:frontend/dist
var assets embed.FS

func init() {
	application.RegisterEvent[scanner.Progress](scanner.EventProgress)
	application.RegisterEvent[themecache.Album](scanner.EventAlbumUpdated)
	application.RegisterEvent[theme.Generated](EventThemeGenerated)
}

func main() {
	if err := run(); err != nil {
		slog.Error("coverhue stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	paths, err := config.ResolvePaths("coverhue")
	if err != nil {
		return err
	}

	cfg, err := config.LoadOrCreate(paths.ConfigPath)
	if err != nil {
		return err
	}

	logger := logging.New(logging.ConfigFrom(cfg.Log.Level, cfg.Log.Format))
	slog.SetDefault(logger)

	ctx := context.Background()
	sqliteDB, err := db.Bootstrap(ctx, paths.DBPath)
	if err != nil {
		return err
	}
	defer sqliteDB.Close()

	palettes := themecache.NewRepository(sqliteDB, cfg.Cache.MaxEntries)
	albums := themecache.NewAlbumRepository(sqliteDB)
	if pruned, err := palettes.Prune(ctx, cfg.Cache.MaxRows); err != nil {
		logger.Warn("prune palette cache", "error", err)
	} else if pruned > 0 {
		logger.Info("pruned palette cache", "rows", pruned)
	}

	extractor := palette.NewExtractor()
	scannerDomain := scanner.NewService(palettes, albums, extractor, scanner.Options{
		Roots:    cfg.LibraryRoots,
		Extract:  cfg.Palette,
		Debounce: time.Duration(cfg.Watcher.DebounceMS) * time.Millisecond,
	}, logger)
	defer scannerDomain.Close()

	themeService := NewThemeService(theme.NewGenerator(extractor, palettes, albums, logger), albums, cfg.Palette)
	scannerService := NewScannerService(scannerDomain)
	bootstrapService := NewBootstrapService(albums, palettes, scannerDomain, themeService)
	coverService := NewCoverService(albums, logger)

	app := application.New(application.Options{
		Name:        "Coverhue",
		Description: "Album art palettes for your music library",
		Logger:      logger,
		Services: []application.Service{
			application.NewService(bootstrapService),
			application.NewService(themeService),
			application.NewService(scannerService),
		},
		Assets: application.AssetOptions{
			Handler:    application.AssetFileServerFS(assets),
			Middleware: coverService.Middleware,
		},
		Mac: application.MacOptions{
			ApplicationShouldTerminateAfterLastWindowClosed: true,
		},
	})

	emit := func(eventName string, payload any) {
		app.Event.Emit(eventName, payload)
	}
	scannerDomain.SetEmitter(emit)
	themeService.SetEmitter(emit)

	if cfg.Watcher.Enabled {
		if err := scannerDomain.StartWatching(); err != nil {
			logger.Warn("scanner watcher disabled", "error", err)
		}
	}
	if len(cfg.LibraryRoots) > 0 {
		if err := scannerDomain.TriggerScan(); err != nil {
			logger.Warn("initial scan not started", "error", err)
		}
	}

	app.Window.NewWithOptions(application.WebviewWindowOptions{
		Title: "Coverhue",
		Mac: application.MacWindow{
			InvisibleTitleBarHeight: 50,
			Backdrop:                application.MacBackdropTranslucent,
			TitleBar:                application.MacTitleBarHiddenInset,
		},
		BackgroundColour: application.NewRGB(12, 18, 24),
		URL:              "/",
	})

	return app.Run()
}
