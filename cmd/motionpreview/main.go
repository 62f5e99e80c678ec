package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/motionpreview/internal/cache"
	"github.com/ivlev/motionpreview/internal/config"
	"github.com/ivlev/motionpreview/internal/engine"
	"github.com/ivlev/motionpreview/internal/metrics"
	"github.com/ivlev/motionpreview/internal/playback"
	"github.com/ivlev/motionpreview/internal/server"
	"github.com/ivlev/motionpreview/internal/source"
	"github.com/ivlev/motionpreview/internal/system"
	"github.com/ivlev/motionpreview/internal/timeline"
)

// Set with -ldflags "-X main.version=..."
var version = "dev"

const timelinesDir = "input/timelines"

func main() {
	configPath := flag.String("config", "", "path to config file")
	timelinePath := flag.String("timeline", "", "timeline document (default: newest .yaml in "+timelinesDir+")")
	widthPtr := flag.Int("width", 0, "surface width")
	heightPtr := flag.Int("height", 0, "surface height")
	fpsPtr := flag.Int("fps", 0, "playback refresh rate")
	speedPtr := flag.Float64("speed", 0, "playback speed (0.25-2)")
	atPtr := flag.Float64("at", -1, "render the single frame at this time and exit")
	outputPtr := flag.String("output", "", "PNG path for -at (default: output/frame_<time>.png)")
	servePtr := flag.Bool("serve", false, "serve the preview over HTTP")
	benchPtr := flag.Bool("bench", false, "play the timeline headless and print a performance report")
	statsPtr := flag.Bool("stats", false, "append the bench report to benchmark.log")
	samplePtr := flag.Bool("sample", false, "write a sample timeline to "+timelinesDir+" and exit")
	flag.Parse()

	for _, d := range []string{timelinesDir, "output"} {
		os.MkdirAll(d, 0755)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *widthPtr > 0 {
		cfg.Surface.Width = *widthPtr
	}
	if *heightPtr > 0 {
		cfg.Surface.Height = *heightPtr
	}
	if *fpsPtr > 0 {
		cfg.Surface.FPS = *fpsPtr
	}
	if *speedPtr > 0 {
		cfg.Playback.Speed = *speedPtr
	}
	cfg.TimelinePath = *timelinePath
	cfg.ShowStats = *statsPtr
	cfg.BuildVersion = version

	logger := setupLogger(cfg.Logging)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("bad configuration")
	}

	if *samplePtr {
		path, err := writeSample(timelinesDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to write sample timeline")
		}
		logger.Info().Str("path", path).Msg("sample timeline written")
		return
	}

	if *atPtr < 0 && !*benchPtr && !*servePtr {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TimelinePath == "" {
		latest, err := timeline.FindLatestDocument(timelinesDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("no timeline given; run with -sample or put a document in " + timelinesDir)
		}
		cfg.TimelinePath = latest
	}

	doc, err := timeline.ReadDocument(cfg.TimelinePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read timeline")
	}
	tl, err := doc.Timeline()
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.TimelinePath).Msg("invalid timeline")
	}

	logger.Info().
		Str("version", version).
		Str("timeline", cfg.TimelinePath).
		Int("assets", tl.Len()).
		Float64("duration", tl.TotalDuration()).
		Str("surface", fmt.Sprintf("%dx%d@%d", cfg.Surface.Width, cfg.Surface.Height, cfg.Surface.FPS)).
		Msg("timeline loaded")

	if cfg.Cache.MaxBytes == 0 {
		cfg.Cache.MaxBytes = system.DefaultCacheBudget(ctx)
	}
	if system.FFmpegAvailable(cfg.Cache.FFmpegPath) {
		logger.Info().Msg("ffmpeg available - video first frames enabled")
	} else {
		logger.Warn().Msg("ffmpeg not found - video assets without thumbnails use a placeholder")
	}

	m := metrics.New()
	loader := source.NewFileLoader(cfg.Cache.FFmpegPath, cfg.Cache.DPI, logger.With().Str("component", "source").Logger())

	preview, err := engine.NewPreview(tl, loader, engine.Options{
		Width:    cfg.Surface.Width,
		Height:   cfg.Surface.Height,
		FontSize: cfg.Surface.FontSize,
		Cache: cache.Options{
			Budget:  cfg.Cache.MaxBytes,
			Workers: cfg.Cache.Workers,
			MaxSize: image.Pt(cfg.Cache.MaxWidth, cfg.Cache.MaxHeight),
		},
		PreloadTimeout: cfg.Cache.PreloadTimeout,
		DeclaredTotal:  doc.TotalDuration,
	}, m, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create preview")
	}
	defer preview.Close()

	if err := preview.Preload(ctx); err != nil {
		logger.Warn().Err(err).Msg("preload interrupted, exiting")
		return
	}

	playOpts := playback.Options{
		Speed:    cfg.Playback.Speed,
		MinSpeed: cfg.Playback.MinSpeed,
		MaxSpeed: cfg.Playback.MaxSpeed,
		SkipStep: cfg.Playback.SkipStep,
	}

	switch {
	case *atPtr >= 0:
		if err := renderStill(preview, *atPtr, *outputPtr, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to render frame")
		}

	case *benchPtr:
		report, err := preview.Bench(ctx, playback.NewTickerScheduler(cfg.Surface.FPS), playOpts)
		if err != nil {
			logger.Fatal().Err(err).Msg("bench interrupted")
		}
		report.Build = cfg.BuildVersion
		report.Timeline = cfg.TimelinePath
		fmt.Print(report)

		if cfg.ShowStats {
			if err := report.AppendLog("benchmark.log"); err != nil {
				logger.Warn().Err(err).Msg("failed to write benchmark.log")
			}
		}

	default:
		serve(ctx, cfg, preview, playOpts, m, logger)
	}
}

func serve(ctx context.Context, cfg *config.Config, preview *engine.Preview, opts playback.Options, m *metrics.Metrics, logger zerolog.Logger) {
	system.InitResourceLimits(logger)

	ctrl := playback.NewController(
		preview.Timeline().TotalDuration(),
		playback.NewTickerScheduler(cfg.Surface.FPS),
		func(at float64) { preview.RenderAt(at) },
		opts,
		logger.With().Str("component", "playback").Logger(),
	)
	defer ctrl.Close()
	ctrl.Seek(0)

	srv := server.New(cfg, preview, ctrl, m, logger)

	go func() {
		<-ctx.Done()
		logger.Info().Msg("received shutdown signal")
		ctrl.Close()

		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Error().Err(err).Msg("server error")
	}

	logger.Info().Msg("server stopped")
}

func renderStill(preview *engine.Preview, at float64, output string, logger zerolog.Logger) error {
	if output == "" {
		output = filepath.Join("output", fmt.Sprintf("frame_%s.png", time.Now().Format("2006-01-02_15-04-05")))
	}

	frame, info := preview.Frame(at)
	defer preview.ReleaseFrame(frame)

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := png.Encode(f, frame); err != nil {
		return fmt.Errorf("encode %s: %w", output, err)
	}

	logger.Info().
		Str("output", output).
		Float64("t", info.Time).
		Str("asset", info.AssetID).
		Str("transition", info.Transition).
		Msg("frame written")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(os.Stderr).
		With().
		Timestamp().
		Logger()
}
