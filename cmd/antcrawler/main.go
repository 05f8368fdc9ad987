package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"ant-crawler/internal/command"
	"ant-crawler/internal/config"
	"ant-crawler/internal/logging"
	"ant-crawler/internal/overlay"
	"ant-crawler/internal/server"
	"ant-crawler/internal/simulation"
	"ant-crawler/internal/sprite"
	"ant-crawler/internal/surface"
	"ant-crawler/internal/terminal"
	"ant-crawler/internal/visualization"

	"github.com/gdamore/tcell/v2"
	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	configPath := flag.String("config", "antcrawler.yaml", "path to the yaml configuration")
	spritePath := flag.String("sprite", "", "sprite image file (png, jpeg, gif, bmp, webp); overrides overlay.sprite_path")
	backend := flag.String("backend", "", "surface backend: ebiten or terminal; overrides surface.backend")
	seed := flag.Uint64("seed", 0, "random seed; overrides motion.seed")
	autostart := flag.Bool("autostart", false, "start the overlay immediately")
	debug := flag.Bool("debug", false, "draw debug information")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *spritePath != "" {
		cfg.Overlay.SpritePath = *spritePath
	}
	if *backend != "" {
		cfg.Surface.Backend = strings.ToLower(*backend)
	}
	if *seed != 0 {
		cfg.Motion.Seed = *seed
	}
	cfg.Overlay.Autostart = cfg.Overlay.Autostart || *autostart
	cfg.Surface.Debug = cfg.Surface.Debug || *debug
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("ant-crawler failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// tcell owns the terminal, so only the log file is written there
	var console io.Writer
	if cfg.Surface.Backend != config.BackendTerminal {
		console = os.Stdout
	}
	cleanup, err := logging.Init(cfg.Log, console)
	if err != nil {
		return fmt.Errorf("failed to init logging: %w", err)
	}
	defer cleanup()
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rng simulation.Rand
	if cfg.Motion.Seed != 0 {
		rng = simulation.NewRand(cfg.Motion.Seed)
	} else {
		rng = simulation.NewTimeSeededRand()
	}

	var (
		surf      surface.Surface
		renderer  *visualization.Renderer
		termSurf  *terminal.Surface
		svc       *command.Service
		statusFor = func() string { return statusLine(svc) }
	)
	switch cfg.Surface.Backend {
	case config.BackendTerminal:
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to create terminal screen: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("failed to init terminal screen: %w", err)
		}
		defer screen.Fini()
		screen.Clear()
		termSurf = terminal.New(screen, cfg.Surface.CellWidth, cfg.Surface.CellHeight, logger)
		surf = termSurf
	default:
		w, h := cfg.Surface.Width, cfg.Surface.Height
		if w <= 0 || h <= 0 {
			w, h = ebiten.Monitor().Size()
		}
		renderer = visualization.NewRenderer(visualization.NewAffineProjector(), visualization.Options{
			Width:  w,
			Height: h,
			Debug:  cfg.Surface.Debug,
			Status: statusFor,
			Logger: logger,
		})
		surf = renderer
	}

	looper := overlay.NewLooper(overlay.SystemClock{})
	host := command.NewProcessHost(logger)
	controller, err := overlay.NewController(overlay.Options{
		Surface: surf,
		Looper:  looper,
		Params:  cfg.Motion.Params(),
		Rand:    rng,
		Host:    host,
		Logger:  logger,
		Defaults: overlay.Settings{
			SpriteSize:    cfg.Overlay.SpriteSize,
			BaseSpeed:     cfg.Overlay.Speed,
			MaxSpriteSize: cfg.Overlay.MaxSpriteSize,
		},
		SpawnInset: cfg.Overlay.SpawnInset,
		StatsEvery: cfg.Overlay.StatsEvery,
	})
	if err != nil {
		return fmt.Errorf("failed to create overlay controller: %w", err)
	}

	var perms command.Permissions = command.AlwaysGranted{}
	if len(cfg.Overlay.PermissionCommand) > 0 {
		perms = command.NewLauncher(cfg.Overlay.PermissionCommand)
	}
	svc = command.NewService(looper, controller, perms, host, logger)

	loopCtx, cancelLoop := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = looper.Run(loopCtx)
	}()
	defer func() {
		cancelLoop()
		wg.Wait()
	}()

	if cfg.Server.Enabled {
		srv := server.New(svc, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, cfg.Server.Address); err != nil {
				logger.Error("Command server stopped", "error", err)
			}
		}()
	}

	if cfg.Overlay.Autostart {
		go autostart(ctx, svc, cfg.Overlay, logger)
	}

	logger.Info("ant-crawler running", "backend", cfg.Surface.Backend, "server", cfg.Server.Enabled)

	// the surface loop owns the main goroutine
	var runErr error
	if termSurf != nil {
		runErr = termSurf.Run(ctx)
	} else {
		go func() {
			<-ctx.Done()
			renderer.Close()
		}()
		runErr = renderer.Run()
	}
	stop()

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.StopOverlay(stopCtx); err != nil {
		logger.Warn("Overlay did not stop cleanly", "error", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	logger.Info("ant-crawler finished")
	return nil
}

func autostart(ctx context.Context, svc *command.Service, cfg config.OverlayConfig, logger *slog.Logger) {
	var (
		img []byte
		err error
	)
	if cfg.SpritePath != "" {
		img, err = os.ReadFile(cfg.SpritePath)
	} else {
		img, err = sprite.AntPNG(128)
	}
	if err != nil {
		logger.Error("Failed to load sprite", "path", cfg.SpritePath, "error", err)
		return
	}
	size := float64(cfg.SpriteSize)
	speed := cfg.Speed
	if err := svc.StartOverlay(ctx, command.StartArgs{SpriteSize: &size, Speed: &speed, Image: img}); err != nil {
		logger.Error("Autostart failed", "error", err)
	}
}

func statusLine(svc *command.Service) string {
	if svc == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	st, err := svc.Status(ctx)
	if err != nil {
		return "status: " + err.Error()
	}
	return fmt.Sprintf("Phase: %s run=%s\nPos: (%.0f, %.0f) rot %.0f°\n%s", st.Phase, st.RunID, st.X, st.Y, st.Rotation, st.Stats)
}
