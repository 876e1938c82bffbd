// touchbox - type with a game controller
//
// touchbox polls XInput (Windows) or evdev (Linux) controllers and turns
// them into keyboard input that repeats like a held physical key:
//
//	touchbox run            Map controllers to keys until Back is pressed
//	touchbox timing         Show the host key-repeat timing
//	touchbox config init    Write a default config file
//	touchbox config check   Validate the config file
//	touchbox config show    Print the effective configuration
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"touchbox/internal/config"
	"touchbox/internal/gamepad"
	"touchbox/internal/logging"
	"touchbox/internal/mapper"
	"touchbox/internal/metrics"
	"touchbox/internal/repeat"
	"touchbox/internal/sink"
	"touchbox/internal/synth"
)

var version = "dev"

func main() {
	cmd := "run"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "run":
		cmdRun(args)
	case "timing":
		cmdTiming(args)
	case "config":
		cmdConfig(args)
	case "version":
		fmt.Println("touchbox", version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`touchbox - Gamepad to keyboard

USAGE:
    touchbox [command] [options]

COMMANDS:
    run                 Map controllers to keys (default)
    timing              Show the host key-repeat settings and timing
    config init         Write a default config file
    config check        Validate the config file
    config show         Print the effective configuration
    version             Show the version
    help                Show this help message

OPTIONS:
    --config <path>     Config file (default: platform config dir)
    --dry-run           Log key events instead of injecting them (run)

DEFAULT LAYOUT:
    A space   B enter   X backspace   Y escape   D-pad arrows
    Left stick + LT/LB  letters around D (LB alone: left shift)
    Right stick + RT/RB letters around K (RB alone: right shift)
    Back quits.`)
}

func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", "", "Config file path")
}

func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if found := config.FindConfigFile(); found != "" {
		return found
	}
	return config.ConfigPath()
}

func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(&logging.Config{
		Level:      level,
		Format:     format,
		Output:     cfg.Output,
		FilePath:   cfg.FilePath,
		MaxSize:    int64(cfg.MaxSizeMB),
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
		Component:  "touchbox",
	})
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := configFlag(fs)
	dryRun := fs.Bool("dry-run", false, "Log key events instead of injecting them")
	fs.Parse(args)

	loader := config.NewLoader(resolveConfigPath(*configPath))
	cfg, err := loader.Load()
	if err != nil {
		exitWithError("load config %s: %v", loader.Path(), err)
	}
	if *dryRun {
		cfg.Sink.Backend = sink.BackendLog
	}
	if err := cfg.EnsureDirectories(); err != nil {
		exitWithError("%v", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		exitWithError("setup logging: %v", err)
	}
	defer log.Close()
	logging.SetDefault(log)

	if err := run(loader, cfg, log); err != nil {
		log.Error("touchbox stopped", "error", err)
		log.Close()
		os.Exit(1)
	}
}

func run(loader *config.Loader, cfg *config.Config, log *logging.Logger) error {
	defer loader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timing := cfg.Repeat.Apply(repeat.System())
	if err := repeat.SystemErr(); err != nil {
		log.Warn("keyboard settings unavailable, using defaults", "error", err)
	}
	log.Info("starting",
		"version", version,
		"timing", timing.String(),
		"sink", cfg.Sink.Backend,
		"log_level", logging.LevelString(log.Level()),
	)

	table, err := cfg.BindingTable()
	if err != nil {
		return err
	}

	var audit *logging.AuditLogger
	if cfg.Audit.Enabled {
		audit, err = logging.NewAuditLogger(&logging.AuditLoggerConfig{
			FilePath:   cfg.Audit.Path,
			MaxSize:    int64(cfg.Logging.MaxSizeMB),
			MaxAge:     cfg.Logging.MaxAgeDays,
			MaxBackups: cfg.Logging.MaxBackups,
			Compress:   cfg.Logging.Compress,
			Component:  "touchbox",
		})
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer audit.Close()
		if err := audit.LogStartup(version, map[string]any{
			"initial_delay_ms":   timing.InitialDelay.Milliseconds(),
			"repeat_interval_ms": timing.RepeatInterval.Milliseconds(),
			"sink":               cfg.Sink.Backend,
		}); err != nil {
			log.Warn("audit startup", "error", err)
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		srv, err := metrics.Listen(m, cfg.Metrics.Listen, cfg.Metrics.Path, log.WithComponent("metrics").Logger)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.Serve(ctx); err != nil {
				log.Error("metrics endpoint", "error", err)
			}
		}()
	}

	dev, err := sink.Open(sink.Config{
		Backend:    cfg.Sink.Backend,
		DeviceName: cfg.Sink.DeviceName,
		Logger:     log.WithComponent("sink").Logger,
	})
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	defer dev.Close()

	src, err := gamepad.Open(gamepad.SourceConfig{
		Devices: cfg.Input.Devices,
		Logger:  log.WithComponent("gamepad").Logger,
	})
	if err != nil {
		return fmt.Errorf("open controllers: %w", err)
	}
	defer src.Close()

	observers := []synth.Observer{synth.LogObserver(log.WithComponent("synth").Logger)}
	var out synth.Sink = dev
	if audit != nil {
		observers = append(observers, audit)
	}
	if m != nil {
		observers = append(observers, m)
		out = m.Sink(dev)
	}

	mp := mapper.New(mapper.Config{
		Table:     table,
		Timing:    timing,
		Sink:      out,
		Prober:    dev,
		Observers: observers,
		Logger:    log.WithComponent("mapper").Logger,
	})
	reader := gamepad.NewReader(src, gamepad.ReaderConfig{
		Thresholds: cfg.Input.Thresholds(),
		Users:      cfg.Input.MaxPads,
		Logger:     log.WithComponent("reader").Logger,
	})

	reloads := make(chan *config.Config, 1)
	loader.OnChange(func(_, cur *config.Config) {
		forward(reloads, cur)
	})
	if err := loader.Watch(); err != nil {
		log.Warn("config hot reload disabled", "path", loader.Path(), "error", err)
	} else {
		go watchErrors(ctx, loader, m, log.Logger)
	}

	d := &driver{
		reader:   reader,
		mapper:   mp,
		interval: cfg.Input.PollInterval(),
		cfg:      cfg,
		reloads:  reloads,
		setLevel: log.SetLevel,
		metrics:  m,
		audit:    audit,
		logger:   log.WithComponent("driver").Logger,
	}

	crash := logging.NewCrashHandler(logging.CrashHandlerConfig{
		CrashDir:  filepath.Join(config.PlatformLogDir(), "crashes"),
		Version:   version,
		Component: "touchbox",
		OnCrash:   func(logging.CrashReport) { mp.ReleaseAll() },
		Logger:    log.Logger,
	})
	if reports, err := crash.CrashReports(); err == nil && len(reports) > 0 {
		last := reports[len(reports)-1]
		log.Warn("previous crash reports found",
			"count", len(reports),
			"last", last.Timestamp,
			"panic", last.PanicValue,
		)
	}

	reason := reasonError
	err = crash.Recover(map[string]any{"loop": "driver"}, func() error {
		var err error
		reason, err = d.run(ctx)
		return err
	})
	d.shutdown(reason, err)
	return err
}

func watchErrors(ctx context.Context, loader *config.Loader, m *metrics.Metrics, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-loader.Errors():
			log.Warn("config reload rejected", "error", err)
			if m != nil {
				m.Reloaded(err)
			}
		}
	}
}

func cmdTiming(args []string) {
	fs := flag.NewFlagSet("timing", flag.ExitOnError)
	configPath := configFlag(fs)
	fs.Parse(args)

	settings, err := repeat.QuerySettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Keyboard settings unavailable: %v\n", err)
		fmt.Fprintln(os.Stderr, "Using defaults.")
	}
	system := repeat.FromSettings(settings)

	fmt.Println("Host keyboard settings:")
	fmt.Printf("  Delay:             %d (0-%d)\n", settings.Delay, repeat.MaxDelay)
	fmt.Printf("  Speed:             %d (0-%d)\n", settings.Speed, repeat.MaxSpeed)
	fmt.Printf("  Initial delay:     %s\n", system.InitialDelay)
	fmt.Printf("  Repeat interval:   %s\n", system.RepeatInterval)

	cfg, err := config.Load(resolveConfigPath(*configPath))
	if err != nil {
		exitWithError("load config: %v", err)
	}
	effective := cfg.Repeat.Apply(system)
	fmt.Println()
	fmt.Println("Configured overrides:")
	fmt.Printf("  Initial delay:     %s\n", formatMs(cfg.Repeat.InitialDelayMs))
	fmt.Printf("  Repeat interval:   %s\n", formatMs(cfg.Repeat.RepeatIntervalMs))
	fmt.Println()
	fmt.Printf("Effective timing:    %s\n", effective)
}

func cmdConfig(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: touchbox config <init|check|show> [--config path]")
		os.Exit(1)
	}

	switch args[0] {
	case "init":
		cmdConfigInit(args[1:])
	case "check":
		cmdConfigCheck(args[1:])
	case "show":
		cmdConfigShow(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n", args[0])
		os.Exit(1)
	}
}

func cmdConfigInit(args []string) {
	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	configPath := configFlag(fs)
	force := fs.Bool("force", false, "Overwrite an existing file")
	fs.Parse(args)

	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}
	if *force {
		if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
			exitWithError("%v", err)
		}
		fmt.Printf("Wrote %s\n", path)
		return
	}

	_, created, err := config.LoadOrCreate(path)
	if err != nil {
		exitWithError("%s: %v", path, err)
	}
	if !created {
		exitWithError("%s already exists (use --force to overwrite)", path)
	}
	fmt.Printf("Wrote %s\n", path)
}

func cmdConfigCheck(args []string) {
	fs := flag.NewFlagSet("config check", flag.ExitOnError)
	configPath := configFlag(fs)
	fs.Parse(args)

	path := resolveConfigPath(*configPath)
	if _, err := config.NewLoader(path).Load(); err != nil {
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			fmt.Fprintf(os.Stderr, "%s: %d problem(s)\n", path, len(verrs))
			for _, v := range verrs {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", v.Field, v.Message)
			}
			os.Exit(1)
		}
		exitWithError("%s: %v", path, err)
	}
	fmt.Printf("%s: ok\n", path)
}

func cmdConfigShow(args []string) {
	fs := flag.NewFlagSet("config show", flag.ExitOnError)
	configPath := configFlag(fs)
	format := fs.String("format", "toml", "Output format: toml, json or yaml")
	fs.Parse(args)

	cfg, err := config.Load(resolveConfigPath(*configPath))
	if err != nil {
		exitWithError("%v", err)
	}
	data, err := config.Encode(cfg, "."+*format)
	if err != nil {
		exitWithError("%v", err)
	}
	os.Stdout.Write(data)
}
