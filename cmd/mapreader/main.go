package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mapreader/tracer/internal/config"
	"github.com/mapreader/tracer/internal/device"
	"github.com/mapreader/tracer/internal/dispatcher"
	"github.com/mapreader/tracer/internal/handlers"
	"github.com/mapreader/tracer/internal/influx"
	"github.com/mapreader/tracer/internal/logging"
	intOtel "github.com/mapreader/tracer/internal/otel"
	"github.com/mapreader/tracer/internal/project"
	"github.com/mapreader/tracer/internal/storage"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"
)

// global variables
var (
	// ConfigDir holds mapreader.cfg.json; overridable with MAPREADER_CONFIG_DIR.
	ConfigDir string = "."

	LogFilePath string
	LogFile     *os.File

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// ZLogger backs the infrastructure managers
	ZLogger zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()

	// Services
	projectCtx      *project.Context
	handlerService  *handlers.Service
	eventDispatcher *dispatcher.Dispatcher
	influxManager   *influx.Manager
	storageBackend  storage.Backend
)

// setup loads the configuration and builds the logging stack.
func setup() {
	if dir := os.Getenv("MAPREADER_CONFIG_DIR"); dir != "" {
		ConfigDir = dir
	}

	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(logging.Options{Level: "info"})
	Logger = SlogManager.Logger()

	if err := config.Load(ConfigDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	}

	LogFilePath = logging.LogFilePath(logsDir, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		_ = os.Rename(LogFilePath, LogFilePath+".old")
	}

	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
		LogFile = nil
	}

	projectCtx = project.NewContext()

	// Initialize OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	var otelWriter io.Writer
	if LogFile != nil {
		otelWriter = LogFile
	}
	OTelProvider, err = intOtel.New(otelCfg, otelWriter)
	if err != nil {
		Logger.Error("Failed to initialize OTel provider", "error", err)
		OTelProvider = nil
	} else if otelCfg.Enabled {
		Logger.Info("OTel provider initialized", "file", LogFilePath, "endpoint", otelCfg.Endpoint)
	}

	opts := logging.Options{
		Level:   viper.GetString("logLevel"),
		Context: logging.SessionContext(projectCtx.Current),
	}
	if LogFile != nil {
		opts.File = LogFile
	}
	if OTelProvider != nil {
		opts.Provider = OTelProvider.LoggerProvider()
	}
	if viper.GetBool("graylog.enabled") {
		gelfWriter, err := logging.NewGELFWriter(viper.GetString("graylog.address"))
		if err != nil {
			Logger.Warn("Failed to connect to Graylog", "error", err)
		} else {
			opts.GELF = gelfWriter
		}
	}

	// Re-setup logging with file output and optional OTel
	SlogManager.Setup(opts)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath)

	ZLogger = newZeroLogger()
}

func newZeroLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("logLevel")))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}}
	if LogFile != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: LogFile, TimeFormat: time.RFC3339, NoColor: true})
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp().Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, level zerolog.Level, msg string) {
			name, session := projectCtx.Current()
			e.Str("project", name)
			if session != "" {
				e.Str("session", session)
			}
		}))
}

// initInflux connects the trace metrics writer; a disabled config leaves it nil.
func initInflux() {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return
	}

	backupPath := filepath.Join(viper.GetString("logsDir"),
		fmt.Sprintf("%s.%s.influx.gz", logging.AppName, SessionStartTime.Format("20060102_150405")))
	influxManager = influx.NewManager(cfg, ZLogger, backupPath)
	if err := influxManager.Connect(); err != nil {
		Logger.Error("Failed to set up InfluxDB", "error", err)
		influxManager = nil
	}
}

// startServices wires storage, pointer device, handler service and dispatcher.
func startServices() error {
	if err := initStorage(); err != nil {
		return err
	}
	initInflux()

	ctl, cursor, err := device.Native()
	if err != nil {
		Logger.Warn("Native pointer settings unavailable, using in-memory controller", "error", err)
		mem := device.NewMemoryController(device.DefaultSpeed, true)
		ctl, cursor = mem, mem
	}

	handlerService = handlers.NewService(handlers.Dependencies{
		Backend:    storageBackend,
		Influx:     influxManager,
		LogManager: SlogManager,
		Device:     ctl,
		Cursor:     cursor,
		Tracker:    config.GetTrackerConfig(),
	}, projectCtx)

	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(ZLogger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	registerLifecycleHandlers(eventDispatcher)
	handlerService.RegisterHandlers(eventDispatcher)
	Logger.Debug("Handlers registered with dispatcher", "commands", len(eventDispatcher.Commands()))
	return nil
}

// registerLifecycleHandlers registers system/lifecycle command handlers with the dispatcher
func registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{CurrentVersion, BuildDate}, nil
	})

	d.Register(":GETDIR:LOG:", func(e dispatcher.Event) (any, error) {
		return LogFilePath, nil
	})

	// Snapshot export is slow I/O; it runs off the command path and is
	// never dropped. Results are logged.
	d.Register(":SAVE:", func(e dispatcher.Event) (any, error) {
		Logger.Info("Received :SAVE: command, writing project snapshot")
		if exp, ok := storageBackend.(storage.Exportable); ok {
			path, err := exp.Export()
			if err != nil {
				Logger.Error("Failed to export projects", "error", err)
				return nil, err
			}
			Logger.Info("Projects exported", "path", path)
		}
		if OTelProvider != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := OTelProvider.Flush(ctx); err != nil {
				Logger.Warn("Failed to flush OTel data", "error", err)
			}
		}
		return "ok", nil
	}, dispatcher.Buffered(4), dispatcher.Blocking(), dispatcher.Logged())
}

// shutdown releases everything startServices acquired, in reverse order.
func shutdown() {
	if handlerService != nil {
		if err := handlerService.Close(); err != nil {
			Logger.Error("Failed to close session", "error", err)
		}
	}
	if eventDispatcher != nil {
		eventDispatcher.Close()
	}
	if influxManager != nil {
		if err := influxManager.Close(); err != nil {
			Logger.Warn("Failed to close InfluxDB writer", "error", err)
		}
	}
	if storageBackend != nil {
		if err := storageBackend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if OTelProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = SlogManager.Flush(ctx)
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}

func main() {
	setup()
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}
