// Package bootstrap wires all dependencies of a generated client from one
// configuration file: logger, metrics, call journal, dispatcher and client.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artpar/routegen/adapters/clock"
	"github.com/artpar/routegen/adapters/fs"
	apihttp "github.com/artpar/routegen/adapters/http"
	"github.com/artpar/routegen/adapters/idgen"
	"github.com/artpar/routegen/adapters/memory"
	"github.com/artpar/routegen/adapters/metrics"
	"github.com/artpar/routegen/adapters/mime"
	"github.com/artpar/routegen/adapters/sqlite"
	"github.com/artpar/routegen/app"
	"github.com/artpar/routegen/config"
	"github.com/artpar/routegen/core/schema"
	"github.com/artpar/routegen/ports"
)

// Version is the routegen build version, set with -ldflags.
var Version = "dev"

// App represents a wired client.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Holder
	Client     *app.Client
	Dispatcher *apihttp.Dispatcher
	Metrics    *metrics.Collector  // nil when metrics are disabled
	Gatherer   prometheus.Gatherer // nil when metrics are disabled
	Journal    ports.CallJournal   // nil when the journal driver is none
	DB         *sqlite.DB          // set for the sqlite journal
	Inspect    http.Handler        // introspection router
	HTTPServer *http.Server        // set when inspect.listen is configured
	clock      ports.Clock
}

// Options customise New. The zero value is what the CLI uses.
type Options struct {
	// Watch enables file watching and SIGHUP reload of config and schema.
	Watch bool
	// LogOutput receives log lines. Defaults to stderr.
	LogOutput io.Writer
	// Transport overrides the outbound round tripper.
	Transport http.RoundTripper
}

// New creates the application from the config file at configPath.
func New(configPath string) (*App, error) {
	return NewWithOptions(configPath, Options{})
}

// NewWithOptions creates the application with custom options.
func NewWithOptions(configPath string, opts Options) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := setupLogger(cfg.Logging, opts.LogOutput)
	logger.Info().Str("config", configPath).Msg("initializing routegen")

	holder, err := config.NewHolder(configPath, logger)
	if err != nil {
		return nil, err
	}
	cfg = holder.Get()

	a := &App{
		Logger: logger,
		Config: holder,
		clock:  clock.System{},
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		a.Metrics = metrics.New(reg)
		a.Gatherer = reg
		logger.Info().Msg("prometheus metrics enabled")
	}

	if err := a.initJournal(cfg.Journal); err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("init journal: %w", err)
	}

	if err := a.initClient(cfg, opts); err != nil {
		a.Shutdown()
		return nil, err
	}

	a.Inspect = apihttp.NewInspectRouter(apihttp.InspectConfig{
		Source:   a.Client,
		Journal:  a.Journal,
		Gatherer: a.Gatherer,
		Version:  Version,
		Logger:   logger,
	})
	if cfg.Inspect.Listen != "" {
		a.HTTPServer = &http.Server{
			Addr:              cfg.Inspect.Listen,
			Handler:           a.Inspect,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	a.wireReload()
	if opts.Watch {
		if err := holder.WatchFile(); err != nil {
			logger.Warn().Err(err).Msg("file watching disabled")
		}
		holder.WatchSignals()
	}

	return a, nil
}

func (a *App) initJournal(cfg config.JournalConfig) error {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Path)
		if err != nil {
			return err
		}
		if err := db.Migrate(context.Background()); err != nil {
			db.Close()
			return fmt.Errorf("migrate: %w", err)
		}
		a.DB = db
		a.Journal = sqlite.NewJournal(db)
	case "memory":
		a.Journal = memory.NewJournal(cfg.Size)
	default:
		return nil
	}

	a.Logger.Info().Str("driver", cfg.Driver).Str("path", cfg.Path).Msg("call journal initialized")
	a.pruneJournal(context.Background())
	return nil
}

func (a *App) initClient(cfg *config.Config, opts Options) error {
	settings := apihttp.Settings{
		Protocol:     cfg.Client.Protocol,
		Host:         cfg.Client.Host,
		Port:         cfg.Client.Port,
		PathPrefix:   cfg.Client.PathPrefix,
		Proxy:        cfg.Client.Proxy,
		Timeout:      cfg.Client.Timeout,
		Headers:      cfg.Client.Headers,
		RequestMedia: cfg.Client.RequestMedia,
		UserAgent:    cfg.Client.UserAgent,
		Insecure:     cfg.Client.Insecure(),
		Debug:        cfg.Client.Debug,
		Transport:    opts.Transport,
	}

	d, err := apihttp.NewDispatcher(settings, apihttp.Deps{
		FS:      fs.OS{},
		Mime:    mime.Extension{},
		Journal: a.Journal,
		IDs:     idgen.UUID{},
		Clock:   a.clock,
		Metrics: a.Metrics,
		Logger:  a.Logger,
	})
	if err != nil {
		return fmt.Errorf("build dispatcher: %w", err)
	}
	a.Dispatcher = d

	s, err := schema.ParseFile(cfg.Schema.Path)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	client, err := app.NewClient(app.ClientDeps{
		Transport: d,
		Clock:     a.clock,
		Metrics:   a.Metrics,
		Logger:    a.Logger,
	}, app.ClientConfig{Version: cfg.Client.Version}, s)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := client.Authenticate(cfg.Auth); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	a.Client = client

	a.Logger.Info().
		Str("version", cfg.Client.Version).
		Int("endpoints", len(client.Registry().Endpoints())).
		Str("schema", cfg.Schema.Path).
		Msg("schema compiled")
	return nil
}

// wireReload applies reloadable config fields and schema file changes.
func (a *App) wireReload() {
	a.Config.OnSchemaChange(func(path string) {
		_ = a.Client.ReloadFile(path)
	})

	var mu sync.Mutex
	current := a.Config.Get()
	a.Config.OnChange(func(cfg *config.Config) {
		mu.Lock()
		defer mu.Unlock()

		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
		if cfg.Auth != a.Dispatcher.Auth() {
			if err := a.Client.Authenticate(cfg.Auth); err != nil {
				a.Logger.Error().Err(err).Msg("auth reload rejected")
			}
		}
		if cfg.Schema.Path != current.Schema.Path {
			_ = a.Client.ReloadFile(cfg.Schema.Path)
		}
		current = cfg
	})
}

// pruneJournal drops entries older than the configured retention.
func (a *App) pruneJournal(ctx context.Context) {
	retention := a.Config.Get().Journal.Retention
	if a.Journal == nil || retention <= 0 {
		return
	}
	n, err := a.Journal.Prune(ctx, a.clock.Now().Add(-retention))
	if err != nil {
		a.Logger.Error().Err(err).Msg("journal prune failed")
		return
	}
	if n > 0 {
		a.Logger.Info().Int("removed", n).Msg("journal pruned")
	}
}

// Run serves the introspection server until ctx is done or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	if a.HTTPServer == nil {
		return errors.New("inspect.listen is not configured")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting inspect server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		case <-ticker.C:
			a.pruneJournal(ctx)
		case <-ctx.Done():
			a.Logger.Info().Msg("shutting down")
			return a.Shutdown()
		}
	}
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.Config != nil {
		a.Config.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Debug().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}
