// Package cli wires the application together and implements the
// command line front end.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agrocost/internal/amqp"
	"agrocost/internal/backend"
	"agrocost/internal/config"
	"agrocost/internal/ledger"
	applog "agrocost/internal/log"
	"agrocost/internal/report"
	"agrocost/internal/storage"
)

// App is the composition root shared by every command.
type App struct {
	Config *config.Config
	Logger *applog.Logger
	Ledger *ledger.Ledger

	Out io.Writer
	In  io.Reader
	Now func() time.Time
	Raw bool

	writer  *storage.Writer
	cleanup backend.CleanupFunc
	sink    io.Closer
}

// LoadEnvFile loads dotenv files for local use.
// Errors are ignored silently as the files are optional.
func LoadEnvFile(filenames ...string) {
	config.LoadEnvFile(filenames...)
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the application logger and sets it as the default.
// When an AMQP URL is configured, error records are also published to the
// broker; a broker that cannot be reached only disables publishing.
func SetupLogger(cfg *config.Config, out io.Writer) (*applog.Logger, io.Closer) {
	level := applog.ParseLevel(cfg.LogLevel)
	var handler slog.Handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})

	var sink io.Closer
	var sinkErr error
	if cfg.LogAMQPURL != "" {
		client, err := amqp.NewClient(cfg.LogAMQPURL, cfg.LogAMQPExchange, cfg.LogAMQPQueue)
		if err != nil {
			sinkErr = err
		} else {
			sinkHandler := applog.NewSinkHandler(handler, client, slog.LevelError)
			handler = sinkHandler
			sink = brokerSink{handler: sinkHandler, client: client}
		}
	}

	logger := applog.New(applog.Config{Handler: handler, Component: applog.ComponentApp})
	applog.SetDefault(logger)

	if sinkErr != nil {
		logger.Warn("Log broker unavailable, error events will not be published",
			applog.FieldComponent, applog.ComponentAMQP, applog.FieldError, sinkErr)
	}
	return logger, sink
}

// brokerSink publishes the buffered error events before closing the
// broker connection.
type brokerSink struct {
	handler *applog.SinkHandler
	client  *amqp.Client
}

func (s brokerSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(s.handler.Close(ctx), s.client.Close())
}

// Open creates the store selected by cfg, loads the stored expenses and
// starts the background writer.
func Open(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*App, error) {
	if logger == nil {
		logger = applog.Discard()
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateStore(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	adapter := storage.NewAdapter(res.Store, cfg.StoreKey, logger)
	writer := storage.NewWriter(adapter,
		storage.WithMaxRetries(uint64(cfg.PersistMaxRetries)),
		storage.WithWriterLogger(logger))

	expenses := adapter.Load(ctx)
	logger.Debug("Expenses loaded",
		applog.FieldOperation, applog.OpLoad,
		applog.FieldBackend, bcfg.Type.String(),
		applog.FieldCount, len(expenses))

	return &App{
		Config:  cfg,
		Logger:  logger,
		Ledger:  ledger.New(writer, ledger.WithExpenses(expenses), ledger.WithLogger(logger)),
		Out:     os.Stdout,
		In:      os.Stdin,
		Now:     time.Now,
		writer:  writer,
		cleanup: res.Cleanup,
	}, nil
}

// AttachSink hands the log broker client to the app so Close releases it
// after the last save has been logged.
func (a *App) AttachSink(sink io.Closer) { a.sink = sink }

// Close flushes the pending snapshot, then releases the store and the log
// broker. The flush is bounded by the configured shutdown timeout.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.writer != nil {
		timeout := 10 * time.Second
		if a.Config != nil && a.Config.ShutdownTimeout > 0 {
			timeout = a.Config.ShutdownTimeout
		}
		flushCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := a.writer.Close(flushCtx); err != nil {
			errs = append(errs, fmt.Errorf("flush expenses: %w", err))
		}
		stats := a.writer.Stats()
		a.logger().Debug("Writer stopped",
			applog.FieldOperation, applog.OpShutdown,
			"saved", stats.Saved, "failed", stats.Failed, "superseded", stats.Superseded)
	}
	if a.cleanup != nil {
		if err := a.cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log broker: %w", err))
		}
	}
	return errors.Join(errs...)
}

// NotifyContext returns a context cancelled on SIGINT or SIGTERM.
func NotifyContext(parent context.Context, logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func (a *App) logger() *applog.Logger {
	if a.Logger == nil {
		return applog.Discard()
	}
	return a.Logger.WithComponent(applog.ComponentCLI)
}

func (a *App) currency() string {
	if a.Config == nil {
		return ""
	}
	return a.Config.Currency
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// printMarkdown renders md for the terminal unless raw output was requested.
func (a *App) printMarkdown(md string) error {
	out, err := report.Render(md, a.Raw)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(a.Out, out)
	return err
}
