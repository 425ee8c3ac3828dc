package main

import (
	"context"
	"errors"
	"os"

	"agrocost/internal/amqp"
	"agrocost/internal/cli"
	applog "agrocost/internal/log"
	"agrocost/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	// No broker sink here: errors of the consumer itself must not loop
	// back into the queue it reads.
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentApp,
		Output:    os.Stderr,
	})
	applog.SetDefault(logger)

	if cfg.LogAMQPURL == "" {
		logger.Error("LOG_AMQP_URL is required")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.LogAMQPURL, cfg.LogAMQPExchange, cfg.LogAMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := cli.NotifyContext(context.Background(), logger)
	defer cancel()

	w := worker.NewLogEventWorker(os.Stdout, amqp.Source)
	err = client.ConsumeLogEvents(ctx, logger, w.HandleLogEvent)
	logger.Info("Worker stopped", "handled", w.Handled())
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		cancel()
		client.Close()
		os.Exit(1)
	}
}
