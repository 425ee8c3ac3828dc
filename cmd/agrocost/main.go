package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"agrocost/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cli.Register(commander)

	raw := flag.Bool("raw", false, "Print markdown without terminal styling.")
	envFile := flag.String("env-file", ".env", "Optional dotenv file to load before reading the environment.")
	// Answers shell completion requests and exits; a no-op otherwise.
	cli.Completion(flag.CommandLine).Complete(path.Base(os.Args[0]))

	flag.Parse()

	cli.LoadEnvFile(*envFile)
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return int(subcommands.ExitFailure)
	}

	logger, sink := cli.SetupLogger(cfg, os.Stderr)

	ctx, cancel := cli.NotifyContext(context.Background(), logger)
	defer cancel()

	app, err := cli.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open expense store", "error", err, "backend", cfg.DataBackend)
		if sink != nil {
			sink.Close()
		}
		return int(subcommands.ExitFailure)
	}
	app.Raw = *raw
	app.AttachSink(sink)

	status := commander.Execute(ctx, app)

	// The flush gets its own deadline even after an interrupt.
	if err := app.Close(context.Background()); err != nil {
		logger.Error("Shutdown incomplete", "error", err)
		if status == subcommands.ExitSuccess {
			status = subcommands.ExitFailure
		}
	}
	return int(status)
}
