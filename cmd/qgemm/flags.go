package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kestrel-ml/qgemm/internal/logger"
)

var (
	logLevel  string
	logFormat string
	debug     bool
	threads   int64
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func threadsFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:        "threads",
		Aliases:     []string{"t"},
		Usage:       "worker threads (0 = GOMAXPROCS)",
		Destination: &threads,
	}
}

// newLogger builds the logger selected by the logging flags.
func newLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	switch logFormat {
	case "json":
		return logger.JSON(os.Stderr, level)
	case "text":
		return logger.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	default:
		return logger.Pretty(os.Stderr, level)
	}
}
