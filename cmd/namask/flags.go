package main

import (
	"fmt"
	"io"
	"os"

	"fortio.org/safecast"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/namask/internal/alloc"
	"github.com/samcharles93/namask/internal/logger"
	"github.com/samcharles93/namask/internal/ndarray"
)

var (
	logLevel  string
	logFormat string
	debug     bool

	allocatorName string
	maxMaskBytes  int64
	multiValued   bool

	appConfig Config
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

func maskFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "allocator",
			Usage:       "mask buffer allocator (heap, mmap)",
			Value:       "heap",
			Destination: &allocatorName,
		},
		&cli.Int64Flag{
			Name:        "max-mask-bytes",
			Usage:       "cap on outstanding mask bytes (0 for no cap)",
			Destination: &maxMaskBytes,
		},
		&cli.BoolFlag{
			Name:        "multi",
			Aliases:     []string{"multi-valued"},
			Usage:       "use the multi-valued mask type instead of bool",
			Destination: &multiValued,
		},
	}
}

// newAcquirer builds the mask acquirer selected by the allocator flags.
func newAcquirer(log logger.Logger) (*ndarray.Acquirer, error) {
	al, err := alloc.ByName(allocatorName)
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	if maxMaskBytes > 0 {
		limit, err := safecast.Conv[int](maxMaskBytes)
		if err != nil {
			return nil, cli.Exit(fmt.Sprintf("max-mask-bytes: %v", err), 2)
		}
		al = alloc.NewLimited(al, limit)
	}
	return &ndarray.Acquirer{Alloc: al, Log: log}, nil
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
