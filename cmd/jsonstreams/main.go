// Command jsonstreams writes records read from a file or stdin as a single
// JSON document, one record at a time, to a file, stdout or a NATS service.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/dcbaker/jsonstreams/internal/config"
)

func main() {
	app := kingpin.New("jsonstreams", "Stream records into a single JSON array or object.")
	app.HelpFlag.Short('h')
	flags := config.RegisterFlags(app)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := flags.Resolve()
	logger := newLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		exitWithErr(logger, fmt.Errorf("failed to load config: %w", err))
	}

	if err := run(cfg, os.Stdin, os.Stdout, logger); err != nil {
		exitWithErr(logger, err)
	}
}

func newLogger(w io.Writer, lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = level.NewFilter(logger, levelOption(lvl))
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

func levelOption(lvl string) level.Option {
	switch lvl {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	}
	return level.AllowInfo()
}

func exitWithErr(logger log.Logger, err error) {
	level.Error(logger).Log("msg", "jsonstreams failed", "err", err)
	os.Exit(1)
}
