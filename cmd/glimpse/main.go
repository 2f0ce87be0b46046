package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/alecthomas/kong"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/joho/godotenv"

	"github.com/sre-norns/glimpse/pkg/capture"
	"github.com/sre-norns/glimpse/pkg/chrome"
	"github.com/sre-norns/glimpse/pkg/grace"
)

var version = "dev"

var appCli struct {
	capture.Options

	Report    reportFormat `name:"report" enum:"none,yaml,yml,json,table" default:"none" env:"GLIMPSE_REPORT" help:"Print a report of the run to stdout: ${enum}"`
	LogLevel  string       `name:"logLevel" enum:"debug,info,warn,error" default:"info" env:"GLIMPSE_LOG_LEVEL" help:"Minimal level of log messages: ${enum}"`
	LogFormat string       `name:"logFormat" enum:"logfmt,json" default:"logfmt" env:"GLIMPSE_LOG_FORMAT" help:"Log output format: ${enum}"`

	Version kong.VersionFlag `short:"v" help:"Print version information and quit"`
}

// usageError marks command line parsing failures.
type usageError struct {
	error
}

func (e usageError) Unwrap() error    { return e.error }
func (e usageError) UsageError() bool { return true }

func levelOption(name string) level.Option {
	switch name {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

func newLogger(w io.Writer, format, lvl string) log.Logger {
	var logger log.Logger
	if format == "json" {
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	} else {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	}

	logger = level.NewFilter(logger, levelOption(lvl))
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "failed to load .env:", err)
	}

	parser, err := kong.New(&appCli,
		kong.Name("glimpse"),
		kong.Description("Capture a screenshot and optionally a PDF of a web page using a headless browser"),
		kong.UsageOnError(),
		capture.Vars(),
		kong.Vars{"version": version},
	)
	if err != nil {
		panic(err)
	}

	_, err = parser.Parse(os.Args[1:])
	logger := newLogger(os.Stderr, appCli.LogFormat, appCli.LogLevel)
	if err != nil {
		grace.ExitOrLog(logger, usageError{err})
	}

	cfg, err := appCli.Options.Resolve()
	if err != nil {
		grace.ExitOrLog(logger, err)
	}

	report, err := getFormatter(appCli.Report)
	if err != nil {
		grace.ExitOrLog(logger, usageError{err})
	}

	ctx := grace.SetupSignalHandler()
	result, err := capture.Run(ctx, cfg, chrome.Launch, logger)

	if ferr := report(os.Stdout, result); ferr != nil {
		level.Warn(logger).Log("msg", "failed to print the report", "err", ferr)
	}

	grace.ExitOrLog(logger, err)
}
