// Command imgresponsiver generates responsive image variants and rewrites
// HTML <img> references into <picture> elements that offer them.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"imgresponsiver/core"
	"imgresponsiver/history"
	"imgresponsiver/logging"
	"imgresponsiver/pipeline"
	"imgresponsiver/shutdown"
)

// Globals are flags shared by every command.
type Globals struct {
	Config  string           `short:"c" help:"YAML configuration file (default: ${config_file} when present)" type:"path"`
	EnvFile string           `name:"env-file" help:"dotenv file loaded before the environment is read" default:".env"`
	Dev     bool             `help:"Colored debug logging (same as DEV_MODE=true)"`
	Version kong.VersionFlag `help:"Print version information and exit"`
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Run     RunCmd     `cmd:"" default:"1" help:"Generate missing variants and rewrite HTML (default)"`
	Restore RestoreCmd `cmd:"" help:"Remove generated <picture> elements from HTML"`
	Watch   WatchCmd   `cmd:"" help:"Run, then run again whenever a source image changes"`
	History HistoryCmd `cmd:"" help:"Show recorded runs"`
	Service ServiceCmd `cmd:"" help:"Manage watch mode as an OS service"`
}

// app carries what commands need once configuration is loaded.
type app struct {
	globals *Globals
	cfg     *core.Config
	logger  *logging.Logger
	manager *shutdown.Manager
	stdout  io.Writer
	store   *history.Store

	// reported is set once a command has printed its own outcome.
	reported bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, executes the selected command and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("imgresponsiver"),
		kong.Description("Responsive image variants and <picture> rewriting for static HTML"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{
			"version":     core.GetVersionInfo(),
			"config_file": core.DefaultConfigFile,
		},
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		fmt.Fprintf(stderr, "imgresponsiver: %v\n", err)
		return core.ExitCodeError
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return core.ExitCodeError
	}

	a, err := newApp(&cli.Globals, stdout)
	if err != nil {
		printError(stderr, err)
		return core.ExitCodeFor(err)
	}

	a.manager.Start()
	err = kctx.Run(a)
	if cerr := a.manager.Shutdown(); cerr != nil {
		fmt.Fprintf(stderr, "cleanup: %v\n", cerr)
	}

	if sig := a.manager.Signal(); sig != nil {
		return shutdown.ExitCodeForSignal(sig)
	}
	if err != nil {
		a.logger.Debug("Command failed", zap.Error(err))
		if !a.reported {
			printError(stderr, err)
		}
	}
	return core.ExitCodeFor(err)
}

// newApp loads the environment file and configuration, then builds the
// logger and shutdown manager with their cleanup handlers registered.
func newApp(g *Globals, stdout io.Writer) (*app, error) {
	if err := core.LoadEnvFile(g.EnvFile); err != nil {
		return nil, err
	}
	cfg, err := core.LoadConfig(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Dev {
		cfg.DevMode = true
	}

	logger, err := logging.NewLogger(logging.Options{
		Level:    cfg.LogLevel,
		DevMode:  cfg.DevMode,
		FilePath: cfg.LogFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("Configuration loaded",
		zap.Strings("images_dirs", cfg.ImagesDirs),
		zap.Ints("sizes", cfg.ConversionSizes),
		zap.Strings("formats", cfg.OutputFileTypes),
		zap.String("output_dir", cfg.OutputDir),
		zap.Strings("html_dirs", cfg.HTMLDirs),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.String("fingerprint", cfg.FingerprintAlgorithm),
		zap.Bool("history", cfg.HistoryEnabled()),
	)

	a := &app{
		globals: g,
		cfg:     cfg,
		logger:  logger,
		manager: shutdown.NewManager(context.Background(), logger),
		stdout:  stdout,
	}
	tempDirs := append([]string{cfg.OutputDir}, cfg.HTMLDirs...)
	a.manager.Register("temp-files", 40, shutdown.CleanupTempFiles(logger, tempDirs...))
	a.manager.Register("logger", 50, func(context.Context) error {
		// Sync on a terminal returns ENOTTY; it is not worth reporting.
		_ = logger.Sync()
		return nil
	})
	return a, nil
}

// historyStore opens the run history database once, or returns nil when
// history is disabled.
func (a *app) historyStore(ctx context.Context) (*history.Store, error) {
	if a.store != nil || !a.cfg.HistoryEnabled() {
		return a.store, nil
	}
	store, err := history.Open(ctx, a.cfg.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open run history %s: %w", a.cfg.HistoryDB, err)
	}
	a.store = store
	a.manager.Register("history", 30, func(context.Context) error {
		return store.Close()
	})
	return store, nil
}

// pipeline builds a Pipeline from the loaded configuration.
func (a *app) pipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	var opts []pipeline.Option
	store, err := a.historyStore(ctx)
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts = append(opts, pipeline.WithHistory(store))
	}
	return pipeline.New(a.cfg, a.logger, opts...)
}

// printError writes err in red, with the suggested action for config errors.
func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	if cfgErr, ok := core.IsConfigError(err); ok {
		red.Fprintf(w, "✗ %s\n", cfgErr.Message)
		if cfgErr.Action != "" {
			color.New(color.FgHiBlack).Fprintf(w, "  └─ %s\n", cfgErr.Action)
		}
		return
	}
	red.Fprintf(w, "✗ %v\n", err)
}
