// Tickwork runs a tick-driven action scheduler over Lua and JavaScript
// scripts and declarative YAML tasks.
// Usage: tickwork [--version] [--plain] [--script <file>] [--trace]
// [--config <file>] [--ticks <n>] [--realtime] <scripts_dir>
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/nathoo/tickwork/cli"
	"github.com/nathoo/tickwork/config"
	"github.com/nathoo/tickwork/engine"
	"github.com/nathoo/tickwork/loader"
	"github.com/nathoo/tickwork/logging"
	"github.com/nathoo/tickwork/tui"
	"github.com/nathoo/tickwork/types"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: tickwork [--version] [--plain] [--script <file>] [--trace] [--config <file>] [--ticks <n>] [--realtime] <scripts_dir>"

func main() {
	plain := false
	trace := false
	realtime := false
	ticks := 0
	var scriptsDir, scriptFile, configFile string

	args := os.Args[1:]
	value := func(i int, flag string) string {
		if i+1 >= len(args) {
			fatalf("%s requires a value\n", flag)
		}
		return args[i+1]
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("tickwork %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--trace":
			trace = true
		case "--realtime":
			realtime = true
		case "--script":
			scriptFile = value(i, "--script")
			i++
		case "--config":
			configFile = value(i, "--config")
			i++
		case "--ticks":
			n, err := strconv.Atoi(value(i, "--ticks"))
			if err != nil || n < 1 {
				fatalf("--ticks requires a positive number\n")
			}
			ticks = n
			i++
		default:
			if scriptsDir == "" {
				scriptsDir = args[i]
			}
		}
	}

	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			fatalf("Error loading config: %v\n", err)
		}
	}
	if scriptsDir == "" {
		scriptsDir = cfg.ScriptsDir()
	}
	if scriptsDir == "" && len(cfg.Tasks) == 0 {
		fatalf("%s\n", usage)
	}

	interactive := ticks == 0 && scriptFile == "" && !plain && isTerminal()

	// The inspector shows log records in its own pane; everything else logs
	// to stderr.
	var logs *logging.Buffer
	var logger *slog.Logger
	if interactive {
		level, _ := logging.ParseLevel(cfg.Log.Level)
		logs = logging.NewBuffer(level, 500)
		logger = slog.New(logs)
	} else {
		var err error
		if logger, err = logging.New(cfg.Logging(), os.Stderr); err != nil {
			fatalf("Error configuring logging: %v\n", err)
		}
	}

	eng := engine.New(cfg.Engine.Seed, logger)

	if scriptsDir != "" {
		rt, err := loader.Load(scriptsDir, eng, logger)
		if err != nil {
			fatalf("Error loading scripts: %v\n", err)
		}
		defer rt.Close()
		logger.Info("scripts loaded", "dir", scriptsDir, "files", rt.Files)
	}

	defs, err := loader.CompileTasks(cfg.Tasks, logger)
	if err != nil {
		fatalf("Error in config tasks: %v\n", err)
	}
	for _, def := range defs {
		if _, err := eng.ScheduleTask(def); err != nil {
			fatalf("Error scheduling task: %v\n", err)
		}
	}

	if cfg.Autostart() {
		eng.Actions.Start()
	}

	// Batch mode: run a fixed number of ticks and print what happened.
	if ticks > 0 {
		printer := &cli.CLI{Out: os.Stdout, Trace: trace}
		onStep := func(res types.Result) { printer.PrintStep(res) }
		if !realtime {
			for i := 0; i < ticks; i++ {
				onStep(eng.Step())
			}
			return
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := eng.Run(ctx, cfg.TickInterval(), ticks, onStep); err != nil && ctx.Err() == nil {
			fatalf("Error: %v\n", err)
		}
		return
	}

	// Script mode: read commands from file, echo them.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fatalf("Error opening script: %v\n", err)
		}
		defer f.Close()
		c := cli.New(eng)
		c.In = f
		c.EchoInput = true
		c.Trace = trace
		c.Run()
		return
	}

	if !interactive {
		c := cli.New(eng)
		c.Trace = trace
		c.Run()
		return
	}

	err = tui.Run(eng, tui.Options{
		Logs:     logs,
		Interval: cfg.TickInterval(),
		Realtime: realtime,
		MaxTicks: cfg.Engine.MaxTicks,
		Trace:    trace,
	})
	if err != nil {
		fatalf("Error: %v\n", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
