// Package cli provides the line-oriented console for driving a tickwork
// engine: command input, output formatting, and meta-command dispatch.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nathoo/tickwork/engine"
	"github.com/nathoo/tickwork/engine/snapshot"
	"github.com/nathoo/tickwork/types"
)

// CLI handles terminal interaction with the operator.
type CLI struct {
	Engine    *engine.Engine
	In        io.Reader
	Out       io.Writer
	DumpDir   string
	Trace     bool
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastCmd   string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine) *CLI {
	return &CLI{
		Engine:  eng,
		In:      os.Stdin,
		Out:     os.Stdout,
		DumpDir: ".",
	}
}

// Run starts the console loop: prompt, input, dispatch, output. It returns
// on /quit or end of input.
func (c *CLI) Run() {
	for _, line := range c.Engine.Describe() {
		c.printLine(line)
	}

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			if c.handleMeta(input) {
				return // /quit
			}
			continue
		}

		// "again" / "g" repeats the last engine command.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		c.PrintStep(c.Engine.Command(input))
	}
}

// PrintStep writes a result's output, followed by its events when tracing.
func (c *CLI) PrintStep(result types.Result) {
	c.printResult(result)
	if c.Trace {
		c.printTrace(result)
	}
}

// handleMeta dispatches meta-commands. Returns true if the console should
// exit.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/dump":
		c.cmdDump(arg)

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdDump(name string) {
	if name == "" {
		name = fmt.Sprintf("tick-%d", c.Engine.State.Tick)
	}
	if filepath.Ext(name) == "" {
		name += ".json"
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.DumpDir, name)
	}

	if err := snapshot.WriteFile(path, c.Engine); err != nil {
		c.printSystem(fmt.Sprintf("Dump failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Snapshot written to %s.", path))
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /dump [file]  Write a JSON snapshot (default: tick-<n>.json)",
		"  /quit         Exit",
		"  /help         Show this help",
		"  /state        Dump flags, counters and scheduler status",
		"  /trace        Toggle scheduler event output",
		"",
		"Engine commands:",
		"  tick [n] (t)            Advance n ticks (default 1)",
		"  start / stop            Start or stop the scheduler",
		"  queue (ls)              Show every scheduled action",
		"  cancel <name>           Remove a serial action",
		"  clear                   Remove every scheduled action",
		"  pause <name> <ticks>    Hold an action for some ticks",
		"  done <name>             Mark an action done",
		"  emit <event>            Queue an event for the next tick",
		"  flag <name> [bool]      Read or set a flag",
		"  counter <name> [n]      Read or set a counter",
		"  again (g)               Repeat your last command",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	s := c.Engine.State
	m := c.Engine.Actions
	c.printSystem(fmt.Sprintf("Tick: %d (scheduler ticks: %d)", s.Tick, m.Ticks()))
	c.printSystem(fmt.Sprintf("Running: %t", m.Running()))
	c.printSystem(fmt.Sprintf("Actions: %d serial, %d parallel, %d conditional",
		len(m.Queue()), len(m.ParallelActions()), len(m.ConditionalActions())))
	if len(s.Flags) > 0 {
		c.printSystem(fmt.Sprintf("Flags: %s", sortedPairs(s.Flags)))
	}
	if len(s.Counters) > 0 {
		c.printSystem(fmt.Sprintf("Counters: %s", sortedPairs(s.Counters)))
	}
	c.printSystem(fmt.Sprintf("RNG: seed %d, position %d", s.RNGSeed, s.RNGPosition))
}

func sortedPairs[V any](m map[string]V) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, m[k])
	}
	return strings.Join(parts, " ")
}

func (c *CLI) printTrace(result types.Result) {
	if len(result.Events) == 0 {
		return
	}
	c.printLine(fmt.Sprintf("[trace] Events: %d", len(result.Events)))
	for _, e := range result.Events {
		c.printLine("[trace]   " + FormatEvent(e))
	}
}

// FormatEvent renders a trace event as "type key=value ...".
func FormatEvent(e types.Event) string {
	if len(e.Data) == 0 {
		return e.Type
	}
	return e.Type + " " + sortedPairs(e.Data)
}

func (c *CLI) printResult(result types.Result) {
	for _, line := range result.Output {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
