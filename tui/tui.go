// Package tui provides a Bubble Tea inspector for a running tickwork engine:
// an output and trace pane, a scheduler status bar, and a command line.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/tickwork/engine"
	"github.com/nathoo/tickwork/engine/snapshot"
	"github.com/nathoo/tickwork/logging"
	"github.com/nathoo/tickwork/types"
)

// Options configures the inspector.
type Options struct {
	Logs     *logging.Buffer // drained into the pane after every step; may be nil
	Interval time.Duration   // time between ticks while auto-running
	Realtime bool            // start auto-running
	MaxTicks int             // stop auto-running at this host tick; 0 means never
	Trace    bool            // start with scheduler event output on
	DumpDir  string
}

// rawLine stores an unstyled output line with its classification, so it can
// be re-wrapped and re-styled when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed operator input
	isSystem bool // true for meta-command output
}

// Model is the Bubble Tea model for the inspector.
type Model struct {
	engine *engine.Engine
	opts   Options

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine

	width    int
	height   int
	ready    bool
	trace    bool
	auto     bool
	quitting bool
	lastCmd  string
}

// outputMsg carries output from the engine into the Update loop.
type outputMsg struct {
	input    string
	lines    []string
	isSystem bool
}

// tickMsg drives auto-run.
type tickMsg time.Time

// New creates an inspector wired to the given engine.
func New(eng *engine.Engine, opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}
	if opts.DumpDir == "" {
		opts.DumpDir = "."
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	return Model{
		engine:  eng,
		opts:    opts,
		input:   ti,
		history: NewHistory(100),
		auto:    opts.Realtime,
		trace:   opts.Trace,
	}
}

// Run starts the Bubble Tea program.
func Run(eng *engine.Engine, opts Options) error {
	p := tea.NewProgram(New(eng, opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Init shows the initial queue and starts auto-run if requested.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.initialOutput()}
	if m.auto {
		cmds = append(cmds, m.scheduleTick())
	}
	return tea.Batch(cmds...)
}

func (m Model) initialOutput() tea.Cmd {
	lines := m.engine.Describe()
	return func() tea.Msg {
		return outputMsg{lines: lines, isSystem: true}
	}
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.opts.Interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles key presses, window resizes, ticks and engine output.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "ctrl+t":
			m = m.step()
			return m, nil

		case "ctrl+r":
			return m.toggleAuto()

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case tickMsg:
		if !m.auto {
			return m, nil
		}
		m = m.step()
		if m.opts.MaxTicks > 0 && m.engine.State.Tick >= m.opts.MaxTicks {
			m.auto = false
			m = m.appendOutput(outputMsg{
				lines:    []string{fmt.Sprintf("Reached tick %d, auto-run paused.", m.engine.State.Tick)},
				isSystem: true,
			})
			return m, nil
		}
		return m, m.scheduleTick()

	case outputMsg:
		m = m.appendOutput(msg)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// step advances the engine once and appends what happened.
func (m Model) step() Model {
	res := m.engine.Step()
	lines := res.Output
	if m.trace {
		lines = append(lines, formatTrace(res)...)
	}
	if len(lines) == 0 && m.opts.Logs == nil {
		return m
	}
	return m.appendOutput(outputMsg{lines: lines})
}

func (m Model) toggleAuto() (tea.Model, tea.Cmd) {
	m.auto = !m.auto
	if m.auto {
		m = m.appendOutput(outputMsg{lines: []string{"Auto-run on."}, isSystem: true})
		return m, m.scheduleTick()
	}
	m = m.appendOutput(outputMsg{lines: []string{"Auto-run off."}, isSystem: true})
	return m, nil
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	m.history.Push(input)
	m.history.ResetCursor()

	// Handle "again" / "g".
	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m = m.appendOutput(outputMsg{
				input: input, lines: []string{"Nothing to repeat."}, isSystem: true,
			})
			return m, nil
		}
		input = m.lastCmd
	} else {
		m.lastCmd = input
	}

	// Meta-commands.
	if strings.HasPrefix(input, "/") {
		if input == "/run" {
			return m.toggleAuto()
		}
		output, quit := m.handleMeta(input)
		m = m.appendOutput(outputMsg{input: input, lines: output, isSystem: true})
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	result := m.engine.Command(input)
	output := result.Output
	if m.trace {
		output = append(output, formatTrace(result)...)
	}
	m = m.appendOutput(outputMsg{input: input, lines: output})
	return m, nil
}

// appendOutput adds lines, then any buffered log records, and refreshes the
// viewport.
func (m Model) appendOutput(msg outputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{
			text: "> " + msg.input, isInput: true,
		})
	}

	for _, line := range msg.lines {
		rl := rawLine{text: line, isSystem: msg.isSystem}
		if !msg.isSystem {
			rl.kind = classifyLine(line)
		}
		m.rawLines = append(m.rawLines, rl)
	}

	if m.opts.Logs != nil {
		for _, line := range m.opts.Logs.Drain() {
			m.rawLines = append(m.rawLines, rawLine{text: line, kind: classifyLine(line)})
		}
	}

	m.refreshViewport()

	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordWrap(rl.text, width)

		switch {
		case rl.isInput:
			styled = append(styled, styleOperatorInput.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		switch {
		case i == 0:
			lineLen = len(word)
		case lineLen+1+len(word) > width:
			result.WriteString("\n")
			lineLen = len(word)
		default:
			result.WriteString(" ")
			lineLen += 1 + len(word)
		}
		result.WriteString(word)
	}
	return result.String()
}

// View renders the layout: viewport, status bar, input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/dump":
		return m.cmdDump(arg), false

	case "/help":
		return cmdHelp(), false

	case "/state":
		return m.cmdState(), false

	case "/history":
		return m.history.Entries(), false

	case "/trace":
		m.trace = !m.trace
		if m.trace {
			return []string{"Trace output enabled."}, false
		}
		return []string{"Trace output disabled."}, false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) cmdDump(name string) []string {
	if name == "" {
		name = fmt.Sprintf("tick-%d", m.engine.State.Tick)
	}
	if filepath.Ext(name) == "" {
		name += ".json"
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.opts.DumpDir, name)
	}
	if err := snapshot.WriteFile(path, m.engine); err != nil {
		return []string{fmt.Sprintf("Dump failed: %v", err)}
	}
	return []string{fmt.Sprintf("Snapshot written to %s.", path)}
}

func cmdHelp() []string {
	return []string{
		"System:",
		"  /dump [file]  Write a JSON snapshot",
		"  /run          Toggle auto-run (also ctrl+r)",
		"  /quit         Exit",
		"  /help         Show this help",
		"  /state        Flags, counters and RNG position",
		"  /history      Show command history",
		"  /trace        Toggle scheduler event output",
		"",
		"Engine commands:",
		"  tick [n], start, stop, queue, cancel <name>, clear,",
		"  pause <name> <ticks>, done <name>, emit <event>,",
		"  flag <name> [bool], counter <name> [n], again (g)",
		"",
		"Keys: ctrl+t single tick, PgUp/PgDn scroll, Up/Down history",
	}
}

func (m *Model) cmdState() []string {
	s := m.engine.State
	output := []string{
		fmt.Sprintf("Tick: %d", s.Tick),
		fmt.Sprintf("RNG: seed %d, position %d", s.RNGSeed, s.RNGPosition),
	}
	if len(s.Flags) > 0 {
		output = append(output, fmt.Sprintf("Flags: %v", s.Flags))
	}
	if len(s.Counters) > 0 {
		output = append(output, fmt.Sprintf("Counters: %v", s.Counters))
	}
	return output
}

func formatTrace(result types.Result) []string {
	if len(result.Events) == 0 {
		return nil
	}
	lines := []string{fmt.Sprintf("[trace] Events: %d", len(result.Events))}
	for _, e := range result.Events {
		line := "[trace]   " + e.Type
		if name, ok := e.Data["name"].(string); ok && name != "" {
			line += " " + name
		}
		if errText, ok := e.Data["error"].(string); ok {
			line += ": " + errText
		}
		lines = append(lines, line)
	}
	return lines
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled, since
// those drive input history.
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
