package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleOutput = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleHeading = lipgloss.NewStyle().
			Bold(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleWarn = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleOperatorInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindOutput lineKind = iota
	kindHeading
	kindSystem
	kindTrace
	kindDebug
	kindWarn
	kindError
)

// classifyLine determines what kind of output line this is. Log records
// from logging.Buffer start with their padded level.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "ERROR "):
		return kindError
	case strings.HasPrefix(line, "WARN "):
		return kindWarn
	case strings.HasPrefix(line, "DEBUG "), strings.HasPrefix(line, "INFO "):
		return kindDebug
	case strings.HasPrefix(line, "Tick ") && strings.HasSuffix(line, " actions."),
		isSectionTitle(line):
		return kindHeading
	default:
		return kindOutput
	}
}

// isSectionTitle matches the "Serial:" style headings of the queue listing.
func isSectionTitle(line string) bool {
	switch line {
	case "Serial:", "Parallel:", "Conditional:":
		return true
	}
	return false
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindHeading:
		return styleHeading.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindTrace, kindDebug:
		return styleTrace.Render(line)
	case kindWarn:
		return styleWarn.Render(line)
	case kindError:
		return styleError.Render(line)
	default:
		return styleOutput.Render(line)
	}
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
