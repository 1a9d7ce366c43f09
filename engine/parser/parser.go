// Package parser converts console command strings into Command structs.
// Intentionally dumb: a verb, its aliases, and whitespace-separated args.
package parser

import (
	"strings"

	"github.com/nathoo/tickwork/types"
)

var verbAliases = map[string]string{
	// Tick
	"t":       "tick",
	"step":    "tick",
	"advance": "tick",
	"n":       "tick",

	// Start / Stop
	"run":    "start",
	"resume": "start",
	"go":     "start",
	"freeze": "stop",
	"halt":   "stop",

	// Cancel / Clear
	"kill":   "cancel",
	"rm":     "cancel",
	"remove": "cancel",
	"reset":  "clear",
	"flush":  "clear",

	// Events
	"send":  "emit",
	"raise": "emit",
	"fire":  "emit",

	// State
	"set": "flag",
	"ctr": "counter",
	"inc": "counter",

	// Inspection
	"q":      "queue",
	"ls":     "queue",
	"list":   "queue",
	"status": "queue",

	// Action control
	"hold":     "pause",
	"wait":     "pause",
	"finish":   "done",
	"complete": "done",
}

// Parse converts a raw command string into a Command. The verb is
// lowercased and de-aliased; arguments keep their case.
func Parse(input string) types.Command {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return types.Command{}
	}

	words := strings.Fields(raw)
	words[0] = strings.ToLower(words[0])

	// Handle multi-word verb phrases before alias lookup.
	words = expandMultiWordVerbs(words)

	if alias, ok := verbAliases[words[0]]; ok {
		words[0] = alias
	}

	cmd := types.Command{Verb: words[0], Raw: raw}
	if len(words) > 1 {
		cmd.Args = words[1:]
	}
	return cmd
}

// expandMultiWordVerbs handles "mark done", "show queue", "set flag" etc.
func expandMultiWordVerbs(words []string) []string {
	if len(words) < 2 {
		return words
	}

	second := strings.ToLower(words[1])
	switch words[0] {
	case "mark":
		if second == "done" {
			return append([]string{"done"}, words[2:]...)
		}
	case "show":
		if second == "queue" || second == "actions" {
			return append([]string{"queue"}, words[2:]...)
		}
	case "set":
		if second == "flag" || second == "counter" {
			return append([]string{second}, words[2:]...)
		}
	case "cancel":
		if second == "action" {
			return append([]string{"cancel"}, words[2:]...)
		}
	}

	return words
}
