package parser

import (
	"reflect"
	"testing"

	"github.com/nathoo/tickwork/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  types.Command
	}{
		// Empty / whitespace
		{
			name:  "empty string",
			input: "",
			want:  types.Command{},
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  types.Command{},
		},

		// Basic verbs
		{
			name:  "tick",
			input: "tick",
			want:  types.Command{Verb: "tick", Raw: "tick"},
		},
		{
			name:  "tick with count",
			input: "tick 10",
			want:  types.Command{Verb: "tick", Args: []string{"10"}, Raw: "tick 10"},
		},
		{
			name:  "uppercase verb",
			input: "CLEAR",
			want:  types.Command{Verb: "clear", Raw: "CLEAR"},
		},

		// Aliases
		{
			name:  "t → tick",
			input: "t 3",
			want:  types.Command{Verb: "tick", Args: []string{"3"}, Raw: "t 3"},
		},
		{
			name:  "q → queue",
			input: "q",
			want:  types.Command{Verb: "queue", Raw: "q"},
		},
		{
			name:  "run → start",
			input: "run",
			want:  types.Command{Verb: "start", Raw: "run"},
		},
		{
			name:  "kill → cancel",
			input: "kill Warn",
			want:  types.Command{Verb: "cancel", Args: []string{"Warn"}, Raw: "kill Warn"},
		},

		// Multi-word phrases
		{
			name:  "mark done",
			input: "mark done boss",
			want:  types.Command{Verb: "done", Args: []string{"boss"}, Raw: "mark done boss"},
		},
		{
			name:  "show queue",
			input: "show queue",
			want:  types.Command{Verb: "queue", Raw: "show queue"},
		},
		{
			name:  "set counter",
			input: "set counter hits 4",
			want:  types.Command{Verb: "counter", Args: []string{"hits", "4"}, Raw: "set counter hits 4"},
		},
		{
			name:  "set alone is flag",
			input: "set door true",
			want:  types.Command{Verb: "flag", Args: []string{"door", "true"}, Raw: "set door true"},
		},
		{
			name:  "cancel action",
			input: "cancel action t1",
			want:  types.Command{Verb: "cancel", Args: []string{"t1"}, Raw: "cancel action t1"},
		},

		// Arguments keep case and spacing collapses
		{
			name:  "pause args",
			input: "  pause   Spawner  5 ",
			want:  types.Command{Verb: "pause", Args: []string{"Spawner", "5"}, Raw: "pause   Spawner  5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}
