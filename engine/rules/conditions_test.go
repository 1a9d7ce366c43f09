package rules

import (
	"strings"
	"testing"

	"github.com/nathoo/tickwork/engine/events"
	"github.com/nathoo/tickwork/engine/state"
	"github.com/nathoo/tickwork/types"
)

func condTestState() *types.State {
	s := state.New(0)
	s.Tick = 12
	s.Flags["door_open"] = true
	s.Flags["alarm"] = false
	s.Counters["hits"] = 5
	events.Emit(s, "bell")
	events.Deliver(s)
	return s
}

func TestEvalCondition(t *testing.T) {
	s := condTestState()

	tests := []struct {
		name    string
		cond    types.Condition
		want    bool
		wantErr bool
	}{
		{
			name: "flag_set: flag is true",
			cond: types.Condition{Type: "flag_set", Params: map[string]any{"flag": "door_open"}},
			want: true,
		},
		{
			name: "flag_set: flag is unset",
			cond: types.Condition{Type: "flag_set", Params: map[string]any{"flag": "missing"}},
			want: false,
		},
		{
			name: "flag_not: flag is false",
			cond: types.Condition{Type: "flag_not", Params: map[string]any{"flag": "alarm"}},
			want: true,
		},
		{
			name: "flag_is: matches false",
			cond: types.Condition{Type: "flag_is", Params: map[string]any{"flag": "alarm", "value": false}},
			want: true,
		},
		{
			name: "flag_is: mismatch",
			cond: types.Condition{Type: "flag_is", Params: map[string]any{"flag": "door_open", "value": false}},
			want: false,
		},
		{
			name: "counter_gt: above",
			cond: types.Condition{Type: "counter_gt", Params: map[string]any{"counter": "hits", "value": 4}},
			want: true,
		},
		{
			name: "counter_gt: float64 from Lua",
			cond: types.Condition{Type: "counter_gt", Params: map[string]any{"counter": "hits", "value": float64(5)}},
			want: false,
		},
		{
			name: "counter_lt: below",
			cond: types.Condition{Type: "counter_lt", Params: map[string]any{"counter": "hits", "value": 6}},
			want: true,
		},
		{
			name: "tick_gt: past",
			cond: types.Condition{Type: "tick_gt", Params: map[string]any{"value": 10}},
			want: true,
		},
		{
			name: "tick_gt: not yet",
			cond: types.Condition{Type: "tick_gt", Params: map[string]any{"value": 12}},
			want: false,
		},
		{
			name: "has_event: delivered",
			cond: types.Condition{Type: "has_event", Params: map[string]any{"event": "bell"}},
			want: true,
		},
		{
			name: "has_event: not delivered",
			cond: types.Condition{Type: "has_event", Params: map[string]any{"event": "siren"}},
			want: false,
		},
		{
			name: "expr: combined",
			cond: types.Condition{Type: "expr", Params: map[string]any{"expr": `tick > 10 && counters["hits"] >= 5 && "bell" in events`}},
			want: true,
		},
		{
			name: "expr: flag lookup",
			cond: types.Condition{Type: "expr", Params: map[string]any{"expr": `flags["door_open"] && !flags["alarm"]`}},
			want: true,
		},
		{
			name:    "expr: syntax error is false",
			cond:    types.Condition{Type: "expr", Params: map[string]any{"expr": "tick >"}},
			want:    false,
			wantErr: true,
		},
		{
			name:    "expr: runtime error is false",
			cond:    types.Condition{Type: "expr", Params: map[string]any{"expr": `events[5] == "bell"`}},
			want:    false,
			wantErr: true,
		},
		{
			name: "not: inner error is false",
			cond: types.Condition{
				Type:  "not",
				Inner: &types.Condition{Type: "expr", Params: map[string]any{"expr": "tick >"}},
			},
			want:    false,
			wantErr: true,
		},
		{
			name: "not: negates inner",
			cond: types.Condition{
				Type:  "not",
				Inner: &types.Condition{Type: "flag_set", Params: map[string]any{"flag": "door_open"}},
			},
			want: false,
		},
		{
			name: "not: empty is true",
			cond: types.Condition{Type: "not"},
			want: true,
		},
		{
			name: "unknown type",
			cond: types.Condition{Type: "bogus"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalCondition(tt.cond, s)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EvalCondition() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("EvalCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvalAllConditions(t *testing.T) {
	s := condTestState()

	if ok, err := EvalAllConditions(nil, s); !ok || err != nil {
		t.Errorf("empty list should be vacuously true, got %v, %v", ok, err)
	}

	all := []types.Condition{
		{Type: "flag_set", Params: map[string]any{"flag": "door_open"}},
		{Type: "counter_gt", Params: map[string]any{"counter": "hits", "value": 1}},
	}
	if ok, _ := EvalAllConditions(all, s); !ok {
		t.Error("expected all conditions to pass")
	}

	failing := append(all, types.Condition{Type: "flag_set", Params: map[string]any{"flag": "alarm"}})
	if ok, err := EvalAllConditions(failing, s); ok || err != nil {
		t.Errorf("one failing condition should fail the list, got %v, %v", ok, err)
	}

	broken := append(all, types.Condition{Type: "expr", Params: map[string]any{"expr": `events[5] == "bell"`}})
	ok, err := EvalAllConditions(broken, s)
	if ok || err == nil {
		t.Fatalf("expected a runtime expr failure, got %v, %v", ok, err)
	}
	if !strings.Contains(err.Error(), "expr condition") {
		t.Errorf("error should name the condition type: %v", err)
	}
}

func TestCompileExpr_Caches(t *testing.T) {
	a, err := CompileExpr("tick > 1")
	if err != nil {
		t.Fatalf("CompileExpr: %v", err)
	}
	b, err := CompileExpr("tick > 1")
	if err != nil {
		t.Fatalf("CompileExpr: %v", err)
	}
	if a != b {
		t.Error("expected cached program")
	}

	if _, err := CompileExpr("tick +"); err == nil {
		t.Error("expected compile error")
	}
}

func TestEvalExpr_Empty(t *testing.T) {
	if _, err := EvalExpr("", state.New(0)); err == nil {
		t.Error("expected error for empty expression")
	}
}
