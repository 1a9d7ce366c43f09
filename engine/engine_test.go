package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nathoo/tickwork/engine/scheduler"
	"github.com/nathoo/tickwork/types"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(42, nil)
	e.Actions.Start()
	return e
}

func hasOutput(r types.Result, substr string) bool {
	for _, line := range r.Output {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func hasEvent(r types.Result, kind string) bool {
	for _, ev := range r.Events {
		if ev.Type == kind {
			return true
		}
	}
	return false
}

func TestStep_AdvancesTickAndManager(t *testing.T) {
	e := newTestEngine(t)
	a, err := e.Actions.AddTask(scheduler.Options{Name: "a", MaxDuration: 2})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	r := e.Step()
	if r.Tick != 1 || e.State.Tick != 1 {
		t.Errorf("expected tick 1, got result %d state %d", r.Tick, e.State.Tick)
	}
	if !hasEvent(r, "action.fired") {
		t.Errorf("expected action.fired in %v", r.Events)
	}

	r = e.Step()
	if !a.IsDone() {
		t.Error("action should be done after two steps")
	}
	if !hasEvent(r, "action.done") {
		t.Errorf("expected action.done in %v", r.Events)
	}
}

func TestStep_HostTickAdvancesWhileStopped(t *testing.T) {
	e := New(1, nil)
	a, _ := e.Actions.AddTask(scheduler.Options{Name: "a"})
	e.StepN(3)
	if e.State.Tick != 3 {
		t.Errorf("expected host tick 3, got %d", e.State.Tick)
	}
	if a.Count() != 0 || e.Actions.Ticks() != 0 {
		t.Error("stopped manager should not advance")
	}
}

func TestStep_EventsVisibleForOneStep(t *testing.T) {
	e := newTestEngine(t)
	var seen []int
	e.On("bell", func(string) error {
		seen = append(seen, e.State.Tick)
		e.Say("ding")
		return nil
	})

	e.Emit("bell")
	r := e.Step()
	if !slices.Equal(r.Output, []string{"ding"}) {
		t.Errorf("expected ding, got %v", r.Output)
	}
	r = e.Step()
	if len(r.Output) != 0 {
		t.Errorf("event should not be redelivered, got %v", r.Output)
	}
	if !slices.Equal(seen, []int{1}) {
		t.Errorf("handler ticks = %v", seen)
	}
}

func TestStep_HandlerErrorIsReported(t *testing.T) {
	e := newTestEngine(t)
	e.On("x", func(string) error { return errors.New("bad script") })
	e.Emit("x")
	r := e.Step()
	if !hasEvent(r, "handler.failed") {
		t.Errorf("expected handler.failed in %v", r.Events)
	}
}

func TestScheduleTask_Conditional(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.ScheduleTask(types.TaskDef{
		Name: "door",
		Mode: "conditional",
		Conditions: []types.Condition{
			{Type: "flag_set", Params: map[string]any{"flag": "door_open"}},
		},
		Then: []types.Effect{
			{Type: "say", Params: map[string]any{"text": "Door opened at {tick}."}},
		},
	})
	if err != nil {
		t.Fatalf("ScheduleTask: %v", err)
	}

	if r := e.Step(); len(r.Output) != 0 {
		t.Errorf("unexpected output %v", r.Output)
	}
	e.Command("flag door_open true")
	r := e.Step()
	if !slices.Equal(r.Output, []string{"Door opened at 2."}) {
		t.Errorf("got %v", r.Output)
	}
	if e.Actions.Len() != 0 {
		t.Error("conditional task should complete after firing")
	}
}

func TestScheduleTask_TerminateWhen(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.ScheduleTask(types.TaskDef{
		Name:          "watch",
		Mode:          "conditional",
		Conditions:    []types.Condition{{Type: "flag_set", Params: map[string]any{"flag": "never"}}},
		TerminateWhen: []types.Condition{{Type: "tick_gt", Params: map[string]any{"value": 3}}},
		OnTermination: []types.Effect{{Type: "say", Params: map[string]any{"text": "gave up at {tick}"}}},
	})
	if err != nil {
		t.Fatalf("ScheduleTask: %v", err)
	}
	r := e.StepN(6)
	if !slices.Equal(r.Output, []string{"gave up at 4"}) {
		t.Errorf("got %v", r.Output)
	}
}

func TestScheduleTask_ConditionErrorGoesToEngineLogger(t *testing.T) {
	var buf bytes.Buffer
	e := New(1, slog.New(slog.NewTextHandler(&buf, nil)))
	e.Actions.Start()
	_, err := e.ScheduleTask(types.TaskDef{
		Name:       "broken",
		Mode:       "conditional",
		Conditions: []types.Condition{{Type: "expr", Params: map[string]any{"expr": `events[5] == "bell"`}}},
		Then:       []types.Effect{{Type: "say", Params: map[string]any{"text": "fired"}}},
	})
	if err != nil {
		t.Fatalf("ScheduleTask: %v", err)
	}

	if r := e.StepN(2); len(r.Output) != 0 {
		t.Errorf("a failing condition must not fire, got %v", r.Output)
	}
	if e.Actions.Len() != 1 {
		t.Error("task should stay scheduled")
	}
	logs := buf.String()
	if strings.Count(logs, `msg="condition failed"`) != 2 {
		t.Errorf("expected one warning per step, got:\n%s", logs)
	}
	if !strings.Contains(logs, "task=broken") || !strings.Contains(logs, "field=condition") {
		t.Errorf("warning should name the task and field, got:\n%s", logs)
	}
}

func TestScheduleTask_SerialAndParallel(t *testing.T) {
	e := newTestEngine(t)
	say := []types.Effect{{Type: "inc_counter", Params: map[string]any{"counter": "n"}}}
	if _, err := e.ScheduleTask(types.TaskDef{Name: "s", Once: true, Then: say}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ScheduleTask(types.TaskDef{Name: "p", Mode: "parallel", MaxDuration: 2, Then: say}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ScheduleTask(types.TaskDef{Name: "x", Mode: "sideways"}); err == nil {
		t.Error("expected unknown mode error")
	}
	e.StepN(5)
	if got := e.State.Counters["n"]; got != 3 {
		t.Errorf("n = %d, want 3", got)
	}
}

func TestCommand(t *testing.T) {
	e := New(1, nil)
	_, _ = e.Actions.AddTask(scheduler.Options{Name: "boss"})
	_, _ = e.Actions.ScheduleParallelAction(e.Actions.Create(scheduler.Options{Name: "spawner"}))

	tests := []struct {
		input string
		want  string
	}{
		{"", "Type a command"},
		{"tick 2", "Tick 2. (scheduler stopped)"},
		{"tick zero", "positive number"},
		{"start", "Scheduler started."},
		{"flag door true", "door = true"},
		{"flag door", "door = true"},
		{"flag door maybe", "Not a boolean"},
		{"counter hits 4", "hits = 4"},
		{"counter hits", "hits = 4"},
		{"emit bell", "Queued event bell"},
		{"pause spawner 3", "Paused spawner for 3 ticks."},
		{"pause ghost 3", `No action named "ghost"`},
		{"queue", "spawner fired=0 ticks=0 paused=3"},
		{"cancel spawner", `No queued action named "spawner"`},
		{"done spawner", "Marked spawner done."},
		{"cancel boss", "Cancelled boss."},
		{"stop", "Scheduler stopped."},
		{"clear", "Cleared"},
		{"dance", `Unknown command "dance"`},
	}
	for _, tt := range tests {
		r := e.Command(tt.input)
		if !hasOutput(r, tt.want) {
			t.Errorf("Command(%q) output %v, want substring %q", tt.input, r.Output, tt.want)
		}
	}

	if len(e.State.CommandLog) != len(tests)-1 {
		t.Errorf("expected %d logged commands, got %d", len(tests)-1, len(e.State.CommandLog))
	}
}

func TestDescribe(t *testing.T) {
	e := New(1, nil)
	a, _ := e.Actions.AddTask(scheduler.Options{Name: "a", MaxDuration: 5, Delay: 2})
	a.After(scheduler.Options{Name: "b", Every: 3})
	_, _ = e.Actions.AddConditionalTask(scheduler.ConditionalOptions{MaxChecks: 4})

	lines := e.Describe()
	want := []string{
		"Tick 0, scheduler stopped, 3 actions.",
		"Serial:",
		"  1. a fired=0 ticks=0/5 delay=2",
		"  2. b fired=0 ticks=0 every=3 after=a",
		"Conditional:",
		"  1. #3 fired=0 ticks=0 checks=0/4",
	}
	if !slices.Equal(lines, want) {
		t.Errorf("Describe() =\n%s\nwant\n%s", strings.Join(lines, "\n"), strings.Join(want, "\n"))
	}
}

func TestRun(t *testing.T) {
	e := newTestEngine(t)
	steps := 0
	err := e.Run(context.Background(), time.Millisecond, 3, func(types.Result) { steps++ })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if steps != 3 || e.State.Tick != 3 {
		t.Errorf("expected 3 steps, got %d (tick %d)", steps, e.State.Tick)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Run(ctx, time.Hour, 0, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := e.Run(context.Background(), 0, 1, nil); err == nil {
		t.Error("expected error for zero interval")
	}
}
