package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nathoo/tickwork/engine"
	"github.com/nathoo/tickwork/engine/scheduler"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e := engine.New(42, nil)
	e.State.Flags["door_open"] = true
	e.State.Counters["hits"] = 3

	a, err := e.Actions.AddTask(scheduler.Options{Name: "a", MaxDuration: 4})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	a.SetData("hp", scheduler.Int(10))
	a.After(scheduler.Options{Name: "b"})
	if _, err := e.Actions.ScheduleParallelAction(e.Actions.Create(scheduler.Options{Name: "p", Every: 2})); err != nil {
		t.Fatalf("ScheduleParallelAction: %v", err)
	}
	if _, err := e.Actions.AddConditionalTask(scheduler.ConditionalOptions{Name: "c", MaxChecks: 5}); err != nil {
		t.Fatalf("AddConditionalTask: %v", err)
	}
	e.Actions.Start()
	e.Command("tick 2")
	return e
}

func TestCapture(t *testing.T) {
	e := testEngine(t)
	snap := Capture(e)

	if snap.Version != Version || snap.Tick != 2 || snap.SchedTicks != 2 || !snap.Running {
		t.Errorf("header mismatch: %+v", snap)
	}
	if !snap.Flags["door_open"] || snap.Counters["hits"] != 3 {
		t.Errorf("world state mismatch: %v %v", snap.Flags, snap.Counters)
	}
	if len(snap.Serial) != 2 || len(snap.Parallel) != 1 || len(snap.Conditional) != 1 {
		t.Fatalf("collection sizes: %d %d %d", len(snap.Serial), len(snap.Parallel), len(snap.Conditional))
	}

	a, b := snap.Serial[0], snap.Serial[1]
	if a.Name != "a" || a.Count != 2 || a.Duration != 2 || a.MaxDuration != 4 {
		t.Errorf("serial head view: %+v", a)
	}
	if a.Next != b.ID || b.Previous != a.ID {
		t.Errorf("links not captured: a=%+v b=%+v", a, b)
	}
	if len(a.DataKeys) != 1 || a.DataKeys[0] != "hp" {
		t.Errorf("data keys: %v", a.DataKeys)
	}

	c := snap.Conditional[0]
	if !c.Conditional || c.CheckCount != 2 || c.MaxChecks != 5 || c.TaskExecuted {
		t.Errorf("conditional view: %+v", c)
	}
	if snap.Parallel[0].Count != 1 || snap.Parallel[0].UpdateEvery != 2 {
		t.Errorf("parallel view: %+v", snap.Parallel[0])
	}
}

func TestCapture_IsolatedFromEngine(t *testing.T) {
	e := testEngine(t)
	snap := Capture(e)
	e.State.Flags["door_open"] = false
	if !snap.Flags["door_open"] {
		t.Error("snapshot should not alias engine maps")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	e := testEngine(t)
	data, err := Marshal(Capture(e))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"version", "tick", "running", "flags", "counters", "serial", "parallel", "conditional"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}

	snap, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if snap.Tick != 2 || len(snap.Serial) != 2 {
		t.Errorf("decoded snapshot mismatch: %+v", snap)
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	if _, err := Unmarshal([]byte("{")); err == nil {
		t.Error("expected JSON error")
	}
	if _, err := Unmarshal([]byte(`{"version": 9}`)); err == nil {
		t.Error("expected version error")
	}
	snap, err := Unmarshal([]byte(`{"version": 1}`))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if snap.Flags == nil || snap.Counters == nil {
		t.Error("maps should be initialised")
	}
}

func TestWriteFile(t *testing.T) {
	e := testEngine(t)
	path := filepath.Join(t.TempDir(), "snap.json")
	if err := WriteFile(path, e); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if _, err := Unmarshal(data); err != nil {
		t.Errorf("written snapshot does not decode: %v", err)
	}
}
