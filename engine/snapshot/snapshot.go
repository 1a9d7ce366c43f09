// Package snapshot exports the engine's world state and scheduled actions
// as JSON for inspection. Snapshots are read-only: they are never loaded
// back into an engine.
package snapshot

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/nathoo/tickwork/engine"
	"github.com/nathoo/tickwork/engine/scheduler"
	"github.com/nathoo/tickwork/types"
)

// Version is the snapshot format version.
const Version = 1

// Capture records the current engine state.
func Capture(e *engine.Engine) types.Snapshot {
	m := e.Actions
	snap := types.Snapshot{
		Version:     Version,
		Tick:        e.State.Tick,
		SchedTicks:  m.Ticks(),
		Running:     m.Running(),
		Flags:       maps.Clone(e.State.Flags),
		Counters:    maps.Clone(e.State.Counters),
		RNGSeed:     e.RNG.Seed(),
		RNGPosition: e.RNG.Position(),
		CommandLog:  slices.Clone(e.State.CommandLog),
		Serial:      views(m.Queue()),
		Parallel:    views(m.ParallelActions()),
	}
	for _, c := range m.ConditionalActions() {
		snap.Conditional = append(snap.Conditional, View(c.Action))
	}
	if snap.Flags == nil {
		snap.Flags = map[string]bool{}
	}
	if snap.Counters == nil {
		snap.Counters = map[string]int{}
	}
	return snap
}

// View describes a single action.
func View(a *scheduler.Action) types.ActionView {
	v := types.ActionView{
		ID:              uint64(a.ID()),
		Name:            a.Name(),
		Count:           a.Count(),
		Duration:        a.Duration(),
		StartAfterTicks: a.StartAfterTicks(),
		UpdateEvery:     a.UpdateEveryXTick(),
		MaxDuration:     a.MaxDuration(),
		Paused:          a.PausedFor(),
		Done:            a.IsDone(),
		DataKeys:        a.DataKeys(),
	}
	if n := a.Next(); n != nil {
		v.Next = uint64(n.ID())
	}
	if p := a.Previous(); p != nil {
		v.Previous = uint64(p.ID())
	}
	if len(v.DataKeys) == 0 {
		v.DataKeys = nil
	}
	if c := a.Conditional(); c != nil {
		v.Conditional = true
		v.CheckCount = c.CheckCount()
		v.MaxChecks = c.MaxChecks()
		v.TaskExecuted = c.WasTaskExecuted()
	}
	if err := a.Err(); err != nil {
		v.Error = err.Error()
	}
	return v
}

func views(actions []*scheduler.Action) []types.ActionView {
	out := make([]types.ActionView, 0, len(actions))
	for _, a := range actions {
		out = append(out, View(a))
	}
	return out
}

// Marshal serializes a snapshot to indented JSON.
func Marshal(snap types.Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}

// Unmarshal decodes a snapshot written by Marshal.
func Unmarshal(data []byte) (*types.Snapshot, error) {
	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	if snap.Version != Version {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	// Ensure maps are never nil after decoding.
	if snap.Flags == nil {
		snap.Flags = map[string]bool{}
	}
	if snap.Counters == nil {
		snap.Counters = map[string]int{}
	}
	return &snap, nil
}

// WriteFile captures e and writes the snapshot to path.
func WriteFile(path string, e *engine.Engine) error {
	data, err := Marshal(Capture(e))
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}
