// Package types defines the shared data structures for the tickwork engine.
// This package holds type definitions only.
package types

// Command is the parsed representation of a console command.
type Command struct {
	Verb string
	Args []string
	Raw  string
}

// Effect is a single atomic mutation instruction used by declarative tasks.
type Effect struct {
	Type   string
	Params map[string]any
}

// Condition is a predicate used by declarative conditional tasks.
type Condition struct {
	Type   string         // "flag_set", "counter_gt", "expr", etc.
	Params map[string]any // condition-specific parameters
	Negate bool           // true if wrapped in not
	Inner  *Condition     // for not: the negated inner condition
}

// Event is emitted by the scheduler observer or by world effects.
type Event struct {
	Type string
	Data map[string]any
}

// Result is the output of a single simulation step or console command.
type Result struct {
	Tick   int
	Events []Event
	Output []string
}

// TaskDef is a compiled declarative task.
type TaskDef struct {
	Name          string
	Mode          string // "serial", "parallel", "conditional"
	Delay         int
	MaxDuration   int
	Every         int
	Once          bool
	Conditions    []Condition
	TerminateWhen []Condition
	MaxChecks     int
	Then          []Effect
	OnTermination []Effect
}

// State is the complete mutable world state of the host simulation.
type State struct {
	Tick        int
	Flags       map[string]bool
	Counters    map[string]int
	Events      []string // delivered this step
	Pending     []string // emitted this step, delivered next step
	RNGSeed     int64
	RNGPosition int64
	CommandLog  []string
}

// ActionView is a read-only description of one scheduled action.
type ActionView struct {
	ID              uint64   `json:"id"`
	Name            string   `json:"name,omitempty"`
	Count           int      `json:"count"`
	Duration        int      `json:"duration"`
	StartAfterTicks int      `json:"start_after_ticks"`
	UpdateEvery     int      `json:"update_every"`
	MaxDuration     int      `json:"max_duration"`
	Paused          int      `json:"paused,omitempty"`
	Done            bool     `json:"done"`
	Next            uint64   `json:"next,omitempty"`
	Previous        uint64   `json:"previous,omitempty"`
	DataKeys        []string `json:"data_keys,omitempty"`
	Conditional     bool     `json:"conditional,omitempty"`
	CheckCount      int      `json:"check_count,omitempty"`
	MaxChecks       int      `json:"max_checks,omitempty"`
	TaskExecuted    bool     `json:"task_executed,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// Snapshot is an inspection export of the engine at one point in time.
type Snapshot struct {
	Version     int             `json:"version"`
	Tick        int             `json:"tick"`
	SchedTicks  uint64          `json:"scheduler_ticks"`
	Running     bool            `json:"running"`
	Flags       map[string]bool `json:"flags"`
	Counters    map[string]int  `json:"counters"`
	RNGSeed     int64           `json:"rng_seed"`
	RNGPosition int64           `json:"rng_position"`
	CommandLog  []string        `json:"command_log"`
	Serial      []ActionView    `json:"serial"`
	Parallel    []ActionView    `json:"parallel"`
	Conditional []ActionView    `json:"conditional"`
}
