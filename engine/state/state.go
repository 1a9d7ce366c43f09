// Package state provides accessors over the host world state: named flags
// and counters read by conditions and written by effects and scripts.
package state

import (
	"sort"

	"github.com/nathoo/tickwork/types"
)

// New creates an empty world state seeded for the RNG.
func New(seed int64) *types.State {
	return &types.State{
		Flags:      map[string]bool{},
		Counters:   map[string]int{},
		RNGSeed:    seed,
		CommandLog: []string{},
	}
}

// GetFlag returns the value of a flag. Unset flags return false.
func GetFlag(s *types.State, name string) bool {
	return s.Flags[name]
}

// SetFlag sets a flag and reports whether its value changed.
func SetFlag(s *types.State, name string, value bool) bool {
	old, ok := s.Flags[name]
	s.Flags[name] = value
	return !ok || old != value
}

// GetCounter returns the value of a counter. Unset counters return 0.
func GetCounter(s *types.State, name string) int {
	return s.Counters[name]
}

// SetCounter sets a counter.
func SetCounter(s *types.State, name string, value int) {
	s.Counters[name] = value
}

// AddCounter adds delta to a counter and returns the new value.
func AddCounter(s *types.State, name string, delta int) int {
	s.Counters[name] += delta
	return s.Counters[name]
}

// FlagNames returns all flag names in sorted order.
func FlagNames(s *types.State) []string {
	names := make([]string, 0, len(s.Flags))
	for k := range s.Flags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// CounterNames returns all counter names in sorted order.
func CounterNames(s *types.State) []string {
	names := make([]string, 0, len(s.Counters))
	for k := range s.Counters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
