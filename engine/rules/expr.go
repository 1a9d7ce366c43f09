package rules

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/nathoo/tickwork/types"
)

// Env is the environment visible to expr conditions.
type Env struct {
	Tick     int             `expr:"tick"`
	Flags    map[string]bool `expr:"flags"`
	Counters map[string]int  `expr:"counters"`
	Events   []string        `expr:"events"`
}

var (
	programsMu sync.Mutex
	programs   = map[string]*vm.Program{}
)

// CompileExpr compiles src as a boolean expression over Env. Compiled
// programs are cached by source text.
func CompileExpr(src string) (*vm.Program, error) {
	programsMu.Lock()
	defer programsMu.Unlock()

	if p, ok := programs[src]; ok {
		return p, nil
	}
	p, err := expr.Compile(src,
		expr.Env(Env{}),
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("compiling %q: %w", src, err)
	}
	programs[src] = p
	return p, nil
}

// EvalExpr runs src against the current state.
func EvalExpr(src string, s *types.State) (bool, error) {
	if src == "" {
		return false, fmt.Errorf("empty expression")
	}
	p, err := CompileExpr(src)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(p, Env{
		Tick:     s.Tick,
		Flags:    s.Flags,
		Counters: s.Counters,
		Events:   s.Events,
	})
	if err != nil {
		return false, fmt.Errorf("running %q: %w", src, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, not bool", src, out)
	}
	return b, nil
}
