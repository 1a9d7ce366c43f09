package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_DelaysCountFromPreviousStep(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		m := newRunning(t)
		clk := &clock{}
		var fired []int
		at := func(*Action) { fired = append(fired, clk.now) }

		chain := m.Chain()
		if parallel {
			chain = m.ParallelChain()
		}
		chain.After(2, at).AfterNamed(3, "second", at)
		require.NoError(t, chain.Err())
		require.Len(t, chain.Actions(), 2)

		if parallel {
			assert.Len(t, m.ParallelActions(), 2)
			assert.Empty(t, m.Queue())
		} else {
			assert.Len(t, m.Queue(), 2)
		}

		clk.run(m, 10)
		assert.Equal(t, []int{3, 6}, fired, "parallel=%v", parallel)
		assert.Zero(t, m.Len())
	}
}

func TestChain_ZeroDelaysRunInOneTick(t *testing.T) {
	m := newRunning(t)
	var order []string
	step := func(name string) Task {
		return func(*Action) { order = append(order, name) }
	}
	m.Chain().AfterNamed(0, "a", step("a")).AfterNamed(0, "b", step("b")).AfterNamed(0, "c", step("c"))

	m.Tick()
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestChain_StepsAreLinked(t *testing.T) {
	m := New()
	steps := m.Chain().After(1, nil).After(1, nil).Actions()
	require.Len(t, steps, 2)
	assert.Same(t, steps[0], steps[1].Previous())
	assert.Same(t, steps[1], steps[0].Next())
}

func TestChain_RecordsFirstError(t *testing.T) {
	m := New()
	_, _ = m.AddTask(Options{Name: "x"})

	chain := m.Chain().AfterNamed(0, "x", nil).After(0, nil)
	assert.ErrorIs(t, chain.Err(), ErrDuplicateName)

	steps := chain.Actions()
	require.Len(t, steps, 2)
	assert.False(t, steps[0].Scheduled())
	assert.True(t, steps[1].Scheduled(), "a rejected step does not sink the rest")
}
