package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_MaxDurationCompletes(t *testing.T) {
	for _, d := range []int{1, 2, 3, 5} {
		m := newRunning(t)
		a, err := m.ScheduleParallelAction(m.Create(Options{MaxDuration: d}))
		require.NoError(t, err)

		tickN(m, d-1)
		assert.False(t, a.IsDone(), "max duration %d: done too early", d)

		m.Tick()
		assert.True(t, a.IsDone(), "max duration %d", d)
		assert.Equal(t, d, a.Count())
		assert.Equal(t, d, a.Duration())
		assert.Zero(t, m.Len())
	}
}

func TestAction_Every(t *testing.T) {
	m := newRunning(t)
	a, _ := m.AddTask(Options{Every: 3})
	tickN(m, 7)
	assert.Equal(t, 3, a.Count(), "fires at active ticks 0, 3 and 6")
	assert.Equal(t, 7, a.Duration())
}

func TestAction_DelayThenBoundedRun(t *testing.T) {
	m := newRunning(t)
	a, _ := m.AddTask(Options{Delay: 2, MaxDuration: 2})

	tickN(m, 2)
	assert.Zero(t, a.Count())
	assert.Zero(t, a.Duration(), "delay ticks are not counted as duration")

	tickN(m, 2)
	assert.True(t, a.IsDone())
	assert.Equal(t, 2, a.Count())
}

func TestAction_OnceFiresOnce(t *testing.T) {
	m := newRunning(t)
	calls := 0
	a, _ := m.AddSingleTask("once", 0, counter(&calls))
	tickN(m, 10)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, a.Count())
	assert.True(t, a.IsDone())
}

func TestAction_CountIncrementsBeforeTask(t *testing.T) {
	m := newRunning(t)
	var seen []int
	_, _ = m.AddTask(Options{MaxDuration: 3, Task: func(a *Action) { seen = append(seen, a.Count()) }})
	tickN(m, 3)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestAction_CountFrozenAfterDone(t *testing.T) {
	m := newRunning(t)
	a, _ := m.ScheduleParallelAction(m.Create(Options{}))
	tickN(m, 2)
	a.MarkDone()
	tickN(m, 5)
	assert.Equal(t, 2, a.Count())
	assert.False(t, a.Scheduled())
}

func TestAction_PauseForReplacesHold(t *testing.T) {
	m := newRunning(t)
	a, _ := m.AddTask(Options{})
	m.Tick()
	require.Equal(t, 1, a.Count())

	a.PauseFor(5)
	a.PauseFor(2)
	assert.Equal(t, 2, a.PausedFor())

	tickN(m, 2)
	assert.Equal(t, 1, a.Count(), "held for two ticks")
	m.Tick()
	assert.Equal(t, 2, a.Count())
}

func TestAction_PauseFromInsideTask(t *testing.T) {
	m := newRunning(t)
	a, _ := m.AddTask(Options{Task: func(a *Action) {
		if a.Count() == 1 {
			a.PauseFor(3)
		}
	}})

	tickN(m, 4)
	assert.Equal(t, 1, a.Count())
	m.Tick()
	assert.Equal(t, 2, a.Count())
}

func TestAction_PauseIgnoredWhenDone(t *testing.T) {
	m := New()
	a := m.Create(Options{})
	a.MarkDone()
	a.PauseFor(4)
	assert.Zero(t, a.PausedFor())
}

func TestAction_SettersNormalise(t *testing.T) {
	m := New()
	a := m.Create(Options{Delay: -3})
	assert.Equal(t, 0, a.StartAfterTicks())
	assert.Equal(t, 1, a.UpdateEveryXTick())
	assert.Equal(t, Unbounded, a.MaxDuration())

	a.SetUpdateEveryXTick(-1).SetMaxDuration(0)
	assert.Equal(t, 1, a.UpdateEveryXTick())
	assert.Equal(t, Unbounded, a.MaxDuration())

	a.SetMaxDuration(7)
	assert.Equal(t, 7, a.MaxDuration())
}

func TestAction_SuccessorWaitsForPredecessor(t *testing.T) {
	m := newRunning(t)
	a, _ := m.ScheduleParallelAction(m.Create(Options{Name: "a", MaxDuration: 2}))
	b := a.After(Options{Name: "b"})
	require.NoError(t, b.Err())
	assert.Equal(t, []*Action{a, b}, m.ParallelActions())
	assert.Same(t, a, b.Previous())
	assert.Same(t, b, a.Next())

	m.Tick()
	assert.False(t, a.IsDone())
	assert.Zero(t, b.Count())

	m.Tick()
	assert.True(t, a.IsDone())
	assert.Equal(t, 1, b.Count(), "b runs in the pass where a completes")
	assert.Nil(t, b.Previous(), "completed predecessors are released")
}

func TestAction_AfterInSerialQueue(t *testing.T) {
	m := New()
	a, _ := m.AddTask(Options{Name: "a"})
	c, _ := m.AddTask(Options{Name: "c"})
	b := a.After(Options{Name: "b"})
	assert.Equal(t, []*Action{a, b, c}, m.Queue())
}

func TestAction_BeforeHoldsAnchor(t *testing.T) {
	m := newRunning(t)
	aCalls, xCalls := 0, 0
	a, _ := m.AddTask(Options{Name: "a", Task: counter(&aCalls)})
	m.Tick()
	require.Equal(t, 1, aCalls)

	x := a.Before(Options{Name: "x", Delay: 2, Once: true, Task: counter(&xCalls)})
	require.NoError(t, x.Err())
	assert.Equal(t, []*Action{x, a}, m.Queue())
	assert.Same(t, x, m.CurrentAction())

	tickN(m, 2)
	assert.Equal(t, 1, aCalls, "a is held while x waits out its delay")
	assert.Zero(t, xCalls)

	m.Tick()
	assert.Equal(t, 1, xCalls)
	assert.Equal(t, 2, aCalls, "a resumes in the tick x completes")
}

func TestAction_UnscheduledChainSchedulesTogether(t *testing.T) {
	m := New()
	a := m.Create(Options{Name: "a"})
	b := a.After(Options{Name: "b"})
	c := b.After(Options{Name: "c"})
	assert.False(t, b.Scheduled())

	_, err := m.ScheduleAction(b)
	require.NoError(t, err)
	assert.Equal(t, []*Action{a, b, c}, m.Queue())
}

func TestAction_UnscheduledChainWithDuplicateNameIsRejected(t *testing.T) {
	m := New()
	_, _ = m.AddTask(Options{Name: "taken"})
	a := m.Create(Options{Name: "a"})
	a.After(Options{Name: "taken"})

	_, err := m.ScheduleAction(a)
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.ErrorIs(t, a.Err(), ErrDuplicateName)
	assert.False(t, a.Scheduled())
	assert.Len(t, m.Queue(), 1)
}

func TestAction_LinkRejections(t *testing.T) {
	m := New()
	a, _ := m.AddTask(Options{Name: "a"})
	y, _ := m.AddTask(Options{Name: "y"})

	a.AfterAction(y)
	assert.ErrorIs(t, y.Err(), ErrAlreadyScheduled)
	assert.Nil(t, a.Next())

	u := m.Create(Options{})
	u.AfterAction(u)
	assert.ErrorIs(t, u.Err(), ErrAlreadyScheduled)
	assert.Nil(t, u.Next())

	dup := a.After(Options{Name: "a"})
	assert.ErrorIs(t, dup.Err(), ErrDuplicateName)
	assert.False(t, dup.Scheduled())
	assert.Nil(t, a.Next())

	u1 := m.Create(Options{})
	u2 := u1.After(Options{})
	w := m.Create(Options{})
	w.AfterAction(u2)
	assert.ErrorIs(t, u2.Err(), ErrAlreadyScheduled)
	assert.Same(t, u1, u2.Previous())

	assert.Equal(t, []*Action{a, y}, m.Queue())
}

func TestAction_Data(t *testing.T) {
	m := New()
	a := m.Create(Options{})
	assert.False(t, a.HasData("hp"))
	assert.Empty(t, a.DataKeys())

	a.SetData("hp", Int(10)).SetData("label", String("boss")).SetData("alive", Bool(true))
	v, ok := a.GetData("hp")
	require.True(t, ok)
	n, _ := v.AsInt()
	assert.Equal(t, int64(10), n)
	assert.Equal(t, []string{"alive", "hp", "label"}, a.DataKeys())

	a.RemoveData("hp")
	assert.False(t, a.HasData("hp"))
	_, ok = a.GetData("hp")
	assert.False(t, ok)
}
