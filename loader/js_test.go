package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/tickwork/engine/scheduler"
)

func runJS(t *testing.T, r *Runtime, src string) {
	t.Helper()
	require.NoError(t, r.Exec("test.js", src))
}

func jsGlobal(r *Runtime, name string) any {
	return r.fromJS(r.js.Get(name))
}

func TestJS_DelayedFireAndCancel(t *testing.T) {
	r, eng := newTestRuntime(t)
	runJS(t, r, `
		var fired = 0;
		actions.schedule(actions.create("t1", 5, 0, function (a) { fired++; }));
	`)

	eng.StepN(5)
	assert.Equal(t, 0, jsGlobal(r, "fired"))
	runJS(t, r, `var removed = actions.cancel("t1");`)
	eng.StepN(5)

	assert.Equal(t, true, jsGlobal(r, "removed"))
	assert.Equal(t, 0, jsGlobal(r, "fired"))
	assert.Zero(t, eng.Actions.Len())
}

func TestJS_ConditionalTerminatesBeforeFiring(t *testing.T) {
	r, eng := newTestRuntime(t)
	runJS(t, r, `
		var fired = 0, terminatedAt = 0, executed = true;
		var watch = actions.create(
			function () { return world.hasEvent("alarm"); },
			function (a) { fired++; });
		watch.terminateWhen(function () { return world.tick() > 100; })
			.onTermination(function (a) {
				terminatedAt = world.tick();
				executed = a.wasTaskExecuted();
			});
		actions.schedule(watch);
	`)

	eng.StepN(150)
	assert.Equal(t, 0, jsGlobal(r, "fired"))
	assert.Equal(t, 101, jsGlobal(r, "terminatedAt"))
	assert.Equal(t, false, jsGlobal(r, "executed"))
}

func TestJS_ParallelUnaffectedByPausedSerial(t *testing.T) {
	r, eng := newTestRuntime(t)
	runJS(t, r, `
		var x = actions.scheduleParallel(actions.create("x", function (a) {}));
		var y = actions.schedule(actions.create("y", function (a) {}));
		y.pauseFor(3);
	`)

	eng.StepN(4)
	x := jsGlobal(r, "x").(*scheduler.Action)
	y := jsGlobal(r, "y").(*scheduler.Action)
	assert.Equal(t, 4, x.Count())
	assert.Equal(t, 1, y.Count())
}

func TestJS_ObjectsKeepIdentity(t *testing.T) {
	r, _ := newTestRuntime(t)
	runJS(t, r, `
		var a = actions.schedule(actions.create("a"));
		var same = actions.lookup("a") === a && actions.current() === a;
		var queued = actions.queue().length;
		var missing = actions.lookup("nope");
	`)
	assert.Equal(t, true, jsGlobal(r, "same"))
	assert.Equal(t, 1, jsGlobal(r, "queued"))
	assert.Nil(t, jsGlobal(r, "missing"))
}

func TestJS_OptionObjects(t *testing.T) {
	r, _ := newTestRuntime(t)
	runJS(t, r, `
		var p = actions.create({ name: "p", delay: 2, maxDuration: 6, every: 3, once: true });
		var c = actions.create({
			name: "c",
			condition: function () { return false; },
			task: function (a) {},
			maxChecks: 4,
		});
	`)

	p := jsGlobal(r, "p").(*scheduler.Action)
	assert.Equal(t, "p", p.Name())
	assert.Equal(t, 2, p.StartAfterTicks())
	assert.Equal(t, 6, p.MaxDuration())
	assert.Equal(t, 3, p.UpdateEveryXTick())

	c := jsGlobal(r, "c").(*scheduler.Action)
	require.NotNil(t, c.Conditional())
	assert.Equal(t, 4, c.Conditional().MaxChecks())
}

func TestJS_ErrorsThrowAndTasksFail(t *testing.T) {
	r, eng := newTestRuntime(t)
	runJS(t, r, `
		actions.scheduleParallel(actions.create("dup"));
		var caught = "";
		try {
			actions.scheduleParallel(actions.create("dup"));
		} catch (e) {
			caught = String(e);
		}
		var bad = actions.addTask("bad", function (a) { throw new Error("kaboom"); });
	`)
	assert.Contains(t, jsGlobal(r, "caught"), "already scheduled")

	eng.StepN(2)
	bad := jsGlobal(r, "bad").(*scheduler.Action)
	assert.ErrorContains(t, bad.Err(), "kaboom")
	assert.True(t, bad.IsDone())
}

func TestJS_DataAndLinks(t *testing.T) {
	r, eng := newTestRuntime(t)
	runJS(t, r, `
		var log = [];
		var first = actions.create("first", function (a) { log.push("first:" + a.getData("n")); a.markDone(); });
		first.setData("n", 7);
		var second = first.after("second", function (a) { log.push("second"); a.markDone(); });
		var linked = first.getNext() === second && second.getPrevious() === first;
		actions.schedule(first);
	`)
	assert.Equal(t, true, jsGlobal(r, "linked"))

	eng.Step()
	assert.Equal(t, []any{"first:7", "second"}, jsGlobal(r, "log"))
}

func TestJS_ParallelChain(t *testing.T) {
	r, eng := newTestRuntime(t)
	runJS(t, r, `
		var log = [];
		var chain = actions.parallelChain()
			.after(1, function (a) { log.push(world.tick()); })
			.after(1, "second", function (a) { log.push(world.tick()); });
		var err = chain.getError();
	`)
	assert.Nil(t, jsGlobal(r, "err"))
	assert.Len(t, eng.Actions.ParallelActions(), 2)

	eng.StepN(6)
	log := jsGlobal(r, "log").([]any)
	require.Len(t, log, 2)
	assert.Less(t, log[0].(int), log[1].(int))
}

func TestJS_GlobalsRegistered(t *testing.T) {
	r, _ := newTestRuntime(t)
	runJS(t, r, `
		var kinds = [typeof actions.schedule, typeof world.say];
		var a = actions.create("x", 0, 0, function () {});
		var methodKind = typeof a.pauseFor;
		var chainKind = typeof actions.chain().after;
	`)

	assert.Equal(t, []any{"function", "function"}, jsGlobal(r, "kinds"))
	assert.Equal(t, "function", jsGlobal(r, "methodKind"))
	assert.Equal(t, "function", jsGlobal(r, "chainKind"))
}
