package reactivity_test

import (
	"testing"

	"github.com/44zs44/vue3Core/reactivity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 1: basic tracking, re-run on change, no re-run after stop.
func TestScenarioBasicTracking(t *testing.T) {
	rt := newTestRuntime(t)
	w := reactivity.NewReactive[string, int](rt, map[string]int{"a": 1}, false)

	var sink []int
	runner, err := rt.CreateEffect(func() error {
		v, _ := w.Get("a")
		sink = append(sink, v)
		return nil
	}, reactivity.EffectOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, sink)

	w.Set("a", 2)
	rt.Tick()
	assert.Equal(t, []int{1, 2}, sink)

	runner.Effect.Stop()
	w.Set("a", 3)
	rt.Tick()
	assert.Equal(t, []int{1, 2}, sink)
}

// Scenario 2: dependency swap drops the stale edge.
func TestScenarioDependencySwap(t *testing.T) {
	rt := newTestRuntime(t)
	w := reactivity.NewReactive[string, int](rt, map[string]int{"x": 1, "y": 10}, false)
	flag := reactivity.NewReactive[string, bool](rt, map[string]bool{"flag": true}, false)

	var sink []int
	_, err := rt.CreateEffect(func() error {
		f, _ := flag.Get("flag")
		if f {
			v, _ := w.Get("x")
			sink = append(sink, v)
		} else {
			v, _ := w.Get("y")
			sink = append(sink, v)
		}
		return nil
	}, reactivity.EffectOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, sink)

	w.Set("y", 11)
	rt.Tick()
	assert.Equal(t, []int{1}, sink, "no edge to y yet")

	flag.Set("flag", false)
	rt.Tick()
	assert.Equal(t, []int{1, 11}, sink)

	w.Set("x", 99)
	rt.Tick()
	assert.Equal(t, []int{1, 11}, sink, "edge to x was cleaned up on the dependency swap")
}

// Scenario 3: array length truncation exposes a zero-value "undefined" read
// past the new bound.
func TestScenarioArrayLength(t *testing.T) {
	rt := newTestRuntime(t)
	a := reactivity.NewReactiveList[int](rt, []int{10, 20, 30})

	var sink []int
	_, err := rt.CreateEffect(func() error {
		v, ok := a.Get(1)
		if !ok {
			sink = append(sink, -1)
			return nil
		}
		sink = append(sink, v)
		return nil
	}, reactivity.EffectOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int{20}, sink)

	a.SetLength(1)
	rt.Tick()
	assert.Equal(t, []int{20, -1}, sink, "index 1 no longer exists once length shrinks past it")
}

// Scenario 4: scheduler ordering across ids [2, 1, 2(pre), null].
func TestScenarioSchedulerOrdering(t *testing.T) {
	rt := newTestRuntime(t)
	var order []string

	rt.QueueJob(reactivity.NewJob(func() error { order = append(order, "2"); return nil }, reactivity.WithJobID(2)))
	rt.QueueJob(reactivity.NewJob(func() error { order = append(order, "1"); return nil }, reactivity.WithJobID(1)))
	rt.QueueJob(reactivity.NewJob(func() error { order = append(order, "2(pre)"); return nil }, reactivity.WithJobID(2), reactivity.WithJobPre(true)))
	rt.QueueJob(reactivity.NewJob(func() error { order = append(order, "null"); return nil }))

	rt.Tick()
	assert.Equal(t, []string{"1", "2(pre)", "2", "null"}, order)
}

// Scenario 5: a post-flush callback registered inside a main job runs after
// every main job in that flush, not during it.
func TestScenarioPostFlushAfterMain(t *testing.T) {
	rt := newTestRuntime(t)
	var order []string

	rt.QueueJob(reactivity.NewJob(func() error {
		order = append(order, "main-1")
		rt.QueuePostFlushCb(reactivity.NewPostFlushCallback(func() {
			order = append(order, "post")
		}, false))
		return nil
	}, reactivity.WithJobID(1)))
	rt.QueueJob(reactivity.NewJob(func() error {
		order = append(order, "main-2")
		return nil
	}, reactivity.WithJobID(2)))

	rt.Tick()
	assert.Equal(t, []string{"main-1", "main-2", "post"}, order)
}

// Scenario 6: unconditional self-recursion is invoked at most 101 times per
// flush; the 102nd attempt reports APP_ERROR_HANDLER and the flush still
// terminates cleanly.
func TestScenarioRecursionLimit(t *testing.T) {
	var errs []reactivity.ErrorCode
	rt := reactivity.NewRuntime(reactivity.WithErrorHandler(func(err error, ctx any, code reactivity.ErrorCode) {
		errs = append(errs, code)
	}))

	runs := 0
	var job *reactivity.Job
	job = reactivity.NewJob(func() error {
		runs++
		rt.QueueJob(job)
		return nil
	}, reactivity.WithJobAllowRecurse(true))

	rt.QueueJob(job)
	require.NotPanics(t, func() { rt.Tick() })

	assert.Equal(t, 101, runs)
	assert.Equal(t, []reactivity.ErrorCode{reactivity.ErrCodeAppErrorHandler}, errs)
}
