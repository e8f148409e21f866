package reactivity_test

import (
	"testing"

	"github.com/44zs44/vue3Core/reactivity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T) *reactivity.Runtime {
	return reactivity.NewRuntime(reactivity.WithErrorHandler(func(err error, ctx any, code reactivity.ErrorCode) {
		t.Fatalf("unexpected %s error: %v (ctx=%v)", code, err, ctx)
	}))
}

// id'd jobs run in ascending id order, and at equal id a pre job runs
// before a non-pre one, whatever order they were queued in
func TestSchedulerOrdersById(t *testing.T) {
	rt := newTestRuntime(t)
	var order []string

	rt.QueueJob(reactivity.NewJob(func() error { order = append(order, "b"); return nil }, reactivity.WithJobID(2)))
	rt.QueueJob(reactivity.NewJob(func() error { order = append(order, "a"); return nil }, reactivity.WithJobID(1)))
	rt.QueueJob(reactivity.NewJob(func() error { order = append(order, "pre-2"); return nil }, reactivity.WithJobID(2), reactivity.WithJobPre(true)))

	rt.Tick()
	assert.Equal(t, []string{"a", "pre-2", "b"}, order)
}

// an allowRecurse job that requeues itself during its own run is appended
// past flushIndex and re-runs within the same flush (a single Tick)
func TestSchedulerRecursionRerunsInSameFlush(t *testing.T) {
	rt := newTestRuntime(t)
	runs := 0
	var job *reactivity.Job
	job = reactivity.NewJob(func() error {
		runs++
		if runs == 1 {
			rt.QueueJob(job)
		}
		return nil
	}, reactivity.WithJobAllowRecurse(true))

	rt.QueueJob(job)
	rt.Tick()
	assert.Equal(t, 2, runs)
}

// a job that requeues itself unconditionally runs up to 101 times before
// the scheduler reports a recursive-update error and drops it for the rest
// of the flush
func TestSchedulerCapsUnboundedRecursion(t *testing.T) {
	var reported int
	rt := reactivity.NewRuntime(reactivity.WithErrorHandler(func(err error, ctx any, code reactivity.ErrorCode) {
		reported++
		assert.Equal(t, reactivity.ErrCodeAppErrorHandler, code)
	}))

	runs := 0
	var job *reactivity.Job
	job = reactivity.NewJob(func() error {
		runs++
		rt.QueueJob(job)
		return nil
	}, reactivity.WithJobAllowRecurse(true))

	rt.QueueJob(job)
	rt.Tick()

	assert.Equal(t, 101, runs)
	assert.Equal(t, 1, reported)
}

// post-flush callbacks run only after every main-queue job in the flush has
// completed, regardless of queueing order
func TestSchedulerPostFlushRunsAfterMainQueue(t *testing.T) {
	rt := newTestRuntime(t)
	var order []string

	rt.QueuePostFlushCb(reactivity.NewPostFlushCallback(func() { order = append(order, "post") }, false))
	rt.QueueJob(reactivity.NewJob(func() error { order = append(order, "main"); return nil }))

	rt.Tick()
	assert.Equal(t, []string{"main", "post"}, order)
}

// NextTick orders its callback after whatever flush is pending at call time,
// and does nothing until Tick actually drains it
func TestNextTickWaitsForDrain(t *testing.T) {
	rt := newTestRuntime(t)
	var order []string

	rt.QueueJob(reactivity.NewJob(func() error { order = append(order, "job"); return nil }))
	waiter := rt.NextTick(func() { order = append(order, "next-tick") })

	select {
	case <-waiter.Done():
		require.FailNow(t, "waiter should not be done before Tick")
	default:
	}

	rt.Tick()

	select {
	case <-waiter.Done():
	default:
		require.FailNow(t, "waiter should be done after Tick")
	}
	assert.Equal(t, []string{"job", "next-tick"}, order)
}

// InvalidateJob removes a still-pending job from the queue but cannot
// cancel the job currently executing
func TestInvalidateJobRemovesPendingWork(t *testing.T) {
	rt := newTestRuntime(t)
	ran := false
	job := reactivity.NewJob(func() error { ran = true; return nil })

	rt.QueueJob(reactivity.NewJob(func() error {
		rt.InvalidateJob(job)
		return nil
	}, reactivity.WithJobID(0)))
	rt.QueueJob(job)

	rt.Tick()
	assert.False(t, ran)
}
