package reactivity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failOnError(t *testing.T) ErrorHandler {
	return func(err error, ctx any, code ErrorCode) {
		t.Fatalf("unexpected %s error: %v (ctx=%v)", code, err, ctx)
	}
}

// should run immediately and track reads made through the runtime's Track
func TestEffectRunTracksReads(t *testing.T) {
	rt := NewRuntime(WithErrorHandler(failOnError(t)))
	w := NewReactive[string, int](rt, map[string]int{"a": 1}, false)

	var seen int
	eff := NewEffect(rt, func() error {
		v, _ := w.Get("a")
		seen = v
		return nil
	})

	require.NoError(t, eff.Run())
	assert.Equal(t, 1, seen)
	assert.Equal(t, 1, eff.depsLength)
}

// should clear its dep subscriptions, and let empty deps clean themselves up
func TestEffectStopUnsubscribesAndCleansUpEmptyDeps(t *testing.T) {
	rt := NewRuntime(WithErrorHandler(failOnError(t)))
	w := NewReactive[string, int](rt, map[string]int{"a": 1}, false)

	eff := NewEffect(rt, func() error {
		_, _ = w.Get("a")
		return nil
	})
	require.NoError(t, eff.Run())

	_, ok := rt.GetDepFromReactive(w, "a")
	assert.True(t, ok)

	eff.Stop()
	assert.False(t, eff.Active())

	_, ok = rt.GetDepFromReactive(w, "a")
	assert.False(t, ok, "dep should be removed from the target map once its last subscriber unsubscribes")
}

// should not track reads once stopped, but should still execute fn
func TestEffectRunAfterStopSkipsTracking(t *testing.T) {
	rt := NewRuntime(WithErrorHandler(failOnError(t)))
	w := NewReactive[string, int](rt, map[string]int{"a": 1}, false)

	runs := 0
	eff := NewEffect(rt, func() error {
		_, _ = w.Get("a")
		runs++
		return nil
	})
	require.NoError(t, eff.Run())
	eff.Stop()

	require.NoError(t, eff.Run())
	assert.Equal(t, 2, runs)
	_, ok := rt.GetDepFromReactive(w, "a")
	assert.False(t, ok)
}

// should drop the edge to a dep that a later run no longer reads
func TestEffectReconcilesDepsAcrossRuns(t *testing.T) {
	rt := NewRuntime(WithErrorHandler(failOnError(t)))
	w := NewReactive[string, int](rt, map[string]int{"flag": 1, "x": 10, "y": 20}, false)

	eff := NewEffect(rt, func() error {
		flag, _ := w.Get("flag")
		if flag != 0 {
			_, _ = w.Get("x")
		} else {
			_, _ = w.Get("y")
		}
		return nil
	})
	require.NoError(t, eff.Run())
	assert.Equal(t, 2, eff.depsLength)
	_, hasX := rt.GetDepFromReactive(w, "x")
	assert.True(t, hasX)

	w.Set("flag", 0)
	require.NoError(t, eff.Run())

	_, hasX = rt.GetDepFromReactive(w, "x")
	assert.False(t, hasX, "x should have been unsubscribed and its now-empty dep removed")
	_, hasY := rt.GetDepFromReactive(w, "y")
	assert.True(t, hasY)
}

// should propagate through a MaybeDirty probe by evaluating the computed
// that owns the dep, without running the effect until the probe confirms it
type fakeComputed struct {
	dep       *Dep
	evaluated int
	dirty     bool
}

func (c *fakeComputed) Evaluate() {
	c.evaluated++
	if c.dirty {
		c.dep.forEachSub(func(eff *Effect) { eff.dirtyLevel = Dirty })
	}
}

func TestEffectDirtyProbesMaybeDirtyChain(t *testing.T) {
	rt := NewRuntime(WithErrorHandler(failOnError(t)))

	eff := NewEffect(rt, func() error { return nil })
	dep := newDep()
	dep.subscribe(eff)
	eff.deps = []*Dep{dep}
	eff.depsLength = 1
	fc := &fakeComputed{dep: dep}
	dep.Computed = fc

	eff.dirtyLevel = MaybeDirty
	fc.dirty = false
	assert.False(t, eff.Dirty(), "probe should resolve to not-dirty when the computed reports no change")
	assert.Equal(t, 1, fc.evaluated)
	assert.Equal(t, NotDirty, eff.dirtyLevel)

	eff.dirtyLevel = MaybeDirty
	fc.dirty = true
	assert.True(t, eff.Dirty())
	assert.Equal(t, 2, fc.evaluated)
}

// should propagate an error out of Run rather than panic
func TestEffectRunPropagatesFnError(t *testing.T) {
	rt := NewRuntime(WithErrorHandler(failOnError(t)))
	sentinel := errors.New("boom")
	eff := NewEffect(rt, func() error { return sentinel })
	assert.ErrorIs(t, eff.Run(), sentinel)
}
