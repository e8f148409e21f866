package reactivity

// Fn is a user computation. It returns an error the way alien.ErrFn does,
// so failures inside effect.Run propagate to the caller and failures
// inside a scheduled flush can be routed through the runtime's error
// handler instead of panicking.
type Fn func() error

// Effect is a re-runnable computation that auto-subscribes to whatever it
// reads through Runtime.Track while it runs.
type Effect struct {
	rt *Runtime

	fn Fn

	// Notify is the "trigger" hook: invoked synchronously the
	// moment this effect's dirty level is lifted above NotDirty. It is
	// how a computed ref propagates MaybeDirty to whatever depends on
	// it, without actually re-running.
	Notify func()

	// Scheduler, if set, means the effect is not run inline when
	// triggered; instead its scheduler is deferred onto the runtime's
	// job queue at most once per flush.
	Scheduler func()

	active       bool
	AllowRecurse bool

	deps       []*Dep
	depsLength int
	trackID    int64
	runnings   int

	shouldSchedule bool
	dirtyLevel     DirtyLevel

	scope *EffectScope

	// Debug hooks, only meaningful when Runtime.devMode is set.
	OnTrack   func(dep *Dep, key any)
	OnTrigger func(dep *Dep, key any)
	OnStop    func()
}

// NewEffect constructs an effect against rt. Unlike Runtime.CreateEffect
// (which also runs the effect immediately), NewEffect lets callers
// finish configuring Scheduler/AllowRecurse/debug hooks before the first
// run.
func NewEffect(rt *Runtime, fn Fn) *Effect {
	e := &Effect{rt: rt, fn: fn, active: true}
	RecordEffectScope(e, rt.activeScope)
	return e
}

// Active reports whether Stop has been called.
func (e *Effect) Active() bool { return e.active }

// Run executes fn with tracking enabled and this effect set as the
// runtime's active subscriber, reconciling the dependency list against
// what this run actually read and unsubscribing whatever it stopped
// reading.
func (e *Effect) Run() error {
	e.dirtyLevel = NotDirty
	if !e.active {
		return e.fn()
	}

	rt := e.rt
	prevShouldTrack := rt.shouldTrack
	prevActive := rt.activeEffect
	rt.shouldTrack = true
	rt.activeEffect = e
	e.runnings++

	e.trackID++
	e.depsLength = 0

	err := e.fn()

	if e.depsLength < len(e.deps) {
		for i := e.depsLength; i < len(e.deps); i++ {
			dep := e.deps[i]
			if id, ok := dep.liveTrackID(e); !ok || id != e.trackID {
				dep.unsubscribe(e)
			}
		}
		e.deps = e.deps[:e.depsLength]
	}

	e.runnings--
	rt.activeEffect = prevActive
	rt.shouldTrack = prevShouldTrack

	return err
}

// Stop deactivates the effect. Idempotent: a second call is a no-op.
func (e *Effect) Stop() {
	if !e.active {
		return
	}
	for _, dep := range e.deps {
		dep.unsubscribe(e)
	}
	e.deps = nil
	e.depsLength = 0
	if e.OnStop != nil && e.rt.devMode {
		e.OnStop()
	}
	e.active = false
}

// Dirty reports whether the effect must re-run, probing MaybeDirty
// dependencies (computed refs) along the way. Calling Dirty while
// runnings == 0 probes the deps of the last completed run, since
// depsLength is frozen at that point.
func (e *Effect) Dirty() bool {
	if e.dirtyLevel == MaybeDirty {
		rt := e.rt
		rt.PauseTracking()
		for i := 0; i < e.depsLength; i++ {
			dep := e.deps[i]
			if dep.Computed != nil {
				dep.Computed.Evaluate()
				if e.dirtyLevel >= Dirty {
					break
				}
			}
		}
		rt.ResumeTracking()
		if e.dirtyLevel < Dirty {
			e.dirtyLevel = NotDirty
		}
	}
	return e.dirtyLevel >= Dirty
}

// SetDirty normalizes to Dirty or NotDirty; it never sets MaybeDirty
// directly.
func (e *Effect) SetDirty(dirty bool) {
	if dirty {
		e.dirtyLevel = Dirty
	} else {
		e.dirtyLevel = NotDirty
	}
}

// Runner is what the external effect() constructor returns: calling it
// re-runs the effect, and .Effect exposes the underlying instance.
type Runner struct {
	Effect *Effect
}

// Run re-executes the underlying effect.
func (r *Runner) Run() error { return r.Effect.Run() }

// EffectOptions mirrors the options recognized by an effect(fn, options?)
// constructor.
type EffectOptions struct {
	Lazy         bool
	Scheduler    func()
	Scope        *EffectScope
	AllowRecurse bool
	OnStop       func()
	OnTrack      func(dep *Dep, key any)
	OnTrigger    func(dep *Dep, key any)
}

// CreateEffect constructs (and, unless Lazy, runs) an effect against fn.
// When opts.Scheduler is nil, the effect is given a default scheduler that
// re-runs it through the runtime's job queue, so every effect's re-run is
// batched through Tick rather than firing inline mid-mutation.
func (rt *Runtime) CreateEffect(fn Fn, opts EffectOptions) (*Runner, error) {
	e := &Effect{rt: rt, fn: fn, active: true}
	e.AllowRecurse = opts.AllowRecurse
	e.OnStop = opts.OnStop
	e.OnTrack = opts.OnTrack
	e.OnTrigger = opts.OnTrigger

	scope := opts.Scope
	if scope == nil {
		scope = rt.activeScope
	}
	RecordEffectScope(e, scope)

	if opts.Scheduler != nil {
		e.Scheduler = opts.Scheduler
	} else {
		e.Scheduler = func() {
			rt.QueueJob(NewJob(e.Run, WithJobAllowRecurse(e.AllowRecurse)))
		}
	}

	runner := &Runner{Effect: e}
	if !opts.Lazy {
		if err := e.Run(); err != nil {
			return runner, err
		}
	}
	return runner, nil
}

// StopRunner deactivates the runner's effect.
func StopRunner(r *Runner) { r.Effect.Stop() }
