package reactivity

// Runtime is the single-threaded, cooperative reactive context: it owns
// tracking state, the target map, and the scheduler, bundled into one
// struct instead of package-level state.
type Runtime struct {
	// Tracking state.
	activeEffect *Effect
	shouldTrack  bool
	trackStack   []bool

	activeScope *EffectScope

	// Target map. Go has no weak-keyed map, so targets are keyed by
	// their own pointer identity (see reactive.go / reactive_list.go);
	// entries are released explicitly via Release, not by GC.
	targetMap map[any]*keyMap

	// Scheduler state, see scheduler.go.
	queue                 []*Job
	flushIndex            int
	isFlushing            bool
	isFlushPending        bool
	recursionCounts       map[*Job]int
	pendingPostFlushCbs   []*PostFlushCallback
	activePostFlushCbs    []*PostFlushCallback
	postFlushIndex        int
	tickCallbacks         []func()
	currentFlushCallbacks []func()
	pauseScheduleDepth    int
	deferredSchedulers    []func()

	errorHandler ErrorHandler
	devMode      bool
}

// Option configures a Runtime at construction time.
type Option func(*Runtime)

// WithErrorHandler installs the external error-handler callback.
func WithErrorHandler(h ErrorHandler) Option {
	return func(rt *Runtime) { rt.errorHandler = h }
}

// WithDevMode enables debug hooks (onTrack/onTrigger/onStop) and readonly
// write warnings.
func WithDevMode(enabled bool) Option {
	return func(rt *Runtime) { rt.devMode = enabled }
}

// NewRuntime constructs a Runtime. shouldTrack starts true, matching the
// module-scope default in the original.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		shouldTrack: true,
		targetMap:   make(map[any]*keyMap),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// ActiveEffect exposes the currently running effect, if any.
func (rt *Runtime) ActiveEffect() *Effect { return rt.activeEffect }

func (rt *Runtime) warn(format string, args ...any) {
	if rt.devMode {
		warnf(format, args...)
	}
}
