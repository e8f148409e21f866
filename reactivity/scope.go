package reactivity

import mapset "github.com/deckarep/golang-set/v2"

// EffectScope is a disposal grouping for a batch of effects: a parent
// scope owning child scopes and a cleanup callback list, all torn down
// together.
type EffectScope struct {
	rt       *Runtime
	parent   *EffectScope
	children mapset.Set[*EffectScope]
	effects  []*Effect
	cleanups []func()
	active   bool
	detached bool
}

// NewEffectScope creates a scope. A detached scope is not attached to the
// currently active scope even if one exists, so it must be stopped
// explicitly rather than inheriting its parent's lifetime.
func NewEffectScope(rt *Runtime, detached bool) *EffectScope {
	s := &EffectScope{
		rt:       rt,
		children: mapset.NewThreadUnsafeSet[*EffectScope](),
		active:   true,
		detached: detached,
	}
	if !detached && rt.activeScope != nil {
		s.parent = rt.activeScope
		rt.activeScope.children.Add(s)
	}
	return s
}

// Active reports whether Stop has been called.
func (s *EffectScope) Active() bool { return s.active }

// Run executes fn with this scope active, so any effect or nested scope
// created inside fn is recorded against it.
func (s *EffectScope) Run(fn func() error) error {
	if !s.active {
		return fn()
	}
	prev := s.rt.activeScope
	s.rt.activeScope = s
	defer func() { s.rt.activeScope = prev }()
	return fn()
}

// OnCleanup registers a callback to run when the scope is stopped.
func (s *EffectScope) OnCleanup(fn func()) {
	s.cleanups = append(s.cleanups, fn)
}

// Stop deactivates every effect recorded against the scope, runs its
// cleanups, recurses into child scopes, and detaches from its parent.
// Idempotent.
func (s *EffectScope) Stop() {
	if !s.active {
		return
	}
	for _, eff := range s.effects {
		eff.Stop()
	}
	for _, cleanup := range s.cleanups {
		cleanup()
	}
	for _, child := range s.children.ToSlice() {
		child.Stop()
	}
	s.effects = nil
	s.cleanups = nil
	s.children.Clear()
	if s.parent != nil {
		s.parent.children.Remove(s)
		s.parent = nil
	}
	s.active = false
}

// RecordEffectScope associates eff with scope (or the runtime's currently
// active scope, if scope is nil).
func RecordEffectScope(eff *Effect, scope *EffectScope) {
	if scope == nil && eff.rt != nil {
		scope = eff.rt.activeScope
	}
	if scope == nil || !scope.active {
		return
	}
	scope.effects = append(scope.effects, eff)
	eff.scope = scope
}
