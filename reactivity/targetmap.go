package reactivity

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// keyMap is the inner map of the two-level target->key->Dep registry.
// Keys are arbitrary comparable values, so entries are bucketed by an
// xxhash digest of their formatted form and disambiguated by equality
// within the bucket.
type keyMap struct {
	buckets map[uint64][]keyDepPair
	size    int
}

type keyDepPair struct {
	key any
	dep *Dep
}

func newKeyMap() *keyMap {
	return &keyMap{buckets: make(map[uint64][]keyDepPair)}
}

func hashKey(key any) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%T:%v", key, key))
}

func (m *keyMap) get(key any) (*Dep, bool) {
	for _, pair := range m.buckets[hashKey(key)] {
		if pair.key == key {
			return pair.dep, true
		}
	}
	return nil, false
}

func (m *keyMap) getOrCreate(key any, create func() *Dep) *Dep {
	h := hashKey(key)
	for _, pair := range m.buckets[h] {
		if pair.key == key {
			return pair.dep
		}
	}
	dep := create()
	m.buckets[h] = append(m.buckets[h], keyDepPair{key: key, dep: dep})
	m.size++
	return dep
}

func (m *keyMap) delete(key any) {
	h := hashKey(key)
	bucket := m.buckets[h]
	for i, pair := range bucket {
		if pair.key == key {
			m.buckets[h] = append(bucket[:i], bucket[i+1:]...)
			m.size--
			return
		}
	}
}

func (m *keyMap) empty() bool { return m.size == 0 }

// all returns every Dep currently registered for the target, used by the
// CLEAR trigger case.
func (m *keyMap) all() []*Dep {
	deps := make([]*Dep, 0, m.size)
	for _, bucket := range m.buckets {
		for _, pair := range bucket {
			deps = append(deps, pair.dep)
		}
	}
	return deps
}

// intDepsAtLeast returns every Dep keyed by an int >= min, used by the
// SET-on-array-length trigger case.
func (m *keyMap) intDepsAtLeast(min int) []*Dep {
	var deps []*Dep
	for _, bucket := range m.buckets {
		for _, pair := range bucket {
			if i, ok := pair.key.(int); ok && i >= min {
				deps = append(deps, pair.dep)
			}
		}
	}
	return deps
}

// keyFor returns the stable identity a target is registered under.
// Reactive containers pass themselves (a pointer, hence comparable and
// hashable as a Go map key), the closest a language without weak maps
// gets to keying on the target itself without retaining it forever.
func keyFor(target any) any { return target }

// Track associates the runtime's active effect with the Dep for
// (target, key), creating both the inner map and the Dep lazily. No-op
// unless shouldTrack && activeEffect.
func (rt *Runtime) Track(target any, typ TrackType, key any) {
	if !rt.shouldTrack || rt.activeEffect == nil {
		return
	}
	tk := keyFor(target)
	km := rt.targetMap[tk]
	if km == nil {
		km = newKeyMap()
		rt.targetMap[tk] = km
	}
	dep := km.getOrCreate(key, func() *Dep {
		d := newDep()
		d.cleanup = func() {
			km.delete(key)
			if km.empty() {
				delete(rt.targetMap, tk)
			}
		}
		return d
	})
	rt.linkEffectToDep(rt.activeEffect, dep)
	if eff := rt.activeEffect; eff.OnTrack != nil && rt.devMode {
		eff.OnTrack(dep, key)
	}
}

// linkEffectToDep implements the incremental-update protocol: reuse the
// slot at eff.depsLength when consecutive runs touch the same dep in the
// same order, otherwise reconcile it.
func (rt *Runtime) linkEffectToDep(eff *Effect, dep *Dep) {
	if id, ok := dep.liveTrackID(eff); ok && id == eff.trackID {
		return
	}
	dep.subscribe(eff)

	var oldDep *Dep
	if eff.depsLength < len(eff.deps) {
		oldDep = eff.deps[eff.depsLength]
	}
	if oldDep != dep {
		if oldDep != nil {
			if id, ok := oldDep.liveTrackID(eff); !ok || id != eff.trackID {
				oldDep.unsubscribe(eff)
			}
		}
		if eff.depsLength < len(eff.deps) {
			eff.deps[eff.depsLength] = dep
		} else {
			eff.deps = append(eff.deps, dep)
		}
	}
	eff.depsLength++
}

// TargetEntry is one row of a Runtime.Snapshot dump: a single (target, key)
// registry entry and the dirty levels of its current subscribers.
type TargetEntry struct {
	Target      string
	Key         string
	Subscribers int
	DirtyLevels []DirtyLevel
}

// Snapshot walks the whole target map and returns one TargetEntry per
// registered (target, key) pair, for external introspection (cmd/
// reactivity-inspect) rather than anything the runtime itself consumes.
func (rt *Runtime) Snapshot() []TargetEntry {
	entries := make([]TargetEntry, 0, len(rt.targetMap))
	for target, km := range rt.targetMap {
		for _, bucket := range km.buckets {
			for _, pair := range bucket {
				levels := make([]DirtyLevel, 0, pair.dep.subs.Cardinality())
				pair.dep.forEachSub(func(eff *Effect) {
					levels = append(levels, eff.dirtyLevel)
				})
				entries = append(entries, TargetEntry{
					Target:      fmt.Sprintf("%p", target),
					Key:         fmt.Sprintf("%v", pair.key),
					Subscribers: pair.dep.subs.Cardinality(),
					DirtyLevels: levels,
				})
			}
		}
	}
	return entries
}

// GetDepFromReactive exposes an existing Dep for (target, key) without
// creating one, for custom wrappers built on top of the target map.
func (rt *Runtime) GetDepFromReactive(target any, key any) (*Dep, bool) {
	km := rt.targetMap[keyFor(target)]
	if km == nil {
		return nil, false
	}
	return km.get(key)
}

// TriggerOpts carries the extra shape information trigger() needs to pick
// the right dependency rule, since a generic Go container can't be
// introspected the way a JS proxy target can.
type TriggerOpts struct {
	IsArray   bool
	IsMapLike bool
}

// Trigger locates the Deps affected by a mutation and fires them.
func (rt *Runtime) Trigger(target any, typ TriggerType, key any, newValue, oldValue any, opts TriggerOpts) {
	km := rt.targetMap[keyFor(target)]
	if km == nil {
		return
	}

	var deps []*Dep
	switch {
	case typ == TriggerClear:
		deps = km.all()

	case typ == TriggerSet && opts.IsArray && key == LengthKey:
		newLen, _ := newValue.(int)
		if d, ok := km.get(LengthKey); ok {
			deps = append(deps, d)
		}
		deps = append(deps, km.intDepsAtLeast(newLen)...)

	case typ == TriggerAdd && !opts.IsArray:
		if d, ok := km.get(key); ok {
			deps = append(deps, d)
		}
		if d, ok := km.get(IterateKey); ok {
			deps = append(deps, d)
		}
		if opts.IsMapLike {
			if d, ok := km.get(MapKeyIterateKey); ok {
				deps = append(deps, d)
			}
		}

	case typ == TriggerAdd && opts.IsArray:
		if d, ok := km.get(key); ok {
			deps = append(deps, d)
		}
		if d, ok := km.get(LengthKey); ok {
			deps = append(deps, d)
		}

	case typ == TriggerDelete && !opts.IsArray:
		if d, ok := km.get(key); ok {
			deps = append(deps, d)
		}
		if d, ok := km.get(IterateKey); ok {
			deps = append(deps, d)
		}
		if opts.IsMapLike {
			if d, ok := km.get(MapKeyIterateKey); ok {
				deps = append(deps, d)
			}
		}

	case typ == TriggerSet && opts.IsMapLike:
		if d, ok := km.get(key); ok {
			deps = append(deps, d)
		}
		if d, ok := km.get(IterateKey); ok {
			deps = append(deps, d)
		}

	default: // SET otherwise
		if d, ok := km.get(key); ok {
			deps = append(deps, d)
		}
	}

	rt.PauseScheduling()
	for _, dep := range deps {
		rt.triggerEffects(dep, Dirty, key)
	}
	rt.ResetScheduling()
}

// triggerEffects raises the dirty level of every live subscriber of dep
// that isn't already at least that dirty, then defers each subscriber's
// scheduler exactly once via scheduleEffects. Two passes.
func (rt *Runtime) triggerEffects(dep *Dep, level DirtyLevel, key any) {
	dep.forEachSub(func(eff *Effect) {
		if eff.dirtyLevel >= level {
			return
		}
		id, live := dep.liveTrackID(eff)
		if !live || id != eff.trackID {
			return
		}
		lastDirty := eff.dirtyLevel
		eff.dirtyLevel = level
		if eff.OnTrigger != nil && rt.devMode {
			eff.OnTrigger(dep, key)
		}
		if lastDirty == NotDirty {
			eff.shouldSchedule = true
			if eff.Notify != nil {
				eff.Notify()
			}
		}
	})
	rt.scheduleEffects(dep)
}

// scheduleEffects pushes each ready subscriber's scheduler into the
// pause-scheduling deferred buffer at most once.
func (rt *Runtime) scheduleEffects(dep *Dep) {
	dep.forEachSub(func(eff *Effect) {
		if eff.Scheduler == nil || !eff.shouldSchedule {
			return
		}
		id, live := dep.liveTrackID(eff)
		if !live || id != eff.trackID {
			return
		}
		if eff.runnings != 0 && !eff.AllowRecurse {
			return
		}
		eff.shouldSchedule = false
		scheduler := eff.Scheduler
		rt.deferScheduler(scheduler)
	})
}
