package reactivity

// Reactive is the generic "mutable-container interception" facility: a
// map-shaped container whose Get/Set/Has/Delete/Keys calls translate into
// track/trigger against the owning Runtime. The four trap variants
// (mutable/deep, mutable/shallow, readonly/deep, readonly/shallow) are one
// tagged type with a shared method table rather than four inheriting
// types.
type Reactive[K comparable, V comparable] struct {
	rt       *Runtime
	data     map[K]V
	readonly bool
	shallow  bool
	mapLike  bool
}

// NewReactive wraps initial as a mutable, deep reactive map.
func NewReactive[K comparable, V comparable](rt *Runtime, initial map[K]V, mapLike bool) *Reactive[K, V] {
	return newReactiveVariant(rt, initial, mapLike, false, false)
}

// NewShallowReactive wraps initial as a mutable, shallow reactive map:
// only top-level Get/Set/Has/Delete/Keys calls are tracked. There is no
// nested wrapping to recurse into; values are stored as-is.
func NewShallowReactive[K comparable, V comparable](rt *Runtime, initial map[K]V, mapLike bool) *Reactive[K, V] {
	return newReactiveVariant(rt, initial, mapLike, false, true)
}

// NewReadonly wraps initial as a readonly, deep reactive map: reads do
// not track, writes are rejected.
func NewReadonly[K comparable, V comparable](rt *Runtime, initial map[K]V, mapLike bool) *Reactive[K, V] {
	return newReactiveVariant(rt, initial, mapLike, true, false)
}

// NewShallowReadonly combines both restrictions.
func NewShallowReadonly[K comparable, V comparable](rt *Runtime, initial map[K]V, mapLike bool) *Reactive[K, V] {
	return newReactiveVariant(rt, initial, mapLike, true, true)
}

func newReactiveVariant[K comparable, V comparable](rt *Runtime, initial map[K]V, mapLike, readonly, shallow bool) *Reactive[K, V] {
	if initial == nil {
		initial = make(map[K]V)
	}
	return &Reactive[K, V]{rt: rt, data: initial, readonly: readonly, shallow: shallow, mapLike: mapLike}
}

// IsReactive, IsReadonly, IsShallow mirror the metadata keys
// (IS_REACTIVE/IS_READONLY/IS_SHALLOW) a Get trap would serve; here they
// are plain methods since Go containers have no magic property namespace
// to intercept.
func (r *Reactive[K, V]) IsReactive() bool { return true }
func (r *Reactive[K, V]) IsReadonly() bool { return r.readonly }
func (r *Reactive[K, V]) IsShallow() bool  { return r.shallow }

// Len reports the number of entries without tracking, mirroring reading
// .size through a raw, untracked handle.
func (r *Reactive[K, V]) Len() int { return len(r.data) }

// Get reads a value, tracking a GET dependency unless the wrapper is
// readonly (readonly variants never call track).
func (r *Reactive[K, V]) Get(key K) (V, bool) {
	v, ok := r.data[key]
	if !r.readonly {
		r.rt.Track(r, TrackGet, key)
	}
	return v, ok
}

// Has reports key membership, tracking a HAS dependency unless the
// wrapper is readonly.
func (r *Reactive[K, V]) Has(key K) bool {
	_, ok := r.data[key]
	if !r.readonly {
		r.rt.Track(r, TrackHas, key)
	}
	return ok
}

// Keys returns every key, tracking an ITERATE dependency on IterateKey
// (or MapKeyIterateKey when the wrapper models map-key iteration) unless
// the wrapper is readonly.
func (r *Reactive[K, V]) Keys() []K {
	if !r.readonly {
		if r.mapLike {
			r.rt.Track(r, TrackIterate, MapKeyIterateKey)
		} else {
			r.rt.Track(r, TrackIterate, IterateKey)
		}
	}
	keys := make([]K, 0, len(r.data))
	for k := range r.data {
		keys = append(keys, k)
	}
	return keys
}

// Set writes key=value. Readonly wrappers reject the write; otherwise
// ADD fires when the key is new, SET fires when an existing value
// actually changes.
func (r *Reactive[K, V]) Set(key K, value V) {
	if r.readonly {
		r.rt.warn("set on key %v rejected: target is readonly", key)
		return
	}
	old, hadKey := r.data[key]
	r.data[key] = value
	if !hadKey {
		r.rt.Trigger(r, TriggerAdd, key, value, nil, TriggerOpts{IsMapLike: r.mapLike})
		return
	}
	if old != value {
		r.rt.Trigger(r, TriggerSet, key, value, old, TriggerOpts{IsMapLike: r.mapLike})
	}
}

// Delete removes key, firing DELETE if it was present.
func (r *Reactive[K, V]) Delete(key K) bool {
	if r.readonly {
		r.rt.warn("delete of key %v rejected: target is readonly", key)
		return false
	}
	old, existed := r.data[key]
	if !existed {
		return false
	}
	delete(r.data, key)
	r.rt.Trigger(r, TriggerDelete, key, nil, old, TriggerOpts{IsMapLike: r.mapLike})
	return true
}

// Clear empties the map, firing a single CLEAR that invalidates every Dep
// registered against the target.
func (r *Reactive[K, V]) Clear() {
	if r.readonly {
		r.rt.warn("clear rejected: target is readonly")
		return
	}
	if len(r.data) == 0 {
		return
	}
	old := r.data
	r.data = make(map[K]V)
	r.rt.Trigger(r, TriggerClear, nil, nil, old, TriggerOpts{})
}

// Release drops this target's entry from the runtime's target map. Go
// has no weak-keyed map to do this automatically, so callers that are
// done with a Reactive should call Release to let its Deps be collected.
func (r *Reactive[K, V]) Release() {
	delete(r.rt.targetMap, keyFor(r))
}
