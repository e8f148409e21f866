// Package reactivity implements a fine-grained reactivity runtime: a
// dependency graph between data locations and the effects that read them,
// plus a cooperative scheduler that batches re-runs into a single drain
// per tick.
package reactivity

// DirtyLevel tracks how confident an Effect can be that its last computed
// result is still valid.
type DirtyLevel int

const (
	// NotDirty means the effect is up to date.
	NotDirty DirtyLevel = iota
	// MaybeDirty means an upstream computed may have changed; the effect
	// must probe its dependencies before it can tell.
	MaybeDirty
	// Dirty means the effect must re-run.
	Dirty
)

func (l DirtyLevel) String() string {
	switch l {
	case NotDirty:
		return "not-dirty"
	case MaybeDirty:
		return "maybe-dirty"
	case Dirty:
		return "dirty"
	default:
		return "unknown"
	}
}

// TrackType classifies the kind of read that produced a track call.
type TrackType int

const (
	TrackGet TrackType = iota
	TrackHas
	TrackIterate
)

// TriggerType classifies the kind of write that produced a trigger call.
type TriggerType int

const (
	TriggerSet TriggerType = iota
	TriggerAdd
	TriggerDelete
	TriggerClear
)

// sentinelKey gives ITERATE_KEY and MAP_KEY_ITERATE_KEY stable pointer
// identity, shared by every Runtime in the process, mirroring the JS
// original's module-level Symbol() sentinels.
type sentinelKey struct{ name string }

func (k *sentinelKey) String() string { return k.name }

var (
	// IterateKey stands in for a whole-object iteration (OwnKeys / for..in).
	IterateKey = &sentinelKey{name: "ITERATE_KEY"}
	// MapKeyIterateKey stands in for map-key iteration (Map.prototype.keys()).
	MapKeyIterateKey = &sentinelKey{name: "MAP_KEY_ITERATE_KEY"}
	// LengthKey is the virtual "length" property of a reactive list.
	LengthKey = &sentinelKey{name: "length"}
)
