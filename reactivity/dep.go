package reactivity

import mapset "github.com/deckarep/golang-set/v2"

// Computed is the external collaborator contract for computed refs: the
// core never constructs one, but a Dep may point back at whichever
// computed owns it so that Effect.Dirty can force a re-evaluation while
// probing a MaybeDirty chain.
type Computed interface {
	// Evaluate forces recomputation if the computed is stale. Any
	// resulting change propagates through the computed's own Dep,
	// synchronously raising the dirty level of whoever is probing it.
	Evaluate()
}

// Dep is the subscription set for a single (target, key) pair: which
// effects are subscribed, and at what trackId each subscription was last
// confirmed live.
type Dep struct {
	subs     mapset.Set[*Effect]
	trackIds map[*Effect]int64

	// Computed is non-nil when this Dep belongs to a computed ref's own
	// internal dependency tracking, letting Effect.Dirty distinguish
	// "must probe" deps from plain data deps.
	Computed Computed

	// cleanup fires exactly once, the moment subs empties. The target
	// map installs this to unregister the Dep from its key registry so
	// the target can be released.
	cleanup func()
}

func newDep() *Dep {
	return &Dep{
		subs:     mapset.NewThreadUnsafeSet[*Effect](),
		trackIds: make(map[*Effect]int64),
	}
}

func (d *Dep) empty() bool { return d.subs.Cardinality() == 0 }

// liveTrackID reports the trackId this Dep last recorded for eff, if any.
func (d *Dep) liveTrackID(eff *Effect) (int64, bool) {
	id, ok := d.trackIds[eff]
	return id, ok
}

// subscribe records eff as a subscriber at its current trackId.
func (d *Dep) subscribe(eff *Effect) {
	d.subs.Add(eff)
	d.trackIds[eff] = eff.trackID
}

// unsubscribe removes eff and, if the set just emptied, fires cleanup.
func (d *Dep) unsubscribe(eff *Effect) {
	if !d.subs.Contains(eff) {
		return
	}
	d.subs.Remove(eff)
	delete(d.trackIds, eff)
	if d.empty() && d.cleanup != nil {
		d.cleanup()
	}
}

// forEachSub visits every current subscriber. Mutating subs mid-iteration
// (e.g. via unsubscribe triggered by a cleanup) is safe because we snapshot
// first: trigger fan-out routinely causes effects to stop themselves.
func (d *Dep) forEachSub(fn func(*Effect)) {
	for _, eff := range d.subs.ToSlice() {
		fn(eff)
	}
}
