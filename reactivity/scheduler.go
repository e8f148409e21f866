package reactivity

import "sort"

// Job is a unit of scheduler work. Identity is by pointer, which is what
// queueJob's dedup and invalidateJob rely on: a Go func value can't carry
// the extra id/pre/active fields a job contract needs, so jobs are
// values, constructed with NewJob.
type Job struct {
	fn            Fn
	id            *int64
	pre           bool
	active        bool
	allowRecurse  bool
	ownerInstance *int64
}

// JobOption configures a Job at construction time.
type JobOption func(*Job)

// WithJobID gives the job an ordering id; smaller ids run earlier.
func WithJobID(id int64) JobOption { return func(j *Job) { j.id = &id } }

// WithJobPre marks the job as a "pre" job: at equal id it runs before
// non-pre jobs.
func WithJobPre(pre bool) JobOption { return func(j *Job) { j.pre = pre } }

// WithJobAllowRecurse permits the job to re-enqueue itself while running.
func WithJobAllowRecurse(allow bool) JobOption { return func(j *Job) { j.allowRecurse = allow } }

// WithJobOwnerInstance tags the job with a component/owner id, used by
// FlushPreFlushCbs to scope its synchronous drain.
func WithJobOwnerInstance(id int64) JobOption { return func(j *Job) { j.ownerInstance = &id } }

// NewJob wraps fn as a schedulable Job, active by default (Go's zero
// value for bool would otherwise read as "skip", the opposite of the
// job contract's "active: false = skip").
func NewJob(fn Fn, opts ...JobOption) *Job {
	j := &Job{fn: fn, active: true}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// SetActive toggles whether the job runs the next time flushJobs reaches
// it, without removing it from the queue.
func (j *Job) SetActive(active bool) { j.active = active }

// PostFlushCallback is queued via QueuePostFlushCb/QueuePostFlushCbs and
// runs once, after all main-queue jobs in a flush have completed.
type PostFlushCallback struct {
	fn           func()
	allowRecurse bool
}

// NewPostFlushCallback wraps fn for the post-flush queue.
func NewPostFlushCallback(fn func(), allowRecurse bool) *PostFlushCallback {
	return &PostFlushCallback{fn: fn, allowRecurse: allowRecurse}
}

// QueueJob inserts job into the sorted (id, pre) queue and requests a
// flush.
func (rt *Runtime) QueueJob(job *Job) {
	searchStart := rt.flushIndex
	if rt.isFlushing && job.allowRecurse {
		searchStart = rt.flushIndex + 1
	}
	for i := searchStart; i < len(rt.queue); i++ {
		if rt.queue[i] == job {
			return
		}
	}

	if job.id == nil {
		rt.queue = append(rt.queue, job)
	} else {
		lo := 0
		if rt.isFlushing {
			lo = rt.flushIndex + 1
		}
		idx := rt.findInsertionIndex(*job.id, job.pre, lo, len(rt.queue))
		rt.queue = append(rt.queue, nil)
		copy(rt.queue[idx+1:], rt.queue[idx:])
		rt.queue[idx] = job
	}
	rt.queueFlush()
}

// findInsertionIndex binary-searches [lo, hi) for the smallest index
// whose job has either a larger id, or an equal id with !pre. Jobs with
// no id sort as if their id were +Infinity.
func (rt *Runtime) findInsertionIndex(id int64, pre bool, lo, hi int) int {
	for lo < hi {
		mid := (lo + hi) / 2
		j := rt.queue[mid]
		if j.id == nil {
			hi = mid
			continue
		}
		if *j.id > id || (*j.id == id && !j.pre) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// InvalidateJob removes job from the queue if it sits at an index after
// flushIndex, i.e. after the job currently executing; an already-running
// or already-completed job can't be cancelled. While no flush is running
// flushIndex is 0, so a job at the head of the queue is not removed.
func (rt *Runtime) InvalidateJob(job *Job) {
	for i := rt.flushIndex + 1; i < len(rt.queue); i++ {
		if rt.queue[i] == job {
			rt.queue = append(rt.queue[:i], rt.queue[i+1:]...)
			return
		}
	}
}

// QueuePostFlushCb queues a single post-flush callback, deduping against
// the currently-draining snapshot.
func (rt *Runtime) QueuePostFlushCb(cb *PostFlushCallback) {
	start := 0
	if len(rt.activePostFlushCbs) > 0 {
		start = rt.postFlushIndex + 1
		if cb.allowRecurse {
			start++
		}
	}
	dup := false
	for i := start; i < len(rt.activePostFlushCbs); i++ {
		if rt.activePostFlushCbs[i] == cb {
			dup = true
			break
		}
	}
	if !dup {
		rt.pendingPostFlushCbs = append(rt.pendingPostFlushCbs, cb)
	}
	rt.queueFlush()
}

// QueuePostFlushCbs queues a batch of post-flush callbacks without
// deduping: array callers are lifecycle batches already deduped
// upstream.
func (rt *Runtime) QueuePostFlushCbs(cbs []*PostFlushCallback) {
	rt.pendingPostFlushCbs = append(rt.pendingPostFlushCbs, cbs...)
	rt.queueFlush()
}

func (rt *Runtime) queueFlush() {
	if !rt.isFlushing && !rt.isFlushPending {
		rt.isFlushPending = true
	}
}

// Tick advances the emulated microtask checkpoint by one step: it is the
// single-drain queue invoked by the host event loop between user calls,
// the stand-in for a microtask in a language without native ones. Call
// it after mutations to observe their effects, the way the JS original's
// callers await a microtask boundary.
func (rt *Runtime) Tick() {
	if len(rt.tickCallbacks) > 0 {
		cbs := rt.tickCallbacks
		rt.tickCallbacks = nil
		for _, cb := range cbs {
			cb()
		}
	}
	if rt.isFlushPending && !rt.isFlushing {
		rt.flushJobs()
	}
}

// TickWaiter is returned by NextTick; Done closes once fn (if any) has
// run, at the point NextTick describes.
type TickWaiter struct{ done chan struct{} }

// Done returns a channel that closes once the callback has run.
func (w *TickWaiter) Done() <-chan struct{} { return w.done }

// NextTick registers fn to run once the flush that is running or pending
// at call time completes, mirroring
// `(currentFlushPromise ?? resolvedMicrotask).then(fn)`. When no flush is
// running or pending, fn runs at the start of the next Tick, before any
// flush that Tick performs. Nothing runs until Tick is called.
func (rt *Runtime) NextTick(fn func()) *TickWaiter {
	w := &TickWaiter{done: make(chan struct{})}
	cb := func() {
		if fn != nil {
			fn()
		}
		close(w.done)
	}
	if rt.isFlushing || rt.isFlushPending {
		rt.currentFlushCallbacks = append(rt.currentFlushCallbacks, cb)
	} else {
		rt.tickCallbacks = append(rt.tickCallbacks, cb)
	}
	return w
}

const recursionLimit = 100

// flushJobs drains the main queue in (id, pre) order, then the post-flush
// queue, recursing if new work arrived during the drain. A job that
// requeues itself more than recursionLimit times within a single flush is
// skipped and reported to the error handler instead of looping forever.
func (rt *Runtime) flushJobs() {
	rt.isFlushPending = false
	rt.isFlushing = true
	rt.recursionCounts = make(map[*Job]int)

	sort.SliceStable(rt.queue, func(i, j int) bool {
		a, b := rt.queue[i], rt.queue[j]
		if a.id == nil || b.id == nil {
			return a.id != nil // real ids sort before nil ids
		}
		if *a.id != *b.id {
			return *a.id < *b.id
		}
		return a.pre && !b.pre
	})

	for rt.flushIndex = 0; rt.flushIndex < len(rt.queue); rt.flushIndex++ {
		job := rt.queue[rt.flushIndex]
		if !job.active {
			continue
		}

		count := rt.recursionCounts[job]
		if count > recursionLimit {
			rt.reportError(recursiveUpdateError(count), job, ErrCodeAppErrorHandler)
			continue
		}
		rt.recursionCounts[job] = count + 1

		rt.runJobSafely(job)
	}

	rt.flushIndex = 0
	rt.queue = rt.queue[:0]
	rt.flushPostFlushCbs()
	rt.isFlushing = false

	if len(rt.queue) > 0 || len(rt.pendingPostFlushCbs) > 0 {
		rt.flushJobs()
		return
	}

	cbs := rt.currentFlushCallbacks
	rt.currentFlushCallbacks = nil
	for _, cb := range cbs {
		cb()
	}
}

func (rt *Runtime) runJobSafely(job *Job) {
	defer func() {
		if r := recover(); r != nil {
			rt.reportError(panicToError(r), job, ErrCodeScheduler)
		}
	}()
	if err := job.fn(); err != nil {
		rt.reportError(err, job, ErrCodeScheduler)
	}
}

// flushPostFlushCbs dedupes the pending buffer into a sorted (here: FIFO,
// since PostFlushCallback carries no id) snapshot and drains it,
// re-entrantly appending to the active list if queued from within a
// running callback.
func (rt *Runtime) flushPostFlushCbs() {
	if len(rt.pendingPostFlushCbs) == 0 {
		return
	}

	seen := make(map[*PostFlushCallback]bool, len(rt.pendingPostFlushCbs))
	dedup := make([]*PostFlushCallback, 0, len(rt.pendingPostFlushCbs))
	for _, cb := range rt.pendingPostFlushCbs {
		if seen[cb] {
			continue
		}
		seen[cb] = true
		dedup = append(dedup, cb)
	}
	rt.pendingPostFlushCbs = nil

	if len(rt.activePostFlushCbs) > 0 {
		rt.activePostFlushCbs = append(rt.activePostFlushCbs, dedup...)
		return
	}

	rt.activePostFlushCbs = dedup
	for rt.postFlushIndex = 0; rt.postFlushIndex < len(rt.activePostFlushCbs); rt.postFlushIndex++ {
		cb := rt.activePostFlushCbs[rt.postFlushIndex]
		rt.runPostFlushCbSafely(cb)
	}
	rt.activePostFlushCbs = nil
	rt.postFlushIndex = 0

	if len(rt.pendingPostFlushCbs) > 0 {
		rt.flushPostFlushCbs()
	}
}

func (rt *Runtime) runPostFlushCbSafely(cb *PostFlushCallback) {
	defer func() {
		if r := recover(); r != nil {
			rt.reportError(panicToError(r), cb, ErrCodeScheduler)
		}
	}()
	cb.fn()
}

// FlushPreFlushCbs forces synchronous execution of every queued "pre" job
// from index flushIndex+1 if flushing, else from 0, optionally scoped to
// a single ownerInstance. Used by higher layers that need pre-watchers
// resolved before proceeding.
func (rt *Runtime) FlushPreFlushCbs(ownerInstance *int64) {
	i := 0
	if rt.isFlushing {
		i = rt.flushIndex + 1
	}
	for i < len(rt.queue) {
		job := rt.queue[i]
		matches := job.pre && (ownerInstance == nil ||
			(job.ownerInstance != nil && *job.ownerInstance == *ownerInstance))
		if matches {
			rt.queue = append(rt.queue[:i], rt.queue[i+1:]...)
			rt.runJobSafely(job)
			continue
		}
		i++
	}
}

// FlushPostFlushCbs forces synchronous execution of the pending post-flush
// buffer, independent of a main-queue flush.
func (rt *Runtime) FlushPostFlushCbs() { rt.flushPostFlushCbs() }
