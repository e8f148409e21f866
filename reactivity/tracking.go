package reactivity

// PauseTracking and ResumeTracking bracket regions where reads must not
// create dependencies: array length-mutating methods and the dirty probe.
func (rt *Runtime) PauseTracking() {
	rt.trackStack = append(rt.trackStack, rt.shouldTrack)
	rt.shouldTrack = false
}

// EnableTracking pushes the current shouldTrack and forces tracking on,
// used by code that must track even inside an outer paused region.
func (rt *Runtime) EnableTracking() {
	rt.trackStack = append(rt.trackStack, rt.shouldTrack)
	rt.shouldTrack = true
}

// ResumeTracking pops the shouldTrack stack. If the stack is empty it
// defaults to true.
func (rt *Runtime) ResumeTracking() {
	if len(rt.trackStack) == 0 {
		rt.shouldTrack = true
		return
	}
	last := len(rt.trackStack) - 1
	rt.shouldTrack = rt.trackStack[last]
	rt.trackStack = rt.trackStack[:last]
}

// ResetTracking is an alias for ResumeTracking kept for parity with the
// public surface's naming (pauseTracking/enableTracking/resetTracking).
func (rt *Runtime) ResetTracking() { rt.ResumeTracking() }

// PauseScheduling increments the pause-schedule depth. While paused,
// scheduler enqueues triggered by trigger() are buffered rather than run.
func (rt *Runtime) PauseScheduling() {
	rt.pauseScheduleDepth++
}

// ResetScheduling decrements the pause-schedule depth; at zero it drains
// the deferred-scheduler buffer in FIFO order.
func (rt *Runtime) ResetScheduling() {
	rt.pauseScheduleDepth--
	if rt.pauseScheduleDepth != 0 {
		return
	}
	pending := rt.deferredSchedulers
	rt.deferredSchedulers = nil
	for _, run := range pending {
		run()
	}
}

func (rt *Runtime) deferScheduler(run func()) {
	rt.deferredSchedulers = append(rt.deferredSchedulers, run)
}
