package saga

// Handle controls a task spawned by Run or a watch installed by TakeEvery.
//
// Its methods must be called from a saga body or from a callback running on
// the store's loop. Use Root.Stop from anywhere else.
type Handle struct {
	rt   *Runtime
	task *Task
}

func (h *Handle) ID() string {
	return h.task.ID
}

// Stop stops the task and its whole subtree. Stopping twice is a no-op.
func (h *Handle) Stop() {
	h.rt.stop(h.task, nil)
}

// StopWith is Stop with a cause attached to the raised *StopError.
func (h *Handle) StopWith(cause error) {
	h.rt.stop(h.task, cause)
}

func (h *Handle) Stopped() bool {
	return h.task.stopped
}

// Done is closed once the task and every task below it have finished.
func (h *Handle) Done() <-chan struct{} {
	return h.task.done
}
