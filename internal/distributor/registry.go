package distributor

import "github.com/polymirror/copytrader/internal/ports"

// Registry tracks live worker sinks and performs round-robin selection
// (spec §4.2, C3). It is mutated only from Tier A.
type Registry struct {
	workers []ports.WorkerSink
	next    int // round-robin index, advances after every selection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a worker to the registry. Per spec §4.2, adding a worker
// does not reset the round-robin index.
func (r *Registry) Add(sink ports.WorkerSink) {
	r.workers = append(r.workers, sink)
}

// Remove drops the worker with the given ID, if present. In-flight
// messages already handed to it are not recalled (spec §4.2).
func (r *Registry) Remove(id string) {
	for i, w := range r.workers {
		if w.ID() == id {
			r.workers = append(r.workers[:i], r.workers[i+1:]...)
			return
		}
	}
}

// Len returns the number of currently registered workers.
func (r *Registry) Len() int { return len(r.workers) }

// Workers returns a snapshot copy of the currently registered sinks.
func (r *Registry) Workers() []ports.WorkerSink {
	out := make([]ports.WorkerSink, len(r.workers))
	copy(out, r.workers)
	return out
}

// Next selects the next worker by round-robin index, advancing the
// index modulo the registry size captured at call time. Returns false
// if the registry is empty.
func (r *Registry) Next() (ports.WorkerSink, bool) {
	n := len(r.workers)
	if n == 0 {
		return nil, false
	}
	idx := r.next % n
	r.next = (r.next + 1) % n
	return r.workers[idx], true
}
