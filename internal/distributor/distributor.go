package distributor

import (
	"log/slog"

	"github.com/polymirror/copytrader/internal/domain"
	"github.com/polymirror/copytrader/internal/ports"
)

// Distributor routes accepted activities round-robin to the worker
// registry, buffering to an unbounded FIFO backlog when no worker is
// registered (spec §4.2, C2). It is confined to Tier A: publish, backlog
// drain, and registry mutation all happen on the caller's single
// goroutine — the monitor's.
type Distributor struct {
	registry *Registry
	backlog  []domain.QueueActivity

	// received counts the activities handed to each worker ID, used only
	// for the operator dashboard (spec §7 supplement) — never for
	// routing decisions.
	received map[string]int
}

// New creates a distributor over the given registry.
func New(registry *Registry) *Distributor {
	return &Distributor{
		registry: registry,
		received: make(map[string]int),
	}
}

// Register adds a worker and, if the backlog is non-empty, drains it
// round-robin across the current registry until either the backlog or
// the registry empties (spec §4.2).
func (d *Distributor) Register(sink ports.WorkerSink) {
	d.registry.Add(sink)
	d.drainBacklog()
}

// Unregister removes a worker from the registry.
func (d *Distributor) Unregister(id string) {
	d.registry.Remove(id)
}

// Publish selects the next worker by round-robin index and sends the
// activity; on an empty registry it appends to the backlog instead
// (spec §4.2 — not an error, per §7's error table).
func (d *Distributor) Publish(a domain.QueueActivity) error {
	worker, ok := d.registry.Next()
	if !ok {
		d.backlog = append(d.backlog, a)
		return nil
	}
	return d.deliver(worker, a)
}

// BacklogLen returns the number of activities waiting for a worker.
func (d *Distributor) BacklogLen() int { return len(d.backlog) }

// Received returns a snapshot of per-worker delivery counts, for the
// operator dashboard.
func (d *Distributor) Received() map[string]int {
	out := make(map[string]int, len(d.received))
	for k, v := range d.received {
		out[k] = v
	}
	return out
}

// BroadcastShutdown sends a shutdown message to every currently
// registered sink (spec §4.2).
func (d *Distributor) BroadcastShutdown() {
	for _, w := range d.registry.Workers() {
		if err := w.Send(ports.Message{Kind: ports.MessageShutdown}); err != nil {
			slog.Warn("distributor: shutdown delivery failed", "worker", w.ID(), "err", err)
		}
	}
}

func (d *Distributor) drainBacklog() {
	for len(d.backlog) > 0 {
		worker, ok := d.registry.Next()
		if !ok {
			return
		}
		a := d.backlog[0]
		d.backlog = d.backlog[1:]
		if err := d.deliver(worker, a); err != nil {
			slog.Warn("distributor: backlog delivery failed", "worker", worker.ID(), "err", err)
		}
	}
}

func (d *Distributor) deliver(worker ports.WorkerSink, a domain.QueueActivity) error {
	err := worker.Send(ports.Message{Kind: ports.MessageActivity, Payload: a})
	if err != nil {
		return err
	}
	d.received[worker.ID()]++
	return nil
}
