// Package notify implements the operator-facing dashboard (SPEC_FULL §8).
package notify

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
)

// WorkerStat is one worker's counters as of the last render tick.
type WorkerStat struct {
	ID          string
	Received    int
	Executed    int
	BufferDepth int
}

// Snapshot is everything the dashboard needs for one render (spec §8:
// dedup cache size, aggregation buffer depth, per-worker counts, paper
// P&L).
type Snapshot struct {
	DedupCacheSize int
	BacklogLen     int
	Workers        []WorkerStat
	PaperTrading   bool
	PaperBalance   float64
	PaperInvested  float64
}

// Console prints a live dashboard to the given writer, following the
// teacher's tablewriter-based reporting pattern.
type Console struct {
	out io.Writer
}

// NewConsole creates a dashboard writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a dashboard writing to w, for tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Render prints one dashboard tick.
func (c *Console) Render(s Snapshot) {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] dedup_cache=%d backlog=%d\n", now, s.DedupCacheSize, s.BacklogLen)

	workers := make([]WorkerStat, len(s.Workers))
	copy(workers, s.Workers)
	sort.Slice(workers, func(i, j int) bool { return workers[i].ID < workers[j].ID })

	table := tablewriter.NewWriter(c.out)
	table.Header("Worker", "Received", "Executed", "Buffered")
	for _, w := range workers {
		table.Append(w.ID, fmt.Sprintf("%d", w.Received), fmt.Sprintf("%d", w.Executed), fmt.Sprintf("%d", w.BufferDepth))
	}
	table.Render()

	if s.PaperTrading {
		fmt.Fprintf(c.out, "  paper: balance=$%.2f invested=$%.2f total=$%.2f\n",
			s.PaperBalance, s.PaperInvested, s.PaperBalance+s.PaperInvested)
	}
}
