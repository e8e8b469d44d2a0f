// Package tracking animates the courier progress shown on the order
// tracking page. Nothing here knows where a courier really is: progress is
// a function of the order status and of how long it has been shipped.
package tracking

import (
	"context"
	"math"
	"sync"
	"time"

	"apotek/internal/domain"
)

const (
	DefaultInterval = time.Second

	shippedStart = 60.0
	shippedCap   = 90.0
	stepProgress = 0.2

	etaStart = 30.0
	etaFloor = 5.0
	stepETA  = 0.1
)

// Snapshot is what the tracking page renders.
type Snapshot struct {
	Status     domain.OrderStatus `json:"status"`
	Progress   float64            `json:"progress"`    // 0..100
	ETAMinutes float64            `json:"eta_minutes"` // 0 once delivered
}

func initial(s domain.OrderStatus) Snapshot {
	switch s {
	case domain.OrderProcessing:
		return Snapshot{Status: s, Progress: 30, ETAMinutes: etaStart}
	case domain.OrderShipped:
		return Snapshot{Status: s, Progress: shippedStart, ETAMinutes: etaStart}
	case domain.OrderDelivered:
		return Snapshot{Status: s, Progress: 100}
	case domain.OrderCancelled:
		return Snapshot{Status: s}
	default:
		return Snapshot{Status: domain.OrderPending, Progress: 10, ETAMinutes: etaStart}
	}
}

// after applies n ticks to a shipped order.
func after(n int64) Snapshot {
	p := math.Min(shippedStart+stepProgress*float64(n), shippedCap)
	eta := math.Max(etaStart-stepETA*float64(n), etaFloor)
	return Snapshot{
		Status:     domain.OrderShipped,
		Progress:   math.Round(p*10) / 10,
		ETAMinutes: math.Round(eta*10) / 10,
	}
}

// Project returns the snapshot for an order that entered status elapsed ago.
// A shipped order advances one step per interval.
func Project(s domain.OrderStatus, elapsed, interval time.Duration) Snapshot {
	if s != domain.OrderShipped {
		return initial(s)
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return after(int64(elapsed / interval))
}

// Simulator is the live, ticking variant of Project.
type Simulator struct {
	mu    sync.Mutex
	snap  Snapshot
	ticks int64
}

func NewSimulator(s domain.OrderStatus) *Simulator {
	sim := &Simulator{}
	sim.Reset(s)
	return sim
}

// Resume starts a simulator where Project would be after elapsed.
func Resume(s domain.OrderStatus, elapsed, interval time.Duration) *Simulator {
	sim := NewSimulator(s)
	if s == domain.OrderShipped {
		if interval <= 0 {
			interval = DefaultInterval
		}
		if elapsed > 0 {
			sim.ticks = int64(elapsed / interval)
		}
		sim.snap = after(sim.ticks)
	}
	return sim
}

// Reset jumps to the starting point for s. Delivered snaps to 100% and an
// ETA of zero.
func (sim *Simulator) Reset(s domain.OrderStatus) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.ticks = 0
	sim.snap = initial(s)
}

// Tick advances a shipped order one step; other statuses do not move.
func (sim *Simulator) Tick() Snapshot {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	if sim.snap.Status == domain.OrderShipped {
		sim.ticks++
		sim.snap = after(sim.ticks)
	}
	return sim.snap
}

func (sim *Simulator) Snapshot() Snapshot {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.snap
}

// Run ticks every interval until ctx is done. onTick may be nil.
func (sim *Simulator) Run(ctx context.Context, interval time.Duration, onTick func(Snapshot)) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := sim.Tick()
			if onTick != nil {
				onTick(s)
			}
		}
	}
}

// Step is one row of the tracking timeline.
type Step struct {
	Title string `json:"title"`
	Hint  string `json:"hint"`
	Done  bool   `json:"done"`
}

// Steps builds the customer timeline for s. A cancelled order shows only the
// confirmation step as done.
func Steps(s domain.OrderStatus) []Step {
	rank := map[domain.OrderStatus]int{
		domain.OrderPending:    1,
		domain.OrderProcessing: 2,
		domain.OrderShipped:    4,
		domain.OrderDelivered:  5,
		domain.OrderCancelled:  1,
	}[s]
	steps := []Step{
		{Title: "Pesanan Dikonfirmasi", Hint: "Pesanan diterima"},
		{Title: "Obat Disiapkan", Hint: "Estimasi 10 menit"},
		{Title: "Kurir Menjemput", Hint: "Estimasi 15 menit"},
		{Title: "Dalam Perjalanan", Hint: "Sedang berlangsung"},
		{Title: "Tiba di Tujuan", Hint: "Segera"},
	}
	for i := range steps {
		steps[i].Done = i < rank
	}
	return steps
}
