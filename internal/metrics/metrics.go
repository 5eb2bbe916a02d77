package metrics

import (
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Process-wide counters reported on /metrics.
var (
	OrdersCreated     Counter
	OrdersDeleted     Counter
	LineItemsWritten  Counter
	Recomputations    Counter
	RejectedWrites    Counter
	RateLimitedClient Counter
)

// Snapshot returns the current value of every process counter.
func Snapshot() map[string]uint64 {
	return map[string]uint64{
		"orders_created":       OrdersCreated.Load(),
		"orders_deleted":       OrdersDeleted.Load(),
		"line_items_written":   LineItemsWritten.Load(),
		"total_recomputations": Recomputations.Load(),
		"rejected_writes":      RejectedWrites.Load(),
		"rate_limited":         RateLimitedClient.Load(),
	}
}
