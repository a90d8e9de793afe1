package pool

import "sync/atomic"

// Status classifies an upstream address as observed by the health checker.
type Status int

const (
	Healthy Status = iota
	Slow
	Unresponsive
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Slow:
		return "slow"
	default:
		return "unresponsive"
	}
}

// Healthiness is a tagged classification plus, for Slow, the observed
// latency. It is immutable once constructed.
type Healthiness struct {
	Status    Status
	LatencyMS int64
}

// Cell holds a Healthiness behind an atomic pointer: the health checker is
// the sole writer, and every dispatch reads the currently published value
// without taking a lock.
type Cell struct {
	v atomic.Value
}

// NewCell returns a cell initialised to Healthy, matching the invariant that
// every address starts healthy when a snapshot is published.
func NewCell() *Cell {
	c := &Cell{}
	c.Store(Healthiness{Status: Healthy})
	return c
}

func (c *Cell) Store(h Healthiness) { c.v.Store(h) }

func (c *Cell) Load() Healthiness {
	v := c.v.Load()
	if v == nil {
		return Healthiness{Status: Healthy}
	}
	return v.(Healthiness)
}
