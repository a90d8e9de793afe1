package config

import "sync/atomic"

// Cell holds the currently published RuntimeConfig behind an atomic
// pointer swap: readers call Load and get a complete, immutable snapshot
// with no locking; the reloader calls Store to publish a new one.
type Cell struct {
	v atomic.Value
}

func NewCell(initial *RuntimeConfig) *Cell {
	c := &Cell{}
	c.Store(initial)
	return c
}

func (c *Cell) Store(rc *RuntimeConfig) { c.v.Store(rc) }

func (c *Cell) Load() *RuntimeConfig {
	v := c.v.Load()
	if v == nil {
		return nil
	}
	return v.(*RuntimeConfig)
}
