package table

import "sync/atomic"

// MemUsageCollector counts buffered bytes. Tracking on a child also counts
// on every ancestor, giving instance, space and table totals.
type MemUsageCollector struct {
	parent *MemUsageCollector
	usage  atomic.Int64
}

func NewMemUsageCollector() *MemUsageCollector {
	return &MemUsageCollector{}
}

func (c *MemUsageCollector) Child() *MemUsageCollector {
	return &MemUsageCollector{parent: c}
}

func (c *MemUsageCollector) Track(delta int64) {
	for p := c; p != nil; p = p.parent {
		p.usage.Add(delta)
	}
}

func (c *MemUsageCollector) Usage() int64 {
	return c.usage.Load()
}
