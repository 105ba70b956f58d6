package core

import (
	"time"

	"github.com/searchktools/dory/core/pools"
)

// Stats is a snapshot of the engine's worker accounting
type Stats struct {
	ActiveWorkers int64               `json:"active_workers"`
	Accepted      uint64              `json:"accepted"`
	Failed        uint64              `json:"failed"`
	Uptime        time.Duration       `json:"uptime"`
	BytePool      pools.BytePoolStats `json:"byte_pool"`
}

// Stats returns the current worker accounting
func (e *Engine) Stats() Stats {
	return Stats{
		ActiveWorkers: e.active.Load(),
		Accepted:      e.accepted.Load(),
		Failed:        e.failed.Load(),
		Uptime:        time.Since(e.started),
		BytePool:      pools.GlobalStats(),
	}
}
