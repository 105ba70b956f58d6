package observability

import (
	"runtime"
	"time"
)

// RuntimeStats is a snapshot of the Go runtime's memory and scheduler state
type RuntimeStats struct {
	Goroutines int
	NumGC      uint32
	LastPause  time.Duration
	HeapAlloc  uint64
	Sys        uint64
}

// ReadRuntimeStats returns current runtime statistics. It stops the world
// briefly; don't call it per request.
func ReadRuntimeStats() RuntimeStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := RuntimeStats{
		Goroutines: runtime.NumGoroutine(),
		NumGC:      ms.NumGC,
		HeapAlloc:  ms.HeapAlloc,
		Sys:        ms.Sys,
	}
	if ms.NumGC > 0 {
		stats.LastPause = time.Duration(ms.PauseNs[(ms.NumGC+255)%256])
	}
	return stats
}
