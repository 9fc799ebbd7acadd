package utils

import (
	"fmt"
	"runtime"
)

// GetMemUsage summarises the heap of the running process, in MiB.
func GetMemUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}
	return fmt.Sprintf("heap %v MiB, total allocated %v MiB, sys %v MiB, %v GCs",
		bToMb(m.HeapAlloc), bToMb(m.TotalAlloc), bToMb(m.Sys), m.NumGC)
}
