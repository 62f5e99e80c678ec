package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

const (
	minCacheBudget      = 64 << 20
	maxCacheBudget      = 1 << 30
	fallbackCacheBudget = 256 << 20
)

// InitResourceLimits raises the open file limit for the preview server
func InitResourceLimits(logger zerolog.Logger) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn().Err(err).Msg("could not read open file limit")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn().Err(err).Msg("could not raise open file limit")
		return
	}
	logger.Debug().Uint64("nofile", uint64(rLimit.Cur)).Msg("open file limit raised")
}

// DefaultCacheBudget sizes the decoded-asset cache at an eighth of available memory
func DefaultCacheBudget(ctx context.Context) int64 {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return fallbackCacheBudget
	}
	return budgetFor(vm.Available)
}

func budgetFor(available uint64) int64 {
	b := int64(available / 8)
	if b < minCacheBudget {
		return minCacheBudget
	}
	if b > maxCacheBudget {
		return maxCacheBudget
	}
	return b
}

// Stats is a point-in-time view of the process for performance reports
type Stats struct {
	RSS             uint64
	CPUPercent      float64
	Threads         int32
	Goroutines      int
	HeapAlloc       uint64
	AvailableMemory uint64
}

// TakeStats samples the current process. Fields that cannot be read stay zero.
func TakeStats(ctx context.Context) (Stats, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	s := Stats{
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.HeapAlloc,
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.AvailableMemory = vm.Available
	}

	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return s, fmt.Errorf("inspect process: %w", err)
	}
	if mi, err := p.MemoryInfoWithContext(ctx); err == nil {
		s.RSS = mi.RSS
	}
	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		s.CPUPercent = cpu
	}
	if n, err := p.NumThreadsWithContext(ctx); err == nil {
		s.Threads = n
	}
	return s, nil
}

// FFmpegAvailable reports whether first-frame extraction for video assets can run
func FFmpegAvailable(path string) bool {
	_, err := exec.LookPath(path)
	return err == nil
}
