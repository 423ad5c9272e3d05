package watchdog

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/procfs"
)

// Usage is one resource sample of the current process.
type Usage struct {
	MemoryBytes uint64
	CPUPercent  float64
	HasCPU      bool // false when CPU usage could not be measured
}

// Sampler measures the current process.
type Sampler interface {
	Sample() (Usage, error)
}

// ProcSampler reads resident memory and CPU time from /proc.
// CPU usage is the CPU time consumed since the previous sample, so the first
// sample carries no CPU figure.
type ProcSampler struct {
	proc procfs.Proc
	now  func() time.Time

	mu      sync.Mutex
	lastCPU float64
	lastAt  time.Time
}

var _ Sampler = (*ProcSampler)(nil)

// NewProcSampler returns a sampler for the calling process.
// It fails where /proc is not mounted.
func NewProcSampler() (*ProcSampler, error) {
	p, err := procfs.Self()
	if err != nil {
		return nil, fmt.Errorf("opening /proc for self: %w", err)
	}
	if _, err := p.Stat(); err != nil {
		return nil, fmt.Errorf("reading process stat: %w", err)
	}
	return &ProcSampler{proc: p, now: time.Now}, nil
}

func (s *ProcSampler) Sample() (Usage, error) {
	st, err := s.proc.Stat()
	if err != nil {
		return Usage{}, fmt.Errorf("reading process stat: %w", err)
	}

	u := Usage{MemoryBytes: uint64(st.ResidentMemory())}
	cpu := st.CPUTime()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastAt.IsZero() {
		if wall := now.Sub(s.lastAt).Seconds(); wall > 0 {
			u.CPUPercent = (cpu - s.lastCPU) / wall * 100
			u.HasCPU = true
		}
	}
	s.lastCPU, s.lastAt = cpu, now

	return u, nil
}

// RuntimeSampler reports memory obtained from the OS by the Go runtime, less
// what it has returned. It never reports CPU.
type RuntimeSampler struct{}

var _ Sampler = RuntimeSampler{}

func (RuntimeSampler) Sample() (Usage, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Usage{MemoryBytes: m.Sys - m.HeapReleased}, nil
}
