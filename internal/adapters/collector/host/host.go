// Package host periodically stores host and Go runtime gauges as measurements.
package host

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/vshulcz/promstore/internal/domain"
)

const (
	MemoryBytes        = "host_memory_bytes"
	CPUPercent         = "host_cpu_percent"
	RuntimeMemoryBytes = "runtime_memory_bytes"
	PollsTotal         = "sampler_polls_total"
)

// Recorder receives samples.
type Recorder interface {
	Store(ctx context.Context, metric, key string, value float64) error
	Increment(ctx context.Context, metric, key string) error
}

// Registrar receives the descriptors of the sampled metrics.
type Registrar interface {
	Register(metric, label, help string, typ domain.MetricType, defaultValue string)
}

// Sampler reads memory and CPU usage on every tick.
type Sampler struct {
	rec    Recorder
	logger *zap.Logger
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	virtualMemory func() (*mem.VirtualMemoryStat, error)
	cpuPercent    func(time.Duration, bool) ([]float64, error)
	readMemStats  func(*runtime.MemStats)
}

// New creates a sampler that writes into rec.
func New(rec Recorder, logger *zap.Logger) *Sampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sampler{
		rec:           rec,
		logger:        logger,
		stop:          make(chan struct{}),
		virtualMemory: mem.VirtualMemory,
		cpuPercent:    cpu.Percent,
		readMemStats:  runtime.ReadMemStats,
	}
}

// Register declares the sampled metrics.
func (*Sampler) Register(reg Registrar) {
	reg.Register(MemoryBytes, "kind", "Host virtual memory in bytes.", domain.Gauge, domain.DefaultValue)
	reg.Register(CPUPercent, "cpu", "Host CPU utilisation per core.", domain.Gauge, domain.DefaultValue)
	reg.Register(RuntimeMemoryBytes, "kind", "Go runtime memory in bytes.", domain.Gauge, domain.DefaultValue)
	reg.Register(PollsTotal, "sampler", "Completed sampling rounds.", domain.Counter, "0")
}

// Start samples every interval until ctx is done or Stop is called.
func (s *Sampler) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid sampling interval %v", interval)
	}
	t := time.NewTicker(interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-t.C:
				if err := s.SampleOnce(ctx); err != nil {
					s.logger.Warn("sampling failed", zap.Error(err))
				}
			}
		}
	}()
	return nil
}

// Stop halts the sampling goroutine and waits for it.
func (s *Sampler) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// SampleOnce takes one round of samples. Read failures of one source do
// not prevent the others from being stored.
func (s *Sampler) SampleOnce(ctx context.Context) error {
	var errs []error
	store := func(metric, key string, v float64) {
		if err := s.rec.Store(ctx, metric, key, v); err != nil {
			errs = append(errs, fmt.Errorf("store %s/%s: %w", metric, key, err))
		}
	}

	var ms runtime.MemStats
	s.readMemStats(&ms)
	store(RuntimeMemoryBytes, "alloc", float64(ms.Alloc))
	store(RuntimeMemoryBytes, "heap_inuse", float64(ms.HeapInuse))
	store(RuntimeMemoryBytes, "sys", float64(ms.Sys))

	if vm, err := s.virtualMemory(); err != nil {
		errs = append(errs, fmt.Errorf("virtual memory: %w", err))
	} else if vm != nil {
		store(MemoryBytes, "total", float64(vm.Total))
		store(MemoryBytes, "free", float64(vm.Free))
		store(MemoryBytes, "used", float64(vm.Used))
	}

	if pct, err := s.cpuPercent(0, true); err != nil {
		errs = append(errs, fmt.Errorf("cpu percent: %w", err))
	} else {
		for i, p := range pct {
			store(CPUPercent, fmt.Sprintf("cpu%d", i), p)
		}
	}

	if err := s.rec.Increment(ctx, PollsTotal, "host"); err != nil {
		errs = append(errs, fmt.Errorf("increment %s: %w", PollsTotal, err))
	}
	return errors.Join(errs...)
}
