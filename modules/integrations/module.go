// Package integrations is the built-in module that seeds
// internal/integrationregistry with the kernel's own process-health
// descriptor and publishes the same data as prometheus/client_golang
// gauges, sampled via shirou/gopsutil/v3. It is OPTIONAL: a failure here
// never blocks CoreRuntime.Start (spec §4.13's REQUIRED/OPTIONAL split).
package integrations

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/homecore/kernel/internal/integrationregistry"
	"github.com/homecore/kernel/internal/logging"
)

const (
	descriptorName = "runtime.process"
	sampleInterval = 15 * time.Second
)

// Module samples process and system memory stats on a timer, publishing
// them into an integrationregistry.Registry descriptor and a prometheus
// gauge pair.
type Module struct {
	registry   *integrationregistry.Registry
	registerer prometheus.Registerer
	log        *logging.Logger

	processMemGauge prometheus.Gauge
	systemMemGauge  prometheus.Gauge

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs the integrations module. registerer is typically
// prometheus.DefaultRegisterer; pass a fresh prometheus.NewRegistry() in
// tests to avoid colliding with other tests' global registrations.
func New(reg *integrationregistry.Registry, registerer prometheus.Registerer, log *logging.Logger) *Module {
	return &Module{registry: reg, registerer: registerer, log: log}
}

func (m *Module) Name() string { return "integrations" }

func (m *Module) Start(ctx context.Context) error {
	m.processMemGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kernel_process_memory_bytes",
		Help: "Kernel process resident memory in bytes, sampled via gopsutil.",
	})
	m.systemMemGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kernel_system_memory_used_percent",
		Help: "Host memory utilization percent, sampled via gopsutil.",
	})
	if m.registerer != nil {
		if err := m.registerer.Register(m.processMemGauge); err != nil {
			return err
		}
		if err := m.registerer.Register(m.systemMemGauge); err != nil {
			return err
		}
	}

	m.registry.Register(integrationregistry.Descriptor{
		Name:       descriptorName,
		Kind:       "runtime",
		Configured: false,
		Details:    map[string]string{"status": "sampling not started"},
	})

	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go m.sampleLoop(runCtx)
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	if m.registerer != nil {
		m.registerer.Unregister(m.processMemGauge)
		m.registerer.Unregister(m.systemMemGauge)
	}
	return nil
}

func (m *Module) sampleLoop(ctx context.Context) {
	defer m.wg.Done()

	m.sampleOnce(ctx)
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sampleOnce(ctx)
		}
	}
}

func (m *Module) sampleOnce(ctx context.Context) {
	var rss uint64
	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfoWithContext(ctx); err == nil && info != nil {
			rss = info.RSS
		}
	} else {
		m.log.Warn(ctx, "gopsutil process lookup failed", map[string]interface{}{"error": err.Error()})
	}

	var usedPercent float64
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		usedPercent = vm.UsedPercent
	}

	m.processMemGauge.Set(float64(rss))
	m.systemMemGauge.Set(usedPercent)

	m.registry.Register(integrationregistry.Descriptor{
		Name:       descriptorName,
		Kind:       "runtime",
		Configured: true,
		Details: map[string]string{
			"rss_bytes":            strconv.FormatUint(rss, 10),
			"system_mem_used_pct":  strconv.FormatFloat(usedPercent, 'f', 2, 64),
		},
	})
}
