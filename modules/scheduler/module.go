// Package scheduler is the built-in module wiring robfig/cron/v3 into the
// kernel: a supplemented feature (no equivalent in the distilled spec) that
// lets a plugin register a cron expression during OnLoad and have the
// kernel publish an EventBus event on that schedule, rather than every
// plugin that needs periodic work rolling its own goroutine+ticker.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/homecore/kernel/internal/eventbus"
	"github.com/homecore/kernel/internal/kernelerr"
	"github.com/homecore/kernel/internal/logging"
	"github.com/homecore/kernel/internal/registry"
)

// Module owns a cron.Cron instance and the ServiceRegistry entries plugins
// use to register/unregister scheduled jobs.
type Module struct {
	bus      *eventbus.Bus
	services *registry.Registry
	log      *logging.Logger

	mu   sync.Mutex
	cron *cron.Cron
	jobs map[string]cron.EntryID
}

// New constructs the scheduler module.
func New(bus *eventbus.Bus, services *registry.Registry, log *logging.Logger) *Module {
	return &Module{bus: bus, services: services, log: log, jobs: make(map[string]cron.EntryID)}
}

func (m *Module) Name() string { return "scheduler" }

func (m *Module) Start(ctx context.Context) error {
	m.mu.Lock()
	m.cron = cron.New()
	m.mu.Unlock()

	m.services.Register("scheduler.register_job", m.registerJob, "")
	m.services.Register("scheduler.unregister_job", m.unregisterJob, "")

	m.cron.Start()
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	m.services.Unregister("scheduler.register_job")
	m.services.Unregister("scheduler.unregister_job")

	m.mu.Lock()
	c := m.cron
	m.mu.Unlock()
	if c == nil {
		return nil
	}
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	return nil
}

func (m *Module) registerJob(ctx context.Context, args registry.Args) (any, error) {
	name, _ := args.Get("name")
	jobName, _ := name.(string)
	if jobName == "" {
		return nil, kernelerr.NewInvalidInput("name", "is required")
	}
	spec, _ := args.Get("spec")
	cronSpec, _ := spec.(string)
	if cronSpec == "" {
		return nil, kernelerr.NewInvalidInput("spec", "is required")
	}
	eventType, _ := args.Get("event_type")
	eventTypeStr, _ := eventType.(string)
	if eventTypeStr == "" {
		return nil, kernelerr.NewInvalidInput("event_type", "is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[jobName]; exists {
		return nil, kernelerr.NewConflict("job already registered: " + jobName)
	}

	entryID, err := m.cron.AddFunc(cronSpec, func() {
		m.bus.Publish(context.Background(), eventTypeStr, map[string]interface{}{
			"job":   jobName,
			"fired": time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, kernelerr.NewInvalidInput("spec", err.Error())
	}
	m.jobs[jobName] = entryID
	return map[string]any{"registered": true}, nil
}

func (m *Module) unregisterJob(ctx context.Context, args registry.Args) (any, error) {
	name, _ := args.Get("name")
	jobName, _ := name.(string)

	m.mu.Lock()
	defer m.mu.Unlock()
	entryID, ok := m.jobs[jobName]
	if !ok {
		return nil, kernelerr.NewNotFound("job", jobName)
	}
	m.cron.Remove(entryID)
	delete(m.jobs, jobName)
	return map[string]any{"unregistered": true}, nil
}
