// Package logger is the thinnest built-in module: it exists to give the
// kernel's structured logger an entry in ModuleManager's REQUIRED set (spec
// §4.13), so a kernel that somehow started without logging configured
// fails fast instead of running silent.
package logger

import (
	"context"

	"github.com/homecore/kernel/internal/logging"
)

// Module wraps a *logging.Logger with the lifecycle contract
// modulemanager.Module requires.
type Module struct {
	log *logging.Logger
}

// New constructs the logger module around an already-configured logger.
func New(log *logging.Logger) *Module {
	return &Module{log: log}
}

// Name identifies this module to ModuleManager.
func (m *Module) Name() string { return "logger" }

// Start confirms the logger is usable by emitting one line.
func (m *Module) Start(ctx context.Context) error {
	m.log.Info(ctx, "logger module started", nil)
	return nil
}

// Stop emits a final line before the runtime tears everything else down.
func (m *Module) Stop(ctx context.Context) error {
	m.log.Info(ctx, "logger module stopped", nil)
	return nil
}
