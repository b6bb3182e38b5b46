package storage

import (
	"context"
	"fmt"

	"github.com/homecore/kernel/internal/storage/memory"
	"github.com/homecore/kernel/internal/storage/sqladapter"
)

// NewFromEnv picks an Adapter implementation by backend name, mirroring the
// original Python runtime's storage_factory: "memory" for the in-process map,
// "postgres" for the networked SQL adapter.
func NewFromEnv(ctx context.Context, backend, dsn string) (Adapter, error) {
	switch backend {
	case "", "memory":
		return memory.New(), nil
	case "postgres":
		return sqladapter.Open(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
}
