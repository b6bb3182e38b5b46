package storage

import (
	"context"

	"github.com/homecore/kernel/internal/kernelerr"
)

// Facade wraps an Adapter and enforces the input validation the spec
// requires: non-empty namespace/key, and a value that is a JSON object
// (a Go map, never nil when writing).
type Facade struct {
	adapter Adapter
}

// NewFacade wraps adapter in a validating Facade.
func NewFacade(adapter Adapter) *Facade {
	return &Facade{adapter: adapter}
}

func validateNamespaceKey(namespace, key string) error {
	if namespace == "" {
		return kernelerr.NewInvalidInput("namespace", "must not be empty")
	}
	if key == "" {
		return kernelerr.NewInvalidInput("key", "must not be empty")
	}
	return nil
}

func validateValue(value map[string]interface{}) error {
	if value == nil {
		return kernelerr.NewInvalidInput("value", "must be a JSON object")
	}
	return nil
}

func (f *Facade) Get(ctx context.Context, namespace, key string) (map[string]interface{}, bool, error) {
	if err := validateNamespaceKey(namespace, key); err != nil {
		return nil, false, err
	}
	return f.adapter.Get(ctx, namespace, key)
}

func (f *Facade) Set(ctx context.Context, namespace, key string, value map[string]interface{}) error {
	if err := validateNamespaceKey(namespace, key); err != nil {
		return err
	}
	if err := validateValue(value); err != nil {
		return err
	}
	return f.adapter.Set(ctx, namespace, key, value)
}

func (f *Facade) Delete(ctx context.Context, namespace, key string) error {
	if err := validateNamespaceKey(namespace, key); err != nil {
		return err
	}
	return f.adapter.Delete(ctx, namespace, key)
}

func (f *Facade) ListKeys(ctx context.Context, namespace string) ([]string, error) {
	if namespace == "" {
		return nil, kernelerr.NewInvalidInput("namespace", "must not be empty")
	}
	return f.adapter.ListKeys(ctx, namespace)
}

func (f *Facade) ClearNamespace(ctx context.Context, namespace string) error {
	if namespace == "" {
		return kernelerr.NewInvalidInput("namespace", "must not be empty")
	}
	return f.adapter.ClearNamespace(ctx, namespace)
}

func (f *Facade) Close(ctx context.Context) error {
	return f.adapter.Close(ctx)
}

// Transaction runs fn within the adapter's transaction scope.
func (f *Facade) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return f.adapter.WithTransaction(ctx, fn)
}

// BatchSet validates and writes every record through the adapter's batch path.
func (f *Facade) BatchSet(ctx context.Context, records []Record) error {
	for _, rec := range records {
		if err := validateNamespaceKey(rec.Namespace, rec.Key); err != nil {
			return err
		}
		if err := validateValue(rec.Value); err != nil {
			return err
		}
	}
	return f.adapter.BatchSet(ctx, records)
}
