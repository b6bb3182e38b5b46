// Package sqladapter implements storage.Adapter against PostgreSQL via
// jmoiron/sqlx, using a DSN-connect-and-ping constructor and a
// context-carried-transaction pattern (TxFromContext / ContextWithTx) built
// on *sqlx.Tx.
package sqladapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/homecore/kernel/internal/kernelerr"
	"github.com/homecore/kernel/internal/storage"
)

// Adapter is a Postgres-backed storage.Adapter over a single generic
// kv_store(namespace, key, value, updated_at) table.
type Adapter struct {
	db *sqlx.DB
}

// Open connects to dsn, verifies connectivity, and bootstraps the kv_store
// table via golang-migrate.
func Open(ctx context.Context, dsn string) (*Adapter, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := bootstrap(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return &Adapter{db: db}, nil
}

type txKey struct{}

// ContextWithTx attaches a transaction to ctx for a nested call to pick up.
func ContextWithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext extracts a transaction previously attached with ContextWithTx.
func TxFromContext(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx
}

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
}

func (a *Adapter) querier(ctx context.Context) querier {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return a.db
}

func (a *Adapter) Get(ctx context.Context, namespace, key string) (map[string]interface{}, bool, error) {
	var raw []byte
	err := a.querier(ctx).QueryRowxContext(ctx,
		`SELECT value FROM kv_store WHERE namespace = $1 AND key = $2`,
		namespace, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kernelerr.NewAdapterError("get", err)
	}

	var value map[string]interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, kernelerr.NewAdapterError("get.unmarshal", err)
	}
	return value, true, nil
}

func (a *Adapter) Set(ctx context.Context, namespace, key string, value map[string]interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return kernelerr.NewAdapterError("set.marshal", err)
	}

	_, err = a.querier(ctx).ExecContext(ctx, `
		INSERT INTO kv_store (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, namespace, key, raw)
	if err != nil {
		return kernelerr.NewAdapterError("set", err)
	}
	return nil
}

func (a *Adapter) Delete(ctx context.Context, namespace, key string) error {
	_, err := a.querier(ctx).ExecContext(ctx,
		`DELETE FROM kv_store WHERE namespace = $1 AND key = $2`, namespace, key)
	if err != nil {
		return kernelerr.NewAdapterError("delete", err)
	}
	return nil
}

func (a *Adapter) ListKeys(ctx context.Context, namespace string) ([]string, error) {
	rows, err := a.querier(ctx).QueryxContext(ctx,
		`SELECT key FROM kv_store WHERE namespace = $1`, namespace)
	if err != nil {
		return nil, kernelerr.NewAdapterError("list_keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, kernelerr.NewAdapterError("list_keys.scan", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (a *Adapter) ClearNamespace(ctx context.Context, namespace string) error {
	_, err := a.querier(ctx).ExecContext(ctx,
		`DELETE FROM kv_store WHERE namespace = $1`, namespace)
	if err != nil {
		return kernelerr.NewAdapterError("clear_namespace", err)
	}
	return nil
}

func (a *Adapter) Close(_ context.Context) error {
	return a.db.Close()
}

// WithTransaction runs fn with a *sqlx.Tx attached to ctx, committing on
// success and rolling back on error or panic.
func (a *Adapter) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return kernelerr.NewAdapterError("begin_tx", err)
	}

	txCtx := ContextWithTx(ctx, tx)

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return kernelerr.NewAdapterError("commit_tx", err)
	}
	return nil
}

func (a *Adapter) BatchSet(ctx context.Context, records []storage.Record) error {
	return a.WithTransaction(ctx, func(ctx context.Context) error {
		for _, rec := range records {
			if err := a.Set(ctx, rec.Namespace, rec.Key, rec.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

var _ storage.Adapter = (*Adapter)(nil)
