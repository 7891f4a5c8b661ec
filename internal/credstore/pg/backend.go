package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"opiniq.org/internal/credstore"
)

// Backend stores credential blobs in Postgres, one row per cache key. Writes
// overwrite the full blob; last writer wins.
type Backend struct {
	db *sql.DB
}

var _ credstore.Backend = (*Backend)(nil)

// Open connects to Postgres with pool defaults tuned for small blob traffic.
func Open(dsn string) (*Backend, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Backend{db: db}, nil
}

// NewBackend wraps an existing connection pool.
func NewBackend(db *sql.DB) *Backend { return &Backend{db: db} }

func (b *Backend) Close() error { return b.db.Close() }

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	err := b.db.QueryRowContext(ctx, `
		select blob from credential_blobs where cache_key = $1
	`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, credstore.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return blob, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	_, err := b.db.ExecContext(ctx, `
		insert into credential_blobs(cache_key, blob, updated_at)
		values ($1, $2, now())
		on conflict (cache_key) do update
		set blob = excluded.blob, updated_at = now()
	`, key, value)
	return err
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(ctx, `
		delete from credential_blobs where cache_key = $1
	`, key)
	return err
}
