package kv

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PG is a Store backed by the kv_entries table. Expiry is evaluated against
// the database clock so all API instances agree on entry lifetime.
type PG struct {
	db *sql.DB
}

// NewPG wraps an open database handle.
func NewPG(db *sql.DB) *PG {
	return &PG{db: db}
}

func (p *PG) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.db.QueryRowContext(ctx,
		`select value from kv_entries where key = $1 and expires_at > now()`,
		key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (p *PG) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("kv: ttl must be positive")
	}
	_, err := p.db.ExecContext(ctx, `
		insert into kv_entries(key, value, expires_at)
		values ($1, $2, now() + $3 * interval '1 second')
		on conflict (key) do update
		set value = excluded.value, expires_at = excluded.expires_at
	`, key, value, int64(ttl/time.Second))
	return err
}

func (p *PG) Delete(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, `delete from kv_entries where key = $1`, key)
	return err
}

// Purge removes rows whose TTL has elapsed. Get already ignores them; this
// only reclaims space and is safe to run from a ticker on any instance.
func (p *PG) Purge(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, `delete from kv_entries where expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
