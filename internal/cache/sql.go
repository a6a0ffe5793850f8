package cache

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mind-engage/lawcards/internal/db"
)

// SQLBackend stores entries in the cache_entries table created by db.Open.
type SQLBackend struct {
	db *sql.DB
}

func NewSQLBackend(d *sql.DB) *SQLBackend { return &SQLBackend{db: d} }

func (b *SQLBackend) Put(ctx context.Context, e Entry) error {
	return db.WithTx(ctx, b.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cache_entries (partition, key, payload, timestamp_ms, format_version, derived_count, size_bytes)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (partition, key) DO UPDATE SET
			  payload = excluded.payload,
			  timestamp_ms = excluded.timestamp_ms,
			  format_version = excluded.format_version,
			  derived_count = excluded.derived_count,
			  size_bytes = excluded.size_bytes`,
			string(e.Partition), e.Key, string(e.Payload), e.TimestampMs, e.FormatVersion, e.DerivedCount, e.SizeBytes)
		return err
	})
}

func (b *SQLBackend) Get(ctx context.Context, p Partition, key string) (Entry, bool, error) {
	e := Entry{Partition: p, Key: key}
	var payload string
	err := b.db.QueryRowContext(ctx, `
		SELECT payload, timestamp_ms, format_version, derived_count, size_bytes
		FROM cache_entries WHERE partition = $1 AND key = $2`, string(p), key).
		Scan(&payload, &e.TimestampMs, &e.FormatVersion, &e.DerivedCount, &e.SizeBytes)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	e.Payload = []byte(payload)
	return e, true, nil
}

func (b *SQLBackend) Clear(ctx context.Context, parts ...Partition) error {
	return db.WithTx(ctx, b.db, func(tx *sql.Tx) error {
		for _, p := range parts {
			if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE partition = $1`, string(p)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *SQLBackend) Close() error { return b.db.Close() }
