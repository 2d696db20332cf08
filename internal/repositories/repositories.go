package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// itemsKey is the snapshot_meta key for the song list.
const itemsKey = "items"

// inTx runs fn inside a transaction, committing on success.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// touchMeta upserts the fetch time and row count for key.
func touchMeta(ctx context.Context, tx *sql.Tx, key string, count int, at time.Time) error {
	query := `
		INSERT INTO snapshot_meta (collection, item_count, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT (collection) DO UPDATE SET item_count = excluded.item_count, fetched_at = excluded.fetched_at
	`
	if _, err := tx.ExecContext(ctx, query, key, count, at); err != nil {
		return fmt.Errorf("failed to update snapshot metadata: %w", err)
	}
	return nil
}
