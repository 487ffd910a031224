package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/transmute/internal/lineage"
	"github.com/roach88/transmute/internal/record"
)

// Put archives a serialized lineage record.
// Uses ON CONFLICT(digest) DO NOTHING for idempotency: archiving a record
// that is already present returns the existing entry and inserted=false.
func (s *Store) Put(ctx context.Context, rec record.Object, label string) (entry Entry, inserted bool, err error) {
	sum, err := summarize(rec)
	if err != nil {
		return Entry{}, false, fmt.Errorf("put lineage: %w", err)
	}
	text, err := marshalRecord(rec)
	if err != nil {
		return Entry{}, false, fmt.Errorf("put lineage: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, false, fmt.Errorf("put lineage: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM lineages`).Scan(&seq); err != nil {
		return Entry{}, false, fmt.Errorf("put lineage: next seq: %w", err)
	}

	id := s.newID()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO lineages
		(id, digest, label, source, steps, version, record, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(digest) DO NOTHING
	`,
		id,
		sum.digest,
		label,
		sum.source,
		len(sum.transformations),
		sum.version,
		text,
		seq,
	)
	if err != nil {
		return Entry{}, false, fmt.Errorf("put lineage: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return Entry{}, false, fmt.Errorf("put lineage: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Conflict - already archived, return the existing entry
		entry, err = scanEntry(tx.QueryRowContext(ctx, selectEntry+` WHERE digest = ?`, sum.digest))
		if err != nil {
			return Entry{}, false, fmt.Errorf("put lineage: select existing: %w", err)
		}
		return entry, false, nil
	}

	for pos, name := range sum.transformations {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lineage_steps (lineage_id, position, transformation)
			VALUES (?, ?, ?)
		`, id, pos, name); err != nil {
			return Entry{}, false, fmt.Errorf("put lineage: insert step %d: %w", pos, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, false, fmt.Errorf("put lineage: commit: %w", err)
	}

	slog.Debug("lineage archived", "id", id, "digest", sum.digest, "steps", len(sum.transformations))
	return Entry{
		ID:      id,
		Digest:  sum.digest,
		Label:   label,
		Source:  sum.source,
		Steps:   len(sum.transformations),
		Version: sum.version,
		Seq:     seq,
		Record:  rec,
	}, true, nil
}

// PutLineage encodes l with codec and archives the result.
func (s *Store) PutLineage(ctx context.Context, codec lineage.Codec, l *lineage.Lineage, label string) (Entry, bool, error) {
	return s.Put(ctx, codec.Encode(l), label)
}

// PutForest archives every member of f in member order, each in its own
// transaction. It stops at the first failure.
func (s *Store) PutForest(ctx context.Context, codec lineage.Codec, f *lineage.Forest, label string) ([]Entry, error) {
	recs := codec.EncodeAll(f)
	entries := make([]Entry, 0, len(recs))
	for i, rec := range recs {
		e, _, err := s.Put(ctx, rec, label)
		if err != nil {
			return entries, fmt.Errorf("member %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Delete removes an entry and its steps.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM lineages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete lineage: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete lineage: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
