package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/transmute/internal/lineage"
)

const selectEntry = `
	SELECT id, digest, label, source, steps, version, seq, record
	FROM lineages`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e    Entry
		text string
	)
	if err := row.Scan(&e.ID, &e.Digest, &e.Label, &e.Source, &e.Steps, &e.Version, &e.Seq, &text); err != nil {
		return Entry{}, err
	}
	rec, err := unmarshalRecord(text)
	if err != nil {
		return Entry{}, err
	}
	e.Record = rec
	return e, nil
}

// Get returns the entry with the given id.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get lineage: %w", err)
	}
	return e, nil
}

// GetByDigest returns the entry whose record has the given digest.
func (s *Store) GetByDigest(ctx context.Context, digest string) (Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, selectEntry+` WHERE digest = ?`, digest))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: digest %s", ErrNotFound, digest)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get lineage: %w", err)
	}
	return e, nil
}

// Load decodes the archived record with the given id.
func (s *Store) Load(ctx context.Context, codec lineage.Codec, id string) (*lineage.Lineage, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return codec.Decode(e.Record)
}

// List returns every entry.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) when the archive is empty.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	return s.queryEntries(ctx, selectEntry+`
		ORDER BY seq ASC, id COLLATE BINARY ASC`)
}

// FindByTransformation returns the entries whose history contains a step
// named name, in archive order.
func (s *Store) FindByTransformation(ctx context.Context, name string) ([]Entry, error) {
	return s.queryEntries(ctx, selectEntry+`
		WHERE id IN (SELECT lineage_id FROM lineage_steps WHERE transformation = ?)
		ORDER BY seq ASC, id COLLATE BINARY ASC`, name)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lineages: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lineage: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lineages: %w", err)
	}
	return entries, nil
}
