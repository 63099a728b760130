// Package dataset is the persistent store for labeled 3D samples: named
// datasets holding scene samples with classification fields.
package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrDatasetExists   = errors.New("dataset already exists")
	ErrStoreLocked     = errors.New("dataset store is locked by another process")
)

// CreateOptions controls Store.Create.
type CreateOptions struct {
	// Persistent datasets survive the next Open of the store.
	Persistent bool
	// Overwrite replaces an existing dataset of the same name.
	Overwrite bool
}

// Info summarizes a stored dataset.
type Info struct {
	Name       string
	Persistent bool
	Samples    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Dataset is a handle on a named dataset. Samples added with AddSamples are
// held in memory until Save.
type Dataset struct {
	store      *Store
	name       string
	persistent bool
	staged     []*Sample
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// Persistent reports whether the dataset survives the next store Open.
func (d *Dataset) Persistent() bool { return d.persistent }

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Create makes a new empty dataset. With opts.Overwrite an existing dataset of
// the same name is deleted first, samples included.
func (s *Store) Create(ctx context.Context, name string, opts CreateOptions) (*Dataset, error) {
	if name == "" {
		return nil, fmt.Errorf("create dataset: empty name")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	exists, err := datasetExists(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		if !opts.Overwrite {
			return nil, fmt.Errorf("%w: %s", ErrDatasetExists, name)
		}
		if err := deleteDataset(ctx, tx, name); err != nil {
			return nil, err
		}
		s.logger.Debug("overwrote dataset", "dataset", name)
	}

	ts := now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (name, persistent, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, opts.Persistent, ts, ts,
	); err != nil {
		return nil, fmt.Errorf("insert dataset: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &Dataset{store: s, name: name, persistent: opts.Persistent}, nil
}

// Load opens an existing dataset.
func (s *Store) Load(ctx context.Context, name string) (*Dataset, error) {
	var persistent bool
	err := s.db.QueryRowContext(ctx, `SELECT persistent FROM datasets WHERE name = ?`, name).Scan(&persistent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return &Dataset{store: s, name: name, persistent: persistent}, nil
}

// List returns every dataset ordered by name.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.name, d.persistent, d.created_at, d.updated_at, COUNT(s.id)
		FROM datasets d
		LEFT JOIN samples s ON s.dataset = d.name
		GROUP BY d.name
		ORDER BY d.name`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var (
			info             Info
			created, updated string
		)
		if err := rows.Scan(&info.Name, &info.Persistent, &created, &updated, &info.Samples); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes a dataset and its samples.
func (s *Store) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	exists, err := datasetExists(ctx, tx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	if err := deleteDataset(ctx, tx, name); err != nil {
		return err
	}
	return tx.Commit()
}

func datasetExists(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets WHERE name = ?`, name).Scan(&n); err != nil {
		return false, fmt.Errorf("check dataset: %w", err)
	}
	return n > 0, nil
}

func deleteDataset(ctx context.Context, tx *sql.Tx, name string) error {
	stmts := []string{
		`DELETE FROM classifications WHERE sample_id IN (SELECT id FROM samples WHERE dataset = ?)`,
		`DELETE FROM samples WHERE dataset = ?`,
		`DELETE FROM datasets WHERE name = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, name); err != nil {
			return fmt.Errorf("delete dataset %s: %w", name, err)
		}
	}
	return nil
}

// AddSamples stages samples for the next Save and assigns their ids.
func (d *Dataset) AddSamples(samples ...*Sample) []string {
	ids := make([]string, 0, len(samples))
	for _, smp := range samples {
		if smp.ID == "" {
			smp.ID = uuid.NewString()
		}
		if smp.MediaType == "" {
			smp.MediaType = mediaTypeFor(smp.Filepath)
		}
		d.staged = append(d.staged, smp)
		ids = append(ids, smp.ID)
	}
	return ids
}

// Pending returns the number of staged samples.
func (d *Dataset) Pending() int { return len(d.staged) }

// Save commits every staged sample in one transaction. On error nothing is
// written and the samples stay staged.
func (d *Dataset) Save(ctx context.Context) error {
	tx, err := d.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	exists, err := datasetExists(ctx, tx, d.name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, d.name)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM samples WHERE dataset = ?`, d.name,
	).Scan(&seq); err != nil {
		return fmt.Errorf("read sample sequence: %w", err)
	}

	insertSample, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (id, dataset, seq, filepath, media_type, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare sample insert: %w", err)
	}
	defer insertSample.Close()
	insertField, err := tx.PrepareContext(ctx, `
		INSERT INTO classifications (sample_id, field, label, confidence) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare field insert: %w", err)
	}
	defer insertField.Close()

	ts := now()
	for _, smp := range d.staged {
		if err := ctx.Err(); err != nil {
			return err
		}
		var meta sql.NullString
		if smp.Metadata != nil {
			data, err := json.Marshal(smp.Metadata)
			if err != nil {
				return fmt.Errorf("encode metadata for %s: %w", smp.Filepath, err)
			}
			meta = sql.NullString{String: string(data), Valid: true}
		}
		seq++
		if _, err := insertSample.ExecContext(ctx, smp.ID, d.name, seq, smp.Filepath, smp.MediaType, meta, ts); err != nil {
			return fmt.Errorf("insert sample %s: %w", smp.Filepath, err)
		}
		for _, field := range sortedFields(smp.Fields) {
			c := smp.Fields[field]
			if _, err := insertField.ExecContext(ctx, smp.ID, field, c.Label, c.Confidence); err != nil {
				return fmt.Errorf("insert field %s of %s: %w", field, smp.Filepath, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE datasets SET updated_at = ? WHERE name = ?`, ts, d.name); err != nil {
		return fmt.Errorf("touch dataset: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	d.store.logger.Debug("saved samples", "dataset", d.name, "count", len(d.staged))
	d.staged = nil
	return nil
}

// Len returns the number of saved samples.
func (d *Dataset) Len(ctx context.Context) (int, error) {
	var n int
	if err := d.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM samples WHERE dataset = ?`, d.name,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}

// CountValues returns how many saved samples carry each label of field.
func (d *Dataset) CountValues(ctx context.Context, field string) (map[string]int, error) {
	rows, err := d.store.db.QueryContext(ctx, `
		SELECT c.label, COUNT(*)
		FROM classifications c
		JOIN samples s ON s.id = c.sample_id
		WHERE s.dataset = ? AND c.field = ?
		GROUP BY c.label`, d.name, field)
	if err != nil {
		return nil, fmt.Errorf("count values: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scan value count: %w", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

// Samples returns the saved samples in insertion order.
func (d *Dataset) Samples(ctx context.Context) ([]*Sample, error) {
	rows, err := d.store.db.QueryContext(ctx, `
		SELECT id, filepath, media_type, metadata_json
		FROM samples WHERE dataset = ? ORDER BY seq`, d.name)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	var (
		out  []*Sample
		byID = map[string]*Sample{}
	)
	for rows.Next() {
		var (
			smp  = &Sample{Fields: map[string]Classification{}}
			meta sql.NullString
		)
		if err := rows.Scan(&smp.ID, &smp.Filepath, &smp.MediaType, &meta); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		if meta.Valid {
			smp.Metadata = &Metadata{}
			if err := json.Unmarshal([]byte(meta.String), smp.Metadata); err != nil {
				rows.Close()
				return nil, fmt.Errorf("decode metadata for %s: %w", smp.Filepath, err)
			}
		}
		out = append(out, smp)
		byID[smp.ID] = smp
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	fields, err := d.store.db.QueryContext(ctx, `
		SELECT c.sample_id, c.field, c.label, c.confidence
		FROM classifications c
		JOIN samples s ON s.id = c.sample_id
		WHERE s.dataset = ?`, d.name)
	if err != nil {
		return nil, fmt.Errorf("query fields: %w", err)
	}
	defer fields.Close()
	for fields.Next() {
		var (
			id, field string
			c         Classification
			conf      sql.NullFloat64
		)
		if err := fields.Scan(&id, &field, &c.Label, &conf); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		if conf.Valid {
			v := conf.Float64
			c.Confidence = &v
		}
		if smp, ok := byID[id]; ok {
			smp.Fields[field] = c
		}
	}
	return out, fields.Err()
}

func sortedFields(fields map[string]Classification) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
