package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jward/surveyor/internal/descriptor"
	"github.com/jward/surveyor/internal/manifest"
)

// Run is the envelope of the saved manifest.
type Run struct {
	RunID           string
	ManifestVersion string
	GeneratedAt     time.Time
	Project         manifest.Project
	Statistics      manifest.Statistics
	Warnings        []descriptor.Warning
}

// ChangeSet lists names that were added, removed or whose signature hash
// changed between two saved snapshots.
type ChangeSet struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Changed []string `json:"changed"`
}

// Empty reports whether nothing changed.
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// Diff compares a newly saved manifest with the snapshot it replaced.
// PreviousRunID is empty when the database held no manifest.
type Diff struct {
	PreviousRunID string    `json:"previousRunId"`
	Tools         ChangeSet `json:"tools"`
	Resources     ChangeSet `json:"resources"`
}

// SaveManifest replaces the stored snapshot with m in a single transaction
// and reports what changed relative to the previous snapshot.
func (s *Store) SaveManifest(ctx context.Context, m *manifest.Manifest) (*Diff, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: save manifest: begin: %w", err)
	}
	defer tx.Rollback()

	diff := &Diff{}
	if err := tx.QueryRowContext(ctx, "SELECT run_id FROM runs LIMIT 1").Scan(&diff.PreviousRunID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: save manifest: previous run: %w", err)
	}
	prevTools, err := signatureHashes(ctx, tx, "tools")
	if err != nil {
		return nil, fmt.Errorf("store: save manifest: %w", err)
	}
	prevResources, err := signatureHashes(ctx, tx, "resources")
	if err != nil {
		return nil, fmt.Errorf("store: save manifest: %w", err)
	}

	// Children first; foreign keys are enforced.
	for _, q := range []string{
		"DELETE FROM tools",
		"DELETE FROM resources",
		"DELETE FROM runs",
	} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return nil, fmt.Errorf("store: save manifest: clear snapshot: %w", err)
		}
	}

	if err := insertRunTx(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("store: save manifest: run %s: %w", m.RunID, err)
	}

	nextTools := make([]keyedHash, 0, len(m.Tools))
	for i := range m.Tools {
		hash, err := insertToolTx(ctx, tx, m.RunID, i, &m.Tools[i])
		if err != nil {
			return nil, fmt.Errorf("store: save manifest: tool %q: %w", m.Tools[i].Name, err)
		}
		nextTools = append(nextTools, keyedHash{
			key:  snapshotKey(m.Tools[i].SourceFile, m.Tools[i].Name),
			name: m.Tools[i].Name,
			hash: hash,
		})
	}

	nextResources := make([]keyedHash, 0, len(m.Resources))
	for i := range m.Resources {
		hash, err := insertResourceTx(ctx, tx, m.RunID, i, &m.Resources[i])
		if err != nil {
			return nil, fmt.Errorf("store: save manifest: resource %q: %w", m.Resources[i].Name, err)
		}
		nextResources = append(nextResources, keyedHash{
			key:  snapshotKey(m.Resources[i].SourceFile, m.Resources[i].Name),
			name: m.Resources[i].Name,
			hash: hash,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: save manifest: commit: %w", err)
	}

	diff.Tools = compareHashes(prevTools, nextTools)
	diff.Resources = compareHashes(prevResources, nextResources)
	return diff, nil
}

func insertRunTx(ctx context.Context, tx *sql.Tx, m *manifest.Manifest) error {
	project, err := marshalText(m.Project)
	if err != nil {
		return err
	}
	stats, err := marshalText(m.Statistics)
	if err != nil {
		return err
	}
	warnings, err := marshalText(m.Warnings)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, manifest_version, generated_at, project_name, project, statistics, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.RunID, m.ManifestVersion, formatTime(m.GeneratedAt), m.Project.Name, project, stats, warnings,
	)
	return err
}

func insertToolTx(ctx context.Context, tx *sql.Tx, runID string, ordinal int, t *manifest.Tool) (string, error) {
	params, err := marshalText(t.Parameters)
	if err != nil {
		return "", err
	}
	examples, err := marshalText(t.Examples)
	if err != nil {
		return "", err
	}
	schema, err := marshalText(t.InputSchema)
	if err != nil {
		return "", err
	}
	hash := ToolSignatureHash(t.ToolDescriptor)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO tools (run_id, ordinal, name, source_file, category, description, return_type, parameters, examples, input_schema, signature_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, ordinal, t.Name, t.SourceFile, t.Category, t.Description, t.ReturnType, params, examples, schema, hash,
	)
	return hash, err
}

func insertResourceTx(ctx context.Context, tx *sql.Tx, runID string, ordinal int, r *descriptor.ResourceDescriptor) (string, error) {
	columns, err := marshalText(r.Columns)
	if err != nil {
		return "", err
	}
	indexes, err := marshalText(r.Indexes)
	if err != nil {
		return "", err
	}
	fks, err := marshalText(r.ForeignKeys)
	if err != nil {
		return "", err
	}
	hash := ResourceSignatureHash(*r)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO resources (run_id, ordinal, name, source_file, dialect, columns, indexes, foreign_keys, last_modified, signature_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, ordinal, r.Name, r.SourceFile, r.Dialect, columns, indexes, fks, formatTime(r.LastModified), hash,
	)
	return hash, err
}

type keyedHash struct {
	key  string
	name string
	hash string
}

func snapshotKey(sourceFile, name string) string {
	return sourceFile + "\x00" + name
}

func signatureHashes(ctx context.Context, tx *sql.Tx, table string) ([]keyedHash, error) {
	rows, err := tx.QueryContext(ctx, "SELECT source_file, name, signature_hash FROM "+table+" ORDER BY ordinal")
	if err != nil {
		return nil, fmt.Errorf("previous %s: %w", table, err)
	}
	defer rows.Close()
	var out []keyedHash
	for rows.Next() {
		var file string
		var kh keyedHash
		if err := rows.Scan(&file, &kh.name, &kh.hash); err != nil {
			return nil, fmt.Errorf("scan %s hash: %w", table, err)
		}
		kh.key = snapshotKey(file, kh.name)
		out = append(out, kh)
	}
	return out, rows.Err()
}

// compareHashes keeps the new snapshot's order for added and changed names;
// removed names are sorted.
func compareHashes(prev, next []keyedHash) ChangeSet {
	before := make(map[string]string, len(prev))
	for _, kh := range prev {
		before[kh.key] = kh.hash
	}
	seen := make(map[string]bool, len(next))
	var cs ChangeSet
	for _, kh := range next {
		seen[kh.key] = true
		old, ok := before[kh.key]
		switch {
		case !ok:
			cs.Added = append(cs.Added, kh.name)
		case old != kh.hash:
			cs.Changed = append(cs.Changed, kh.name)
		}
	}
	for _, kh := range prev {
		if !seen[kh.key] {
			cs.Removed = append(cs.Removed, kh.name)
		}
	}
	sort.Strings(cs.Removed)
	return cs
}

// LatestRun returns the envelope of the saved manifest.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	var (
		r                                  Run
		generatedAt, project, stats, warns string
		projectName                        string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT run_id, manifest_version, generated_at, project_name, project, statistics, warnings FROM runs LIMIT 1",
	).Scan(&r.RunID, &r.ManifestVersion, &generatedAt, &projectName, &project, &stats, &warns)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoManifest
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest run: %w", err)
	}
	if r.GeneratedAt, err = parseTime(generatedAt); err != nil {
		return nil, fmt.Errorf("store: latest run: generated_at: %w", err)
	}
	if err := unmarshalText(project, &r.Project); err != nil {
		return nil, fmt.Errorf("store: latest run: project: %w", err)
	}
	if err := unmarshalText(stats, &r.Statistics); err != nil {
		return nil, fmt.Errorf("store: latest run: statistics: %w", err)
	}
	if err := unmarshalText(warns, &r.Warnings); err != nil {
		return nil, fmt.Errorf("store: latest run: warnings: %w", err)
	}
	return &r, nil
}

// Tools returns the saved tools in manifest order. An empty category
// returns every tool.
func (s *Store) Tools(ctx context.Context, category string) ([]manifest.Tool, error) {
	if err := s.requireRun(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, source_file, category, description, return_type, parameters, examples, input_schema
		 FROM tools WHERE (? = '' OR category = ?) ORDER BY ordinal`,
		category, category,
	)
	if err != nil {
		return nil, fmt.Errorf("store: tools: %w", err)
	}
	defer rows.Close()

	tools := []manifest.Tool{}
	for rows.Next() {
		var (
			t                        manifest.Tool
			params, examples, schema string
		)
		if err := rows.Scan(&t.Name, &t.SourceFile, &t.Category, &t.Description, &t.ReturnType, &params, &examples, &schema); err != nil {
			return nil, fmt.Errorf("store: scan tool: %w", err)
		}
		if err := unmarshalText(params, &t.Parameters); err != nil {
			return nil, fmt.Errorf("store: tool %q parameters: %w", t.Name, err)
		}
		if err := unmarshalText(examples, &t.Examples); err != nil {
			return nil, fmt.Errorf("store: tool %q examples: %w", t.Name, err)
		}
		if len(t.Examples) == 0 {
			t.Examples = nil
		}
		if err := unmarshalText(schema, &t.InputSchema); err != nil {
			return nil, fmt.Errorf("store: tool %q input schema: %w", t.Name, err)
		}
		tools = append(tools, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: tools: %w", err)
	}
	return tools, nil
}

// Resources returns the saved resources in manifest order. An empty
// dialect returns every resource.
func (s *Store) Resources(ctx context.Context, dialect string) ([]descriptor.ResourceDescriptor, error) {
	if err := s.requireRun(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, source_file, dialect, columns, indexes, foreign_keys, last_modified
		 FROM resources WHERE (? = '' OR dialect = ?) ORDER BY ordinal`,
		dialect, dialect,
	)
	if err != nil {
		return nil, fmt.Errorf("store: resources: %w", err)
	}
	defer rows.Close()

	resources := []descriptor.ResourceDescriptor{}
	for rows.Next() {
		var (
			r                                   descriptor.ResourceDescriptor
			columns, indexes, fks, lastModified string
		)
		if err := rows.Scan(&r.Name, &r.SourceFile, &r.Dialect, &columns, &indexes, &fks, &lastModified); err != nil {
			return nil, fmt.Errorf("store: scan resource: %w", err)
		}
		if err := unmarshalText(columns, &r.Columns); err != nil {
			return nil, fmt.Errorf("store: resource %q columns: %w", r.Name, err)
		}
		if err := unmarshalText(indexes, &r.Indexes); err != nil {
			return nil, fmt.Errorf("store: resource %q indexes: %w", r.Name, err)
		}
		if err := unmarshalText(fks, &r.ForeignKeys); err != nil {
			return nil, fmt.Errorf("store: resource %q foreign keys: %w", r.Name, err)
		}
		if r.LastModified, err = parseTime(lastModified); err != nil {
			return nil, fmt.Errorf("store: resource %q last_modified: %w", r.Name, err)
		}
		resources = append(resources, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: resources: %w", err)
	}
	return resources, nil
}

func (s *Store) requireRun(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		return fmt.Errorf("store: count runs: %w", err)
	}
	if n == 0 {
		return ErrNoManifest
	}
	return nil
}
