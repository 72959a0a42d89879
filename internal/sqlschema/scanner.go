// Package sqlschema implements the resource side of a scan: it parses SQL
// DDL files against an ordered list of dialect profiles and turns the tables
// of the first dialect that accepts a file into resource descriptors.
package sqlschema

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jward/surveyor/internal/descriptor"
)

// Scanner extracts resource descriptors from SQL files.
type Scanner struct {
	root     string
	dialects []*Dialect
	logger   *zap.Logger
	parallel bool
	workers  int
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger used for per-file warnings.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithParallel parses files concurrently. Dialect attempts within one file
// stay sequential and output order follows input order.
func WithParallel(enabled bool) Option {
	return func(s *Scanner) { s.parallel = enabled }
}

// WithWorkers caps the worker pool size. Values below 1 mean NumCPU.
func WithWorkers(n int) Option {
	return func(s *Scanner) { s.workers = n }
}

// NewScanner creates a Scanner trying dialects in the given order. An empty
// list means DefaultDialects.
func NewScanner(root string, dialects []string, opts ...Option) (*Scanner, error) {
	ds, err := ResolveDialects(dialects)
	if err != nil {
		return nil, err
	}
	s := &Scanner{root: root, dialects: ds, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dialects returns the names of the dialects tried, in order.
func (s *Scanner) Dialects() []string {
	names := make([]string, len(s.dialects))
	for i, d := range s.dialects {
		names[i] = d.Name
	}
	return names
}

type fileResult struct {
	rel       string
	resources []descriptor.ResourceDescriptor
	err       error
}

// Scan extracts descriptors from files. Empty files are skipped silently. A
// file no dialect accepts produces exactly one warning and no descriptors.
func (s *Scanner) Scan(ctx context.Context, files []string) ([]descriptor.ResourceDescriptor, []descriptor.Warning) {
	results := make([]fileResult, len(files))
	if s.parallel && len(files) > 1 {
		numWorkers := s.workers
		if numWorkers < 1 {
			numWorkers = goruntime.NumCPU()
		}
		numWorkers = min(numWorkers, len(files))

		workCh := make(chan int, len(files))
		for i := range files {
			workCh <- i
		}
		close(workCh)

		var wg sync.WaitGroup
		for range numWorkers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range workCh {
					results[i] = s.scanFile(ctx, files[i])
				}
			}()
		}
		wg.Wait()
	} else {
		for i, f := range files {
			results[i] = s.scanFile(ctx, f)
		}
	}

	var (
		resources []descriptor.ResourceDescriptor
		warnings  []descriptor.Warning
	)
	for _, res := range results {
		if res.err != nil {
			s.logger.Warn("skipping SQL file", zap.String("file", res.rel), zap.Error(res.err))
			warnings = append(warnings, descriptor.Warning{File: res.rel, Message: res.err.Error()})
			continue
		}
		resources = append(resources, res.resources...)
	}
	s.logger.Debug("schema scan complete", zap.Int("files", len(files)), zap.Int("resources", len(resources)))
	return resources, warnings
}

func (s *Scanner) scanFile(ctx context.Context, path string) (res fileResult) {
	full, rel := s.resolve(path)
	res.rel = rel
	defer func() {
		if r := recover(); r != nil {
			res.resources = nil
			res.err = fmt.Errorf("sqlschema: panic: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}
	info, err := os.Stat(full)
	if err != nil {
		res.err = fmt.Errorf("sqlschema: stat file: %w", err)
		return res
	}
	data, err := os.ReadFile(full)
	if err != nil {
		res.err = fmt.Errorf("sqlschema: read file: %w", err)
		return res
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return res
	}

	schema, d, err := s.Detect(text)
	if err != nil {
		res.err = err
		return res
	}
	s.logger.Debug("parsed SQL file", zap.String("file", rel), zap.String("dialect", d.Name), zap.Int("tables", len(schema.Tables)))

	for _, t := range schema.Tables {
		if t.Name == "" {
			continue
		}
		res.resources = append(res.resources, toResource(t, rel, d.Name, info.ModTime()))
	}
	return res
}

// Detect parses text with each dialect in order and returns the first
// success. A failing attempt never prevents the next one.
func (s *Scanner) Detect(text string) (*Schema, *Dialect, error) {
	var attempts []error
	for _, d := range s.dialects {
		schema, err := tryParse(d, text)
		if err == nil {
			return schema, d, nil
		}
		attempts = append(attempts, err)
	}
	return nil, nil, fmt.Errorf("%w: %w", ErrNoDialect, errors.Join(attempts...))
}

func tryParse(d *Dialect, text string) (schema *Schema, err error) {
	defer func() {
		if r := recover(); r != nil {
			schema, err = nil, &SyntaxError{Dialect: d.Name, Msg: fmt.Sprintf("parser panic: %v", r)}
		}
	}()
	return Parse(d, text)
}

func (s *Scanner) resolve(path string) (full, rel string) {
	full = path
	if !filepath.IsAbs(path) && s.root != "" {
		full = filepath.Join(s.root, path)
	}
	rel = path
	if s.root != "" {
		if r, err := filepath.Rel(s.root, full); err == nil {
			rel = r
		}
	}
	return full, filepath.ToSlash(rel)
}
