// Package source implements the tool side of a scan: it parses
// TypeScript and JavaScript files with tree-sitter and turns exported
// function-like symbols into tool descriptors.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/jward/surveyor/internal/classify"
	"github.com/jward/surveyor/internal/descriptor"
	"github.com/jward/surveyor/internal/runtime"
)

// ErrUnsupportedLanguage is returned for files whose extension has no grammar.
var ErrUnsupportedLanguage = errors.New("source: unsupported language")

// Scanner extracts tool descriptors from source files.
type Scanner struct {
	root     string
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

// WithParallel parses files on a worker pool. Results are committed in
// input order, so output is identical to a sequential scan.
func WithParallel(enabled bool) Option {
	return func(s *Scanner) { s.parallel = enabled }
}

// WithWorkers caps the worker pool size. Values below 1 mean NumCPU.
func WithWorkers(n int) Option {
	return func(s *Scanner) { s.workers = n }
}

// NewScanner creates a Scanner. Relative file paths are resolved against
// root and every sourceFile is reported relative to it.
func NewScanner(root string, opts ...Option) *Scanner {
	s := &Scanner{root: root, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fileResult is the outcome of extracting one file. On failure tools is nil.
type fileResult struct {
	rel   string
	tools []descriptor.ToolDescriptor
	err   error
}

// Scan extracts descriptors from files. A failing file is skipped with a
// warning and contributes nothing; other files are unaffected. The pair
// (sourceFile, name) is unique in the returned list, first occurrence wins.
func (s *Scanner) Scan(ctx context.Context, files []string) ([]descriptor.ToolDescriptor, []descriptor.Warning) {
	var results []fileResult
	if s.parallel && len(files) > 1 {
		results = s.extractParallel(ctx, files)
	} else {
		results = make([]fileResult, len(files))
		for i, f := range files {
			results[i] = s.extractFile(ctx, f)
		}
	}
	return s.commit(results)
}

// commit merges per-file results in input order through one run-scoped
// dedup set.
func (s *Scanner) commit(results []fileResult) ([]descriptor.ToolDescriptor, []descriptor.Warning) {
	type key struct{ file, name string }
	seen := make(map[key]bool)

	var (
		tools    []descriptor.ToolDescriptor
		warnings []descriptor.Warning
	)
	for _, res := range results {
		if res.err != nil {
			s.logger.Warn("skipping source file", zap.String("file", res.rel), zap.Error(res.err))
			warnings = append(warnings, descriptor.Warning{File: res.rel, Message: res.err.Error()})
			continue
		}
		for _, t := range res.tools {
			k := key{t.SourceFile, t.Name}
			if seen[k] {
				continue
			}
			seen[k] = true
			tools = append(tools, t)
		}
	}
	s.logger.Debug("source scan complete", zap.Int("files", len(results)), zap.Int("tools", len(tools)))
	return tools, warnings
}

func (s *Scanner) extractParallel(ctx context.Context, files []string) []fileResult {
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

	results := make([]fileResult, len(files))
	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each slot is written by exactly one worker.
			for i := range workCh {
				results[i] = s.extractFile(ctx, files[i])
			}
		}()
	}
	wg.Wait()
	return results
}

// extractFile parses one file and builds its descriptors. Panics inside
// extraction are converted to a file-level error.
func (s *Scanner) extractFile(ctx context.Context, path string) (res fileResult) {
	full, rel := s.resolve(path)
	res.rel = rel
	defer func() {
		if r := recover(); r != nil {
			res.tools = nil
			res.err = fmt.Errorf("source: extraction panic: %v", r)
		}
	}()

	lang, ok := runtime.LanguageForFile(full)
	if !ok {
		res.err = fmt.Errorf("%w: %s", ErrUnsupportedLanguage, filepath.Ext(full))
		return res
	}
	src, err := os.ReadFile(full)
	if err != nil {
		res.err = fmt.Errorf("source: read file: %w", err)
		return res
	}
	tree, err := runtime.Parse(ctx, src, lang)
	if err != nil {
		res.err = err
		return res
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		s.logger.Debug("syntax errors in source file", zap.String("file", rel))
	}

	for _, c := range collectCandidates(root, src) {
		t, ok := buildTool(c, src, rel)
		if ok {
			res.tools = append(res.tools, t)
		}
	}
	return res
}

// resolve returns the path to read and the root-relative, slash-separated
// path to report.
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

// buildTool applies the filter, export check and normalization to one
// candidate. The descriptor is only returned once fully built.
func buildTool(c Candidate, src []byte, relPath string) (descriptor.ToolDescriptor, bool) {
	name := c.Name()
	if name == "" || !classify.IsEligible(name, relPath) || !c.Exported() {
		return descriptor.ToolDescriptor{}, false
	}

	var doc docComment
	if text := c.DocText(); text != "" {
		doc = parseDocComment(text)
	}

	params := extractParams(c.Parameters(), src)
	fields := make(descriptor.Fields[descriptor.ParameterSchema], 0, len(params))
	names := make([]string, 0, len(params))
	for _, p := range params {
		tag, hasTag := doc.Params[p.Name]
		typeText := p.TypeText
		if typeText == "" && hasTag {
			typeText = tag.Type
		}
		td := classify.Normalize(typeText)
		schema := descriptor.ParameterSchema{
			Type:        td.Kind,
			Required:    !(p.Optional || tag.Optional),
			Description: tag.Description,
			Enum:        td.EnumValues,
		}
		if schema.Description == "" {
			schema.Description = td.Description
		}
		fields.Set(p.Name, schema)
		names = append(names, p.Name)
	}

	returnText := c.ReturnTypeText()
	if returnText == "" {
		switch {
		case doc.Returns != "":
			returnText = doc.Returns
		case c.Async():
			returnText = "Promise<any>"
		}
	}

	description := doc.Description
	if description == "" {
		description = classify.Describe(name, len(params), classify.HasIDLikeParameter(names))
	}

	return descriptor.ToolDescriptor{
		Name:        name,
		Description: description,
		Parameters:  fields,
		ReturnType:  classify.Normalize(returnText).Kind,
		Category:    classify.Categorize(name, relPath),
		SourceFile:  relPath,
		Examples:    doc.Examples,
	}, true
}
