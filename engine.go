package surveyor

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/jward/surveyor/internal/classify"
	"github.com/jward/surveyor/internal/descriptor"
	"github.com/jward/surveyor/internal/runtime"
	"github.com/jward/surveyor/internal/source"
	"github.com/jward/surveyor/internal/sqlschema"
)

// Engine orchestrates a scan: file discovery, the source and schema
// scanners, and the optional rules script.
type Engine struct {
	logger    *zap.Logger
	root      string
	dialects  []string // nil means sqlschema.DefaultDialects
	parallel  bool
	workers   int
	discover  DiscoverOptions
	rulesPath string
	rulesFS   fs.FS
	rules     *runtime.Rules
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger handed to both scanners and the rules runtime.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRoot sets the project root. Relative file paths passed to Run are
// resolved against it and every sourceFile is reported relative to it.
func WithRoot(root string) Option {
	return func(e *Engine) { e.root = root }
}

// WithDialects sets the SQL dialects to try, in order of precedence.
func WithDialects(names ...string) Option {
	return func(e *Engine) { e.dialects = names }
}

// WithParallel controls concurrency. When true (default) the two scanners
// run concurrently and each parses its files on a worker pool. Output is
// identical either way.
func WithParallel(parallel bool) Option {
	return func(e *Engine) { e.parallel = parallel }
}

// WithWorkers caps the per-scanner worker pool. Values below 1 mean NumCPU.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithDiscoverOptions replaces the file discovery settings used by
// ScanDirectory.
func WithDiscoverOptions(opts DiscoverOptions) Option {
	return func(e *Engine) { e.discover = opts }
}

// WithRulesScript loads a Risor rules script that may override each tool's
// category and description.
func WithRulesScript(path string) Option {
	return func(e *Engine) { e.rulesPath = path }
}

// WithRulesFS loads the rules script from fsys instead of disk, e.g. an
// embedded filesystem.
func WithRulesFS(fsys fs.FS) Option {
	return func(e *Engine) { e.rulesFS = fsys }
}

// New creates an Engine. It fails only when a configured rules script
// cannot be loaded.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:   zap.NewNop(),
		root:     ".",
		parallel: true,
		discover: DefaultDiscoverOptions(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.rulesPath != "" {
		// Imports resolve next to the script on disk, or from the FS root.
		dir, name := filepath.Dir(e.rulesPath), filepath.Base(e.rulesPath)
		rtOpts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(e.logger)}
		if e.rulesFS != nil {
			dir, name = "", e.rulesPath
			rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.rulesFS))
		}
		rules, err := runtime.NewRuntime(dir, rtOpts...).LoadRules(name)
		if err != nil {
			return nil, fmt.Errorf("surveyor: load rules: %w", err)
		}
		e.rules = rules
	}
	return e, nil
}

// Root returns the project root the Engine resolves paths against.
func (e *Engine) Root() string { return e.root }

// Result is the outcome of one run. Tools and Resources are never nil.
type Result struct {
	Tools       []ToolDescriptor
	Resources   []ResourceDescriptor
	Warnings    []Warning
	SourceFiles int
	SQLFiles    int
	Elapsed     time.Duration
}

// Run scans toolFiles for tool descriptors and sqlFiles for resource
// descriptors. It always returns a result: per-file problems become
// warnings, and a scanner that cannot run contributes an empty list
// without affecting the other.
func (e *Engine) Run(ctx context.Context, toolFiles, sqlFiles []string) *Result {
	start := time.Now()

	var (
		tools                     []ToolDescriptor
		resources                 []ResourceDescriptor
		toolWarnings, sqlWarnings []Warning
	)
	if e.parallel {
		tools, toolWarnings, resources, sqlWarnings = e.runConcurrent(ctx, toolFiles, sqlFiles)
	} else {
		tools, toolWarnings = e.scanSources(ctx, toolFiles)
		resources, sqlWarnings = e.scanSchemas(ctx, sqlFiles)
	}

	warnings := append(toolWarnings, sqlWarnings...)
	if e.rules != nil {
		warnings = append(warnings, e.applyRules(ctx, tools)...)
	}

	if tools == nil {
		tools = []ToolDescriptor{}
	}
	if resources == nil {
		resources = []ResourceDescriptor{}
	}
	res := &Result{
		Tools:       tools,
		Resources:   resources,
		Warnings:    warnings,
		SourceFiles: len(toolFiles),
		SQLFiles:    len(sqlFiles),
		Elapsed:     time.Since(start),
	}
	e.logger.Info("scan complete",
		zap.Int("tools", len(res.Tools)),
		zap.Int("resources", len(res.Resources)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res
}

// ScanDirectory discovers the source and SQL files under the root and runs
// the pipeline on them.
func (e *Engine) ScanDirectory(ctx context.Context) (*Result, error) {
	files, err := Discover(e.root, e.discover)
	if err != nil {
		return nil, fmt.Errorf("surveyor: discover: %w", err)
	}
	e.logger.Debug("discovered files",
		zap.String("root", e.root),
		zap.Int("source", len(files.Source)),
		zap.Int("sql", len(files.SQL)),
	)
	return e.Run(ctx, files.Source, files.SQL), nil
}

func (e *Engine) scanSources(ctx context.Context, files []string) (tools []ToolDescriptor, warnings []Warning) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("source scanner failed", zap.Any("panic", r))
			tools, warnings = nil, []Warning{{Message: fmt.Sprintf("source scanner failed: %v", r)}}
		}
	}()
	s := source.NewScanner(e.root,
		source.WithLogger(e.logger.Named("source")),
		source.WithParallel(e.parallel),
		source.WithWorkers(e.workers),
	)
	return s.Scan(ctx, files)
}

func (e *Engine) scanSchemas(ctx context.Context, files []string) (resources []ResourceDescriptor, warnings []Warning) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("schema scanner failed", zap.Any("panic", r))
			resources, warnings = nil, []Warning{{Message: fmt.Sprintf("schema scanner failed: %v", r)}}
		}
	}()
	s, err := sqlschema.NewScanner(e.root, e.dialects,
		sqlschema.WithLogger(e.logger.Named("sqlschema")),
		sqlschema.WithParallel(e.parallel),
		sqlschema.WithWorkers(e.workers),
	)
	if err != nil {
		e.logger.Error("schema scanner unavailable", zap.Error(err))
		return nil, []Warning{{Message: fmt.Sprintf("schema scanner unavailable: %v", err)}}
	}
	e.logger.Debug("scanning schemas", zap.Int("files", len(files)), zap.Strings("dialects", s.Dialects()))
	return s.Scan(ctx, files)
}

// applyRules runs the rules script over every tool in place. A failing
// evaluation leaves that tool's classification untouched.
func (e *Engine) applyRules(ctx context.Context, tools []ToolDescriptor) []Warning {
	var warnings []Warning
	for i := range tools {
		t := &tools[i]
		out, err := e.rules.Apply(ctx, runtime.RuleInput{
			Name:        t.Name,
			FilePath:    t.SourceFile,
			Category:    t.Category,
			Description: t.Description,
			ParamCount:  len(t.Parameters),
			HasIDParam:  classify.HasIDLikeParameter(t.Parameters.Names()),
		})
		if err != nil {
			e.logger.Warn("rules script failed", zap.String("file", t.SourceFile), zap.String("tool", t.Name), zap.Error(err))
			warnings = append(warnings, descriptor.Warning{File: t.SourceFile, Message: fmt.Sprintf("rules for %s: %v", t.Name, err)})
			continue
		}
		t.Category, t.Description = out.Category, out.Description
	}
	return warnings
}
