// Package runtime owns the tree-sitter grammars used by the source scanner
// and an embedded Risor VM that runs user-supplied rules scripts.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"go.uber.org/zap"
)

// Runtime embeds a Risor VM and exposes classification helpers and a
// zap-backed log object to rules scripts.
type Runtime struct {
	scriptsDir string
	fsys       fs.FS
	logger     *zap.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Import statements then resolve within the same FS.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRuntimeLogger sets the logger behind the script-visible log object.
func WithRuntimeLogger(l *zap.Logger) RuntimeOption {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRuntime creates a Runtime that resolves relative script paths and
// imports against scriptsDir.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		scriptsDir: scriptsDir,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a Risor script with the standard globals plus
// any extra globals provided by the caller. It returns the value of the
// script's final expression.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) (object.Object, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) (object.Object, error) {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) (object.Object, error) {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return result, nil
}

// buildImporter returns a Risor importer for the configured script source,
// or nil when neither an fs.FS nor a scripts directory is set.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code. With an fs.FS
// configured the path is taken relative to the FS root; otherwise relative
// paths are joined to scriptsDir.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"normalize_type":   makeNormalizeTypeFn(),
		"default_category": makeDefaultCategoryFn(),
		"describe_name":    makeDescribeNameFn(),
		"log":              mustProxy(&logObject{logger: r.logger.Named("rules")}),
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
