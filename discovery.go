package surveyor

import (
	"bytes"
	"fmt"
	"io/fs"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoverOptions controls which files Discover returns.
type DiscoverOptions struct {
	SourceExtensions []string
	SQLExtensions    []string
	// ExcludeDirs are directory names skipped at any depth. Hidden
	// directories are always skipped.
	ExcludeDirs []string
	// ExcludeGlobs are path.Match patterns tested against both the
	// root-relative path and the base name.
	ExcludeGlobs []string
	// NoGit skips git ls-files and always walks the tree.
	NoGit bool
}

// DefaultDiscoverOptions returns the standard discovery settings.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{
		SourceExtensions: []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"},
		SQLExtensions:    []string{".sql"},
		ExcludeDirs:      []string{"node_modules", "dist", "build", "coverage", "out", "vendor", "__pycache__"},
	}
}

// Files are the two input lists of a run, root-relative with forward
// slashes and sorted.
type Files struct {
	Source []string
	SQL    []string
}

// testDirs hold test code and fixtures at any depth.
var testDirs = map[string]bool{
	"__tests__": true,
	"__mocks__": true,
}

// Discover lists the source and SQL files under root. Inside a git work
// tree it uses git ls-files so .gitignore is respected; otherwise it walks
// the filesystem.
func Discover(root string, opts DiscoverOptions) (Files, error) {
	var (
		paths []string
		err   error
	)
	if !opts.NoGit {
		paths, err = gitListFiles(root)
	}
	if opts.NoGit || err != nil {
		// Not a git repo or git not available.
		paths, err = walkListFiles(root)
		if err != nil {
			return Files{}, err
		}
	}
	return splitFiles(paths, opts), nil
}

// gitListFiles returns tracked and untracked-but-not-ignored files under
// root, relative to it.
func gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "-z", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, p := range strings.Split(stdout.String(), "\x00") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// walkListFiles walks root and returns every regular file relative to it.
// Hidden directories are not entered.
func walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

func splitFiles(paths []string, opts DiscoverOptions) Files {
	excludeDirs := make(map[string]bool, len(opts.ExcludeDirs))
	for _, d := range opts.ExcludeDirs {
		excludeDirs[d] = true
	}
	sourceExt := extSet(opts.SourceExtensions)
	sqlExt := extSet(opts.SQLExtensions)

	var files Files
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		p = filepath.ToSlash(p)
		if seen[p] || excluded(p, excludeDirs, opts.ExcludeGlobs) {
			continue
		}
		seen[p] = true

		ext := strings.ToLower(path.Ext(p))
		switch {
		case sqlExt[ext]:
			files.SQL = append(files.SQL, p)
		case sourceExt[ext] && !isDeclarationFile(p):
			files.Source = append(files.Source, p)
		}
	}
	sort.Strings(files.Source)
	sort.Strings(files.SQL)
	return files
}

func excluded(rel string, excludeDirs map[string]bool, globs []string) bool {
	parts := strings.Split(rel, "/")
	for _, dir := range parts[:len(parts)-1] {
		if strings.HasPrefix(dir, ".") || excludeDirs[dir] || testDirs[dir] {
			return true
		}
	}
	base := parts[len(parts)-1]
	if isTestFile(base) {
		return true
	}
	for _, g := range globs {
		if ok, _ := path.Match(g, rel); ok {
			return true
		}
		if ok, _ := path.Match(g, base); ok {
			return true
		}
	}
	return false
}

// isTestFile matches foo.test.ts, foo.spec.js and the like.
func isTestFile(base string) bool {
	lower := strings.ToLower(base)
	return strings.Contains(lower, ".test.") || strings.Contains(lower, ".spec.")
}

func isDeclarationFile(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasSuffix(lower, ".d.ts") || strings.HasSuffix(lower, ".d.mts") || strings.HasSuffix(lower, ".d.cts")
}

func extSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return set
}
