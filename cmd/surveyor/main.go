package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/surveyor/internal/config"
	"github.com/jward/surveyor/internal/logging"
)

// cli holds the flag values of one command tree.
type cli struct {
	configPath string
	dbPath     string
	logLevel   string
	logFormat  string

	// workDir replaces the process working directory for the snapshot
	// commands when set.
	workDir string

	// errorHandled is set by outputError so main() doesn't double-print.
	errorHandled bool
}

func main() {
	c := &cli{}
	root := c.rootCmd()
	if err := root.Execute(); err != nil {
		if !c.errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "surveyor",
		Short:         "Extract tool and resource descriptors from a TypeScript/JavaScript project",
		Long:          "Surveyor scans TypeScript/JavaScript sources for exported functions and SQL schema files for CREATE TABLE statements, and writes a manifest describing them.",
		SilenceErrors: true,
		SilenceUsage:  true,
		// No Run: prints help by default.
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: surveyor.yaml in the project root)")
	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "snapshot database path (default: .surveyor/snapshot.db relative to repo root)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "", "log format: console|json")

	root.AddCommand(c.generateCmd())
	root.AddCommand(c.toolsCmd())
	root.AddCommand(c.resourcesCmd())
	root.AddCommand(c.summaryCmd())
	root.AddCommand(c.validateCmd())
	return root
}

// loadConfig reads the config for root and applies the persistent flags.
func (c *cli) loadConfig(root string) (*config.Config, error) {
	cfg, err := config.Load(root, c.configPath)
	if err != nil {
		return nil, err
	}
	cfg.Merge(&config.Config{
		Output:  config.OutputConfig{DB: c.dbPath},
		Logging: config.LoggingConfig{Level: c.logLevel, Format: c.logFormat},
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}

// resolveTargetDir returns the absolute path of the directory to scan.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolvePath makes a relative path absolute against base.
func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
