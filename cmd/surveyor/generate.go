package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/surveyor"
	"github.com/jward/surveyor/internal/config"
	"github.com/jward/surveyor/internal/manifest"
	"github.com/jward/surveyor/internal/store"
	"github.com/jward/surveyor/scripts"
)

type generateFlags struct {
	output      string
	format      string
	dialects    string
	parallel    bool
	workers     int
	noGit       bool
	noDB        bool
	rulesScript string
	strict      bool
}

func (c *cli) generateCmd() *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate [path]",
		Short: "Scan a project and write its manifest",
		Long:  "Discovers source and SQL files, extracts tool and resource descriptors, validates the rendered input schemas, writes the manifest and saves a snapshot to the database.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd, args, f)
		},
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "manifest path (default: surveyor-manifest.json in the project root)")
	cmd.Flags().StringVar(&f.format, "format", "", "manifest format: json|yaml (default: from the output extension)")
	cmd.Flags().StringVar(&f.dialects, "dialects", "", "comma-separated SQL dialects in order of precedence (e.g. postgresql,sqlite)")
	cmd.Flags().BoolVar(&f.parallel, "parallel", true, "scan files concurrently")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "worker pool size per scanner (default: number of CPUs)")
	cmd.Flags().BoolVar(&f.noGit, "no-git", false, "walk the directory tree instead of using git ls-files")
	cmd.Flags().BoolVar(&f.noDB, "no-db", false, "do not save a snapshot to the database")
	cmd.Flags().StringVar(&f.rulesScript, "rules-script", "", "Risor script that may override tool categories and descriptions, or builtin:<name>")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "fail when the manifest has validation problems")
	return cmd
}

func (c *cli) runGenerate(cmd *cobra.Command, args []string, f *generateFlags) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	repoRoot := findRepoRoot(targetDir)

	cfg, err := c.loadConfig(targetDir)
	if err != nil {
		return err
	}
	cfg.Merge(&config.Config{
		Schema:      config.SchemaConfig{Dialects: splitList(f.dialects)},
		Output:      config.OutputConfig{Path: f.output, Format: f.format},
		RulesScript: f.rulesScript,
	})
	flags := cmd.Flags()
	if flags.Changed("parallel") {
		cfg.Parallel = f.parallel
	}
	if flags.Changed("workers") {
		cfg.Workers = f.workers
	}
	if flags.Changed("no-git") {
		cfg.NoGit = f.noGit
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	outputPath := resolvePath(targetDir, cfg.Output.Path)
	// A .yaml/.yml output path implies YAML unless --format says otherwise.
	format := cfg.Output.Format
	if f.format == "" && manifest.FormatForPath(outputPath) == manifest.FormatYAML {
		format = manifest.FormatYAML
	}
	builtinRules, builtin := scripts.Path(cfg.RulesScript)
	if builtin {
		cfg.RulesScript = builtinRules
	} else {
		cfg.RulesScript = resolvePath(targetDir, cfg.RulesScript)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	opts := append(cfg.EngineOptions(), surveyor.WithLogger(logger), surveyor.WithRoot(targetDir))
	if builtin {
		opts = append(opts, surveyor.WithRulesFS(scripts.FS))
	}
	engine, err := surveyor.New(opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	ctx := cmd.Context()

	// Run extraction.
	result, err := engine.ScanDirectory(ctx)
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}

	project, err := manifest.ReadProject(targetDir)
	if err != nil {
		return err
	}
	m := manifest.Build(project, manifest.Input{
		Tools:       result.Tools,
		Resources:   result.Resources,
		Warnings:    result.Warnings,
		SourceFiles: result.SourceFiles,
		SQLFiles:    result.SQLFiles,
	})

	problems := manifest.Validate(m)
	for _, p := range problems {
		logger.Warn("manifest validation problem",
			zap.String("tool", p.Tool),
			zap.String("file", p.SourceFile),
			zap.String("problem", p.Message),
		)
	}
	if f.strict && len(problems) > 0 {
		return fmt.Errorf("manifest has %d validation problem(s)", len(problems))
	}

	if err := manifest.WriteFile(outputPath, m, format); err != nil {
		return err
	}

	var diff *store.Diff
	dbPath := resolvePath(repoRoot, cfg.Output.DB)
	if !f.noDB && dbPath != "" {
		diff, err = saveSnapshot(ctx, dbPath, m)
		if err != nil {
			return err
		}
	}

	// Print timing summary to stderr.
	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "Surveyed %s in %s (scan: %s)\n",
		targetDir,
		time.Since(start).Round(time.Millisecond),
		result.Elapsed.Round(time.Millisecond),
	)
	fmt.Fprintf(errOut, "Tools: %d, resources: %d, warnings: %d, validation problems: %d\n",
		m.Statistics.TotalTools, m.Statistics.TotalResources, m.Statistics.Warnings, len(problems))
	fmt.Fprintf(errOut, "Manifest: %s\n", outputPath)
	if diff != nil {
		fmt.Fprintf(errOut, "Database: %s\n", dbPath)
		formatDiffText(errOut, diff)
	}
	return nil
}

// saveSnapshot replaces the database snapshot with m.
func saveSnapshot(ctx context.Context, dbPath string, m *manifest.Manifest) (*store.Diff, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s.SaveManifest(ctx, m)
}
