package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/surveyor/internal/descriptor"
	"github.com/jward/surveyor/internal/manifest"
	"github.com/jward/surveyor/internal/store"
)

const (
	outputJSON = "json"
	outputText = "text"
)

func validateOutputFormat(format string) error {
	switch format {
	case outputJSON, outputText:
		return nil
	}
	return fmt.Errorf("invalid --format %q: must be json or text", format)
}

// --- Helpers ---

// openStore opens the snapshot database named by --db or the config,
// resolved against the repo root of the working directory.
func (c *cli) openStore() (*store.Store, error) {
	cwd := c.workDir
	if cwd == "" {
		var err error
		if cwd, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("getting cwd: %w", err)
		}
	}
	repoRoot := findRepoRoot(cwd)
	cfg, err := c.loadConfig(cwd)
	if err != nil {
		return nil, err
	}
	dbPath := resolvePath(repoRoot, cfg.Output.DB)
	if dbPath == "" {
		return nil, errors.New("no database configured: set --db or output.db")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database not found: %s (run 'surveyor generate' first)", dbPath)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// outputResult writes a CLIResult as indented JSON.
func outputResult(w io.Writer, result CLIResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func (c *cli) outputError(cmd *cobra.Command, format, command string, err error) error {
	c.errorHandled = true
	if format == outputText {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		return err
	}
	_ = outputResult(cmd.OutOrStdout(), CLIResult{Command: command, Error: err.Error()})
	return err
}

func toolToCLI(t manifest.Tool) CLITool {
	return CLITool{
		Name:        t.Name,
		Category:    t.Category,
		Description: t.Description,
		Parameters:  t.Parameters.Names(),
		ReturnType:  t.ReturnType,
		File:        t.SourceFile,
	}
}

func resourceToCLI(r descriptor.ResourceDescriptor) CLIResource {
	out := CLIResource{
		Name:        r.Name,
		Dialect:     r.Dialect,
		Columns:     r.Columns.Names(),
		PrimaryKey:  []string{},
		Indexes:     r.Indexes,
		ForeignKeys: make([]string, 0, len(r.ForeignKeys)),
		File:        r.SourceFile,
	}
	for _, col := range r.Columns {
		if col.Value.PrimaryKey {
			out.PrimaryKey = append(out.PrimaryKey, col.Name)
		}
	}
	for _, fk := range r.ForeignKeys {
		out.ForeignKeys = append(out.ForeignKeys, fmt.Sprintf("%s -> %s.%s", fk.Column, fk.ReferencesTable, fk.ReferencesColumn))
	}
	return out
}

// --- tools ---

func (c *cli) toolsCmd() *cobra.Command {
	var category, format string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools in the saved snapshot",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateOutputFormat(format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore()
			if err != nil {
				return c.outputError(cmd, format, "tools", err)
			}
			defer s.Close()

			tools, err := s.Tools(cmd.Context(), category)
			if err != nil {
				return c.outputError(cmd, format, "tools", err)
			}
			rows := make([]CLITool, len(tools))
			for i, t := range tools {
				rows[i] = toolToCLI(t)
			}
			if format == outputText {
				formatToolsText(cmd.OutOrStdout(), rows)
				return nil
			}
			n := len(rows)
			return outputResult(cmd.OutOrStdout(), CLIResult{Command: "tools", Results: rows, TotalCount: &n})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list tools of this category")
	cmd.Flags().StringVar(&format, "format", outputJSON, "output format: json|text")
	return cmd
}

// --- resources ---

func (c *cli) resourcesCmd() *cobra.Command {
	var dialect, format string
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "List the resources in the saved snapshot",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateOutputFormat(format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore()
			if err != nil {
				return c.outputError(cmd, format, "resources", err)
			}
			defer s.Close()

			resources, err := s.Resources(cmd.Context(), dialect)
			if err != nil {
				return c.outputError(cmd, format, "resources", err)
			}
			rows := make([]CLIResource, len(resources))
			for i, r := range resources {
				rows[i] = resourceToCLI(r)
			}
			if format == outputText {
				formatResourcesText(cmd.OutOrStdout(), rows)
				return nil
			}
			n := len(rows)
			return outputResult(cmd.OutOrStdout(), CLIResult{Command: "resources", Results: rows, TotalCount: &n})
		},
	}
	cmd.Flags().StringVar(&dialect, "dialect", "", "only list resources of this dialect")
	cmd.Flags().StringVar(&format, "format", outputJSON, "output format: json|text")
	return cmd
}

// --- summary ---

func (c *cli) summaryCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the envelope and statistics of the saved snapshot",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateOutputFormat(format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore()
			if err != nil {
				return c.outputError(cmd, format, "summary", err)
			}
			defer s.Close()

			run, err := s.LatestRun(cmd.Context())
			if err != nil {
				return c.outputError(cmd, format, "summary", err)
			}
			summary := CLIRun{
				RunID:          run.RunID,
				GeneratedAt:    run.GeneratedAt.Format(time.RFC3339),
				Project:        run.Project.Name,
				ProjectVersion: run.Project.Version,
				Tools:          run.Statistics.TotalTools,
				Resources:      run.Statistics.TotalResources,
				Warnings:       run.Statistics.Warnings,
				ByCategory:     run.Statistics.ToolsByCategory,
				ByDialect:      run.Statistics.ResourcesByDialect,
			}
			if format == outputText {
				formatSummaryText(cmd.OutOrStdout(), summary)
				return nil
			}
			return outputResult(cmd.OutOrStdout(), CLIResult{Command: "summary", Results: summary})
		},
	}
	cmd.Flags().StringVar(&format, "format", outputJSON, "output format: json|text")
	return cmd
}
