package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jward/surveyor/internal/store"
)

// formatToolsText formats CLITool results as aligned columns.
func formatToolsText(w io.Writer, tools []CLITool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCATEGORY\tPARAMS\tRETURNS\tFILE")
	for _, t := range tools {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			t.Name, t.Category, strings.Join(t.Parameters, ","), t.ReturnType, t.File)
	}
	tw.Flush()
}

// formatResourcesText formats CLIResource results as aligned columns.
func formatResourcesText(w io.Writer, resources []CLIResource) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDIALECT\tCOLUMNS\tPRIMARY KEY\tFOREIGN KEYS\tFILE")
	for _, r := range resources {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\n",
			r.Name, r.Dialect, len(r.Columns), strings.Join(r.PrimaryKey, ","), len(r.ForeignKeys), r.File)
	}
	tw.Flush()
}

// formatSummaryText formats CLIRun as readable text.
func formatSummaryText(w io.Writer, run CLIRun) {
	fmt.Fprintln(w, "Snapshot Summary")
	fmt.Fprintln(w, "================")
	fmt.Fprintf(w, "Project:   %s %s\n", run.Project, run.ProjectVersion)
	fmt.Fprintf(w, "Run:       %s\n", run.RunID)
	fmt.Fprintf(w, "Generated: %s\n", run.GeneratedAt)
	fmt.Fprintf(w, "Tools: %d, resources: %d, warnings: %d\n", run.Tools, run.Resources, run.Warnings)

	if len(run.ByCategory) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tools by category:")
		writeCounts(w, run.ByCategory)
	}
	if len(run.ByDialect) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Resources by dialect:")
		writeCounts(w, run.ByDialect)
	}
}

// writeCounts prints counts in descending order, ties by name.
func writeCounts(w io.Writer, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %d\n", k, counts[k])
	}
}

// formatValidationText formats CLIValidation as readable text.
func formatValidationText(w io.Writer, v CLIValidation) {
	if v.Valid {
		fmt.Fprintf(w, "%s: %d tools, valid\n", v.Manifest, v.Tools)
		return
	}
	fmt.Fprintf(w, "%s: %d problem(s)\n", v.Manifest, len(v.Problems))
	for _, p := range v.Problems {
		fmt.Fprintf(w, "  %s\n", p)
	}
}

// formatDiffText reports what changed relative to the previous snapshot.
func formatDiffText(w io.Writer, d *store.Diff) {
	if d.PreviousRunID == "" {
		fmt.Fprintf(w, "First snapshot: %d tools, %d resources\n", len(d.Tools.Added), len(d.Resources.Added))
		return
	}
	if d.Tools.Empty() && d.Resources.Empty() {
		fmt.Fprintln(w, "No changes since the previous snapshot")
		return
	}
	writeChangeSet(w, "Tools", d.Tools)
	writeChangeSet(w, "Resources", d.Resources)
}

func writeChangeSet(w io.Writer, label string, cs store.ChangeSet) {
	if cs.Empty() {
		return
	}
	fmt.Fprintf(w, "%s: +%d -%d ~%d\n", label, len(cs.Added), len(cs.Removed), len(cs.Changed))
	for _, n := range cs.Added {
		fmt.Fprintf(w, "  + %s\n", n)
	}
	for _, n := range cs.Removed {
		fmt.Fprintf(w, "  - %s\n", n)
	}
	for _, n := range cs.Changed {
		fmt.Fprintf(w, "  ~ %s\n", n)
	}
}
