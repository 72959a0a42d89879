// Package manifest assembles scan results into the published manifest
// document: project context, tools with rendered input schemas, resources,
// statistics and warnings.
package manifest

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jward/surveyor/internal/descriptor"
)

// Version is the manifest format version written to every document.
const Version = "1.0"

// Manifest is the top-level document.
type Manifest struct {
	ManifestVersion string                          `json:"manifestVersion" yaml:"manifestVersion"`
	RunID           string                          `json:"runId" yaml:"runId"`
	GeneratedAt     time.Time                       `json:"generatedAt" yaml:"generatedAt"`
	Project         Project                         `json:"project" yaml:"project"`
	Tools           []Tool                          `json:"tools" yaml:"tools"`
	Resources       []descriptor.ResourceDescriptor `json:"resources" yaml:"resources"`
	Statistics      Statistics                      `json:"statistics" yaml:"statistics"`
	Warnings        []descriptor.Warning            `json:"warnings" yaml:"warnings"`
}

// Tool is a tool descriptor plus the JSON Schema of its arguments.
type Tool struct {
	descriptor.ToolDescriptor `yaml:",inline"`
	InputSchema               InputSchema `json:"inputSchema" yaml:"inputSchema"`
}

type Statistics struct {
	TotalTools         int            `json:"totalTools" yaml:"totalTools"`
	TotalResources     int            `json:"totalResources" yaml:"totalResources"`
	ToolsByCategory    map[string]int `json:"toolsByCategory" yaml:"toolsByCategory"`
	ResourcesByDialect map[string]int `json:"resourcesByDialect" yaml:"resourcesByDialect"`
	SourceFilesScanned int            `json:"sourceFilesScanned" yaml:"sourceFilesScanned"`
	SQLFilesScanned    int            `json:"sqlFilesScanned" yaml:"sqlFilesScanned"`
	Warnings           int            `json:"warnings" yaml:"warnings"`
}

// Input is what one pipeline run hands to the assembler.
type Input struct {
	Tools       []descriptor.ToolDescriptor
	Resources   []descriptor.ResourceDescriptor
	Warnings    []descriptor.Warning
	SourceFiles int
	SQLFiles    int
}

type buildConfig struct {
	runID string
	now   func() time.Time
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

// WithRunID fixes the run id instead of generating a random UUID.
func WithRunID(id string) BuildOption {
	return func(c *buildConfig) { c.runID = id }
}

// WithClock sets the time source for generatedAt.
func WithClock(now func() time.Time) BuildOption {
	return func(c *buildConfig) { c.now = now }
}

// Build wraps a run's descriptors in a manifest envelope. Input order is
// preserved.
func Build(project Project, in Input, opts ...BuildOption) *Manifest {
	cfg := buildConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runID == "" {
		cfg.runID = uuid.NewString()
	}
	if project.Frameworks == nil {
		project.Frameworks = []string{}
	}

	tools := make([]Tool, len(in.Tools))
	for i, t := range in.Tools {
		tools[i] = Tool{ToolDescriptor: t, InputSchema: RenderInputSchema(t)}
	}
	resources := in.Resources
	if resources == nil {
		resources = []descriptor.ResourceDescriptor{}
	}
	warnings := in.Warnings
	if warnings == nil {
		warnings = []descriptor.Warning{}
	}

	return &Manifest{
		ManifestVersion: Version,
		RunID:           cfg.runID,
		GeneratedAt:     cfg.now().UTC(),
		Project:         project,
		Tools:           tools,
		Resources:       resources,
		Statistics:      computeStatistics(in),
		Warnings:        warnings,
	}
}

func computeStatistics(in Input) Statistics {
	st := Statistics{
		TotalTools:         len(in.Tools),
		TotalResources:     len(in.Resources),
		ToolsByCategory:    map[string]int{},
		ResourcesByDialect: map[string]int{},
		SourceFilesScanned: in.SourceFiles,
		SQLFilesScanned:    in.SQLFiles,
		Warnings:           len(in.Warnings),
	}
	for _, t := range in.Tools {
		st.ToolsByCategory[t.Category]++
	}
	for _, r := range in.Resources {
		st.ResourcesByDialect[r.Dialect]++
	}
	return st
}

// Categories returns the distinct tool categories in sorted order.
func (m *Manifest) Categories() []string {
	cats := make([]string, 0, len(m.Statistics.ToolsByCategory))
	for c := range m.Statistics.ToolsByCategory {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// ToolDescriptors returns the tools without their input schemas.
func (m *Manifest) ToolDescriptors() []descriptor.ToolDescriptor {
	out := make([]descriptor.ToolDescriptor, len(m.Tools))
	for i, t := range m.Tools {
		out[i] = t.ToolDescriptor
	}
	return out
}
