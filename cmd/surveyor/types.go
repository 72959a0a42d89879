package main

// CLIResult is the top-level JSON envelope for the listing commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLITool is a compact tool listing row.
type CLITool struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Parameters  []string `json:"parameters"`
	ReturnType  string   `json:"return_type"`
	File        string   `json:"file"`
}

// CLIResource is a compact resource listing row.
type CLIResource struct {
	Name        string   `json:"name"`
	Dialect     string   `json:"dialect"`
	Columns     []string `json:"columns"`
	PrimaryKey  []string `json:"primary_key"`
	Indexes     []string `json:"indexes"`
	ForeignKeys []string `json:"foreign_keys"`
	File        string   `json:"file"`
}

// CLIRun summarises the saved snapshot.
type CLIRun struct {
	RunID          string         `json:"run_id"`
	GeneratedAt    string         `json:"generated_at"`
	Project        string         `json:"project"`
	ProjectVersion string         `json:"project_version"`
	Tools          int            `json:"tools"`
	Resources      int            `json:"resources"`
	Warnings       int            `json:"warnings"`
	ByCategory     map[string]int `json:"tools_by_category"`
	ByDialect      map[string]int `json:"resources_by_dialect"`
}

// CLIValidation is the result of re-validating a written manifest.
type CLIValidation struct {
	Manifest string   `json:"manifest"`
	Tools    int      `json:"tools"`
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems"`
}
