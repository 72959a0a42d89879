package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/manifest.schema.json
var manifestSchemaJSON []byte

var (
	documentSchemaOnce sync.Once
	documentSchema     *jsonschema.Schema
	documentSchemaErr  error
)

// Problem is one validation finding. Tool is empty for document-level
// problems.
type Problem struct {
	Tool       string `json:"tool,omitempty"`
	SourceFile string `json:"sourceFile,omitempty"`
	Message    string `json:"message"`
}

func (p Problem) String() string {
	if p.Tool == "" {
		return p.Message
	}
	return fmt.Sprintf("%s (%s): %s", p.Tool, p.SourceFile, p.Message)
}

// Validate checks a manifest against the document schema, checks that
// (sourceFile, name) is unique across tools, and compiles every tool's
// input schema.
func Validate(m *Manifest) []Problem {
	var problems []Problem

	data, err := json.Marshal(m)
	if err != nil {
		return []Problem{{Message: fmt.Sprintf("encode manifest: %v", err)}}
	}
	if err := ValidateDocument(data); err != nil {
		problems = append(problems, Problem{Message: err.Error()})
	}

	type key struct{ file, name string }
	seen := make(map[key]bool, len(m.Tools))
	for _, t := range m.Tools {
		k := key{t.SourceFile, t.Name}
		if seen[k] {
			problems = append(problems, Problem{Tool: t.Name, SourceFile: t.SourceFile, Message: "duplicate tool"})
			continue
		}
		seen[k] = true

		for _, name := range t.InputSchema.Required {
			if !t.InputSchema.Properties.Has(name) {
				problems = append(problems, Problem{Tool: t.Name, SourceFile: t.SourceFile,
					Message: fmt.Sprintf("required parameter %q has no property", name)})
			}
		}
		if _, err := t.compileInputSchema(); err != nil {
			problems = append(problems, Problem{Tool: t.Name, SourceFile: t.SourceFile, Message: err.Error()})
		}
	}
	return problems
}

// ValidateDocument validates a JSON-encoded manifest against the embedded
// manifest schema.
func ValidateDocument(data []byte) error {
	sch, err := compiledDocumentSchema()
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("manifest: decode document: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("manifest: document does not match schema: %w", err)
	}
	return nil
}

func compiledDocumentSchema() (*jsonschema.Schema, error) {
	documentSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(manifestSchemaJSON))
		if err != nil {
			documentSchemaErr = fmt.Errorf("manifest: load schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("manifest.schema.json", doc); err != nil {
			documentSchemaErr = fmt.Errorf("manifest: load schema: %w", err)
			return
		}
		documentSchema, documentSchemaErr = c.Compile("manifest.schema.json")
	})
	return documentSchema, documentSchemaErr
}

// ValidateArguments checks a decoded argument object against the tool's
// input schema.
func (t Tool) ValidateArguments(args any) error {
	sch, err := t.compileInputSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(args); err != nil {
		return fmt.Errorf("manifest: arguments for %s: %w", t.Name, err)
	}
	return nil
}

func (t Tool) compileInputSchema() (*jsonschema.Schema, error) {
	data, err := json.Marshal(t.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("input schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("input schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("input.json", doc); err != nil {
		return nil, fmt.Errorf("input schema: %w", err)
	}
	sch, err := c.Compile("input.json")
	if err != nil {
		return nil, fmt.Errorf("input schema: %w", err)
	}
	return sch, nil
}
