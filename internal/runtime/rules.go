package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"
)

// RuleInput is the view of one tool descriptor handed to a rules script.
// Each field becomes a script global: name, file_path, category,
// description, param_count and has_id_param.
type RuleInput struct {
	Name        string
	FilePath    string
	Category    string
	Description string
	ParamCount  int
	HasIDParam  bool
}

// RuleOutcome is the category and description after a rules script ran.
// Fields the script did not override keep their input values.
type RuleOutcome struct {
	Category    string
	Description string
}

// Rules is a loaded rules script bound to a Runtime.
type Rules struct {
	rt     *Runtime
	path   string
	source string
}

// LoadRules reads a rules script once so it can be applied to every tool.
func (r *Runtime) LoadRules(path string) (*Rules, error) {
	src, err := r.LoadScript(path)
	if err != nil {
		return nil, err
	}
	return &Rules{rt: r, path: path, source: src}, nil
}

// NewRules binds inline Risor source as a rules script.
func (r *Runtime) NewRules(label, source string) *Rules {
	return &Rules{rt: r, path: label, source: source}
}

// Path returns the script path or label the rules were loaded from.
func (r *Rules) Path() string { return r.path }

// Apply evaluates the script for one tool. The script's final expression
// decides the outcome: nil leaves the tool unchanged, a string replaces the
// category, and a map may carry "category" and "description" keys.
func (r *Rules) Apply(ctx context.Context, in RuleInput) (RuleOutcome, error) {
	out := RuleOutcome{Category: in.Category, Description: in.Description}

	result, err := r.rt.eval(ctx, r.source, r.path, map[string]any{
		"name":         in.Name,
		"file_path":    in.FilePath,
		"category":     in.Category,
		"description":  in.Description,
		"param_count":  in.ParamCount,
		"has_id_param": in.HasIDParam,
	})
	if err != nil {
		return out, err
	}

	switch v := result.(type) {
	case nil, *object.NilType:
	case *object.String:
		if v.Value() != "" {
			out.Category = v.Value()
		}
	case *object.Map:
		m := v.Value()
		if c := getString(m, "category"); c != "" {
			out.Category = c
		}
		if d := getString(m, "description"); d != "" {
			out.Description = d
		}
	default:
		return out, fmt.Errorf("runtime: rules %s: result must be nil, a string or a map, got %s", r.path, result.Type())
	}
	return out, nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}
