package manifest

import (
	"github.com/jward/surveyor/internal/descriptor"
)

// InputSchema is the JSON Schema object describing a tool's arguments.
type InputSchema struct {
	Type                 string                            `json:"type" yaml:"type"`
	Properties           descriptor.Fields[PropertySchema] `json:"properties" yaml:"properties"`
	Required             []string                          `json:"required,omitempty" yaml:"required,omitempty"`
	AdditionalProperties bool                              `json:"additionalProperties" yaml:"additionalProperties"`
}

type PropertySchema struct {
	Type        string   `json:"type,omitempty" yaml:"type,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []string `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// jsonTypes are the kinds that are also JSON Schema type names.
var jsonTypes = map[string]bool{
	descriptor.KindString:  true,
	descriptor.KindNumber:  true,
	descriptor.KindBoolean: true,
	descriptor.KindObject:  true,
	descriptor.KindArray:   true,
	descriptor.KindNull:    true,
}

// RenderInputSchema derives the argument schema of a tool from its
// parameters. any and promise stay untyped; other non-JSON kinds are named
// types and become objects. The original kind is kept in the description.
func RenderInputSchema(t descriptor.ToolDescriptor) InputSchema {
	s := InputSchema{
		Type:       "object",
		Properties: make(descriptor.Fields[PropertySchema], 0, len(t.Parameters)),
	}
	for _, p := range t.Parameters {
		s.Properties.Set(p.Name, propertyFor(p.Value))
		if p.Value.Required {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

func propertyFor(p descriptor.ParameterSchema) PropertySchema {
	prop := PropertySchema{Description: p.Description, Enum: p.Enum}
	if jsonTypes[p.Type] {
		prop.Type = p.Type
		return prop
	}
	if p.Type != descriptor.KindAny && p.Type != descriptor.KindPromise && p.Type != "" {
		prop.Type = descriptor.KindObject
	}
	switch {
	case p.Type == "" || p.Type == descriptor.KindAny:
	case prop.Description == "":
		prop.Description = p.Type
	default:
		prop.Description += " (" + p.Type + ")"
	}
	return prop
}
