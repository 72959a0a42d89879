// Package descriptor holds the normalized records produced by a scan: tool
// descriptors for exported callables and resource descriptors for SQL tables.
package descriptor

import "time"

// Tool descriptors

// ToolDescriptor is one extracted callable. Within one run the pair
// (SourceFile, Name) is unique.
type ToolDescriptor struct {
	Name        string                  `json:"name" yaml:"name"`
	Description string                  `json:"description" yaml:"description"`
	Parameters  Fields[ParameterSchema] `json:"parameters" yaml:"parameters"`
	ReturnType  string                  `json:"returnType" yaml:"returnType"`
	Category    string                  `json:"category" yaml:"category"`
	SourceFile  string                  `json:"sourceFile" yaml:"sourceFile"`
	Examples    []string                `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// ParameterSchema describes one parameter. Required is the negation of the
// optional marker declared at the source.
type ParameterSchema struct {
	Type        string   `json:"type" yaml:"type"`
	Required    bool     `json:"required" yaml:"required"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []string `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// TypeDescriptor is the normalized result of type-text analysis.
type TypeDescriptor struct {
	Kind        string   `json:"kind" yaml:"kind"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	EnumValues  []string `json:"enumValues,omitempty" yaml:"enumValues,omitempty"`
}

// Kinds produced by type normalization. Any other kind is a passthrough
// identifier such as "User".
const (
	KindString  = "string"
	KindNumber  = "number"
	KindBoolean = "boolean"
	KindObject  = "object"
	KindArray   = "array"
	KindNull    = "null"
	KindPromise = "promise"
	KindAny     = "any"
)

// Resource descriptors

// ResourceDescriptor is one extracted table.
type ResourceDescriptor struct {
	Name         string               `json:"name" yaml:"name"`
	Columns      Fields[ColumnSchema] `json:"columns" yaml:"columns"`
	Indexes      []string             `json:"indexes" yaml:"indexes"`
	ForeignKeys  []ForeignKey         `json:"foreignKeys" yaml:"foreignKeys"`
	SourceFile   string               `json:"sourceFile" yaml:"sourceFile"`
	Dialect      string               `json:"dialect" yaml:"dialect"`
	LastModified time.Time            `json:"lastModified" yaml:"lastModified"`
}

type ColumnSchema struct {
	Type          string `json:"type" yaml:"type"`
	Nullable      bool   `json:"nullable" yaml:"nullable"`
	PrimaryKey    bool   `json:"primaryKey" yaml:"primaryKey"`
	AutoIncrement bool   `json:"autoIncrement" yaml:"autoIncrement"`
	DefaultValue  any    `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Length        *int   `json:"length,omitempty" yaml:"length,omitempty"`
}

type ForeignKey struct {
	Column           string `json:"column" yaml:"column"`
	ReferencesTable  string `json:"referencesTable" yaml:"referencesTable"`
	ReferencesColumn string `json:"referencesColumn" yaml:"referencesColumn"`
}

// Warning is a recovered, human-readable problem attached to one file.
type Warning struct {
	File    string `json:"file" yaml:"file"`
	Message string `json:"message" yaml:"message"`
}

func (w Warning) String() string {
	if w.File == "" {
		return w.Message
	}
	return w.File + ": " + w.Message
}
