package surveyor

import "github.com/jward/surveyor/internal/descriptor"

// Public aliases for the descriptor types returned by the Engine.

type ToolDescriptor = descriptor.ToolDescriptor
type ParameterSchema = descriptor.ParameterSchema
type ResourceDescriptor = descriptor.ResourceDescriptor
type ColumnSchema = descriptor.ColumnSchema
type ForeignKey = descriptor.ForeignKey
type Warning = descriptor.Warning
