package sqlschema

import (
	"time"

	"github.com/jward/surveyor/internal/descriptor"
)

func toResource(t *Table, sourceFile, dialect string, modified time.Time) descriptor.ResourceDescriptor {
	columns := make(descriptor.Fields[descriptor.ColumnSchema], 0, len(t.Columns))
	for _, c := range t.Columns {
		columns.Set(c.Name, descriptor.ColumnSchema{
			Type:          c.Type,
			Nullable:      !c.NotNull,
			PrimaryKey:    c.PrimaryKey,
			AutoIncrement: c.AutoIncrement,
			DefaultValue:  c.Default,
			Length:        c.Length,
		})
	}

	indexes := make([]string, 0, len(t.Indexes))
	for _, idx := range t.Indexes {
		indexes = append(indexes, idx.Name)
	}

	fks := make([]descriptor.ForeignKey, 0, len(t.ForeignKeys))
	for _, fk := range t.ForeignKeys {
		fks = append(fks, descriptor.ForeignKey{
			Column:           fk.Column,
			ReferencesTable:  fk.RefTable,
			ReferencesColumn: fk.RefColumn,
		})
	}

	return descriptor.ResourceDescriptor{
		Name:         t.Name,
		Columns:      columns,
		Indexes:      indexes,
		ForeignKeys:  fks,
		SourceFile:   sourceFile,
		Dialect:      dialect,
		LastModified: modified,
	}
}
