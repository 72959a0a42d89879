package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/jward/surveyor/internal/descriptor"
)

// ToolSignatureHash computes a deterministic hash from a tool's contract:
// name, category, return type and parameters in declaration order.
// Description text and source location do NOT affect the hash.
func ToolSignatureHash(t descriptor.ToolDescriptor) string {
	h := sha256.New()

	fmt.Fprintf(h, "name:%s\n", t.Name)
	fmt.Fprintf(h, "category:%s\n", t.Category)
	fmt.Fprintf(h, "returns:%s\n", t.ReturnType)

	// Parameter order is part of the call contract.
	for _, f := range t.Parameters {
		name, p := f.Name, f.Value
		enum := make([]string, len(p.Enum))
		copy(enum, p.Enum)
		sort.Strings(enum)
		fmt.Fprintf(h, "param:%s:%s:%v:%s\n", name, p.Type, p.Required, strings.Join(enum, "|"))
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}

// ResourceSignatureHash covers a table's columns, indexes and foreign keys.
// Indexes and foreign keys are sorted; column order is kept.
func ResourceSignatureHash(r descriptor.ResourceDescriptor) string {
	h := sha256.New()

	fmt.Fprintf(h, "name:%s\n", r.Name)
	fmt.Fprintf(h, "dialect:%s\n", r.Dialect)

	for _, f := range r.Columns {
		name, c := f.Name, f.Value
		length := ""
		if c.Length != nil {
			length = fmt.Sprint(*c.Length)
		}
		fmt.Fprintf(h, "column:%s:%s:%v:%v:%v:%v:%s\n",
			name, c.Type, c.Nullable, c.PrimaryKey, c.AutoIncrement, c.DefaultValue, length)
	}

	indexes := make([]string, len(r.Indexes))
	copy(indexes, r.Indexes)
	sort.Strings(indexes)
	fmt.Fprintf(h, "indexes:%s\n", strings.Join(indexes, ","))

	fks := make([]string, len(r.ForeignKeys))
	for i, fk := range r.ForeignKeys {
		fks[i] = fk.Column + ">" + fk.ReferencesTable + "." + fk.ReferencesColumn
	}
	sort.Strings(fks)
	fmt.Fprintf(h, "fks:%s\n", strings.Join(fks, ","))

	return fmt.Sprintf("%x", h.Sum(nil))
}
