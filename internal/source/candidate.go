package source

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// CandidateKind tags the source construct a Candidate was discovered from.
type CandidateKind int

const (
	KindDeclaration CandidateKind = iota // function declaration or overload signature
	KindBinding                          // const/let/var bound to a function literal
	KindMethod                           // method of an exported class
)

func (k CandidateKind) String() string {
	switch k {
	case KindDeclaration:
		return "declaration"
	case KindBinding:
		return "binding"
	case KindMethod:
		return "method"
	}
	return "unknown"
}

// Candidate is a function-like symbol found in one file. The scanner only
// works against this interface, never against the underlying syntax node.
type Candidate interface {
	Kind() CandidateKind
	// Name is the simple identifier, or "" for anonymous functions.
	Name() string
	// Parameters returns the formal parameter list node, a single bare
	// identifier for `x => ...`, or nil.
	Parameters() *sitter.Node
	// ReturnTypeText is the annotated return type without the leading colon.
	ReturnTypeText() string
	Async() bool
	Exported() bool
	// DocText is the raw JSDoc block preceding the symbol, or "".
	DocText() string
}

// funcParts are the syntax pieces shared by all candidate variants.
type funcParts struct {
	src    []byte
	fn     *sitter.Node // node carrying parameters/return_type fields
	anchor *sitter.Node // outermost statement, used for doc lookup
}

func (f funcParts) Parameters() *sitter.Node {
	if p := f.fn.ChildByFieldName("parameters"); p != nil {
		return p
	}
	return f.fn.ChildByFieldName("parameter")
}

func (f funcParts) ReturnTypeText() string {
	rt := f.fn.ChildByFieldName("return_type")
	if rt == nil {
		return ""
	}
	return typeAnnotationText(rt, f.src)
}

func (f funcParts) Async() bool {
	return hasChildOfType(f.fn, "async")
}

func (f funcParts) DocText() string {
	return precedingDoc(f.anchor, f.src)
}

type declarationCandidate struct {
	funcParts
	exported bool
}

func (d *declarationCandidate) Kind() CandidateKind { return KindDeclaration }
func (d *declarationCandidate) Exported() bool      { return d.exported }

func (d *declarationCandidate) Name() string {
	return nodeText(d.fn.ChildByFieldName("name"), d.src)
}

type bindingCandidate struct {
	funcParts
	declarator *sitter.Node
	exported   bool
}

func (b *bindingCandidate) Kind() CandidateKind { return KindBinding }
func (b *bindingCandidate) Exported() bool      { return b.exported }

func (b *bindingCandidate) Name() string {
	name := b.declarator.ChildByFieldName("name")
	if name == nil || name.Type() != "identifier" {
		return "" // destructuring binding
	}
	return nodeText(name, b.src)
}

// ReturnTypeText falls back to a function-typed annotation on the binding
// itself: const f: (a: string) => User = ...
func (b *bindingCandidate) ReturnTypeText() string {
	if t := b.funcParts.ReturnTypeText(); t != "" {
		return t
	}
	ann := b.declarator.ChildByFieldName("type")
	if ann == nil {
		return ""
	}
	text := typeAnnotationText(ann, b.src)
	if i := strings.LastIndex(text, "=>"); i >= 0 && strings.HasPrefix(text, "(") {
		return strings.TrimSpace(text[i+2:])
	}
	return ""
}

type methodCandidate struct {
	funcParts
}

func (m *methodCandidate) Kind() CandidateKind { return KindMethod }

// Exported holds for every collected method: only exported classes are
// walked and private members are dropped during collection.
func (m *methodCandidate) Exported() bool { return true }

func (m *methodCandidate) Name() string {
	name := m.fn.ChildByFieldName("name")
	if name == nil || name.Type() == "computed_property_name" {
		return ""
	}
	return strings.Trim(nodeText(name, m.src), `"'`)
}

// collectCandidates walks the top level of a program and returns its
// candidates ordered declarations first, then bindings, then methods, each
// group in source order.
func collectCandidates(root *sitter.Node, src []byte) []Candidate {
	clauseExports := exportClauseNames(root, src)

	var decls, binds, methods []Candidate
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		target, exported := stmt, false
		if stmt.Type() == "export_statement" {
			target = stmt.ChildByFieldName("declaration")
			if target == nil {
				continue // export clause, re-export or default expression
			}
			exported = true
		}

		switch target.Type() {
		case "function_declaration", "generator_function_declaration", "function_signature":
			name := nodeText(target.ChildByFieldName("name"), src)
			decls = append(decls, &declarationCandidate{
				funcParts: funcParts{src: src, fn: target, anchor: stmt},
				exported:  exported || clauseExports[name],
			})

		case "lexical_declaration", "variable_declaration":
			for j := 0; j < int(target.NamedChildCount()); j++ {
				decl := target.NamedChild(j)
				if decl.Type() != "variable_declarator" {
					continue
				}
				value := unwrapValue(decl.ChildByFieldName("value"))
				if value == nil || !isFunctionLiteral(value) {
					continue
				}
				name := nodeText(decl.ChildByFieldName("name"), src)
				binds = append(binds, &bindingCandidate{
					funcParts:  funcParts{src: src, fn: value, anchor: stmt},
					declarator: decl,
					exported:   exported || clauseExports[name],
				})
			}

		case "class_declaration", "abstract_class_declaration":
			name := nodeText(target.ChildByFieldName("name"), src)
			if !exported && !clauseExports[name] {
				continue
			}
			methods = append(methods, classMethods(target, src)...)
		}
	}

	out := make([]Candidate, 0, len(decls)+len(binds)+len(methods))
	out = append(out, decls...)
	out = append(out, binds...)
	return append(out, methods...)
}

// classMethods returns the public and protected methods of a class body.
// Accessors, private members and static blocks are skipped.
func classMethods(class *sitter.Node, src []byte) []Candidate {
	body := class.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var out []Candidate
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		if member.Type() != "method_definition" {
			continue
		}
		if hasChildOfType(member, "get") || hasChildOfType(member, "set") {
			continue
		}
		if accessibility(member, src) == "private" {
			continue
		}
		out = append(out, &methodCandidate{
			funcParts: funcParts{src: src, fn: member, anchor: member},
		})
	}
	return out
}

// exportClauseNames collects local names exported through
// `export { a, b as c }`. Re-exports with a `from` source are ignored.
func exportClauseNames(root *sitter.Node, src []byte) map[string]bool {
	names := map[string]bool{}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() != "export_statement" || stmt.ChildByFieldName("source") != nil {
			continue
		}
		for j := 0; j < int(stmt.NamedChildCount()); j++ {
			clause := stmt.NamedChild(j)
			if clause.Type() != "export_clause" {
				continue
			}
			for k := 0; k < int(clause.NamedChildCount()); k++ {
				spec := clause.NamedChild(k)
				if spec.Type() != "export_specifier" {
					continue
				}
				if n := spec.ChildByFieldName("name"); n != nil {
					names[nodeText(n, src)] = true
				}
			}
		}
	}
	return names
}

func isFunctionLiteral(n *sitter.Node) bool {
	switch n.Type() {
	case "arrow_function", "function_expression", "function", "generator_function":
		return true
	}
	return false
}

// unwrapValue strips parentheses and `as`/`satisfies` wrappers around a
// binding's initializer.
func unwrapValue(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression":
			if n.NamedChildCount() == 0 {
				return n
			}
			n = n.NamedChild(0)
		default:
			return n
		}
	}
	return nil
}

func accessibility(member *sitter.Node, src []byte) string {
	for i := 0; i < int(member.NamedChildCount()); i++ {
		c := member.NamedChild(i)
		if c.Type() == "accessibility_modifier" {
			return nodeText(c, src)
		}
	}
	return ""
}

// precedingDoc returns the JSDoc comment directly above n, skipping
// decorators. A blank line between comment and symbol still counts.
func precedingDoc(n *sitter.Node, src []byte) string {
	prev := n.PrevNamedSibling()
	for prev != nil && prev.Type() == "decorator" {
		prev = prev.PrevNamedSibling()
	}
	if prev == nil || prev.Type() != "comment" {
		return ""
	}
	text := nodeText(prev, src)
	if !isDocComment(text) {
		return ""
	}
	return text
}

func hasChildOfType(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == typ {
			return true
		}
	}
	return false
}

// typeAnnotationText renders a type_annotation node without its colon.
func typeAnnotationText(n *sitter.Node, src []byte) string {
	text := strings.TrimSpace(nodeText(n, src))
	text = strings.TrimPrefix(text, ":")
	return strings.TrimSpace(text)
}

func nodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(src)
}
