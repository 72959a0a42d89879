package source

import (
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"
)

// param is one formal parameter before normalization.
type param struct {
	Name     string
	TypeText string // annotation, inferred literal type, or ""
	Optional bool
}

// extractParams reads a parameter list in declaration order. Destructured
// parameters get synthetic names (options, args) made unique within the list.
func extractParams(list *sitter.Node, src []byte) []param {
	if list == nil {
		return nil
	}
	if list.Type() == "identifier" {
		return []param{{Name: nodeText(list, src)}}
	}

	var out []param
	used := map[string]int{}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p, ok := readParam(list.NamedChild(i), src)
		if !ok {
			continue
		}
		used[p.Name]++
		if n := used[p.Name]; n > 1 {
			p.Name += strconv.Itoa(n)
		}
		out = append(out, p)
	}
	return out
}

func readParam(n *sitter.Node, src []byte) (param, bool) {
	switch n.Type() {
	case "required_parameter", "optional_parameter":
		pattern := n.ChildByFieldName("pattern")
		if pattern == nil || pattern.Type() == "this" {
			return param{}, false
		}
		p := param{Name: patternName(pattern, src)}
		if ann := n.ChildByFieldName("type"); ann != nil {
			p.TypeText = typeAnnotationText(ann, src)
		}
		value := n.ChildByFieldName("value")
		if p.TypeText == "" && value != nil {
			p.TypeText = literalType(value)
		}
		if p.TypeText == "" && pattern.Type() == "rest_pattern" {
			p.TypeText = "any[]"
		}
		p.Optional = n.Type() == "optional_parameter" || value != nil || pattern.Type() == "rest_pattern"
		return p, true

	case "identifier", "object_pattern", "array_pattern":
		return param{Name: patternName(n, src)}, true

	case "assignment_pattern":
		left := n.ChildByFieldName("left")
		if left == nil {
			return param{}, false
		}
		return param{
			Name:     patternName(left, src),
			TypeText: literalType(n.ChildByFieldName("right")),
			Optional: true,
		}, true

	case "rest_pattern":
		return param{Name: patternName(n, src), TypeText: "any[]", Optional: true}, true
	}
	// comments, decorators, accessibility-only nodes
	return param{}, false
}

// patternName resolves the reported name of a binding pattern.
func patternName(n *sitter.Node, src []byte) string {
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		return nodeText(n, src)
	case "object_pattern":
		return "options"
	case "array_pattern":
		return "args"
	case "rest_pattern", "assignment_pattern":
		if n.NamedChildCount() > 0 {
			inner := n.NamedChild(0)
			if inner.Type() == "identifier" {
				return nodeText(inner, src)
			}
		}
		return "args"
	}
	return nodeText(n, src)
}

// literalType infers type text from a literal default value.
func literalType(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "string", "template_string":
		return "string"
	case "number":
		return "number"
	case "true", "false":
		return "boolean"
	case "array":
		return "any[]"
	case "object":
		return "object"
	case "null":
		return "null"
	}
	return ""
}
