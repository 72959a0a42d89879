// Package classify turns raw symbol facts into normalized descriptor fields:
// type text into a TypeDescriptor, names and paths into descriptions and
// categories, and names into an eligibility decision.
package classify

import (
	"regexp"
	"strings"

	"github.com/jward/surveyor/internal/descriptor"
)

var (
	// qualifierPattern matches module qualifiers such as
	// import("/abs/path/models").User as rendered by TypeScript.
	qualifierPattern = regexp.MustCompile(`[A-Za-z_$][\w$]*\([^()]*\)\.`)

	literalUnionPattern = regexp.MustCompile(`^(?:"[^"]*"|'[^']*')(?:\s*\|\s*(?:"[^"]*"|'[^']*'))*$`)
	literalPattern      = regexp.MustCompile(`"([^"]*)"|'([^']*)'`)
)

// primitives maps primitive type names to their kind.
var primitives = map[string]string{
	"string":    descriptor.KindString,
	"number":    descriptor.KindNumber,
	"boolean":   descriptor.KindBoolean,
	"Date":      descriptor.KindString,
	"any":       descriptor.KindAny,
	"unknown":   descriptor.KindAny,
	"object":    descriptor.KindObject,
	"void":      descriptor.KindNull,
	"undefined": descriptor.KindNull,
	"null":      descriptor.KindNull,
}

var (
	arrayWrappers   = map[string]bool{"Array": true, "ReadonlyArray": true}
	promiseWrappers = map[string]bool{"Promise": true, "PromiseLike": true}
)

// Normalize converts a raw type expression into a TypeDescriptor. The first
// matching rule wins: literal union, array, promise, inline object,
// primitive, passthrough.
func Normalize(typeText string) descriptor.TypeDescriptor {
	text := strings.TrimSpace(qualifierPattern.ReplaceAllString(typeText, ""))
	if text == "" {
		return descriptor.TypeDescriptor{Kind: descriptor.KindAny}
	}

	if values, ok := literalUnion(text); ok {
		return descriptor.TypeDescriptor{
			Kind:        descriptor.KindString,
			Description: "One of: " + strings.Join(values, ", "),
			EnumValues:  values,
		}
	}

	if elem, ok := arrayElement(text); ok {
		return descriptor.TypeDescriptor{
			Kind:        descriptor.KindArray,
			Description: "Array of " + elem,
		}
	}

	if name, inner, ok := splitGeneric(text); ok && promiseWrappers[name] {
		if inner == "" {
			inner = descriptor.KindAny
		}
		return descriptor.TypeDescriptor{
			Kind:        descriptor.KindPromise,
			Description: "Promise resolving to " + inner,
		}
	}

	if strings.Contains(text, "{") && strings.Contains(text, "}") {
		return descriptor.TypeDescriptor{
			Kind:        descriptor.KindObject,
			Description: "Complex object type",
		}
	}

	if kind, ok := primitives[text]; ok {
		td := descriptor.TypeDescriptor{Kind: kind}
		if kind != text {
			td.Description = text
		}
		return td
	}

	return descriptor.TypeDescriptor{Kind: text}
}

// literalUnion returns the values of a union made only of string literals.
func literalUnion(text string) ([]string, bool) {
	text = strings.TrimSpace(strings.TrimPrefix(text, "|"))
	if !literalUnionPattern.MatchString(text) {
		return nil, false
	}
	var values []string
	for _, m := range literalPattern.FindAllStringSubmatch(text, -1) {
		if strings.HasPrefix(m[0], `"`) {
			values = append(values, m[1])
		} else {
			values = append(values, m[2])
		}
	}
	return values, true
}

// arrayElement recognizes T[] and Array<T>, returning T.
func arrayElement(text string) (string, bool) {
	if strings.HasSuffix(text, "[]") {
		return strings.TrimSpace(strings.TrimSuffix(text, "[]")), true
	}
	if name, inner, ok := splitGeneric(text); ok && arrayWrappers[name] {
		return inner, true
	}
	return "", false
}

// splitGeneric splits Name<Inner> when the angle bracket opened after Name
// is the one closing the text. Promise<A> | Promise<B> is not a generic.
func splitGeneric(text string) (name, inner string, ok bool) {
	open := strings.IndexByte(text, '<')
	if open <= 0 || !strings.HasSuffix(text, ">") {
		return "", "", false
	}
	name = strings.TrimSpace(text[:open])
	if !isIdentifier(name) {
		return "", "", false
	}
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '<':
			depth++
		case '>':
			if i > 0 && text[i-1] == '=' {
				continue // arrow inside a function type
			}
			depth--
			if depth == 0 && i != len(text)-1 {
				return "", "", false
			}
		}
	}
	if depth != 0 {
		return "", "", false
	}
	return name, strings.TrimSpace(text[open+1 : len(text)-1]), true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || r == '.':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
