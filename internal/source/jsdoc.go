package source

import (
	"regexp"
	"strings"
)

// docComment is the parsed content of a /** ... */ block.
type docComment struct {
	Description string
	Params      map[string]docParam
	Returns     string // type text from @returns {T}
	Examples    []string
}

type docParam struct {
	Type        string
	Description string
	Optional    bool
}

var (
	tagLine   = regexp.MustCompile(`^@(\w+)\s*(.*)$`)
	typeBrace = regexp.MustCompile(`^\{([^}]*)\}\s*`)
)

// isDocComment reports whether comment text opens a documentation block.
// A bare /**/ is an empty block comment, not documentation.
func isDocComment(text string) bool {
	return strings.HasPrefix(text, "/**") && text != "/**/"
}

// parseDocComment extracts the description, @param, @returns and @example
// entries from a JSDoc block. Description is the text before the first tag
// with lines joined by single spaces.
func parseDocComment(text string) docComment {
	doc := docComment{Params: map[string]docParam{}}

	body := strings.TrimPrefix(text, "/**")
	body = strings.TrimSuffix(body, "*/")

	var (
		descLines []string
		tag       string
		tagBody   []string
	)
	flush := func() {
		if tag == "" {
			return
		}
		applyTag(&doc, tag, tagBody)
		tag, tagBody = "", nil
	}

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		line = strings.TrimPrefix(line, "*")
		// Example bodies keep their indentation relative to the "* " gutter.
		exampleLine := strings.TrimPrefix(line, " ")
		line = strings.TrimSpace(line)

		if m := tagLine.FindStringSubmatch(line); m != nil {
			flush()
			tag = strings.ToLower(m[1])
			tagBody = []string{m[2]}
			continue
		}
		if tag != "" {
			if tag == "example" {
				tagBody = append(tagBody, strings.TrimRight(exampleLine, " \t"))
			} else {
				tagBody = append(tagBody, line)
			}
			continue
		}
		if line != "" {
			descLines = append(descLines, line)
		}
	}
	flush()

	doc.Description = strings.Join(descLines, " ")
	return doc
}

func applyTag(doc *docComment, tag string, body []string) {
	switch tag {
	case "param", "arg", "argument":
		name, p, ok := parseParamTag(joinWords(body))
		if ok {
			if _, dup := doc.Params[name]; !dup {
				doc.Params[name] = p
			}
		}
	case "returns", "return":
		if m := typeBrace.FindStringSubmatch(joinWords(body)); m != nil {
			doc.Returns = strings.TrimSpace(m[1])
		}
	case "example":
		example := strings.TrimSpace(strings.Join(body, "\n"))
		if example != "" {
			doc.Examples = append(doc.Examples, example)
		}
	}
}

// parseParamTag handles "{type} name description", "name description" and
// the bracketed optional forms "[name]" and "[name=default]". Dotted names
// (options.limit) describe properties and are ignored.
func parseParamTag(text string) (string, docParam, bool) {
	var p docParam
	if m := typeBrace.FindStringSubmatch(text); m != nil {
		p.Type = strings.TrimSpace(m[1])
		text = text[len(m[0]):]
	}
	if strings.HasPrefix(p.Type, "...") {
		p.Type = strings.TrimPrefix(p.Type, "...") + "[]"
	}
	if strings.HasSuffix(p.Type, "=") {
		p.Type = strings.TrimSuffix(p.Type, "=")
		p.Optional = true
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", p, false
	}
	name := fields[0]
	if strings.HasPrefix(name, "[") {
		end := strings.Index(text, "]")
		if end < 0 {
			return "", p, false
		}
		name = strings.TrimPrefix(text[:end], "[")
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			name = name[:eq]
		}
		name = strings.TrimSpace(name)
		p.Optional = true
		fields = strings.Fields(text[end+1:])
	} else {
		fields = fields[1:]
	}
	if name == "" || strings.Contains(name, ".") {
		return "", p, false
	}

	desc := strings.Join(fields, " ")
	desc = strings.TrimSpace(strings.TrimPrefix(desc, "-"))
	p.Description = desc
	return name, p, true
}

func joinWords(lines []string) string {
	return strings.Join(strings.Fields(strings.Join(lines, " ")), " ")
}
