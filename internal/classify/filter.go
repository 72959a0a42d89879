package classify

import (
	"regexp"
	"strings"
	"unicode"
)

// rejectedNames lists name conventions that are never extracted: test
// doubles, internal helpers and initializers.
var rejectedNames = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(test|spec|mock|stub)`),
	regexp.MustCompile(`(?i)^(helper|util|internal|private)`),
	regexp.MustCompile(`(?i)^(constructor|init)`),
}

// IsEligible reports whether a discovered symbol may become a tool. Every
// check is independent and any match rejects.
func IsEligible(name, filePath string) bool {
	if name == "" {
		return false
	}
	if strings.HasPrefix(name, "_") || strings.HasPrefix(name, "#") {
		return false
	}
	for _, re := range rejectedNames {
		if re.MatchString(name) {
			return false
		}
	}
	// Capitalized exports from component files are UI components.
	first := []rune(name)[0]
	if unicode.IsUpper(first) && strings.Contains(strings.ToLower(filePath), "component") {
		return false
	}
	return true
}
