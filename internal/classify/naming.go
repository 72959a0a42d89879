package classify

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Categories assigned by Categorize.
const (
	CategoryAPI              = "api"
	CategoryUtility          = "utility"
	CategoryService          = "service"
	CategoryModel            = "model"
	CategoryController       = "controller"
	CategoryMiddleware       = "middleware"
	CategoryDataAccess       = "data-access"
	CategoryDataCreation     = "data-creation"
	CategoryDataModification = "data-modification"
	CategoryDataDeletion     = "data-deletion"
	CategoryValidation       = "validation"
	CategoryAuthentication   = "authentication"
	CategoryGeneral          = "general"
)

// Name-prefix groups shared by Describe and Categorize.
var (
	fetchPrefix    = regexp.MustCompile(`(?i)^(get|fetch|find|retrieve|load|query)`)
	createPrefix   = regexp.MustCompile(`(?i)^(create|add|insert|post)`)
	updatePrefix   = regexp.MustCompile(`(?i)^(update|edit|modify|patch|put)`)
	deletePrefix   = regexp.MustCompile(`(?i)^(delete|remove|destroy)`)
	listPrefix     = regexp.MustCompile(`(?i)^(list|getAll)`)
	searchPrefix   = regexp.MustCompile(`(?i)^(search|filter)`)
	validatePrefix = regexp.MustCompile(`(?i)^(validate|check|verify)`)
	authPrefix     = regexp.MustCompile(`(?i)^(auth|login|logout|signin|signout|signup|register)`)
)

// descriptionRules is evaluated top to bottom; the first match wins.
var descriptionRules = []struct {
	prefix   *regexp.Regexp
	template func(subject string, hasID bool) string
}{
	{fetchPrefix, func(s string, hasID bool) string {
		if hasID {
			return fmt.Sprintf("Fetch a specific %s by ID", s)
		}
		return fmt.Sprintf("Fetch %s data", s)
	}},
	{createPrefix, func(s string, _ bool) string { return fmt.Sprintf("Create a new %s record", s) }},
	{updatePrefix, func(s string, _ bool) string { return fmt.Sprintf("Update an existing %s record", s) }},
	{deletePrefix, func(s string, _ bool) string { return fmt.Sprintf("Delete a %s record", s) }},
	{listPrefix, func(s string, _ bool) string { return fmt.Sprintf("List all %s records", s) }},
	{searchPrefix, func(s string, _ bool) string { return fmt.Sprintf("Search and filter %s records", s) }},
	{validatePrefix, func(s string, _ bool) string { return fmt.Sprintf("Validate %s data", s) }},
}

// pathRules is checked before nameRules.
var pathRules = []struct {
	fragment string
	category string
}{
	{"/api/", CategoryAPI},
	{"/routes/", CategoryAPI},
	{"/utils/", CategoryUtility},
	{"/helpers/", CategoryUtility},
	{"/services/", CategoryService},
	{"/models/", CategoryModel},
	{"/controllers/", CategoryController},
	{"/middleware/", CategoryMiddleware},
}

var nameRules = []struct {
	prefix   *regexp.Regexp
	category string
}{
	{fetchPrefix, CategoryDataAccess},
	{createPrefix, CategoryDataCreation},
	{updatePrefix, CategoryDataModification},
	{deletePrefix, CategoryDataDeletion},
	{listPrefix, CategoryDataAccess},
	{searchPrefix, CategoryDataAccess},
	{validatePrefix, CategoryValidation},
	{authPrefix, CategoryAuthentication},
}

// byQualifier matches a trailing lookup qualifier such as ById or ByEmail.
var byQualifier = regexp.MustCompile(`By[A-Z0-9][A-Za-z0-9]*$`)

var idLikeParam = regexp.MustCompile(`^(?i:id)$|Id$|ID$|_id$`)

// Describe derives a one-sentence description from a symbol name.
func Describe(name string, paramCount int, hasIDParam bool) string {
	for _, rule := range descriptionRules {
		loc := rule.prefix.FindStringIndex(name)
		if loc == nil {
			continue
		}
		return rule.template(subject(name[loc[1]:]), hasIDParam)
	}
	switch {
	case paramCount == 1:
		return fmt.Sprintf("Function: %s (1 parameter)", name)
	case paramCount > 1:
		return fmt.Sprintf("Function: %s (%d parameters)", name, paramCount)
	}
	return "Function: " + name
}

// subject is the remainder of a name after its verb prefix, lower-cased,
// with any ByX lookup qualifier removed.
func subject(rest string) string {
	trimmed := byQualifier.ReplaceAllString(rest, "")
	if trimmed == "" {
		trimmed = rest
	}
	trimmed = strings.ToLower(strings.TrimLeft(trimmed, "_"))
	if trimmed == "" {
		return "item"
	}
	return trimmed
}

// HasIDLikeParameter reports whether any parameter name looks like an
// identifier (id, userId, user_id, ID).
func HasIDLikeParameter(names []string) bool {
	for _, n := range names {
		if idLikeParam.MatchString(n) {
			return true
		}
	}
	return false
}

// Categorize assigns a category from the file path, falling back to the
// name prefix. Path rules always take precedence.
func Categorize(name, filePath string) string {
	p := normalizePath(filePath)
	for _, rule := range pathRules {
		if strings.Contains(p, rule.fragment) {
			return rule.category
		}
	}
	for _, rule := range nameRules {
		if rule.prefix.MatchString(name) {
			return rule.category
		}
	}
	return CategoryGeneral
}

// normalizePath uses forward slashes and anchors a relative path with a
// leading slash so "api/users.ts" matches "/api/". Matching stays
// case-sensitive.
func normalizePath(p string) string {
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
