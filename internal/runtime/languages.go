package runtime

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".ts":  "typescript",
	".mts": "typescript",
	".cts": "typescript",
	".tsx": "tsx",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
}

// langToGrammar maps language names to tree-sitter Language objects.
// Lazily initialized on first call via sync.Once.
var (
	langToGrammar map[string]*sitter.Language
	grammarsOnce  sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		langToGrammar = map[string]*sitter.Language{
			"typescript": ts.GetLanguage(),
			"tsx":        tsx.GetLanguage(),
			"javascript": javascript.GetLanguage(),
		}
	})
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
// Declaration files (.d.ts) carry no bodies and are not recognized.
func LanguageForFile(path string) (string, bool) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".d.ts") || strings.HasSuffix(lower, ".d.mts") || strings.HasSuffix(lower, ".d.cts") {
		return "", false
	}
	lang, ok := extToLanguage[filepath.Ext(lower)]
	return lang, ok
}

// ParserForLanguage returns the tree-sitter Language for a canonical language
// name. Returns (nil, false) if the language is not supported.
func ParserForLanguage(lang string) (*sitter.Language, bool) {
	initGrammars()
	l, ok := langToGrammar[lang]
	return l, ok
}

// Parse parses src with the grammar for lang. The caller owns the returned
// tree and must Close it. Syntax errors do not fail the parse; they appear
// as ERROR nodes in the tree.
func Parse(ctx context.Context, src []byte, lang string) (*sitter.Tree, error) {
	grammar, ok := ParserForLanguage(lang)
	if !ok {
		return nil, fmt.Errorf("runtime: unsupported language %q", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("runtime: tree-sitter parse failed: %w", err)
	}
	return tree, nil
}
