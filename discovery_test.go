package surveyor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFiles(t *testing.T) {
	t.Parallel()

	paths := []string{
		"src/b.ts",
		"src/a.tsx",
		"lib/util.MJS",
		"src/a.tsx",
		"src/types.d.ts",
		"src/__tests__/a.ts",
		"src/__mocks__/db.js",
		"src/a.spec.js",
		"src/a.test.ts",
		"dist/bundle.js",
		"packages/x/node_modules/y/index.js",
		".github/scripts/release.js",
		"migrations/002.sql",
		"migrations/001.SQL",
		"docs/readme.md",
		"src/generated/schema.ts",
	}
	opts := DefaultDiscoverOptions()
	opts.ExcludeGlobs = []string{"src/generated/*"}

	files := splitFiles(paths, opts)
	assert.Equal(t, []string{"lib/util.MJS", "src/a.tsx", "src/b.ts"}, files.Source)
	assert.Equal(t, []string{"migrations/001.SQL", "migrations/002.sql"}, files.SQL)
}

func TestSplitFiles_CustomExtensions(t *testing.T) {
	t.Parallel()

	opts := DiscoverOptions{SourceExtensions: []string{"ts"}, SQLExtensions: []string{".ddl"}}
	files := splitFiles([]string{"a.ts", "b.js", "c.ddl", "d.sql"}, opts)
	assert.Equal(t, []string{"a.ts"}, files.Source)
	assert.Equal(t, []string{"c.ddl"}, files.SQL)
}

func TestSplitFiles_BaseNameGlob(t *testing.T) {
	t.Parallel()

	opts := DefaultDiscoverOptions()
	opts.ExcludeGlobs = []string{"*.config.js"}
	files := splitFiles([]string{"webpack.config.js", "tools/jest.config.js", "src/app.js"}, opts)
	assert.Equal(t, []string{"src/app.js"}, files.Source)
}

func TestWalkListFiles_SkipsHiddenDirectories(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"src/a.ts":         "",
		".git/config":      "",
		".vscode/x.ts":     "",
		"nested/.env/b.ts": "",
		".eslintrc.js":     "",
	})
	paths, err := walkListFiles(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/a.ts", ".eslintrc.js"}, paths)
}

func TestDiscover_WalkFallback(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"src/index.ts":        "",
		"src/index.test.ts":   "",
		"db/001_init.sql":     "",
		"node_modules/m/m.js": "",
	})
	opts := DefaultDiscoverOptions()
	opts.NoGit = true

	files, err := Discover(root, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/index.ts"}, files.Source)
	assert.Equal(t, []string{"db/001_init.sql"}, files.SQL)
}
