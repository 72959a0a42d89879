package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/risor-io/risor/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const tsTestSource = `import { db } from "./db";

/** Load one user. */
export async function getUser(id: string): Promise<User> {
  return db.users.find(id);
}

export const add = (a: number, b = 2) => a + b;
`

// --- Language detection tests ---

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"app.ts", "typescript", true},
		{"app.mts", "typescript", true},
		{"app.tsx", "tsx", true},
		{"app.js", "javascript", true},
		{"app.jsx", "javascript", true},
		{"app.mjs", "javascript", true},
		{"app.cjs", "javascript", true},
		{"types.d.ts", "", false},
		{"schema.sql", "", false},
		{"main.go", "", false},
		{"Makefile", "", false},
		{"path/to/file.TS", "typescript", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, ok := LanguageForFile(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParserForLanguage(t *testing.T) {
	t.Parallel()

	for _, lang := range []string{"typescript", "tsx", "javascript"} {
		l, ok := ParserForLanguage(lang)
		assert.True(t, ok, lang)
		assert.NotNil(t, l, lang)
	}

	_, ok := ParserForLanguage("cobol")
	assert.False(t, ok)
}

// --- Parse tests ---

func TestParse_TypeScriptProgram(t *testing.T) {
	t.Parallel()

	tree, err := Parse(context.Background(), []byte(tsTestSource), "typescript")
	require.NoError(t, err)
	defer tree.Close()

	root := tree.RootNode()
	assert.Equal(t, "program", root.Type())
	assert.False(t, root.HasError())
}

func TestParse_InvalidSourceStillReturnsTree(t *testing.T) {
	t.Parallel()

	tree, err := Parse(context.Background(), []byte("export function (((\n"), "typescript")
	require.NoError(t, err)
	defer tree.Close()

	assert.True(t, tree.RootNode().HasError())
}

func TestParse_UnsupportedLanguage(t *testing.T) {
	t.Parallel()

	_, err := Parse(context.Background(), []byte("x"), "cobol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

// --- Script execution tests ---

func TestRunSource_ReturnsFinalExpression(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("")
	result, err := rt.RunSource(context.Background(), "x := 20\nx + 22", nil)
	require.NoError(t, err)

	i, ok := result.(*object.Int)
	require.True(t, ok, "got %T", result)
	assert.Equal(t, int64(42), i.Value())
}

func TestRunSource_ExtraGlobals(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("")
	result, err := rt.RunSource(context.Background(), `greeting + " " + who`, map[string]any{
		"greeting": "hello",
		"who":      "world",
	})
	require.NoError(t, err)
	assert.Equal(t, object.NewString("hello world"), result)
}

func TestRunSource_CompileError(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("")
	_, err := rt.RunSource(context.Background(), `x := (`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "<inline>")
}

func TestRunSource_NormalizeTypeHostFunction(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("")
	script := `
t := normalize_type("string[]")
t["kind"] + ":" + t["description"]
`
	result, err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
	assert.Equal(t, object.NewString("array:Array of string"), result)
}

func TestRunSource_DefaultCategoryHostFunction(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("")
	result, err := rt.RunSource(context.Background(), `default_category("getUser", "src/api/users.ts")`, nil)
	require.NoError(t, err)
	assert.Equal(t, object.NewString("api"), result)
}

func TestRunSource_DescribeNameHostFunction(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("")
	result, err := rt.RunSource(context.Background(), `describe_name("createOrder", 1)`, nil)
	require.NoError(t, err)
	assert.Equal(t, object.NewString("Create a new order record"), result)
}

func TestRunSource_DescribeNameWithIDParameter(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("")
	result, err := rt.RunSource(context.Background(), `describe_name("getUserById", 1, true)`, nil)
	require.NoError(t, err)
	assert.Equal(t, object.NewString("Fetch a specific user by ID"), result)

	result, err = rt.RunSource(context.Background(), `describe_name("getUserById", 1, false)`, nil)
	require.NoError(t, err)
	assert.Equal(t, object.NewString("Fetch user data"), result)

	_, err = rt.RunSource(context.Background(), `describe_name("getUserById", 1, "yes")`, nil)
	assert.Error(t, err)
}

func TestRunSource_LogGoesToZap(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	rt := NewRuntime("", WithRuntimeLogger(zap.New(core)))

	_, err := rt.RunSource(context.Background(), `log.Warn("careful")`, nil)
	require.NoError(t, err)

	entries := logs.FilterMessage("careful").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "rules", entries[0].LoggerName)
}

func TestRunScript_LoadsFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(`1 + 1`), 0o644))

	rt := NewRuntime(dir)
	result, err := rt.RunScript(context.Background(), "test.risor", nil)
	require.NoError(t, err)
	assert.Equal(t, object.NewInt(2), result)
}

func TestRunScript_MissingFile(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(t.TempDir())
	_, err := rt.RunScript(context.Background(), "nonexistent.risor", nil)
	require.Error(t, err)
}

// --- Script loading tests ---

func TestLoadScript_AbsolutePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rt := NewRuntime("/elsewhere")
	got, err := rt.LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{
		"rules/billing.risor": &fstest.MapFile{Data: []byte(content)},
	}))

	got, err := rt.LoadScript("rules/billing.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	got, err = rt.LoadScript("/rules/billing.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS_NotFound(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{}))
	_, err := rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestLoadScript_FallsBackToDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `z := 7`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(content), 0o644))

	rt := NewRuntime(dir)
	got, err := rt.LoadScript("test.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// --- Importer wiring tests ---

func TestImport_FSImporter(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{
		"naming.risor": &fstest.MapFile{Data: []byte(`
func billing_category() {
	return "billing"
}
`)},
	}))

	script := `
import naming
naming.billing_category()
`
	result, err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
	assert.Equal(t, object.NewString("billing"), result)
}

func TestImport_LocalImporter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0o644))

	rt := NewRuntime(dir)
	result, err := rt.RunSource(context.Background(), "import math_utils\nmath_utils.double(21)", nil)
	require.NoError(t, err)
	assert.Equal(t, object.NewInt(42), result)
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{
		"helper.risor": &fstest.MapFile{Data: []byte(`
func do_log(msg) {
	log.Info(msg)
}
`)},
	}))

	_, err := rt.RunSource(context.Background(), "import helper\nhelper.do_log(\"test message\")", nil)
	require.NoError(t, err)
}

func TestNewRuntime_Defaults(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("/some/dir")
	require.NotNil(t, rt)
	assert.Nil(t, rt.fsys)
	assert.NotNil(t, rt.logger)
	assert.Equal(t, "/some/dir", rt.scriptsDir)
}
