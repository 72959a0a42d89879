package surveyor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jward/surveyor/scripts"
)

var projectFiles = map[string]string{
	"src/services/userService.ts": `export async function getUserById(id: string): Promise<User> {
  return null as any;
}

export function _internal() {}
`,
	"src/orders.ts": `export const createOrder = (items: string[]) => items;
`,
	"db/schema.sql": `CREATE TABLE orders (
  id INT PRIMARY KEY,
  total DECIMAL(10, 2) NOT NULL
);
`,
}

var (
	projectSource = []string{"src/orders.ts", "src/services/userService.ts"}
	projectSQL    = []string{"db/schema.sql"}
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	root := writeProject(t, projectFiles)
	e, err := New(append([]Option{WithRoot(root)}, opts...)...)
	require.NoError(t, err)
	return e
}

func toolNames(tools []ToolDescriptor) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

func TestRun_ProducesToolsAndResources(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	res := e.Run(context.Background(), projectSource, projectSQL)

	require.Empty(t, res.Warnings)
	assert.Equal(t, []string{"createOrder", "getUserById"}, toolNames(res.Tools))
	assert.Equal(t, 2, res.SourceFiles)
	assert.Equal(t, 1, res.SQLFiles)

	user := res.Tools[1]
	assert.Equal(t, "service", user.Category)
	assert.Equal(t, "Fetch a specific user by ID", user.Description)
	assert.Equal(t, "src/services/userService.ts", user.SourceFile)

	order := res.Tools[0]
	assert.Equal(t, "data-creation", order.Category)
	assert.Equal(t, "Create a new order record", order.Description)

	require.Len(t, res.Resources, 1)
	assert.Equal(t, "orders", res.Resources[0].Name)
	assert.Equal(t, "mysql", res.Resources[0].Dialect)
	assert.Equal(t, "db/schema.sql", res.Resources[0].SourceFile)
}

func TestRun_ConcurrentMatchesSequential(t *testing.T) {
	t.Parallel()

	root := writeProject(t, projectFiles)
	seq, err := New(WithRoot(root), WithParallel(false))
	require.NoError(t, err)
	par, err := New(WithRoot(root), WithParallel(true), WithWorkers(2))
	require.NoError(t, err)

	sources := append([]string{"src/missing.ts"}, projectSource...)
	a := seq.Run(context.Background(), sources, projectSQL)
	b := par.Run(context.Background(), sources, projectSQL)

	assert.Equal(t, a.Tools, b.Tools)
	assert.Equal(t, a.Resources, b.Resources)
	assert.Equal(t, a.Warnings, b.Warnings)
	assert.Len(t, a.Warnings, 1)
}

func TestRun_EmptyInputs(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	res := e.Run(context.Background(), nil, nil)
	assert.NotNil(t, res.Tools)
	assert.NotNil(t, res.Resources)
	assert.Empty(t, res.Tools)
	assert.Empty(t, res.Resources)
	assert.Empty(t, res.Warnings)
}

func TestRun_SchemaScannerUnavailableKeepsTools(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, WithDialects("oracle"))
	res := e.Run(context.Background(), projectSource, projectSQL)

	assert.Len(t, res.Tools, 2)
	assert.Empty(t, res.Resources)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "unknown dialect")
}

func TestRun_UnreadableFilesBecomeWarnings(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	e := newTestEngine(t, WithLogger(zap.New(core)))
	res := e.Run(context.Background(),
		append(projectSource, "src/gone.ts"),
		append(projectSQL, "db/gone.sql"),
	)

	assert.Len(t, res.Tools, 2)
	assert.Len(t, res.Resources, 1)
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, "src/gone.ts", res.Warnings[0].File)
	assert.Equal(t, "db/gone.sql", res.Warnings[1].File)
	assert.Equal(t, 2, logs.Len())
}

func TestRun_RulesScriptOverridesClassification(t *testing.T) {
	t.Parallel()

	rules := fstest.MapFS{
		"rules/custom.risor": &fstest.MapFile{Data: []byte(`
result := nil
if name == "createOrder" {
	result = {"category": "orders", "description": "Place an order"}
}
result
`)},
	}
	e := newTestEngine(t, WithRulesFS(rules), WithRulesScript("rules/custom.risor"))
	res := e.Run(context.Background(), projectSource, projectSQL)

	require.Empty(t, res.Warnings)
	require.Len(t, res.Tools, 2)
	assert.Equal(t, "orders", res.Tools[0].Category)
	assert.Equal(t, "Place an order", res.Tools[0].Description)
	assert.Equal(t, "service", res.Tools[1].Category)
}

func TestRun_RulesScriptFromDisk(t *testing.T) {
	t.Parallel()

	script := filepath.Join(t.TempDir(), "rules.risor")
	require.NoError(t, os.WriteFile(script, []byte(`default_category(name, "src/api/" + file_path)`), 0o644))

	e := newTestEngine(t, WithRulesScript(script))
	res := e.Run(context.Background(), projectSource, nil)

	require.Len(t, res.Tools, 2)
	for _, tool := range res.Tools {
		assert.Equal(t, "api", tool.Category, tool.Name)
	}
}

func TestRun_RulesScriptErrorsBecomeWarnings(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	rules := fstest.MapFS{"rules.risor": &fstest.MapFile{Data: []byte(`undefined_function()`)}}
	e := newTestEngine(t, WithLogger(zap.New(core)), WithRulesFS(rules), WithRulesScript("rules.risor"))
	res := e.Run(context.Background(), projectSource, nil)

	require.Len(t, res.Tools, 2)
	assert.Equal(t, "data-creation", res.Tools[0].Category)
	assert.Equal(t, "service", res.Tools[1].Category)
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0].Message, "rules for createOrder")
	assert.Equal(t, 2, logs.FilterMessage("rules script failed").Len())
}

func TestNew_MissingRulesScript(t *testing.T) {
	t.Parallel()

	_, err := New(WithRulesScript(filepath.Join(t.TempDir(), "nope.risor")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "surveyor: load rules")
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	e, err := New()
	require.NoError(t, err)
	assert.Equal(t, ".", e.Root())
	assert.True(t, e.parallel)
	assert.Nil(t, e.rules)
}

func TestScanDirectory_DiscoversAndScans(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"node_modules/pkg/index.js": "export function getThing() {}\n",
		"src/orders.test.ts":        "export function createFixture() {}\n",
		"src/types.d.ts":            "export declare function declared(): void;\n",
		".cache/gen.ts":             "export function getCached() {}\n",
		"README.md":                 "# project\n",
	}
	for k, v := range projectFiles {
		files[k] = v
	}
	root := writeProject(t, files)

	opts := DefaultDiscoverOptions()
	opts.NoGit = true
	e, err := New(WithRoot(root), WithDiscoverOptions(opts))
	require.NoError(t, err)

	res, err := e.ScanDirectory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"createOrder", "getUserById"}, toolNames(res.Tools))
	assert.Len(t, res.Resources, 1)
	assert.Equal(t, 2, res.SourceFiles)
	assert.Equal(t, 1, res.SQLFiles)
}

func TestScanDirectory_MissingRoot(t *testing.T) {
	t.Parallel()

	opts := DefaultDiscoverOptions()
	opts.NoGit = true
	e, err := New(WithRoot(filepath.Join(t.TempDir(), "absent")), WithDiscoverOptions(opts))
	require.NoError(t, err)

	_, err = e.ScanDirectory(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "surveyor: discover")
}

func TestRun_BuiltinHandlersRules(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"src/hooks.ts": `export function handleWebhook(payload: string) {}
export function authMiddleware(req: Request) {}
export function UserController() {}
export function formatDate(d: string) {}
`,
	})
	path, ok := scripts.Path("builtin:handlers")
	require.True(t, ok)

	plain, err := New(WithRoot(root))
	require.NoError(t, err)
	want := plain.Run(context.Background(), []string{"src/hooks.ts"}, nil)

	e, err := New(WithRoot(root), WithRulesFS(scripts.FS), WithRulesScript(path))
	require.NoError(t, err)
	res := e.Run(context.Background(), []string{"src/hooks.ts"}, nil)

	require.Empty(t, res.Warnings)
	require.Len(t, res.Tools, 4)
	assert.Equal(t, "event-handler", res.Tools[0].Category)
	assert.Equal(t, "middleware", res.Tools[1].Category)
	assert.Equal(t, "api", res.Tools[2].Category)
	assert.Equal(t, want.Tools[3].Category, res.Tools[3].Category)
}
