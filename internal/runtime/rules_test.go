package runtime

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInput() RuleInput {
	return RuleInput{
		Name:        "chargeCard",
		FilePath:    "src/payments.ts",
		Category:    "general",
		Description: "Function: chargeCard (2 parameters)",
		ParamCount:  2,
	}
}

func TestRules_StringResultReplacesCategory(t *testing.T) {
	t.Parallel()

	rules := NewRuntime("").NewRules("inline", `
result := nil
if name == "chargeCard" {
	result = "billing"
}
result
`)
	out, err := rules.Apply(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, "billing", out.Category)
	assert.Equal(t, "Function: chargeCard (2 parameters)", out.Description)
}

func TestRules_MapResultOverridesBoth(t *testing.T) {
	t.Parallel()

	rules := NewRuntime("").NewRules("inline", `
result := {"category": "payments", "description": "Charge " + file_path}
result
`)
	out, err := rules.Apply(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, "payments", out.Category)
	assert.Equal(t, "Charge src/payments.ts", out.Description)
}

func TestRules_HasIDParamGlobal(t *testing.T) {
	t.Parallel()

	rules := NewRuntime("").NewRules("inline", `
result := {"description": describe_name(name, param_count, has_id_param)}
result
`)
	out, err := rules.Apply(context.Background(), RuleInput{
		Name:       "getOrderById",
		FilePath:   "src/orders.ts",
		Category:   "data-access",
		ParamCount: 1,
		HasIDParam: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Fetch a specific order by ID", out.Description)
}

func TestRules_MapResultPartialOverride(t *testing.T) {
	t.Parallel()

	rules := NewRuntime("").NewRules("inline", `
result := {"description": "Takes two args"}
if param_count != 2 {
	result = nil
}
result
`)
	out, err := rules.Apply(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, "general", out.Category)
	assert.Equal(t, "Takes two args", out.Description)
}

func TestRules_NilResultLeavesToolUnchanged(t *testing.T) {
	t.Parallel()

	rules := NewRuntime("").NewRules("inline", `nil`)
	in := sampleInput()
	out, err := rules.Apply(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, RuleOutcome{Category: in.Category, Description: in.Description}, out)
}

func TestRules_UnexpectedResultType(t *testing.T) {
	t.Parallel()

	rules := NewRuntime("").NewRules("inline", `42`)
	out, err := rules.Apply(context.Background(), sampleInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "result must be nil, a string or a map")
	assert.Equal(t, "general", out.Category)
}

func TestRules_ScriptErrorIsReturned(t *testing.T) {
	t.Parallel()

	rules := NewRuntime("").NewRules("broken.risor", `undefined_function()`)
	_, err := rules.Apply(context.Background(), sampleInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.risor")
}

func TestLoadRules_FromFS(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{
		"rules.risor": &fstest.MapFile{Data: []byte(`default_category(name, "src/services/" + file_path)`)},
	}))
	rules, err := rt.LoadRules("rules.risor")
	require.NoError(t, err)
	assert.Equal(t, "rules.risor", rules.Path())

	out, err := rules.Apply(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, "service", out.Category)
}

func TestLoadRules_MissingScript(t *testing.T) {
	t.Parallel()

	_, err := NewRuntime(t.TempDir()).LoadRules("missing.risor")
	require.Error(t, err)
}
