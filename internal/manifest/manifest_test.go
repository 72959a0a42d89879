package manifest

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/surveyor/internal/descriptor"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleTool() descriptor.ToolDescriptor {
	var params descriptor.Fields[descriptor.ParameterSchema]
	params.Set("id", descriptor.ParameterSchema{Type: "string", Required: true, Description: "The user id"})
	params.Set("withPosts", descriptor.ParameterSchema{Type: "boolean", Description: "include posts"})
	params.Set("status", descriptor.ParameterSchema{Type: "string", Required: false, Description: "One of: active, banned", Enum: []string{"active", "banned"}})
	params.Set("owner", descriptor.ParameterSchema{Type: "User", Required: true})
	params.Set("later", descriptor.ParameterSchema{Type: "promise", Description: "Promise resolving to User"})
	params.Set("extra", descriptor.ParameterSchema{Type: "any"})
	return descriptor.ToolDescriptor{
		Name:        "getUser",
		Description: "Loads a user record.",
		Parameters:  params,
		ReturnType:  "promise",
		Category:    "service",
		SourceFile:  "src/services/users.ts",
	}
}

func sampleResource() descriptor.ResourceDescriptor {
	var cols descriptor.Fields[descriptor.ColumnSchema]
	cols.Set("id", descriptor.ColumnSchema{Type: "INT", PrimaryKey: true, AutoIncrement: true})
	cols.Set("email", descriptor.ColumnSchema{Type: "VARCHAR", Nullable: true})
	return descriptor.ResourceDescriptor{
		Name:         "users",
		Columns:      cols,
		Indexes:      []string{"uniq_email"},
		ForeignKeys:  []descriptor.ForeignKey{},
		SourceFile:   "db/schema.sql",
		Dialect:      "mysql",
		LastModified: fixedTime,
	}
}

func sampleManifest() *Manifest {
	second := descriptor.ToolDescriptor{
		Name:        "listOrders",
		Description: "List all orders records",
		Parameters:  descriptor.Fields[descriptor.ParameterSchema]{},
		ReturnType:  "array",
		Category:    "data-access",
		SourceFile:  "src/orders.ts",
	}
	return Build(
		Project{Name: "shop", Version: "1.2.3"},
		Input{
			Tools:       []descriptor.ToolDescriptor{sampleTool(), second},
			Resources:   []descriptor.ResourceDescriptor{sampleResource()},
			Warnings:    []descriptor.Warning{{File: "db/bad.sql", Message: "no dialect"}},
			SourceFiles: 3,
			SQLFiles:    2,
		},
		WithRunID("run-1"),
		WithClock(func() time.Time { return fixedTime }),
	)
}

func TestReadProject_PackageJSON(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte(`{
  "name": "shop-api",
  "version": "2.0.1",
  "description": "Shop backend",
  "dependencies": {"express": "^4", "@prisma/client": "^5"},
  "devDependencies": {"react": "^18"}
}`), 0o644))

	proj, err := ReadProject(root)
	require.NoError(t, err)
	assert.Equal(t, Project{
		Name:        "shop-api",
		Version:     "2.0.1",
		Description: "Shop backend",
		Frameworks:  []string{"express", "react", "prisma"},
	}, proj)
}

func TestReadProject_MissingPackageJSON(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "my-service")
	require.NoError(t, os.Mkdir(root, 0o755))

	proj, err := ReadProject(root)
	require.NoError(t, err)
	assert.Equal(t, "my-service", proj.Name)
	assert.Equal(t, "0.0.0", proj.Version)
	assert.Empty(t, proj.Frameworks)
	assert.NotNil(t, proj.Frameworks)
}

func TestReadProject_InvalidPackageJSON(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte(`{`), 0o644))
	_, err := ReadProject(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest: parse package.json")
}

func TestBuild_EnvelopeAndStatistics(t *testing.T) {
	t.Parallel()

	m := sampleManifest()
	assert.Equal(t, Version, m.ManifestVersion)
	assert.Equal(t, "run-1", m.RunID)
	assert.Equal(t, fixedTime, m.GeneratedAt)
	assert.Equal(t, []string{}, m.Project.Frameworks)

	assert.Equal(t, Statistics{
		TotalTools:         2,
		TotalResources:     1,
		ToolsByCategory:    map[string]int{"service": 1, "data-access": 1},
		ResourcesByDialect: map[string]int{"mysql": 1},
		SourceFilesScanned: 3,
		SQLFilesScanned:    2,
		Warnings:           1,
	}, m.Statistics)
	assert.Equal(t, []string{"data-access", "service"}, m.Categories())
	assert.Equal(t, "getUser", m.ToolDescriptors()[0].Name)
}

func TestBuild_GeneratesRunID(t *testing.T) {
	t.Parallel()

	a := Build(Project{}, Input{})
	b := Build(Project{}, Input{})
	assert.NotEmpty(t, a.RunID)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.NotNil(t, a.Tools)
	assert.NotNil(t, a.Resources)
	assert.NotNil(t, a.Warnings)
}

func TestRenderInputSchema(t *testing.T) {
	t.Parallel()

	s := RenderInputSchema(sampleTool())
	assert.Equal(t, "object", s.Type)
	assert.Equal(t, []string{"id", "withPosts", "status", "owner", "later", "extra"}, s.Properties.Names())
	assert.Equal(t, []string{"id", "owner"}, s.Required)

	get := func(name string) PropertySchema {
		p, ok := s.Properties.Get(name)
		require.True(t, ok, name)
		return p
	}
	assert.Equal(t, PropertySchema{Type: "string", Description: "The user id"}, get("id"))
	assert.Equal(t, PropertySchema{Type: "string", Description: "One of: active, banned", Enum: []string{"active", "banned"}}, get("status"))
	assert.Equal(t, PropertySchema{Type: "object", Description: "User"}, get("owner"))
	assert.Equal(t, PropertySchema{Description: "Promise resolving to User (promise)"}, get("later"))
	assert.Equal(t, PropertySchema{}, get("extra"))
}

func TestValidate_AcceptsBuiltManifest(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Validate(sampleManifest()))
}

func TestValidate_ReportsDuplicateTools(t *testing.T) {
	t.Parallel()

	m := sampleManifest()
	m.Tools = append(m.Tools, m.Tools[0])

	problems := Validate(m)
	require.Len(t, problems, 1)
	assert.Equal(t, "getUser", problems[0].Tool)
	assert.Equal(t, "duplicate tool", problems[0].Message)
	assert.Equal(t, "getUser (src/services/users.ts): duplicate tool", problems[0].String())
}

func TestValidate_ReportsRequiredWithoutProperty(t *testing.T) {
	t.Parallel()

	m := sampleManifest()
	m.Tools[1].InputSchema.Required = []string{"ghost"}

	problems := Validate(m)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Message, `"ghost"`)
}

func TestValidate_ReportsDocumentProblems(t *testing.T) {
	t.Parallel()

	m := sampleManifest()
	m.Resources[0].Dialect = "oracle"

	problems := Validate(m)
	require.Len(t, problems, 1)
	assert.Empty(t, problems[0].Tool)
	assert.Contains(t, problems[0].Message, "document does not match schema")
}

func TestTool_ValidateArguments(t *testing.T) {
	t.Parallel()

	tool := sampleManifest().Tools[0]
	decode := func(s string) any {
		v, err := jsonschema.UnmarshalJSON(strings.NewReader(s))
		require.NoError(t, err)
		return v
	}

	assert.NoError(t, tool.ValidateArguments(decode(`{"id": "42", "owner": {"name": "x"}, "status": "active"}`)))
	assert.Error(t, tool.ValidateArguments(decode(`{"owner": {}}`)))
	assert.Error(t, tool.ValidateArguments(decode(`{"id": 42, "owner": {}}`)))
	assert.Error(t, tool.ValidateArguments(decode(`{"id": "42", "owner": {}, "status": "gone"}`)))
	assert.Error(t, tool.ValidateArguments(decode(`{"id": "42", "owner": {}, "unknown": true}`)))
}

func TestWrite_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleManifest(), FormatJSON))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{\n  \"manifestVersion\": \"1.0\""))
	assert.Less(t, strings.Index(out, `"withPosts"`), strings.Index(out, `"status"`))
	assert.Contains(t, out, `"inputSchema"`)
	require.NoError(t, ValidateDocument(buf.Bytes()))

	back, err := Read(&buf, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, sampleManifest(), back)
}

func TestWrite_YAMLRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleManifest(), FormatYAML))
	out := buf.String()
	assert.Contains(t, out, "manifestVersion: \"1.0\"")
	assert.Contains(t, out, "runId: run-1")
	assert.Less(t, strings.Index(out, "withPosts:"), strings.Index(out, "status:"))

	back, err := Read(&buf, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, sampleManifest().Tools[0].Parameters.Names(), back.Tools[0].Parameters.Names())
	assert.Equal(t, "users", back.Resources[0].Name)
	assert.Equal(t, 2, back.Statistics.TotalTools)
	assert.Empty(t, Validate(back))
}

func TestWrite_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := Write(&bytes.Buffer{}, sampleManifest(), "xml")
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	_, err = Read(strings.NewReader(""), "xml")
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestWriteFileAndReadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "manifest.yml")
	assert.Equal(t, FormatYAML, FormatForPath(path))
	assert.Equal(t, FormatJSON, FormatForPath("manifest.json"))

	require.NoError(t, WriteFile(path, sampleManifest(), FormatForPath(path)))
	back, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "shop", back.Project.Name)
}
