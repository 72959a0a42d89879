package sqlschema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jward/surveyor/internal/descriptor"
)

const mysqlSchema = `-- users table
CREATE TABLE ` + "`users`" + ` (
  ` + "`id`" + ` INT UNSIGNED NOT NULL AUTO_INCREMENT,
  ` + "`email`" + ` VARCHAR(255) NOT NULL,
  ` + "`bio`" + ` TEXT,
  ` + "`active`" + ` TINYINT(1) NOT NULL DEFAULT 1,
  ` + "`created_at`" + ` TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
  PRIMARY KEY (` + "`id`" + `),
  UNIQUE KEY ` + "`uniq_email`" + ` (` + "`email`" + `),
  KEY (` + "`created_at`" + `)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`

const postgresSchema = `CREATE TABLE IF NOT EXISTS public.accounts (
  id BIGSERIAL PRIMARY KEY,
  owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  tags TEXT[] DEFAULT '{}'::text[],
  balance NUMERIC(12, 2) DEFAULT 0.00,
  opened_at TIMESTAMP WITH TIME ZONE DEFAULT now()
);

CREATE INDEX ON accounts (owner_id);
CREATE UNIQUE INDEX accounts_owner_tags_key ON accounts USING btree (owner_id, lower(tags));
`

const sqliteSchema = `CREATE TABLE notes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  body,
  author_id INTEGER REFERENCES authors
) WITHOUT ROWID;
`

const mssqlSchema = `CREATE TABLE [dbo].[orders] (
    [id] INT IDENTITY(1,1) NOT NULL,
    [total] DECIMAL(10, 2) NULL,
    [note] NVARCHAR(MAX) NULL,
    CONSTRAINT [PK_orders] PRIMARY KEY CLUSTERED ([id] ASC)
) ON [PRIMARY]
GO
`

const ansiSchema = `CREATE TABLE tags (id INT PRIMARY KEY, label VARCHAR(20));`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func scanFiles(t *testing.T, dialects []string, files map[string]string, order ...string) ([]descriptor.ResourceDescriptor, []descriptor.Warning) {
	t.Helper()
	root := writeFiles(t, files)
	s, err := NewScanner(root, dialects)
	require.NoError(t, err)
	return s.Scan(context.Background(), order)
}

func column(t *testing.T, r descriptor.ResourceDescriptor, name string) descriptor.ColumnSchema {
	t.Helper()
	c, ok := r.Columns.Get(name)
	require.True(t, ok, "column %q missing from %s", name, r.Name)
	return c
}

func intPtr(n int) *int { return &n }

func TestScan_MySQLOnlyFile(t *testing.T) {
	t.Parallel()

	resources, warnings := scanFiles(t, nil, map[string]string{"db/users.sql": mysqlSchema}, "db/users.sql")
	require.Empty(t, warnings)
	require.Len(t, resources, 1)

	users := resources[0]
	assert.Equal(t, "users", users.Name)
	assert.Equal(t, "mysql", users.Dialect)
	assert.Equal(t, "db/users.sql", users.SourceFile)
	assert.Equal(t, []string{"id", "email", "bio", "active", "created_at"}, users.Columns.Names())

	assert.Equal(t, descriptor.ColumnSchema{Type: "INT UNSIGNED", Nullable: false, PrimaryKey: true, AutoIncrement: true}, column(t, users, "id"))
	assert.Equal(t, descriptor.ColumnSchema{Type: "VARCHAR", Length: intPtr(255)}, column(t, users, "email"))
	assert.Equal(t, descriptor.ColumnSchema{Type: "TEXT", Nullable: true}, column(t, users, "bio"))
	assert.Equal(t, descriptor.ColumnSchema{Type: "TINYINT", Length: intPtr(1), DefaultValue: int64(1)}, column(t, users, "active"))
	assert.Equal(t, "CURRENT_TIMESTAMP", column(t, users, "created_at").DefaultValue)

	assert.Equal(t, []string{"uniq_email", "users_created_at_idx"}, users.Indexes)
	assert.Empty(t, users.ForeignKeys)
}

func TestScan_PostgresOnlyFile(t *testing.T) {
	t.Parallel()

	resources, warnings := scanFiles(t, nil, map[string]string{"accounts.sql": postgresSchema}, "accounts.sql")
	require.Empty(t, warnings)
	require.Len(t, resources, 1)

	acc := resources[0]
	assert.Equal(t, "accounts", acc.Name)
	assert.Equal(t, "postgresql", acc.Dialect)

	assert.Equal(t, descriptor.ColumnSchema{Type: "BIGSERIAL", Nullable: true, PrimaryKey: true, AutoIncrement: true}, column(t, acc, "id"))
	assert.Equal(t, descriptor.ColumnSchema{Type: "TEXT[]", Nullable: true, DefaultValue: "{}"}, column(t, acc, "tags"))
	assert.Equal(t, descriptor.ColumnSchema{Type: "NUMERIC", Nullable: true, Length: intPtr(12), DefaultValue: float64(0)}, column(t, acc, "balance"))
	assert.Equal(t, descriptor.ColumnSchema{Type: "TIMESTAMP WITH TIME ZONE", Nullable: true, DefaultValue: "now()"}, column(t, acc, "opened_at"))
	assert.False(t, column(t, acc, "owner_id").Nullable)

	assert.Equal(t, []descriptor.ForeignKey{{Column: "owner_id", ReferencesTable: "users", ReferencesColumn: "id"}}, acc.ForeignKeys)
	assert.Equal(t, []string{"accounts_owner_id_idx", "accounts_owner_tags_key"}, acc.Indexes)
}

func TestScan_SQLiteOnlyFile(t *testing.T) {
	t.Parallel()

	resources, warnings := scanFiles(t, nil, map[string]string{"notes.sql": sqliteSchema}, "notes.sql")
	require.Empty(t, warnings)
	require.Len(t, resources, 1)

	notes := resources[0]
	assert.Equal(t, "sqlite", notes.Dialect)
	assert.True(t, column(t, notes, "id").AutoIncrement)
	assert.Equal(t, descriptor.ColumnSchema{Type: "", Nullable: true}, column(t, notes, "body"))
	assert.Equal(t, []descriptor.ForeignKey{{Column: "author_id", ReferencesTable: "authors"}}, notes.ForeignKeys)
}

func TestScan_MSSQLOnlyFile(t *testing.T) {
	t.Parallel()

	resources, warnings := scanFiles(t, nil, map[string]string{"orders.sql": mssqlSchema}, "orders.sql")
	require.Empty(t, warnings)
	require.Len(t, resources, 1)

	orders := resources[0]
	assert.Equal(t, "orders", orders.Name)
	assert.Equal(t, "mssql", orders.Dialect)
	assert.Equal(t, descriptor.ColumnSchema{Type: "INT", PrimaryKey: true, AutoIncrement: true}, column(t, orders, "id"))
	assert.Equal(t, descriptor.ColumnSchema{Type: "DECIMAL", Nullable: true, Length: intPtr(10)}, column(t, orders, "total"))
	assert.Equal(t, descriptor.ColumnSchema{Type: "NVARCHAR", Nullable: true}, column(t, orders, "note"))
	assert.Empty(t, orders.Indexes)
}

func TestScan_AmbiguousFileFollowsDialectOrder(t *testing.T) {
	t.Parallel()

	resources, _ := scanFiles(t, nil, map[string]string{"tags.sql": ansiSchema}, "tags.sql")
	require.Len(t, resources, 1)
	assert.Equal(t, "mysql", resources[0].Dialect)

	resources, _ = scanFiles(t, []string{"sqlite", "mysql"}, map[string]string{"tags.sql": ansiSchema}, "tags.sql")
	require.Len(t, resources, 1)
	assert.Equal(t, "sqlite", resources[0].Dialect)
}

func TestScan_ValidFileWithoutTables(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"seed.sql":  "INSERT INTO tags (id, label) VALUES (1, 'a');\nUPDATE tags SET label = 'b' WHERE id = 1;\n",
		"empty.sql": "  \n\t\n",
	}
	resources, warnings := scanFiles(t, nil, files, "seed.sql", "empty.sql")
	assert.Empty(t, resources)
	assert.Empty(t, warnings)
}

func TestScan_UnparseableFileWarnsOnce(t *testing.T) {
	t.Parallel()

	root := writeFiles(t, map[string]string{
		"junk.sql": "this is not sql at all (",
		"tags.sql": ansiSchema,
	})
	core, logs := observer.New(zapcore.WarnLevel)
	s, err := NewScanner(root, nil, WithLogger(zap.New(core)))
	require.NoError(t, err)

	resources, warnings := s.Scan(context.Background(), []string{"junk.sql", "tags.sql"})
	require.Len(t, warnings, 1)
	assert.Equal(t, "junk.sql", warnings[0].File)
	assert.Contains(t, warnings[0].Message, "no dialect could parse file")
	assert.Equal(t, 1, logs.Len())

	require.Len(t, resources, 1)
	assert.Equal(t, "tags", resources[0].Name)
}

func TestScan_AlterTableAndCreateIndexAttach(t *testing.T) {
	t.Parallel()

	src := `CREATE TABLE posts (id INT PRIMARY KEY, author_id INT, title VARCHAR(100));
CREATE TABLE authors (id INT PRIMARY KEY);
ALTER TABLE posts ADD CONSTRAINT fk_author FOREIGN KEY (author_id) REFERENCES authors (id);
ALTER TABLE posts ADD COLUMN published BOOLEAN DEFAULT FALSE;
CREATE INDEX idx_posts_title ON posts (title);
CREATE INDEX idx_missing ON elsewhere (x);
`
	resources, warnings := scanFiles(t, nil, map[string]string{"blog.sql": src}, "blog.sql")
	require.Empty(t, warnings)
	require.Len(t, resources, 2)

	posts := resources[0]
	assert.Equal(t, "posts", posts.Name)
	assert.Equal(t, []string{"id", "author_id", "title", "published"}, posts.Columns.Names())
	assert.Equal(t, false, column(t, posts, "published").DefaultValue)
	assert.Equal(t, []string{"idx_posts_title"}, posts.Indexes)
	assert.Equal(t, []descriptor.ForeignKey{{Column: "author_id", ReferencesTable: "authors", ReferencesColumn: "id"}}, posts.ForeignKeys)
	assert.Equal(t, "authors", resources[1].Name)
}

func TestScan_FirstDefinitionWins(t *testing.T) {
	t.Parallel()

	src := "CREATE TABLE t (a INT);\nCREATE TABLE IF NOT EXISTS t (b INT, c INT);\n"
	resources, _ := scanFiles(t, nil, map[string]string{"t.sql": src}, "t.sql")
	require.Len(t, resources, 1)
	assert.Equal(t, []string{"a"}, resources[0].Columns.Names())
}

func TestScan_SkipsRoutineBodies(t *testing.T) {
	t.Parallel()

	mysqlTrigger := "CREATE TABLE t (id INT, x INT);\n" +
		"CREATE TRIGGER trg BEFORE INSERT ON t FOR EACH ROW BEGIN SET NEW.x = 1; END;\n"
	pgFunction := "CREATE FUNCTION touch() RETURNS trigger AS $$ BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;\n" +
		"CREATE TABLE items (id SERIAL PRIMARY KEY);\n"

	resources, warnings := scanFiles(t, nil, map[string]string{"a.sql": mysqlTrigger, "b.sql": pgFunction}, "a.sql", "b.sql")
	require.Empty(t, warnings)
	require.Len(t, resources, 2)
	assert.Equal(t, "mysql", resources[0].Dialect)
	assert.Equal(t, "items", resources[1].Name)
	assert.Equal(t, "postgresql", resources[1].Dialect)
}

func TestScan_LastModifiedAndMissingFile(t *testing.T) {
	t.Parallel()

	root := writeFiles(t, map[string]string{"tags.sql": ansiSchema})
	info, err := os.Stat(filepath.Join(root, "tags.sql"))
	require.NoError(t, err)

	s, err := NewScanner(root, nil)
	require.NoError(t, err)
	resources, warnings := s.Scan(context.Background(), []string{"tags.sql", "gone.sql"})

	require.Len(t, resources, 1)
	assert.True(t, info.ModTime().Equal(resources[0].LastModified))
	require.Len(t, warnings, 1)
	assert.Equal(t, "gone.sql", warnings[0].File)
}

func TestScan_ParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"a.sql": mysqlSchema, "b.sql": postgresSchema, "c.sql": sqliteSchema,
		"d.sql": mssqlSchema, "e.sql": "garbage (", "f.sql": ansiSchema,
	}
	order := []string{"a.sql", "b.sql", "c.sql", "d.sql", "e.sql", "f.sql"}
	root := writeFiles(t, files)

	seq, err := NewScanner(root, nil)
	require.NoError(t, err)
	par, err := NewScanner(root, nil, WithParallel(true), WithWorkers(3))
	require.NoError(t, err)

	seqRes, seqWarn := seq.Scan(context.Background(), order)
	parRes, parWarn := par.Scan(context.Background(), order)
	assert.Equal(t, seqRes, parRes)
	assert.Equal(t, seqWarn, parWarn)
	assert.Len(t, seqRes, 5)
	assert.Len(t, seqWarn, 1)
}

func TestDetect_ReportsEveryAttempt(t *testing.T) {
	t.Parallel()

	s, err := NewScanner("", []string{"mysql", "postgresql"})
	require.NoError(t, err)

	_, _, err = s.Detect("CREATE TABLE (")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoDialect))

	var syntaxErr *SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
	assert.Equal(t, "mysql", syntaxErr.Dialect)
	assert.Equal(t, 1, syntaxErr.Line)
	assert.Contains(t, err.Error(), "postgresql:")
}

func TestNewScanner_UnknownDialect(t *testing.T) {
	t.Parallel()

	_, err := NewScanner("", []string{"mysql", "oracle"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownDialect))
}

func TestNewScanner_DialectOrder(t *testing.T) {
	t.Parallel()

	s, err := NewScanner("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDialects, s.Dialects())

	s, err = NewScanner("", []string{"sqlite", "mysql"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sqlite", "mysql"}, s.Dialects())
}

func TestScan_KeyColumnFallsThroughToPostgres(t *testing.T) {
	t.Parallel()

	src := "CREATE TABLE settings (key VARCHAR(255) NOT NULL, value TEXT);\n"
	resources, warnings := scanFiles(t, nil, map[string]string{"settings.sql": src}, "settings.sql")
	require.Empty(t, warnings)
	require.Len(t, resources, 1)

	settings := resources[0]
	assert.Equal(t, "postgresql", settings.Dialect)
	assert.Equal(t, []string{"key", "value"}, settings.Columns.Names())
	assert.Equal(t, descriptor.ColumnSchema{Type: "VARCHAR", Length: intPtr(255)}, column(t, settings, "key"))
	assert.Empty(t, settings.Indexes)
}

func TestScan_DerivedTableWithoutColumns(t *testing.T) {
	t.Parallel()

	src := "CREATE TABLE archive AS SELECT * FROM orders WHERE 1 = 0;\n"
	resources, warnings := scanFiles(t, nil, map[string]string{"archive.sql": src}, "archive.sql")
	require.Empty(t, warnings)
	require.Len(t, resources, 1)
	assert.Equal(t, "archive", resources[0].Name)
	assert.Empty(t, resources[0].Columns)
}
