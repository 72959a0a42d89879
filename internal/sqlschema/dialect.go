package sqlschema

import (
	"fmt"
	"strings"
)

// Dialect is the grammar profile of one SQL variant. Profiles differ in
// lexical rules (quoting, comments), in the column attributes they accept
// and in their table options; a file using a construct a profile lacks is
// rejected by that profile.
type Dialect struct {
	Name string

	// lexical
	backtickIdents      bool
	bracketIdents       bool
	arrayBrackets       bool
	doubleQuoteIsString bool
	backslashEscapes    bool
	hashComments        bool
	dollarQuotes        bool
	casts               bool
	atIdents            bool
	batchSeparator      bool // GO on its own line ends a statement

	// column definitions
	autoIncrementWord string         // AUTO_INCREMENT, AUTOINCREMENT or ""
	identity          bool           // IDENTITY(seed, step)
	generatedIdentity bool           // GENERATED ... AS IDENTITY
	serialTypes       bool           // SERIAL, BIGSERIAL, SMALLSERIAL
	typelessColumns   bool           // columns may omit the data type
	computedColumns   bool           // name AS (expr) without a data type
	onUpdate          bool           // ON UPDATE CURRENT_TIMESTAMP
	conflictClauses   bool           // ON CONFLICT REPLACE
	columnFlags       map[string]int // extra attribute word -> operand tokens to skip

	// table definitions
	keyIndexes   bool // KEY, FULLTEXT, SPATIAL inside CREATE TABLE
	inlineIndex  bool // INDEX inside CREATE TABLE
	excludeConst bool
	tableOptions func(p *parser) error

	extraVerbs []string

	// grammar, when set, must also accept the whole file.
	grammar func(text string) error
}

var mysqlDialect = &Dialect{
	Name:                "mysql",
	backtickIdents:      true,
	doubleQuoteIsString: true,
	backslashEscapes:    true,
	hashComments:        true,
	autoIncrementWord:   "AUTO_INCREMENT",
	onUpdate:            true,
	columnFlags: map[string]int{
		"VISIBLE": 0, "INVISIBLE": 0, "COLUMN_FORMAT": 1, "STORAGE": 1, "SRID": 1,
	},
	keyIndexes:   true,
	inlineIndex:  true,
	tableOptions: mysqlTableOptions,
	extraVerbs:   []string{"LOCK", "UNLOCK", "OPTIMIZE", "RENAME", "SHOW", "DESCRIBE", "CALL", "REPLACE", "DO"},
}

var postgresDialect = &Dialect{
	Name:              "postgresql",
	arrayBrackets:     true,
	dollarQuotes:      true,
	casts:             true,
	generatedIdentity: true,
	serialTypes:       true,
	excludeConst:      true,
	tableOptions:      postgresTableOptions,
	extraVerbs:        []string{"COPY", "DO", "VACUUM", "ANALYZE", "REFRESH", "LISTEN", "NOTIFY", "DISCARD", "RESET", "SHOW", "CALL", "REINDEX", "CLUSTER", "SECURITY"},
	grammar:           postgresGrammar,
}

var sqliteDialect = &Dialect{
	Name:              "sqlite",
	backtickIdents:    true,
	bracketIdents:     true,
	autoIncrementWord: "AUTOINCREMENT",
	typelessColumns:   true,
	conflictClauses:   true,
	tableOptions:      sqliteTableOptions,
	extraVerbs:        []string{"PRAGMA", "ATTACH", "DETACH", "VACUUM", "ANALYZE", "REINDEX", "REPLACE"},
}

var mssqlDialect = &Dialect{
	Name:            "mssql",
	bracketIdents:   true,
	atIdents:        true,
	batchSeparator:  true,
	identity:        true,
	computedColumns: true,
	columnFlags: map[string]int{
		"ROWGUIDCOL": 0, "SPARSE": 0, "FILESTREAM": 0, "PERSISTED": 0,
	},
	inlineIndex:  true,
	tableOptions: mssqlTableOptions,
	extraVerbs:   []string{"EXEC", "EXECUTE", "PRINT", "DECLARE", "IF", "RAISERROR", "THROW", "TRY", "BULK", "DBCC", "WHILE"},
}

// DefaultDialects is the fixed precedence order. When a file parses under
// several dialects the first one listed wins.
var DefaultDialects = []string{"mysql", "postgresql", "sqlite", "mssql"}

var dialectsByName = map[string]*Dialect{
	"mysql":      mysqlDialect,
	"mariadb":    mysqlDialect,
	"postgresql": postgresDialect,
	"postgres":   postgresDialect,
	"pg":         postgresDialect,
	"sqlite":     sqliteDialect,
	"sqlite3":    sqliteDialect,
	"mssql":      mssqlDialect,
	"sqlserver":  mssqlDialect,
	"tsql":       mssqlDialect,
}

// Lookup returns the profile for a dialect name or alias.
func Lookup(name string) (*Dialect, error) {
	d, ok := dialectsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
	return d, nil
}

// ResolveDialects maps names to profiles, preserving order and dropping
// repeats. An empty list yields DefaultDialects.
func ResolveDialects(names []string) ([]*Dialect, error) {
	if len(names) == 0 {
		names = DefaultDialects
	}
	seen := map[*Dialect]bool{}
	out := make([]*Dialect, 0, len(names))
	for _, n := range names {
		d, err := Lookup(n)
		if err != nil {
			return nil, err
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out, nil
}

func (d *Dialect) String() string { return d.Name }

// isVerb reports whether a leading statement keyword is one this dialect
// knows but the scanner does not model.
func (d *Dialect) isVerb(word string) bool {
	if commonVerbs[word] {
		return true
	}
	for _, v := range d.extraVerbs {
		if v == word {
			return true
		}
	}
	return false
}

var commonVerbs = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "DROP": true, "SELECT": true,
	"WITH": true, "SET": true, "USE": true, "GRANT": true, "REVOKE": true,
	"COMMENT": true, "BEGIN": true, "COMMIT": true, "END": true, "START": true,
	"ROLLBACK": true, "SAVEPOINT": true, "RELEASE": true, "TRUNCATE": true,
	"MERGE": true,
}

func newSyntaxError(d *Dialect, line, col int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Dialect: d.Name, Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

// Table options

func mysqlTableOptions(p *parser) error {
	for !p.atStmtEnd() {
		tok := p.peek()
		switch {
		case p.isPunct(","):
			p.next()
		case p.isKeyword("PARTITION"):
			p.skipStatement()
		case p.isKeyword("DEFAULT"):
			p.next()
		case tok.kind == tokIdent:
			p.next()
			if p.isKeyword("SET") { // CHARACTER SET
				p.next()
			}
			p.acceptPunct("=")
			if p.atStmtEnd() {
				return p.errorf(tok, "table option %s without value", tok.text)
			}
			p.next()
		default:
			return p.errorf(tok, "unexpected %q after table definition", tok.text)
		}
	}
	return nil
}

func postgresTableOptions(p *parser) error {
	for !p.atStmtEnd() {
		tok := p.peek()
		switch {
		case p.isKeyword("INHERITS"), p.isKeyword("WITH"):
			p.next()
			if err := p.skipParens(); err != nil {
				return err
			}
		case p.isKeyword("WITHOUT"):
			p.next()
			if err := p.expectKeyword("OIDS"); err != nil {
				return err
			}
		case p.isKeyword("PARTITION"), p.isKeyword("ON"):
			p.skipStatement()
		case p.isKeyword("TABLESPACE"), p.isKeyword("USING"):
			p.next()
			if _, err := p.identName(); err != nil {
				return err
			}
		default:
			return p.errorf(tok, "unexpected %q after table definition", tok.text)
		}
	}
	return nil
}

func sqliteTableOptions(p *parser) error {
	for !p.atStmtEnd() {
		tok := p.peek()
		switch {
		case p.isPunct(","):
			p.next()
		case p.isKeyword("WITHOUT"):
			p.next()
			if err := p.expectKeyword("ROWID"); err != nil {
				return err
			}
		case p.isKeyword("STRICT"):
			p.next()
		default:
			return p.errorf(tok, "unexpected %q after table definition", tok.text)
		}
	}
	return nil
}

func mssqlTableOptions(p *parser) error {
	for !p.atStmtEnd() {
		tok := p.peek()
		switch {
		case p.isKeyword("ON"), p.isKeyword("TEXTIMAGE_ON"), p.isKeyword("FILESTREAM_ON"):
			p.next()
			if _, err := p.identName(); err != nil {
				return err
			}
			if p.isPunct("(") {
				if err := p.skipParens(); err != nil {
					return err
				}
			}
		case p.isKeyword("WITH"):
			p.next()
			if err := p.skipParens(); err != nil {
				return err
			}
		default:
			return p.errorf(tok, "unexpected %q after table definition", tok.text)
		}
	}
	return nil
}
