package sqlschema

import (
	"fmt"
	"strconv"
	"strings"
)

// Schema is the DDL content of one file as understood by one dialect.
type Schema struct {
	Tables []*Table
}

// Table is one CREATE TABLE definition plus the indexes and constraints
// later statements in the same file attach to it.
type Table struct {
	Name        string
	Columns     []Column
	Indexes     []Index
	ForeignKeys []ForeignKeyDef
}

type Column struct {
	Name          string
	Type          string
	Length        *int
	NotNull       bool
	PrimaryKey    bool
	AutoIncrement bool
	Default       any
}

type Index struct {
	Name    string
	Columns []string
}

type ForeignKeyDef struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Parse parses text under dialect d. Any construct outside the dialect's
// grammar fails the whole parse with a *SyntaxError. A dialect backed by a
// server grammar is checked against it after the profile parse succeeds.
func Parse(d *Dialect, text string) (*Schema, error) {
	toks, err := tokenize(d, text)
	if err != nil {
		return nil, err
	}
	p := &parser{d: d, toks: toks, schema: &Schema{}, byName: map[string]*Table{}}
	for {
		for p.acceptPunct(";") || p.acceptBatchSeparator() {
		}
		if p.peek().kind == tokEOF {
			break
		}
		if err := p.statement(); err != nil {
			return nil, err
		}
		if !p.atStmtEnd() {
			tok := p.peek()
			return nil, p.errorf(tok, "unexpected %q, expected end of statement", tok.text)
		}
	}
	if d.grammar != nil {
		if err := d.grammar(text); err != nil {
			return nil, err
		}
	}
	p.resolveReferences()
	return p.schema, nil
}

type parser struct {
	d      *Dialect
	toks   []token
	pos    int
	schema *Schema
	byName map[string]*Table
}

// Token helpers

func (p *parser) peek() token { return p.peekAt(0) }

func (p *parser) peekAt(off int) token {
	if i := p.pos + off; i < len(p.toks) {
		return p.toks[i]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() token {
	tok := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) isKeyword(word string) bool { return p.isKeywordAt(0, word) }

func (p *parser) isKeywordAt(off int, word string) bool {
	tok := p.peekAt(off)
	return tok.kind == tokIdent && strings.EqualFold(tok.text, word)
}

func (p *parser) isPunct(s string) bool {
	tok := p.peek()
	return tok.kind == tokPunct && tok.text == s
}

func (p *parser) acceptKeyword(word string) bool {
	if p.isKeyword(word) {
		p.next()
		return true
	}
	return false
}

func (p *parser) acceptPunct(s string) bool {
	if p.isPunct(s) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectKeyword(word string) error {
	if !p.acceptKeyword(word) {
		tok := p.peek()
		return p.errorf(tok, "expected %s, got %q", word, tok.text)
	}
	return nil
}

func (p *parser) expectPunct(s string) error {
	if !p.acceptPunct(s) {
		tok := p.peek()
		return p.errorf(tok, "expected %q, got %q", s, tok.text)
	}
	return nil
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return newSyntaxError(p.d, tok.line, tok.col, format, args...)
}

func (p *parser) isBatchSeparator() bool {
	return p.d.batchSeparator && p.isKeyword("GO") && p.peek().firstOnLine
}

func (p *parser) acceptBatchSeparator() bool {
	if !p.isBatchSeparator() {
		return false
	}
	p.next()
	if tok := p.peek(); tok.kind == tokNumber && !tok.firstOnLine {
		p.next() // GO n
	}
	return true
}

func (p *parser) atStmtEnd() bool {
	return p.peek().kind == tokEOF || p.isPunct(";") || p.isBatchSeparator()
}

// identName reads a bare or quoted identifier.
func (p *parser) identName() (string, error) {
	tok := p.peek()
	if tok.kind != tokIdent && tok.kind != tokQuoted {
		return "", p.errorf(tok, "expected identifier, got %q", tok.text)
	}
	p.next()
	return tok.text, nil
}

// qualifiedName reads schema.table and returns the last part.
func (p *parser) qualifiedName() (string, error) {
	name, err := p.identName()
	if err != nil {
		return "", err
	}
	for p.acceptPunct(".") {
		if name, err = p.identName(); err != nil {
			return "", err
		}
	}
	return name, nil
}

// skipParens consumes a balanced parenthesized group starting at "(".
func (p *parser) skipParens() error {
	open := p.peek()
	if err := p.expectPunct("("); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		tok := p.next()
		switch {
		case tok.kind == tokEOF:
			return p.errorf(open, "unbalanced parentheses")
		case tok.kind == tokPunct && tok.text == "(":
			depth++
		case tok.kind == tokPunct && tok.text == ")":
			depth--
		}
	}
	return nil
}

// skipToElementEnd consumes tokens up to the next "," or ")" at the current
// nesting level, or the end of the statement.
func (p *parser) skipToElementEnd() error {
	depth := 0
	for !p.atStmtEnd() {
		if depth == 0 && (p.isPunct(",") || p.isPunct(")")) {
			return nil
		}
		tok := p.next()
		if tok.kind == tokPunct {
			switch tok.text {
			case "(":
				depth++
			case ")":
				depth--
			}
		}
	}
	if depth != 0 {
		return p.errorf(p.peek(), "unbalanced parentheses")
	}
	return nil
}

// skipStatement consumes the rest of a statement. BEGIN ... END blocks
// (trigger and routine bodies) may contain semicolons.
func (p *parser) skipStatement() {
	depth := 0
	for {
		if p.peek().kind == tokEOF || p.isBatchSeparator() {
			return
		}
		if depth == 0 && p.isPunct(";") {
			return
		}
		tok := p.next()
		if tok.kind != tokIdent {
			continue
		}
		switch strings.ToUpper(tok.text) {
		case "BEGIN":
			if !p.isKeyword("TRANSACTION") && !p.isKeyword("TRAN") && !p.isKeyword("WORK") && !p.isPunct(";") {
				depth++
			}
		case "CASE":
			depth++
		case "END":
			switch {
			case p.isKeyword("IF"), p.isKeyword("LOOP"), p.isKeyword("WHILE"), p.isKeyword("REPEAT"):
				p.next()
			default:
				if p.isKeyword("CASE") || p.isKeyword("TRY") || p.isKeyword("CATCH") {
					p.next()
				}
				if depth > 0 {
					depth--
				}
			}
		}
	}
}

// Statements

func (p *parser) statement() error {
	tok := p.peek()
	if tok.kind != tokIdent {
		return p.errorf(tok, "expected statement, got %q", tok.text)
	}
	verb := strings.ToUpper(tok.text)
	switch {
	case verb == "CREATE":
		p.next()
		return p.create()
	case verb == "ALTER":
		p.next()
		return p.alter()
	case p.d.isVerb(verb):
		p.next()
		p.skipStatement()
		return nil
	}
	return p.errorf(tok, "unexpected statement %q", tok.text)
}

func (p *parser) create() error {
	virtual := false
modifiers:
	for {
		switch {
		case p.isKeyword("OR"):
			p.next()
			if err := p.expectKeyword("REPLACE"); err != nil {
				return err
			}
		case p.isKeyword("VIRTUAL"):
			p.next()
			virtual = true
		case p.isKeyword("UNIQUE"), p.isKeyword("TEMPORARY"), p.isKeyword("TEMP"), p.isKeyword("GLOBAL"),
			p.isKeyword("LOCAL"), p.isKeyword("UNLOGGED"), p.isKeyword("CLUSTERED"), p.isKeyword("NONCLUSTERED"),
			p.isKeyword("FULLTEXT"), p.isKeyword("SPATIAL"):
			p.next()
		default:
			break modifiers
		}
	}

	switch {
	case p.isKeyword("TABLE") && !virtual:
		p.next()
		return p.createTable()
	case p.isKeyword("INDEX"):
		p.next()
		return p.createIndex()
	}
	p.skipStatement()
	return nil
}

func (p *parser) createTable() error {
	if p.acceptKeyword("IF") {
		if err := p.expectKeyword("NOT"); err != nil {
			return err
		}
		if err := p.expectKeyword("EXISTS"); err != nil {
			return err
		}
	}
	name, err := p.qualifiedName()
	if err != nil {
		return err
	}
	switch {
	case p.acceptKeyword("LIKE"):
		// copies the column definitions of a table declared earlier in the file
		src, err := p.qualifiedName()
		if err != nil {
			return err
		}
		t := &Table{Name: name}
		if from, ok := p.byName[strings.ToLower(src)]; ok {
			for _, c := range from.Columns {
				t.addColumn(c)
			}
		}
		p.skipStatement()
		p.addTable(t)
		return nil
	case p.isKeyword("AS") || p.isKeyword("PARTITION") || p.isKeyword("OF"):
		// columns come from a query or a parent type the file does not define
		p.skipStatement()
		p.addTable(&Table{Name: name})
		return nil
	}

	t := &Table{Name: name}
	if err := p.expectPunct("("); err != nil {
		return err
	}
	for {
		if err := p.tableElement(t); err != nil {
			return err
		}
		if p.acceptPunct(",") {
			continue
		}
		if err := p.expectPunct(")"); err != nil {
			return err
		}
		break
	}
	if err := p.d.tableOptions(p); err != nil {
		return err
	}

	p.addTable(t)
	return nil
}

// addTable records t unless a table of the same name was already defined.
func (p *parser) addTable(t *Table) {
	key := strings.ToLower(t.Name)
	if _, dup := p.byName[key]; !dup {
		p.byName[key] = t
		p.schema.Tables = append(p.schema.Tables, t)
	}
}

func (p *parser) tableElement(t *Table) error {
	switch {
	case p.isKeyword("CONSTRAINT"):
		p.next()
		name, err := p.identName()
		if err != nil {
			return err
		}
		return p.tableConstraint(t, name)
	case p.isTableConstraintStart():
		return p.tableConstraint(t, "")
	case p.isKeyword("LIKE") && p.d.excludeConst:
		return p.skipToElementEnd()
	}
	col, err := p.columnDef(t)
	if err != nil {
		return err
	}
	t.addColumn(col)
	return nil
}

func (p *parser) isTableConstraintStart() bool {
	switch {
	case p.isKeyword("PRIMARY"), p.isKeyword("FOREIGN"), p.isKeyword("UNIQUE"), p.isKeyword("CHECK"):
		return true
	case p.isKeyword("KEY"), p.isKeyword("FULLTEXT"), p.isKeyword("SPATIAL"):
		return p.d.keyIndexes
	case p.isKeyword("INDEX"):
		return p.d.inlineIndex
	case p.isKeyword("EXCLUDE"):
		return p.d.excludeConst
	}
	return false
}

func (p *parser) acceptClustering() {
	_ = p.acceptKeyword("CLUSTERED") || p.acceptKeyword("NONCLUSTERED")
}

func (p *parser) acceptIndexType() error {
	if p.acceptKeyword("USING") {
		_, err := p.identName()
		return err
	}
	return nil
}

// tableConstraint parses a table-level constraint or index definition.
// name is the CONSTRAINT name, if any.
func (p *parser) tableConstraint(t *Table, name string) error {
	tok := p.peek()
	switch {
	case p.acceptKeyword("PRIMARY"):
		if err := p.expectKeyword("KEY"); err != nil {
			return err
		}
		p.acceptClustering()
		if err := p.acceptIndexType(); err != nil {
			return err
		}
		cols, err := p.indexColumns()
		if err != nil {
			return err
		}
		t.setPrimaryKey(cols)

	case p.acceptKeyword("UNIQUE"):
		_ = p.acceptKeyword("KEY") || p.acceptKeyword("INDEX")
		p.acceptClustering()
		if !p.isPunct("(") && !p.isKeyword("USING") {
			n, err := p.identName()
			if err != nil {
				return err
			}
			if name == "" {
				name = n
			}
		}
		if err := p.acceptIndexType(); err != nil {
			return err
		}
		cols, err := p.indexColumns()
		if err != nil {
			return err
		}
		t.addIndex(name, cols)

	case p.acceptKeyword("FOREIGN"):
		if err := p.expectKeyword("KEY"); err != nil {
			return err
		}
		if !p.isPunct("(") {
			if _, err := p.identName(); err != nil {
				return err
			}
		}
		cols, err := p.indexColumns()
		if err != nil {
			return err
		}
		if err := p.expectKeyword("REFERENCES"); err != nil {
			return err
		}
		refTable, refCols, err := p.references()
		if err != nil {
			return err
		}
		for i, c := range cols {
			fk := ForeignKeyDef{Column: c, RefTable: refTable}
			if i < len(refCols) {
				fk.RefColumn = refCols[i]
			}
			t.ForeignKeys = append(t.ForeignKeys, fk)
		}

	case p.acceptKeyword("CHECK"):
		if err := p.skipParens(); err != nil {
			return err
		}

	case p.isKeyword("DEFAULT"):
		// ALTER TABLE ... ADD CONSTRAINT df DEFAULT x FOR col
		p.next()

	case p.d.keyIndexes && (p.isKeyword("KEY") || p.isKeyword("INDEX") || p.isKeyword("FULLTEXT") || p.isKeyword("SPATIAL")),
		p.d.inlineIndex && p.isKeyword("INDEX"):
		if kind := p.next(); !strings.EqualFold(kind.text, "KEY") && !strings.EqualFold(kind.text, "INDEX") {
			_ = p.acceptKeyword("KEY") || p.acceptKeyword("INDEX")
		}
		if !p.isPunct("(") && !p.isKeyword("USING") && !p.isKeyword("CLUSTERED") && !p.isKeyword("NONCLUSTERED") {
			n, err := p.identName()
			if err != nil {
				return err
			}
			if name == "" {
				name = n
			}
		}
		p.acceptClustering()
		if err := p.acceptIndexType(); err != nil {
			return err
		}
		cols, err := p.indexColumns()
		if err != nil {
			return err
		}
		t.addIndex(name, cols)

	case p.d.excludeConst && p.acceptKeyword("EXCLUDE"):

	default:
		return p.errorf(tok, "unexpected %q in table definition", tok.text)
	}
	// trailing index options, deferrability, conflict clauses
	return p.skipToElementEnd()
}

// indexColumns reads "(col [ASC|DESC], expr(col), ...)" and returns one
// name per item: the first plain identifier in it. A list that names no
// column is a syntax error.
func (p *parser) indexColumns() ([]string, error) {
	open := p.peek()
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var cols []string
	for {
		name, depth := "", 0
		for {
			tok := p.peek()
			if tok.kind == tokEOF || p.isPunct(";") {
				return nil, p.errorf(tok, "unterminated column list")
			}
			if depth == 0 && (p.isPunct(",") || p.isPunct(")")) {
				break
			}
			switch {
			case p.isPunct("("):
				depth++
			case p.isPunct(")"):
				depth--
			case name == "" && (tok.kind == tokIdent || tok.kind == tokQuoted):
				if next := p.peekAt(1); !(next.kind == tokPunct && next.text == "(") {
					name = tok.text
				}
			}
			p.next()
		}
		if name != "" {
			cols = append(cols, name)
		}
		if p.acceptPunct(")") {
			if len(cols) == 0 {
				return nil, p.errorf(open, "column list names no column")
			}
			return cols, nil
		}
		p.next() // ","
	}
}

// references parses the target of REFERENCES and its referential actions.
func (p *parser) references() (string, []string, error) {
	table, err := p.qualifiedName()
	if err != nil {
		return "", nil, err
	}
	var cols []string
	if p.isPunct("(") {
		if cols, err = p.indexColumns(); err != nil {
			return "", nil, err
		}
	}
	for {
		switch {
		case p.isKeyword("ON") && (p.isKeywordAt(1, "DELETE") || p.isKeywordAt(1, "UPDATE")):
			p.next()
			p.next()
			if err := p.referentialAction(); err != nil {
				return "", nil, err
			}
		case p.acceptKeyword("MATCH"):
			p.next()
		case p.isKeyword("NOT") && p.isKeywordAt(1, "DEFERRABLE"):
			p.next()
			p.next()
		case p.isKeyword("NOT") && p.isKeywordAt(1, "FOR"):
			p.next()
			p.next()
			if err := p.expectKeyword("REPLICATION"); err != nil {
				return "", nil, err
			}
		case p.acceptKeyword("DEFERRABLE"):
		case p.acceptKeyword("INITIALLY"):
			p.next()
		default:
			return table, cols, nil
		}
	}
}

func (p *parser) referentialAction() error {
	switch {
	case p.acceptKeyword("CASCADE"), p.acceptKeyword("RESTRICT"):
		return nil
	case p.acceptKeyword("SET"):
		if p.acceptKeyword("NULL") || p.acceptKeyword("DEFAULT") {
			return nil
		}
	case p.acceptKeyword("NO"):
		return p.expectKeyword("ACTION")
	}
	tok := p.peek()
	return p.errorf(tok, "invalid referential action %q", tok.text)
}

func (p *parser) createIndex() error {
	p.acceptKeyword("CONCURRENTLY")
	if p.acceptKeyword("IF") {
		if err := p.expectKeyword("NOT"); err != nil {
			return err
		}
		if err := p.expectKeyword("EXISTS"); err != nil {
			return err
		}
	}
	var name string
	if !p.isKeyword("ON") {
		var err error
		if name, err = p.qualifiedName(); err != nil {
			return err
		}
	}
	if err := p.acceptIndexType(); err != nil {
		return err
	}
	if err := p.expectKeyword("ON"); err != nil {
		return err
	}
	p.acceptKeyword("ONLY")
	table, err := p.qualifiedName()
	if err != nil {
		return err
	}
	if err := p.acceptIndexType(); err != nil {
		return err
	}
	cols, err := p.indexColumns()
	if err != nil {
		return err
	}
	p.skipStatement() // INCLUDE, WHERE, WITH, ON filegroup

	if t := p.byName[strings.ToLower(table)]; t != nil {
		t.addIndex(name, cols)
	}
	return nil
}

func (p *parser) alter() error {
	if !p.acceptKeyword("TABLE") {
		p.skipStatement()
		return nil
	}
	if p.acceptKeyword("IF") {
		if err := p.expectKeyword("EXISTS"); err != nil {
			return err
		}
	}
	p.acceptKeyword("ONLY")
	name, err := p.qualifiedName()
	if err != nil {
		return err
	}
	t := p.byName[strings.ToLower(name)]
	if t == nil {
		// Tables defined elsewhere are still parsed, then discarded.
		t = &Table{Name: name}
	}

	for {
		if p.isKeyword("WITH") && (p.isKeywordAt(1, "CHECK") || p.isKeywordAt(1, "NOCHECK")) {
			p.next()
			p.next()
		}
		if p.acceptKeyword("ADD") {
			switch {
			case p.acceptKeyword("CONSTRAINT"):
				cname, err := p.identName()
				if err != nil {
					return err
				}
				if err := p.tableConstraint(t, cname); err != nil {
					return err
				}
			case p.isTableConstraintStart():
				if err := p.tableConstraint(t, ""); err != nil {
					return err
				}
			default:
				p.acceptKeyword("COLUMN")
				if p.acceptKeyword("IF") {
					if err := p.expectKeyword("NOT"); err != nil {
						return err
					}
					if err := p.expectKeyword("EXISTS"); err != nil {
						return err
					}
				}
				col, err := p.columnDef(t)
				if err != nil {
					return err
				}
				t.addColumn(col)
			}
		} else if err := p.skipToElementEnd(); err != nil {
			return err
		}
		if !p.acceptPunct(",") {
			return nil
		}
	}
}

// Columns

var columnAttrWords = map[string]bool{
	"NOT": true, "NULL": true, "PRIMARY": true, "UNIQUE": true, "CHECK": true,
	"REFERENCES": true, "CONSTRAINT": true, "DEFAULT": true, "COLLATE": true,
	"AUTO_INCREMENT": true, "AUTOINCREMENT": true, "IDENTITY": true,
	"GENERATED": true, "COMMENT": true, "ON": true, "CHARACTER": true,
	"CHARSET": true, "AS": true,
}

func (p *parser) isColumnAttrStart() bool {
	tok := p.peek()
	if tok.kind != tokIdent {
		return false
	}
	word := strings.ToUpper(tok.text)
	if columnAttrWords[word] {
		return true
	}
	_, ok := p.d.columnFlags[word]
	return ok
}

// startsCharacterType distinguishes the CHARACTER [VARYING] type from the
// CHARACTER SET attribute.
func (p *parser) startsCharacterType() bool {
	return p.isKeyword("CHARACTER") && !p.isKeywordAt(1, "SET")
}

var serialTypes = map[string]bool{
	"SERIAL": true, "BIGSERIAL": true, "SMALLSERIAL": true,
	"SERIAL2": true, "SERIAL4": true, "SERIAL8": true,
}

func (p *parser) columnDef(t *Table) (Column, error) {
	name, err := p.identName()
	if err != nil {
		return Column{}, err
	}
	col := Column{Name: name}

	switch {
	case p.isPunct(",") || p.isPunct(")") || p.atStmtEnd() || (p.isColumnAttrStart() && !p.startsCharacterType()):
		typeless := p.d.typelessColumns || (p.d.computedColumns && p.isKeyword("AS"))
		if !typeless {
			return col, p.errorf(p.peek(), "column %s has no data type", name)
		}
	default:
		if col.Type, col.Length, err = p.dataType(); err != nil {
			return col, err
		}
	}
	if p.d.serialTypes && serialTypes[col.Type] {
		col.AutoIncrement = true
	}

	var constraintName string
	for !p.atStmtEnd() && !p.isPunct(",") && !p.isPunct(")") {
		if err := p.columnAttr(t, &col, &constraintName); err != nil {
			return col, err
		}
	}
	return col, nil
}

// dataType reads a possibly multi-word type with optional arguments and
// array suffixes. The returned type is upper-cased without arguments; length
// is the first numeric argument.
func (p *parser) dataType() (string, *int, error) {
	tok := p.peek()
	if tok.kind != tokIdent && !(tok.kind == tokQuoted && p.d.typelessColumns) {
		return "", nil, p.errorf(tok, "expected data type, got %q", tok.text)
	}
	p.next()
	words := []string{strings.ToUpper(tok.text)}
	var (
		length  *int
		hasArgs bool
		suffix  string
	)
	for {
		switch {
		case p.isPunct("(") && !hasArgs:
			hasArgs = true
			n, err := p.typeArgs()
			if err != nil {
				return "", nil, err
			}
			length = n
		case p.isPunct("[") && p.d.arrayBrackets:
			p.next()
			if p.peek().kind == tokNumber {
				p.next()
			}
			if err := p.expectPunct("]"); err != nil {
				return "", nil, err
			}
			suffix += "[]"
		case p.peek().kind == tokIdent && continuesType(words, strings.ToUpper(p.peek().text)):
			words = append(words, strings.ToUpper(p.next().text))
		default:
			return strings.Join(words, " ") + suffix, length, nil
		}
	}
}

func continuesType(words []string, w string) bool {
	first, last := words[0], words[len(words)-1]
	switch w {
	case "PRECISION":
		return last == "DOUBLE"
	case "VARYING":
		return last == "CHARACTER" || last == "CHAR" || last == "BIT"
	case "CHARACTER":
		return last == "VARYING" || last == "NATIVE" || last == "NATIONAL"
	case "WITH", "WITHOUT":
		return (first == "TIMESTAMP" || first == "TIME") && len(words) == 1
	case "TIME":
		return last == "WITH" || last == "WITHOUT"
	case "ZONE":
		return last == "TIME" && len(words) > 1
	case "UNSIGNED", "SIGNED", "ZEROFILL":
		return true
	case "BIG":
		return last == "UNSIGNED"
	case "INT":
		return last == "BIG"
	}
	return false
}

// typeArgs consumes "(...)" after a type and returns its first number.
func (p *parser) typeArgs() (*int, error) {
	open := p.next()
	var length *int
	depth := 1
	for depth > 0 {
		tok := p.next()
		switch {
		case tok.kind == tokEOF:
			return nil, p.errorf(open, "unbalanced parentheses in data type")
		case tok.kind == tokPunct && tok.text == "(":
			depth++
		case tok.kind == tokPunct && tok.text == ")":
			depth--
		case tok.kind == tokNumber && length == nil:
			if n, err := strconv.Atoi(tok.text); err == nil {
				length = &n
			}
		}
	}
	return length, nil
}

func (p *parser) columnAttr(t *Table, col *Column, constraintName *string) error {
	tok := p.peek()
	word := strings.ToUpper(tok.text)
	if tok.kind != tokIdent {
		return p.errorf(tok, "unexpected %q in column %s", tok.text, col.Name)
	}
	p.next()

	switch {
	case word == "CONSTRAINT":
		name, err := p.identName()
		*constraintName = name
		return err

	case word == "NOT":
		switch {
		case p.acceptKeyword("NULL"):
			col.NotNull = true
		case p.acceptKeyword("DEFERRABLE"):
		case p.acceptKeyword("FOR"):
			return p.expectKeyword("REPLICATION")
		default:
			return p.errorf(p.peek(), "expected NULL after NOT, got %q", p.peek().text)
		}

	case word == "NULL":

	case word == "PRIMARY":
		if err := p.expectKeyword("KEY"); err != nil {
			return err
		}
		col.PrimaryKey = true
		_ = p.acceptKeyword("ASC") || p.acceptKeyword("DESC")
		p.acceptClustering()

	case word == "UNIQUE":
		_ = p.acceptKeyword("KEY")
		p.acceptClustering()
		t.addIndex(*constraintName, []string{col.Name})

	case word == "DEFAULT":
		v, err := p.defaultValue()
		if err != nil {
			return err
		}
		col.Default = v

	case p.d.autoIncrementWord != "" && word == p.d.autoIncrementWord:
		col.AutoIncrement = true

	case p.d.identity && word == "IDENTITY":
		col.AutoIncrement = true
		if p.isPunct("(") {
			return p.skipParens()
		}

	case word == "GENERATED":
		if !p.acceptKeyword("ALWAYS") {
			if err := p.expectKeyword("BY"); err != nil {
				return err
			}
			if err := p.expectKeyword("DEFAULT"); err != nil {
				return err
			}
		}
		if err := p.expectKeyword("AS"); err != nil {
			return err
		}
		if p.isKeyword("IDENTITY") {
			if !p.d.generatedIdentity {
				return p.errorf(p.peek(), "identity columns are not supported")
			}
			p.next()
			col.AutoIncrement = true
			if p.isPunct("(") {
				return p.skipParens()
			}
			return nil
		}
		return p.computedExpr()

	case word == "AS":
		return p.computedExpr()

	case word == "REFERENCES":
		refTable, refCols, err := p.references()
		if err != nil {
			return err
		}
		fk := ForeignKeyDef{Column: col.Name, RefTable: refTable}
		if len(refCols) > 0 {
			fk.RefColumn = refCols[0]
		}
		t.ForeignKeys = append(t.ForeignKeys, fk)

	case word == "CHECK":
		return p.skipParens()

	case word == "COLLATE", word == "CHARSET":
		_, err := p.identName()
		return err

	case word == "CHARACTER":
		if err := p.expectKeyword("SET"); err != nil {
			return err
		}
		_, err := p.identName()
		return err

	case word == "COMMENT":
		if s := p.next(); s.kind != tokString {
			return p.errorf(s, "expected comment string, got %q", s.text)
		}

	case word == "ON" && p.d.onUpdate && p.acceptKeyword("UPDATE"):
		p.next()
		if p.isPunct("(") {
			return p.skipParens()
		}

	case word == "ON" && p.d.conflictClauses && p.acceptKeyword("CONFLICT"):
		_, err := p.identName()
		return err

	default:
		n, ok := p.d.columnFlags[word]
		if !ok {
			return p.errorf(tok, "unexpected %q in column %s", tok.text, col.Name)
		}
		for range n {
			p.next()
		}
	}
	return nil
}

// computedExpr consumes "(expr) [STORED|VIRTUAL|PERSISTED]".
func (p *parser) computedExpr() error {
	if err := p.skipParens(); err != nil {
		return err
	}
	_ = p.acceptKeyword("STORED") || p.acceptKeyword("VIRTUAL") || p.acceptKeyword("PERSISTED")
	return nil
}

// defaultValue reads a DEFAULT expression up to the next column attribute
// and interprets it.
func (p *parser) defaultValue() (any, error) {
	start, depth := p.pos, 0
	for !p.atStmtEnd() {
		if depth == 0 && (p.isPunct(",") || p.isPunct(")")) {
			break
		}
		afterCast := p.pos > start && p.toks[p.pos-1].kind == tokPunct && p.toks[p.pos-1].text == "::"
		if depth == 0 && p.pos > start && !afterCast && p.isColumnAttrStart() {
			break
		}
		if p.isPunct("(") {
			depth++
		} else if p.isPunct(")") {
			depth--
		}
		p.next()
	}
	span := p.toks[start:p.pos]
	if len(span) == 0 {
		return nil, p.errorf(p.peek(), "DEFAULT without a value")
	}
	return interpretDefault(span), nil
}

// interpretDefault turns a literal default into a number, string or bool,
// NULL into nil, and anything else into its SQL text.
func interpretDefault(span []token) any {
	for len(span) >= 2 && isPunctTok(span[0], "(") && isPunctTok(span[len(span)-1], ")") && wrapsAll(span) {
		span = span[1 : len(span)-1]
	}
	if len(span) >= 3 && isPunctTok(span[1], "::") {
		span = span[:1]
	}
	switch len(span) {
	case 1:
		tok := span[0]
		switch tok.kind {
		case tokNumber:
			return parseNumber(tok.text)
		case tokString:
			return tok.text
		case tokIdent:
			switch strings.ToUpper(tok.text) {
			case "TRUE":
				return true
			case "FALSE":
				return false
			case "NULL":
				return nil
			}
		}
	case 2:
		if span[1].kind == tokNumber && isPunctTok(span[0], "-") {
			return parseNumber("-" + span[1].text)
		}
		if span[1].kind == tokNumber && isPunctTok(span[0], "+") {
			return parseNumber(span[1].text)
		}
	}
	return renderTokens(span)
}

// wrapsAll reports whether the opening paren at span[0] closes at the end.
func wrapsAll(span []token) bool {
	depth := 0
	for i, tok := range span {
		if isPunctTok(tok, "(") {
			depth++
		} else if isPunctTok(tok, ")") {
			depth--
			if depth == 0 && i != len(span)-1 {
				return false
			}
		}
	}
	return depth == 0
}

func isPunctTok(tok token, s string) bool {
	return tok.kind == tokPunct && tok.text == s
}

func parseNumber(text string) any {
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	return text
}

func renderTokens(span []token) string {
	var b strings.Builder
	for i, tok := range span {
		text := tok.text
		if tok.kind == tokString {
			text = "'" + strings.ReplaceAll(tok.text, "'", "''") + "'"
		}
		if i > 0 && needsSpace(span[i-1], tok) {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	return b.String()
}

func needsSpace(prev, cur token) bool {
	if prev.kind == tokPunct && (prev.text == "(" || prev.text == "." || prev.text == "::") {
		return false
	}
	if cur.kind == tokPunct && (cur.text == ")" || cur.text == "," || cur.text == "." || cur.text == "::") {
		return false
	}
	return !(cur.kind == tokPunct && cur.text == "(" && prev.kind == tokIdent)
}

// Table helpers

func (t *Table) addColumn(c Column) {
	for _, existing := range t.Columns {
		if strings.EqualFold(existing.Name, c.Name) {
			return
		}
	}
	t.Columns = append(t.Columns, c)
}

func (t *Table) setPrimaryKey(cols []string) {
	for _, name := range cols {
		for i := range t.Columns {
			if strings.EqualFold(t.Columns[i].Name, name) {
				t.Columns[i].PrimaryKey = true
			}
		}
	}
}

// addIndex records an index, synthesizing {table}_{cols}_idx when the
// definition has no name.
func (t *Table) addIndex(name string, cols []string) {
	if name == "" {
		name = fmt.Sprintf("%s_%s_idx", t.Name, strings.Join(cols, "_"))
	}
	for _, idx := range t.Indexes {
		if idx.Name == name {
			return
		}
	}
	t.Indexes = append(t.Indexes, Index{Name: name, Columns: cols})
}

func (t *Table) primaryKey() []string {
	var cols []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

// resolveReferences fills omitted referenced columns with the referenced
// table's first primary key column when that table is in the same file.
func (p *parser) resolveReferences() {
	for _, t := range p.schema.Tables {
		for i, fk := range t.ForeignKeys {
			if fk.RefColumn != "" {
				continue
			}
			if ref := p.byName[strings.ToLower(fk.RefTable)]; ref != nil {
				if pk := ref.primaryKey(); len(pk) > 0 {
					t.ForeignKeys[i].RefColumn = pk[0]
				}
			}
		}
	}
}
