package sqlschema

import (
	"errors"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	pgparser "github.com/pganalyze/pg_query_go/v6/parser"
)

// postgresGrammar checks text against the PostgreSQL server's own raw
// grammar. It decides acceptance only; tables are still read by the
// profile parser so every dialect yields the same descriptor shape.
func postgresGrammar(text string) error {
	if _, err := pg_query.Parse(text); err != nil {
		serr := &SyntaxError{Dialect: "postgresql", Msg: err.Error()}
		var perr *pgparser.Error
		if errors.As(err, &perr) {
			serr.Msg = perr.Message
			serr.Line, serr.Col = position(text, perr.Cursorpos)
		}
		return serr
	}
	return nil
}

// position converts a 1-based byte offset into a line and column.
func position(text string, offset int) (line, col int) {
	if offset <= 0 {
		return 0, 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	before := text[:offset-1]
	line = strings.Count(before, "\n") + 1
	col = offset - strings.LastIndex(before, "\n") - 1
	return line, col
}
