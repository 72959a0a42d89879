package sqlschema

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDialect is returned when every configured dialect rejected a file.
	ErrNoDialect = errors.New("sqlschema: no dialect could parse file")
	// ErrUnknownDialect is returned for a dialect name that has no profile.
	ErrUnknownDialect = errors.New("sqlschema: unknown dialect")
)

// SyntaxError is a parse failure inside one dialect attempt.
type SyntaxError struct {
	Dialect string
	Line    int
	Col     int
	Msg     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: line %d col %d: %s", e.Dialect, e.Line, e.Col, e.Msg)
}
