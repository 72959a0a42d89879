package sqlschema

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF    tokenKind = iota
	tokIdent            // bare word, compared case-insensitively as a keyword
	tokQuoted           // quoted identifier, never a keyword
	tokString           // string literal, quotes removed
	tokNumber
	tokPunct
)

type token struct {
	kind        tokenKind
	text        string
	line, col   int
	firstOnLine bool
}

// lexer splits SQL text into tokens under the quoting and comment rules of
// one dialect. Characters a dialect does not allow are syntax errors.
type lexer struct {
	d    *Dialect
	src  string
	pos  int
	line int
	col  int

	lastLine int
}

func tokenize(d *Dialect, src string) ([]token, error) {
	lx := &lexer{d: d, src: src, line: 1, col: 1}
	var toks []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) errorf(line, col int, format string, args ...any) error {
	return newSyntaxError(lx.d, line, col, format, args...)
}

func (lx *lexer) peekByte(off int) byte {
	if lx.pos+off < len(lx.src) {
		return lx.src[lx.pos+off]
	}
	return 0
}

func (lx *lexer) advance(n int) {
	for i := 0; i < n && lx.pos < len(lx.src); i++ {
		if lx.src[lx.pos] == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}
		lx.pos++
	}
}

func (lx *lexer) skipSpaceAndComments() error {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f':
			lx.advance(1)
		case c == '-' && lx.peekByte(1) == '-':
			lx.skipLine()
		case c == '#' && lx.d.hashComments:
			lx.skipLine()
		case c == '/' && lx.peekByte(1) == '*':
			line, col := lx.line, lx.col
			end := strings.Index(lx.src[lx.pos+2:], "*/")
			if end < 0 {
				return lx.errorf(line, col, "unterminated block comment")
			}
			lx.advance(end + 4)
		default:
			return nil
		}
	}
	return nil
}

func (lx *lexer) skipLine() {
	for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
		lx.advance(1)
	}
}

func (lx *lexer) next() (token, error) {
	if err := lx.skipSpaceAndComments(); err != nil {
		return token{}, err
	}
	tok := token{line: lx.line, col: lx.col, firstOnLine: lx.line != lx.lastLine}
	lx.lastLine = lx.line
	if lx.pos >= len(lx.src) {
		tok.kind = tokEOF
		return tok, nil
	}

	c := lx.src[lx.pos]
	switch {
	case c == '\'':
		s, err := lx.quoted('\'', '\'', lx.d.backslashEscapes)
		tok.kind, tok.text = tokString, s
		return tok, err

	case c == '"':
		s, err := lx.quoted('"', '"', lx.d.doubleQuoteIsString && lx.d.backslashEscapes)
		tok.text = s
		tok.kind = tokQuoted
		if lx.d.doubleQuoteIsString {
			tok.kind = tokString
		}
		return tok, err

	case c == '`':
		if !lx.d.backtickIdents {
			return tok, lx.errorf(tok.line, tok.col, "unexpected character '`'")
		}
		s, err := lx.quoted('`', '`', false)
		tok.kind, tok.text = tokQuoted, s
		return tok, err

	case c == '[':
		if lx.d.bracketIdents {
			s, err := lx.quoted('[', ']', false)
			tok.kind, tok.text = tokQuoted, s
			return tok, err
		}
		if !lx.d.arrayBrackets {
			return tok, lx.errorf(tok.line, tok.col, "unexpected character '['")
		}
		lx.advance(1)
		tok.kind, tok.text = tokPunct, "["
		return tok, nil

	case c == '$' && lx.d.dollarQuotes:
		if s, ok, err := lx.dollarQuoted(); ok || err != nil {
			tok.kind, tok.text = tokString, s
			return tok, err
		}
		// $1 placeholders
		lx.advance(1)
		start := lx.pos
		for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
			lx.advance(1)
		}
		tok.kind, tok.text = tokIdent, "$"+lx.src[start:lx.pos]
		return tok, nil

	case isDigit(c) || (c == '.' && isDigit(lx.peekByte(1))):
		tok.kind, tok.text = tokNumber, lx.number()
		return tok, nil

	case c == ':' && lx.peekByte(1) == ':' && lx.d.casts:
		lx.advance(2)
		tok.kind, tok.text = tokPunct, "::"
		return tok, nil
	}

	r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
	if isIdentStart(r) || (r == '@' && lx.d.atIdents) || (r == '#' && lx.d.atIdents) {
		start := lx.pos
		lx.advance(size)
		for lx.pos < len(lx.src) {
			r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
			if !isIdentPart(r) && !(r == '@' && lx.d.atIdents) && !(r == '#' && lx.d.atIdents) {
				break
			}
			lx.advance(size)
		}
		word := lx.src[start:lx.pos]
		// N'...', E'...', X'...', B'...' literal prefixes.
		if len(word) == 1 && lx.peekByte(0) == '\'' && strings.ContainsAny(word, "NnEeXxBb") {
			s, err := lx.quoted('\'', '\'', lx.d.backslashEscapes || word == "E" || word == "e")
			tok.kind, tok.text = tokString, s
			return tok, err
		}
		tok.kind, tok.text = tokIdent, word
		return tok, nil
	}

	if r < utf8.RuneSelf && strings.IndexByte("(),;.=+-*/<>!%|&~^?:{}@#]", byte(r)) >= 0 {
		lx.advance(1)
		tok.kind, tok.text = tokPunct, string(r)
		return tok, nil
	}
	return tok, lx.errorf(tok.line, tok.col, "unexpected character %q", r)
}

// quoted reads a literal delimited by open/close. A doubled closing
// delimiter stands for itself.
func (lx *lexer) quoted(open, close byte, backslash bool) (string, error) {
	line, col := lx.line, lx.col
	lx.advance(1)
	var b strings.Builder
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case backslash && c == '\\' && lx.pos+1 < len(lx.src):
			b.WriteByte(lx.src[lx.pos+1])
			lx.advance(2)
		case c == close && lx.peekByte(1) == close:
			b.WriteByte(close)
			lx.advance(2)
		case c == close:
			lx.advance(1)
			return b.String(), nil
		default:
			b.WriteByte(c)
			lx.advance(1)
		}
	}
	return "", lx.errorf(line, col, "unterminated %c-quoted text", open)
}

// dollarQuoted reads $$...$$ or $tag$...$tag$. ok is false when the text at
// the cursor is not a dollar-quote opener.
func (lx *lexer) dollarQuoted() (string, bool, error) {
	rest := lx.src[lx.pos+1:]
	end := strings.IndexByte(rest, '$')
	if end < 0 {
		return "", false, nil
	}
	tag := rest[:end]
	for _, r := range tag {
		if !isIdentPart(r) {
			return "", false, nil
		}
	}
	if tag != "" && isDigit(tag[0]) {
		return "", false, nil
	}
	delim := "$" + tag + "$"
	line, col := lx.line, lx.col
	body := lx.src[lx.pos+len(delim):]
	close := strings.Index(body, delim)
	if close < 0 {
		return "", true, lx.errorf(line, col, "unterminated dollar-quoted string")
	}
	lx.advance(len(delim) + close + len(delim))
	return body[:close], true, nil
}

func (lx *lexer) number() string {
	start := lx.pos
	if lx.src[lx.pos] == '0' && (lx.peekByte(1) == 'x' || lx.peekByte(1) == 'X') {
		lx.advance(2)
		for lx.pos < len(lx.src) && strings.IndexByte("0123456789abcdefABCDEF", lx.src[lx.pos]) >= 0 {
			lx.advance(1)
		}
		return lx.src[start:lx.pos]
	}
	for lx.pos < len(lx.src) && (isDigit(lx.src[lx.pos]) || lx.src[lx.pos] == '.') {
		lx.advance(1)
	}
	if c := lx.peekByte(0); c == 'e' || c == 'E' {
		off := 1
		if s := lx.peekByte(1); s == '+' || s == '-' {
			off = 2
		}
		if isDigit(lx.peekByte(off)) {
			lx.advance(off)
			for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
				lx.advance(1)
			}
		}
	}
	return lx.src[start:lx.pos]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
