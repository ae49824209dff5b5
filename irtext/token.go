package irtext

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokLocal  // %name
	tokGlobal // @name
	tokNumber
	tokString
	tokPunct // ( ) { } [ ] , = :
)

type token struct {
	kind    tokenKind
	text    string // ident/number text, local/global name without sigil
	isFloat bool
	line    int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokLocal:
		return "%" + t.text
	case tokGlobal:
		return "@" + t.text
	case tokString:
		return fmt.Sprintf("%q", t.text)
	}
	return t.text
}

func isIdentRune(r rune, first bool) bool {
	if unicode.IsLetter(r) || r == '_' {
		return true
	}
	if !first && (unicode.IsDigit(r) || r == '.') {
		return true
	}
	return false
}

// tokenize splits source text into tokens. Comments run from ';' to the end
// of the line.
func tokenize(src string) ([]token, error) {
	var toks []token
	line := 1
	rs := []rune(src)
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case r == '\n':
			line++
			i++
		case unicode.IsSpace(r):
			i++
		case r == ';':
			for i < len(rs) && rs[i] != '\n' {
				i++
			}
		case r == '%' || r == '@':
			sigil := r
			i++
			start := i
			for i < len(rs) && isIdentRune(rs[i], i == start) {
				i++
			}
			if i == start {
				return nil, fmt.Errorf("line %d: empty name after %q", line, string(sigil))
			}
			kind := tokLocal
			if sigil == '@' {
				kind = tokGlobal
			}
			toks = append(toks, token{kind: kind, text: string(rs[start:i]), line: line})
		case r == '"':
			i++
			var sb strings.Builder
			closed := false
			for i < len(rs) {
				if rs[i] == '\\' && i+1 < len(rs) {
					sb.WriteRune(rs[i+1])
					i += 2
					continue
				}
				if rs[i] == '"' {
					closed = true
					i++
					break
				}
				if rs[i] == '\n' {
					line++
				}
				sb.WriteRune(rs[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("line %d: unterminated string", line)
			}
			toks = append(toks, token{kind: tokString, text: sb.String(), line: line})
		case unicode.IsDigit(r) || r == '-':
			start := i
			if r == '-' {
				i++
				if i >= len(rs) || !unicode.IsDigit(rs[i]) {
					return nil, fmt.Errorf("line %d: stray '-'", line)
				}
			}
			isFloat := false
			for i < len(rs) && (unicode.IsDigit(rs[i]) || rs[i] == '.' || rs[i] == 'x' ||
				(rs[i] >= 'a' && rs[i] <= 'f') || (rs[i] >= 'A' && rs[i] <= 'F')) {
				if rs[i] == '.' {
					isFloat = true
				}
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: string(rs[start:i]), isFloat: isFloat, line: line})
		case isIdentRune(r, true):
			start := i
			for i < len(rs) && isIdentRune(rs[i], i == start) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: string(rs[start:i]), line: line})
		case strings.ContainsRune("(){}[],=:", r):
			toks = append(toks, token{kind: tokPunct, text: string(r), line: line})
			i++
		default:
			return nil, fmt.Errorf("line %d: unexpected character %q", line, string(r))
		}
	}
	toks = append(toks, token{kind: tokEOF, line: line})
	return toks, nil
}
