package condition

import (
	"errors"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuoted
	tokEq
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(s string) ([]token, error) {
	var toks []token
	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(' || r == ')':
			return nil, errors.New("grouping is not supported")
		case r == '!':
			return nil, errors.New("negation is not supported")
		case r == '=':
			if i+1 >= len(rs) || rs[i+1] != '=' {
				return nil, errors.New("use == for comparison")
			}
			toks = append(toks, token{kind: tokEq, text: "=="})
			i += 2
		case r == '\'' || r == '"':
			quote := r
			var b strings.Builder
			i++
			closed := false
			for i < len(rs) {
				c := rs[i]
				if c == '\\' && i+1 < len(rs) {
					b.WriteRune(rs[i+1])
					i += 2
					continue
				}
				if c == quote {
					closed = true
					i++
					break
				}
				b.WriteRune(c)
				i++
			}
			if !closed {
				return nil, errors.New("unterminated string literal")
			}
			toks = append(toks, token{kind: tokQuoted, text: b.String()})
		default:
			start := i
			for i < len(rs) && !unicode.IsSpace(rs[i]) && !strings.ContainsRune("=!()'\"", rs[i]) {
				i++
			}
			toks = append(toks, token{kind: tokWord, text: string(rs[start:i])})
		}
	}
	return toks, nil
}
