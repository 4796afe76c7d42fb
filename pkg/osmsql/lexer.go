package osmsql

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokStar
	tokKeyword
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

var keywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true,
	"AND": true, "OR": true, "NOT": true,
	"IS": true, "NULL": true, "IN": true, "LIKE": true,
}

func lex(src string) ([]token, error) {
	var toks []token
	rs := []rune(src)
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		case r == '*':
			toks = append(toks, token{kind: tokStar, text: "*", pos: i})
			i++
		case r == '\'':
			s, n, err := readQuoted(rs, i, '\'')
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: s, pos: i})
			i = n
		case r == '"':
			s, n, err := readQuoted(rs, i, '"')
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokIdent, text: s, pos: i})
			i = n
		case r == '=' || r == '<' || r == '>' || r == '!':
			op := string(r)
			if i+1 < len(rs) {
				two := string(rs[i : i+2])
				if two == "<>" || two == "!=" || two == "<=" || two == ">=" {
					op = two
				}
			}
			if op == "!" {
				return nil, fmt.Errorf("%w: unexpected '!' at %d", ErrSyntax, i)
			}
			toks = append(toks, token{kind: tokOp, text: op, pos: i})
			i += len(op)
		case unicode.IsDigit(r) || ((r == '-' || r == '.') && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			start := i
			i++
			for i < len(rs) && (unicode.IsDigit(rs[i]) || rs[i] == '.' || rs[i] == 'e' || rs[i] == 'E') {
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: string(rs[start:i]), pos: start})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(rs) && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_') {
				i++
			}
			word := string(rs[start:i])
			if keywords[strings.ToUpper(word)] {
				toks = append(toks, token{kind: tokKeyword, text: strings.ToUpper(word), pos: start})
			} else {
				toks = append(toks, token{kind: tokIdent, text: word, pos: start})
			}
		default:
			return nil, fmt.Errorf("%w: unexpected character %q at %d", ErrSyntax, r, i)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(rs)}), nil
}

// readQuoted reads a quoted literal starting at rs[start]; a doubled quote
// inside the literal is an escaped quote.
func readQuoted(rs []rune, start int, q rune) (string, int, error) {
	var sb strings.Builder
	i := start + 1
	for i < len(rs) {
		if rs[i] == q {
			if i+1 < len(rs) && rs[i+1] == q {
				sb.WriteRune(q)
				i += 2
				continue
			}
			return sb.String(), i + 1, nil
		}
		sb.WriteRune(rs[i])
		i++
	}
	return "", 0, fmt.Errorf("%w: unterminated literal at %d", ErrSyntax, start)
}
