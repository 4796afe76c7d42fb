// Package osmsql parses and evaluates the restricted SQL dialect accepted by
// the OSM driver: SELECT <columns> FROM <layer> WHERE <expression>.
//
// The WHERE grammar covers what attribute filters need:
//
//	expr    := and { OR and }
//	and     := unary { AND unary }
//	unary   := NOT unary | primary
//	primary := '(' expr ')'
//	         | operand IS [NOT] NULL
//	         | operand [NOT] IN '(' literal { ',' literal } ')'
//	         | operand [NOT] LIKE string
//	         | operand op operand
//	op      := = | <> | != | < | <= | > | >=
package osmsql

import (
	"errors"
	"fmt"
)

// ErrSyntax is returned for malformed queries.
var ErrSyntax = errors.New("osmsql: syntax error")

// Statement is a parsed SELECT query.
type Statement struct {
	Columns []string
	Layer   string
	Where   Expr // nil when the query has no WHERE clause
}

// Parse parses a SELECT statement.
func Parse(query string) (*Statement, error) {
	toks, err := lex(query)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.statement()
}

// ParseExpr parses a bare WHERE expression.
func ParseExpr(src string) (Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.errorf("unexpected %q", p.peek().text)
	}
	return e, nil
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at %d: %s", ErrSyntax, p.peek().pos, fmt.Sprintf(format, args...))
}

func (p *parser) keyword(kw string) bool {
	t := p.peek()
	if t.kind == tokKeyword && t.text == kw {
		p.i++
		return true
	}
	return false
}

func (p *parser) expect(kw string) error {
	if !p.keyword(kw) {
		return p.errorf("expected %s, got %q", kw, p.peek().text)
	}
	return nil
}

func (p *parser) statement() (*Statement, error) {
	if err := p.expect("SELECT"); err != nil {
		return nil, err
	}

	st := &Statement{}
	for {
		t := p.next()
		switch t.kind {
		case tokIdent:
			st.Columns = append(st.Columns, t.text)
		case tokStar:
			st.Columns = append(st.Columns, "*")
		default:
			return nil, p.errorf("expected column name, got %q", t.text)
		}
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}

	if err := p.expect("FROM"); err != nil {
		return nil, err
	}
	layer := p.next()
	if layer.kind != tokIdent {
		return nil, p.errorf("expected layer name, got %q", layer.text)
	}
	st.Layer = layer.text

	if p.keyword("WHERE") {
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		st.Where = e
	}
	if p.peek().kind != tokEOF {
		return nil, p.errorf("unexpected %q", p.peek().text)
	}
	return st, nil
}

func (p *parser) expr() (Expr, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.keyword("OR") {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orExpr{left, right}
	}
	return left, nil
}

func (p *parser) and() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.keyword("AND") {
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andExpr{left, right}
	}
	return left, nil
}

func (p *parser) unary() (Expr, error) {
	if p.keyword("NOT") {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notExpr{inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (Expr, error) {
	if p.peek().kind == tokLParen {
		p.next()
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, p.errorf("expected ')'")
		}
		return e, nil
	}

	left, err := p.operand()
	if err != nil {
		return nil, err
	}

	if p.keyword("IS") {
		negate := p.keyword("NOT")
		if err := p.expect("NULL"); err != nil {
			return nil, err
		}
		return isNullExpr{operand: left, negate: negate}, nil
	}

	negate := p.keyword("NOT")
	switch {
	case p.keyword("IN"):
		return p.inList(left, negate)
	case p.keyword("LIKE"):
		pat := p.next()
		if pat.kind != tokString {
			return nil, p.errorf("LIKE expects a string pattern")
		}
		return likeExpr{operand: left, pattern: pat.text, negate: negate}, nil
	case negate:
		return nil, p.errorf("expected IN or LIKE after NOT")
	}

	op := p.next()
	if op.kind != tokOp {
		return nil, p.errorf("expected comparison operator, got %q", op.text)
	}
	right, err := p.operand()
	if err != nil {
		return nil, err
	}
	return compareExpr{left: left, op: op.text, right: right}, nil
}

func (p *parser) inList(left operand, negate bool) (Expr, error) {
	if p.next().kind != tokLParen {
		return nil, p.errorf("expected '(' after IN")
	}
	var values []operand
	for {
		v, err := p.operand()
		if err != nil {
			return nil, err
		}
		if v.column != "" {
			return nil, p.errorf("IN list accepts literals only")
		}
		values = append(values, v)
		t := p.next()
		if t.kind == tokRParen {
			break
		}
		if t.kind != tokComma {
			return nil, p.errorf("expected ',' or ')' in IN list")
		}
	}
	return inExpr{operand: left, values: values, negate: negate}, nil
}

func (p *parser) operand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokIdent:
		return operand{column: t.text}, nil
	case tokString:
		return operand{literal: t.text, isLiteral: true}, nil
	case tokNumber:
		return operand{literal: t.text, isLiteral: true, numeric: true}, nil
	case tokKeyword:
		if t.text == "NULL" {
			return operand{isLiteral: true, null: true}, nil
		}
	}
	return operand{}, fmt.Errorf("%w at %d: unexpected %q", ErrSyntax, t.pos, t.text)
}
