package osmsql

import (
	"strconv"
	"strings"
)

// Row resolves column values. ok is false when the value is NULL.
type Row interface {
	Lookup(column string) (value string, ok bool)
}

// MapRow is a Row backed by a map.
type MapRow map[string]string

// Lookup implements Row.
func (m MapRow) Lookup(column string) (string, bool) {
	v, ok := m[column]
	return v, ok
}

// Expr is a WHERE expression. Evaluation uses SQL three-valued logic;
// Match treats UNKNOWN as false.
type Expr interface {
	eval(Row) truth
	Columns() []string
}

// Match reports whether the row satisfies e. A nil expression matches all rows.
func Match(e Expr, r Row) bool {
	if e == nil {
		return true
	}
	return e.eval(r) == truthTrue
}

type truth int8

const (
	truthFalse truth = iota
	truthTrue
	truthUnknown
)

func boolTruth(b bool) truth {
	if b {
		return truthTrue
	}
	return truthFalse
}

type operand struct {
	column    string
	literal   string
	isLiteral bool
	numeric   bool
	null      bool
}

func (o operand) value(r Row) (string, bool) {
	if o.isLiteral {
		return o.literal, !o.null
	}
	return r.Lookup(o.column)
}

func (o operand) columns() []string {
	if o.column != "" {
		return []string{o.column}
	}
	return nil
}

type orExpr struct{ left, right Expr }

func (e orExpr) eval(r Row) truth {
	l := e.left.eval(r)
	if l == truthTrue {
		return truthTrue
	}
	rt := e.right.eval(r)
	if rt == truthTrue {
		return truthTrue
	}
	if l == truthUnknown || rt == truthUnknown {
		return truthUnknown
	}
	return truthFalse
}

func (e orExpr) Columns() []string { return append(e.left.Columns(), e.right.Columns()...) }

type andExpr struct{ left, right Expr }

func (e andExpr) eval(r Row) truth {
	l := e.left.eval(r)
	if l == truthFalse {
		return truthFalse
	}
	rt := e.right.eval(r)
	if rt == truthFalse {
		return truthFalse
	}
	if l == truthUnknown || rt == truthUnknown {
		return truthUnknown
	}
	return truthTrue
}

func (e andExpr) Columns() []string { return append(e.left.Columns(), e.right.Columns()...) }

type notExpr struct{ inner Expr }

func (e notExpr) eval(r Row) truth {
	switch e.inner.eval(r) {
	case truthTrue:
		return truthFalse
	case truthFalse:
		return truthTrue
	}
	return truthUnknown
}

func (e notExpr) Columns() []string { return e.inner.Columns() }

type isNullExpr struct {
	operand operand
	negate  bool
}

func (e isNullExpr) eval(r Row) truth {
	_, ok := e.operand.value(r)
	return boolTruth(ok == e.negate)
}

func (e isNullExpr) Columns() []string { return e.operand.columns() }

type compareExpr struct {
	left  operand
	op    string
	right operand
}

func (e compareExpr) eval(r Row) truth {
	lv, lok := e.left.value(r)
	rv, rok := e.right.value(r)
	if !lok || !rok {
		return truthUnknown
	}

	c := compareValues(lv, rv)
	switch e.op {
	case "=":
		return boolTruth(c == 0)
	case "<>", "!=":
		return boolTruth(c != 0)
	case "<":
		return boolTruth(c < 0)
	case "<=":
		return boolTruth(c <= 0)
	case ">":
		return boolTruth(c > 0)
	case ">=":
		return boolTruth(c >= 0)
	}
	return truthUnknown
}

func (e compareExpr) Columns() []string {
	return append(e.left.columns(), e.right.columns()...)
}

type inExpr struct {
	operand operand
	values  []operand
	negate  bool
}

func (e inExpr) eval(r Row) truth {
	v, ok := e.operand.value(r)
	if !ok {
		return truthUnknown
	}
	found := false
	for _, candidate := range e.values {
		if cv, cok := candidate.value(r); cok && compareValues(v, cv) == 0 {
			found = true
			break
		}
	}
	return boolTruth(found != e.negate)
}

func (e inExpr) Columns() []string { return e.operand.columns() }

type likeExpr struct {
	operand operand
	pattern string
	negate  bool
}

func (e likeExpr) eval(r Row) truth {
	v, ok := e.operand.value(r)
	if !ok {
		return truthUnknown
	}
	return boolTruth(likeMatch(strings.ToLower(v), strings.ToLower(e.pattern)) != e.negate)
}

func (e likeExpr) Columns() []string { return e.operand.columns() }

// compareValues compares numerically when both sides parse as numbers and
// lexically otherwise.
func compareValues(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

// likeMatch implements LIKE with % (any run) and _ (any single character).
func likeMatch(s, pattern string) bool {
	sr := []rune(s)
	pr := []rune(pattern)

	si, pi := 0, 0
	star, match := -1, 0
	for si < len(sr) {
		switch {
		case pi < len(pr) && (pr[pi] == '_' || pr[pi] == sr[si]):
			si++
			pi++
		case pi < len(pr) && pr[pi] == '%':
			star = pi
			match = si
			pi++
		case star >= 0:
			pi = star + 1
			match++
			si = match
		default:
			return false
		}
	}
	for pi < len(pr) && pr[pi] == '%' {
		pi++
	}
	return pi == len(pr)
}
