package condition

import (
	"fmt"
	"strconv"
)

type parser struct {
	toks []tok
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() tok {
	if p.done() {
		return tok{}
	}
	return p.toks[p.pos]
}

func (p *parser) accept(kind tokKind) bool {
	if p.done() || p.toks[p.pos].kind != kind {
		return false
	}
	p.pos++
	return true
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.accept(tokOr) {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.accept(tokAnd) {
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.accept(tokNot) {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	if p.done() {
		return nil, ErrEmpty
	}
	if p.accept(tokLParen) {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if !p.accept(tokRParen) {
			return nil, fmt.Errorf("condition: missing ')'")
		}
		return inner, nil
	}

	ident := p.peek()
	if ident.kind != tokIdent {
		return nil, fmt.Errorf("condition: expected field name, got %q", ident.text)
	}
	p.pos++

	switch {
	case p.accept(tokEq):
		want, err := p.literal()
		if err != nil {
			return nil, err
		}
		return compareNode{field: ident.text, want: want}, nil
	case p.accept(tokNeq):
		want, err := p.literal()
		if err != nil {
			return nil, err
		}
		return compareNode{field: ident.text, want: want, negate: true}, nil
	}
	return truthyNode{field: ident.text}, nil
}

func (p *parser) literal() (any, error) {
	if p.done() {
		return nil, fmt.Errorf("condition: missing value after comparison")
	}
	t := p.toks[p.pos]
	p.pos++
	switch t.kind {
	case tokString, tokIdent:
		return t.text, nil
	case tokNumber:
		value, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("condition: bad number %q: %w", t.text, err)
		}
		return value, nil
	case tokTrue:
		return true, nil
	case tokFalse:
		return false, nil
	case tokNull:
		return nil, nil
	default:
		return nil, fmt.Errorf("condition: expected value, got %q", t.text)
	}
}
