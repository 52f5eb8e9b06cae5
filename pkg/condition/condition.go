// Package condition compiles the small boolean expressions used by field
// schemas to decide visibility and conditional requiredness, for example
// `accountType == "Live"` or `remoteWork && hoursPerWeek != 60`.
//
// Grammar:
//
//	expr    := and ( "||" and )*
//	and     := unary ( "&&" unary )*
//	unary   := "!" unary | primary
//	primary := "(" expr ")" | ident [ ("==" | "!=") literal ]
//	literal := string | number | true | false | null | ident
//
// A bare identifier is truthy when the referenced value is non-empty.
package condition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
)

// ErrEmpty is returned when compiling an expression without any tokens.
var ErrEmpty = errors.New("condition: empty expression")

// Expr is a compiled condition. The zero value and nil always evaluate to true.
type Expr struct {
	source string
	root   node
}

// Compile parses the expression once so it can be evaluated against many
// records.
func Compile(source string) (*Expr, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return nil, ErrEmpty
	}
	toks, err := lex(trimmed)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("condition: unexpected %q in %q", p.peek().text, trimmed)
	}
	return &Expr{source: trimmed, root: root}, nil
}

// MustCompile is Compile for package-level declarations.
func MustCompile(source string) *Expr {
	expr, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return expr
}

// String returns the original expression.
func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	return e.source
}

// Eval evaluates the expression against the record.
func (e *Expr) Eval(values model.Record) bool {
	if e == nil || e.root == nil {
		return true
	}
	return e.root.eval(values)
}

// Fields lists the identifiers the expression reads, in first-use order.
func (e *Expr) Fields() []string {
	if e == nil || e.root == nil {
		return nil
	}
	var out []string
	seen := map[string]struct{}{}
	e.root.walk(func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	})
	return out
}

type node interface {
	eval(model.Record) bool
	walk(func(string))
}

type orNode struct{ left, right node }

func (n orNode) eval(v model.Record) bool { return n.left.eval(v) || n.right.eval(v) }
func (n orNode) walk(fn func(string))     { n.left.walk(fn); n.right.walk(fn) }

type andNode struct{ left, right node }

func (n andNode) eval(v model.Record) bool { return n.left.eval(v) && n.right.eval(v) }
func (n andNode) walk(fn func(string))     { n.left.walk(fn); n.right.walk(fn) }

type notNode struct{ inner node }

func (n notNode) eval(v model.Record) bool { return !n.inner.eval(v) }
func (n notNode) walk(fn func(string))     { n.inner.walk(fn) }

type truthyNode struct{ field string }

func (n truthyNode) eval(v model.Record) bool { return truthy(v[n.field]) }
func (n truthyNode) walk(fn func(string))     { fn(n.field) }

type compareNode struct {
	field  string
	negate bool
	want   any
}

func (n compareNode) eval(v model.Record) bool {
	eq := equal(v[n.field], n.want)
	if n.negate {
		return !eq
	}
	return eq
}

func (n compareNode) walk(fn func(string)) { fn(n.field) }

func equal(got, want any) bool {
	switch w := want.(type) {
	case nil:
		return got == nil || got == ""
	case bool:
		b, ok := got.(bool)
		if !ok {
			if s, isString := got.(string); isString {
				parsed, err := strconv.ParseBool(s)
				return err == nil && parsed == w
			}
			return !w && got == nil
		}
		return b == w
	case float64:
		switch g := got.(type) {
		case float64:
			return g == w
		case int:
			return float64(g) == w
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(g), 64)
			return err == nil && parsed == w
		}
		return false
	case string:
		if got == nil {
			return w == ""
		}
		if s, ok := got.(string); ok {
			return s == w
		}
		return fmt.Sprint(got) == w
	}
	return false
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	case []string:
		return len(v) > 0
	case []model.FileHandle:
		return len(v) > 0
	default:
		return true
	}
}
