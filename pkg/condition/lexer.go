package condition

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokKind int

const (
	tokIdent tokKind = iota
	tokString
	tokNumber
	tokTrue
	tokFalse
	tokNull
	tokEq
	tokNeq
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type tok struct {
	kind tokKind
	text string
}

var operators = []struct {
	text string
	kind tokKind
}{
	{"==", tokEq},
	{"!=", tokNeq},
	{"&&", tokAnd},
	{"||", tokOr},
	{"!", tokNot},
	{"(", tokLParen},
	{")", tokRParen},
}

func lex(src string) ([]tok, error) {
	var out []tok
	rest := src
	for {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		if rest == "" {
			return out, nil
		}

		if matched, ok := matchOperator(rest); ok {
			out = append(out, matched)
			rest = rest[len(matched.text):]
			continue
		}

		switch rest[0] {
		case '"', '\'':
			value, n, err := scanString(rest)
			if err != nil {
				return nil, err
			}
			out = append(out, tok{kind: tokString, text: value})
			rest = rest[n:]
			continue
		case '=', '&', '|':
			return nil, fmt.Errorf("condition: dangling %q", rest[0])
		}

		end := strings.IndexFunc(rest, func(r rune) bool {
			return unicode.IsSpace(r) || strings.ContainsRune("()!=&|\"'", r)
		})
		if end < 0 {
			end = len(rest)
		}
		word := rest[:end]
		rest = rest[end:]
		out = append(out, classify(word))
	}
}

func matchOperator(rest string) (tok, bool) {
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			return tok{kind: op.kind, text: op.text}, true
		}
	}
	return tok{}, false
}

func scanString(rest string) (string, int, error) {
	quote := rest[0]
	for i := 1; i < len(rest); i++ {
		switch rest[i] {
		case '\\':
			i++
		case quote:
			raw := rest[:i+1]
			if quote == '\'' {
				raw = `"` + strings.ReplaceAll(rest[1:i], `"`, `\"`) + `"`
			}
			value, err := strconv.Unquote(raw)
			if err != nil {
				return "", 0, fmt.Errorf("condition: bad string literal %s: %w", rest[:i+1], err)
			}
			return value, i + 1, nil
		}
	}
	return "", 0, fmt.Errorf("condition: unterminated string in %q", rest)
}

func classify(word string) tok {
	switch strings.ToLower(word) {
	case "true":
		return tok{kind: tokTrue, text: word}
	case "false":
		return tok{kind: tokFalse, text: word}
	case "null", "nil":
		return tok{kind: tokNull, text: word}
	}
	if _, err := strconv.ParseFloat(word, 64); err == nil {
		return tok{kind: tokNumber, text: word}
	}
	return tok{kind: tokIdent, text: word}
}
