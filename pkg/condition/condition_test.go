package condition

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
)

func TestExprEval(t *testing.T) {
	values := model.Record{
		"accountType":  "Live",
		"remoteWork":   true,
		"hoursPerWeek": 40.0,
		"pan":          "",
		"skills":       []string{"React"},
	}

	cases := []struct {
		expr string
		want bool
	}{
		{`accountType == "Live"`, true},
		{`accountType == 'Demo'`, false},
		{`accountType != Demo`, true},
		{`remoteWork`, true},
		{`!remoteWork`, false},
		{`pan`, false},
		{`pan == null`, true},
		{`hoursPerWeek == 40`, true},
		{`remoteWork == true && hoursPerWeek != 60`, true},
		{`accountType == "Demo" || (skills && !pan)`, true},
		{`missing`, false},
		{`missing != "x"`, true},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			expr, err := Compile(tc.expr)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			if got := expr.Eval(values); got != tc.want {
				t.Fatalf("eval %q: want %v, got %v", tc.expr, tc.want, got)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	for _, src := range []string{`a = "b"`, `a && `, `(a == 1`, `"x" == a`, `a == "open`} {
		if _, err := Compile(src); err == nil {
			t.Fatalf("expected error compiling %q", src)
		}
	}
	if _, err := Compile("   "); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestExprFieldsAndNil(t *testing.T) {
	expr := MustCompile(`accountType == "Live" && (pan || accountType != "Demo")`)
	if diff := cmp.Diff([]string{"accountType", "pan"}, expr.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	var empty *Expr
	if !empty.Eval(nil) {
		t.Fatalf("nil expression should evaluate to true")
	}
}
