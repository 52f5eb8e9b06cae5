package pongo

import (
	"fmt"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

var filtersOnce sync.Once

func registerFilters() {
	filtersOnce.Do(func() {
		register("trim", filterTrim)
		register("selected", filterSelected)
	})
}

func register(name string, fn pongo2.FilterFunction) {
	if !pongo2.FilterExists(name) {
		_ = pongo2.RegisterFilter(name, fn)
	}
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

// filterSelected reports whether param is the input value or one of its
// elements. Select and checkbox group templates use it to mark options.
func filterSelected(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	want := fmt.Sprint(param.Interface())
	switch v := in.Interface().(type) {
	case nil:
		return pongo2.AsValue(false), nil
	case []any:
		for _, item := range v {
			if fmt.Sprint(item) == want {
				return pongo2.AsValue(true), nil
			}
		}
		return pongo2.AsValue(false), nil
	case []string:
		for _, item := range v {
			if item == want {
				return pongo2.AsValue(true), nil
			}
		}
		return pongo2.AsValue(false), nil
	default:
		return pongo2.AsValue(fmt.Sprint(v) == want), nil
	}
}
