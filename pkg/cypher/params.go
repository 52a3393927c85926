package cypher

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

const questionMarkParam = "question_mark_param"

// addParam binds v under a name derived from base. An existing name bound to
// a different value gets a numeric suffix.
func (q *Query) addParam(base string, v any) string {
	name := sanitizeParam(base)
	for i := 1; ; i++ {
		cand := name
		if i > 1 {
			cand = fmt.Sprintf("%s_%d", name, i)
		}
		existing, ok := q.params[cand]
		if !ok || reflect.DeepEqual(existing, v) {
			q.params[cand] = v
			return cand
		}
	}
}

// bindRaw binds the extra arguments of a raw fragment: Params maps are
// merged, any other value replaces the next `?` placeholder.
func (q *Query) bindRaw(text string, extra []any) string {
	var positional []any
	for _, e := range extra {
		switch v := e.(type) {
		case Params:
			for k, pv := range v {
				q.params[k] = pv
			}
		case map[string]any:
			for k, pv := range v {
				q.params[k] = pv
			}
		default:
			positional = append(positional, e)
		}
	}
	if n := strings.Count(text, "?"); n != len(positional) {
		if n > 0 || len(positional) > 0 {
			q.errs = append(q.errs, fmt.Errorf("%q has %d placeholders but %d values", text, n, len(positional)))
		}
		return text
	}

	var b strings.Builder
	i := 0
	for _, r := range text {
		if r == '?' {
			b.WriteString("$" + q.addParam(questionMarkParam, positional[i]))
			i++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *Query) renderCond(c Cond) string {
	var conds []string
	for _, name := range sortedKeys(c) {
		props := c[name]
		for _, key := range sortedKeys(props) {
			v := props[key]
			lhs := name + "." + key
			if key == NeoIDKey {
				lhs = "ID(" + name + ")"
			}
			switch {
			case v == nil:
				conds = append(conds, lhs+" IS NULL")
			case isList(v):
				conds = append(conds, lhs+" IN $"+q.addParam(name+"_"+key, v))
			default:
				conds = append(conds, lhs+" = $"+q.addParam(name+"_"+key, v))
			}
		}
	}
	return strings.Join(conds, " AND ")
}

func isList(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}

func sanitizeParam(s string) string {
	b := []byte(s)
	for i, c := range b {
		if !(c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			b[i] = '_'
		}
	}
	return strings.Trim(string(b), "_")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
