// Package document turns templates and structure trees into agreement HTML.
package document

import (
	"html"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

var placeholderRE = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.\-]+)\s*\}\}`)

// Vars is the flat placeholder map used for substitution
type Vars map[string]string

// Set stores a string value
func (v Vars) Set(key, value string) {
	v[key] = value
}

// SetDecimal stores a money amount with two decimals
func (v Vars) SetDecimal(key string, d decimal.Decimal) {
	v[key] = d.StringFixed(2)
}

// SetNumber stores a number without trailing zeros
func (v Vars) SetNumber(key string, f float64) {
	v[key] = strconv.FormatFloat(f, 'f', -1, 64)
}

// Merge copies other into v, overwriting existing keys
func (v Vars) Merge(other Vars) {
	for k, val := range other {
		v[k] = val
	}
}

// Substitute replaces {{key}} in an HTML string. Values are HTML-escaped.
// Placeholders whose key is not in vars are left untouched.
func Substitute(content string, vars Vars) string {
	return replace(content, vars, html.EscapeString)
}

// SubstituteText is Substitute without escaping, for plain-text leaves
func SubstituteText(text string, vars Vars) string {
	return replace(text, vars, nil)
}

func replace(s string, vars Vars, escape func(string) string) string {
	if len(vars) == 0 {
		return s
	}
	return placeholderRE.ReplaceAllStringFunc(s, func(m string) string {
		match := placeholderRE.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}
		val, ok := vars[match[1]]
		if !ok {
			return m
		}
		if escape != nil {
			return escape(val)
		}
		return val
	})
}

// SubstituteTree walks decoded JSON (maps, arrays, strings) and substitutes
// every string leaf. Map keys are not touched.
func SubstituteTree(v any, vars Vars) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[k] = SubstituteTree(child, vars)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			out[i] = SubstituteTree(child, vars)
		}
		return out
	case string:
		return SubstituteText(node, vars)
	default:
		return v
	}
}

// Placeholders returns the distinct keys referenced in s, in order of appearance
func Placeholders(s string) []string {
	seen := map[string]bool{}
	var keys []string
	for _, m := range placeholderRE.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}

// PercentOf renders part as a percentage of total. Empty unless total > 0.
func PercentOf(part, total decimal.Decimal) string {
	if !total.IsPositive() {
		return ""
	}
	return part.Mul(decimal.NewFromInt(100)).Div(total).Round(2).String()
}
