package document

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSubstituteReplacesKnownKeysOnly(t *testing.T) {
	vars := Vars{"tenant_name": "Anna", "rent_amount": "1000.00", "empty": ""}
	in := "<p>{{tenant_name}} pays {{ rent_amount }} {{currency}}{{empty}}.</p>"

	got := Substitute(in, vars)
	want := "<p>Anna pays 1000.00 {{currency}}.</p>"
	if got != want {
		t.Errorf("Substitute mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestSubstituteEscapesHTML(t *testing.T) {
	got := Substitute("<b>{{name}}</b>", Vars{"name": `<script>"x"</script>`})
	if got != "<b>&lt;script&gt;&#34;x&#34;&lt;/script&gt;</b>" {
		t.Errorf("value should be escaped, got %s", got)
	}
	if SubstituteText("{{name}}", Vars{"name": "<i>"}) != "<i>" {
		t.Error("SubstituteText must not escape")
	}
}

func TestSubstituteTreeWalksNestedValues(t *testing.T) {
	raw := `{"nodes":[{"type":"section","title":"Parties {{tenant_name}}","children":[{"type":"bulletList","items":["{{deposit_amount}}","{{unknown}}"]}]}],"{{tenant_name}}":true}`
	var tree any
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	out := SubstituteTree(tree, Vars{"tenant_name": "Anna", "deposit_amount": "500.00"})
	encoded, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	s, err := ParseStructure(encoded)
	if err != nil {
		t.Fatalf("ParseStructure: %v", err)
	}
	if s.Nodes[0].Title != "Parties Anna" {
		t.Errorf("title not substituted: %q", s.Nodes[0].Title)
	}
	items := s.Nodes[0].Children[0].Items
	if len(items) < 2 || items[0] != "500.00" || items[1] != "{{unknown}}" {
		t.Errorf("unexpected items %v", items)
	}
	if _, ok := out.(map[string]any)["{{tenant_name}}"]; !ok {
		t.Error("map keys must not be substituted")
	}
}

func TestPlaceholders(t *testing.T) {
	keys := Placeholders("{{a}} {{ b }} {{a}} {c}")
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("unexpected placeholders %v", keys)
	}
}

func TestPercentOf(t *testing.T) {
	cases := []struct {
		part, total string
		want        string
	}{
		{"250", "1000", "25"},
		{"1", "3", "33.33"},
		{"100", "0", ""},
		{"100", "-5", ""},
	}
	for _, c := range cases {
		got := PercentOf(decimal.RequireFromString(c.part), decimal.RequireFromString(c.total))
		if got != c.want {
			t.Errorf("PercentOf(%s, %s) = %q, want %q", c.part, c.total, got, c.want)
		}
	}
}

func TestVarsSetters(t *testing.T) {
	v := Vars{}
	v.SetDecimal("amount", decimal.NewFromFloat(12.5))
	v.SetNumber("area", 54.0)
	v.Merge(Vars{"area": "55"})
	if v["amount"] != "12.50" || v["area"] != "55" {
		t.Errorf("unexpected vars %v", v)
	}
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMonthsBetween(t *testing.T) {
	cases := []struct {
		from, to string
		want     int
	}{
		{"2024-01-01", "2024-03-15", 3},
		{"2024-01-01", "2024-04-01", 3},
		{"2024-01-01", "2024-01-10", 1},
		{"2024-01-31", "2024-02-29", 1},
		{"2024-01-15", "2025-01-15", 12},
		{"2024-01-15", "2025-01-16", 13},
		{"2024-05-01", "2024-05-01", 1},
		{"2024-05-01", "2024-04-01", 1},
	}
	for _, c := range cases {
		if got := MonthsBetween(date(c.from), date(c.to)); got != c.want {
			t.Errorf("MonthsBetween(%s, %s) = %d, want %d", c.from, c.to, got, c.want)
		}
	}
}

func TestRentTotal(t *testing.T) {
	total := RentTotal(decimal.NewFromInt(1000), date("2024-01-01"), date("2024-03-15"))
	if !total.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("expected 3000, got %s", total)
	}
}
