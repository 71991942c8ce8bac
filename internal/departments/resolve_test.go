package departments

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestResolveFromLongestPrefixWins(t *testing.T) {
	mappings := []Mapping{
		{Prefix: "ORTX", Department: "Ortopedi"},
		{Prefix: "ORTX1", Department: "Special"},
	}

	dept, ok := ResolveFrom(mappings, "ORTX123")
	assert.True(t, ok)
	assert.Equal(t, "Special", dept)

	dept, ok = ResolveFrom(mappings, "ORTX9")
	assert.True(t, ok)
	assert.Equal(t, "Ortopedi", dept)
}

func TestResolveFromCaseInsensitive(t *testing.T) {
	dept, ok := ResolveFrom(DefaultMappings(), "käkx0042")
	assert.True(t, ok)
	assert.Equal(t, "Käkkirurgi", dept)
}

func TestResolveFromNoMatch(t *testing.T) {
	_, ok := ResolveFrom(DefaultMappings(), "XYZ123")
	assert.False(t, ok)

	_, ok = ResolveFrom(nil, "ORTX1")
	assert.False(t, ok)

	_, ok = ResolveFrom([]Mapping{{Prefix: "", Department: "Everything"}}, "ORTX1")
	assert.False(t, ok)
}

func TestResolveFromTieBreakIsOrderIndependent(t *testing.T) {
	a := []Mapping{{Prefix: "ortx", Department: "Lower"}, {Prefix: "ORTX", Department: "Upper"}}
	b := []Mapping{a[1], a[0]}

	da, _ := ResolveFrom(a, "ORTX1")
	db, _ := ResolveFrom(b, "ORTX1")
	assert.Equal(t, da, db)
}

func TestResolveFromProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		prefixes := rapid.SliceOfNDistinct(rapid.StringMatching(`[A-Z]{1,5}`), 1, 6, func(s string) string { return s }).Draw(t, "prefixes")
		mappings := make([]Mapping, len(prefixes))
		for i, p := range prefixes {
			mappings[i] = Mapping{Prefix: p, Department: "dept-" + p}
		}
		barcode := rapid.StringMatching(`[A-Z]{0,8}[0-9]{0,4}`).Draw(t, "barcode")

		dept, ok := ResolveFrom(mappings, barcode)

		longest := ""
		for _, p := range prefixes {
			if strings.HasPrefix(barcode, p) && len(p) > len(longest) {
				longest = p
			}
		}
		if longest == "" {
			if ok {
				t.Fatalf("expected no match for %q, got %q", barcode, dept)
			}
			return
		}
		if !ok || dept != "dept-"+longest {
			t.Fatalf("barcode %q: expected dept-%s, got %q (ok=%v)", barcode, longest, dept, ok)
		}
	})
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "ORTX", NormalizePrefix("  ortx "))
}
