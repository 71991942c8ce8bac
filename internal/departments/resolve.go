// internal/departments/resolve.go
package departments

import "strings"

// ResolveFrom returns the department of the longest mapping prefix that the barcode starts
// with, compared case-insensitively. Equal-length matches go to the lexically smallest
// prefix so the answer does not depend on row order.
func ResolveFrom(mappings []Mapping, barcode string) (string, bool) {
	code := strings.ToUpper(barcode)

	var best *Mapping
	var bestPrefix string
	for i := range mappings {
		prefix := strings.ToUpper(mappings[i].Prefix)
		if prefix == "" || !strings.HasPrefix(code, prefix) {
			continue
		}
		if best == nil ||
			len(prefix) > len(bestPrefix) ||
			(len(prefix) == len(bestPrefix) && prefix < bestPrefix) {
			best = &mappings[i]
			bestPrefix = prefix
		}
	}
	if best == nil {
		return "", false
	}
	return best.Department, true
}

// NormalizePrefix is the stored form of a prefix.
func NormalizePrefix(prefix string) string {
	return strings.ToUpper(strings.TrimSpace(prefix))
}
