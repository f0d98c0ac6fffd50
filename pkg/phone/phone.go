// Package phone canonicalizes free-form phone strings into the comparable key
// used to match leads within a workspace.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is the region hint used only for display formatting. The
// natural key produced by Normalize is region-agnostic.
const DefaultRegion = "BR"

// Normalize strips every non-digit character from the input. The result is the
// natural key for lead matching, so the exact same function runs at insert and
// lookup time; any divergence would silently create duplicate leads.
// Returns "" when nothing remains after stripping.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsNormalized reports whether s is already in canonical form.
func IsNormalized(s string) bool {
	return s != "" && Normalize(s) == s
}

// Display renders a normalized key for human consumption (dashboard payloads,
// follow-up templates). Never used for matching. Falls back to the raw key when
// the number cannot be parsed.
func Display(normalized string) string {
	if normalized == "" {
		return ""
	}
	num, err := phonenumbers.Parse("+"+normalized, DefaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		num, err = phonenumbers.Parse(normalized, DefaultRegion)
		if err != nil || !phonenumbers.IsValidNumber(num) {
			return normalized
		}
	}
	return phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
}
