// Package slug derives URL-safe identifiers for organizations and teams.
package slug

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxLen = 63

var ErrInvalid = errors.New("slug must be 1-63 characters of a-z, 0-9 and single hyphens")

// Make folds s to lowercase ASCII, drops accents and joins words with hyphens.
// "Ünïcode Labs, Inc." becomes "unicode-labs-inc".
func Make(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			hyphen = false
		case b.Len() > 0 && !hyphen:
			b.WriteByte('-')
			hyphen = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if len(out) > maxLen {
		out = strings.TrimSuffix(out[:maxLen], "-")
	}
	return out
}

// Validate checks that s is already in canonical form.
func Validate(s string) error {
	if s == "" || len(s) > maxLen || Make(s) != s {
		return ErrInvalid
	}
	return nil
}

// Normalize returns the explicit slug when given, otherwise one derived from name.
func Normalize(explicit, name string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		explicit = strings.ToLower(explicit)
		if err := Validate(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}
	s := Make(name)
	if s == "" {
		return "", ErrInvalid
	}
	return s, nil
}
