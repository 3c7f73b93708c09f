// Package validate holds the pure input validators applied at trust
// boundaries before values reach signed payloads or storage.
package validate

import (
	"regexp"
	"strings"
)

var (
	didPattern     = regexp.MustCompile(`^did:[a-z0-9]+:[A-Za-z0-9.\-_:]+$`)
	ethrDIDPattern = regexp.MustCompile(`^did:ethr:0x[0-9a-fA-F]{40}$`)
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	tagPattern     = regexp.MustCompile(`<[^<>]*>`)
)

// IsDID reports whether s has the generic did:<method>:<id> shape.
func IsDID(s string) bool {
	return didPattern.MatchString(s)
}

// IsEthrDID reports whether s is a well-formed ethr-method DID.
func IsEthrDID(s string) bool {
	return ethrDIDPattern.MatchString(s)
}

// IsAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// Sanitize strips HTML-significant content from s before it is embedded in a
// signed payload or rendered. The result contains no markup and the function
// is idempotent: Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(s string) string {
	// Tags can nest after a removal pass (e.g. "<scr<b></b>ipt>"), so strip
	// until a fixed point.
	for {
		stripped := tagPattern.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	// Any unbalanced angle brackets left over are dropped outright.
	s = strings.Map(func(r rune) rune {
		if r == '<' || r == '>' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// SanitizeAll sanitizes every element of a string slice in place and returns
// the slice.
func SanitizeAll(values []string) []string {
	for i, v := range values {
		values[i] = Sanitize(v)
	}
	return values
}
