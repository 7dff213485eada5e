package validation

import "regexp"

// Host name rules:
// - Start and end with [a-zA-Z0-9].
// - Middle chars may include [a-zA-Z0-9:_.-].
// - Length 1..255.
// - Excludes whitespace, semicolons and shell metacharacters explicitly.
// - Uppercase allowed: role tags like "Default" are stored as hosts too.
//
// Examples valid: x3000c0s19b1n0, nid000001, Default, compute-3.local
// Examples invalid: "", "bad host", ";rm", ":lead", "trail:", 256+ chars.
var hostNameRe = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9:_\.-]{0,253}[a-zA-Z0-9])?$`)

// ValidHostName returns true if the provided host name matches the allowed pattern.
func ValidHostName(name string) bool {
	return hostNameRe.MatchString(name)
}
