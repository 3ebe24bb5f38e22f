// Package rdconfig holds the two configuration profiles consumed at
// startup (spec.md §6) and the password obscuring scheme used to store a
// profile's SSH password on disk.
package rdconfig

import "strings"

// Obscure escapes in for storage so a literal '%' survives a round trip
// through whatever config loader persists it, by doubling it. This is
// spec.md §6's explicit scheme, deliberately simpler than the teacher's
// AES-based fs/config/obscure package — the spec pins the exact
// encoding, leaving no room for a stronger cipher without breaking
// interop with profiles written by the original tool.
func Obscure(in string) string {
	return strings.ReplaceAll(in, "%", "%%")
}

// Reveal reverses Obscure.
func Reveal(in string) string {
	return strings.ReplaceAll(in, "%%", "%")
}
