// Package pathmap rewrites paths between a developer's dev-relative
// notion of a file and an exec-host's absolute notion of the same file,
// using either a single root (dev side) or an ordered list of many-to-one
// mappings (exec side).
package pathmap

// Mapper translates between wire-relative paths (always forward-slash
// separated, never absolute) and host-absolute paths.
type Mapper interface {
	// ToWire converts an absolute local path into its wire-relative form.
	// The second return value is false if abs is not covered by any
	// mapping.
	ToWire(abs string) (string, bool)

	// FromWire converts a wire-relative path into an absolute local path.
	// The second return value is false if rel is not covered by any
	// mapping.
	FromWire(rel string) (string, bool)

	// LinkFor returns the configured symlink destination for the mapping
	// that owns rel (wire-relative) or abs (local), if any.
	LinkFor(relOrAbs string) (string, bool)
}

// toWireSlashes rewrites OS path separators to the wire's forward-slash
// convention, per spec.md's separator-normalization guidance.
func toWireSlashes(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			out[i] = '/'
		} else {
			out[i] = s[i]
		}
	}
	return string(out)
}
