package watch

// Op is the kind of filesystem change an incoming event represents,
// independent of the library (fsnotify) that produced it.
type Op int

// Recognized operations.
const (
	OpCreate Op = iota
	OpUpdate
	OpDelete
	OpMove
)

// ChangeEvent is a library-agnostic filesystem change, the same shape the
// original implementation's watchdog event carried (src_path, optional
// dest_path, is_directory).
type ChangeEvent struct {
	Op       Op
	SrcPath  string
	DestPath string // only set for OpMove
	IsDir    bool
}
