package rdconfig

import (
	"sort"

	"github.com/tangb/remotedev/pathmap"
)

// DevProfile configures the dev side (spec.md §6).
type DevProfile struct {
	RemoteHost  string `yaml:"remote_host"`
	RemotePort  int    `yaml:"remote_port"`
	SSHUsername string `yaml:"ssh_username"`
	SSHPassword string `yaml:"ssh_password"` // obscured on disk; reveal before use
	LocalDir    string `yaml:"local_dir"`
}

// DefaultRemotePort is applied when RemotePort is unset.
const DefaultRemotePort = 22

// Port returns RemotePort, defaulting to DefaultRemotePort when zero.
func (p DevProfile) Port() int {
	if p.RemotePort == 0 {
		return DefaultRemotePort
	}
	return p.RemotePort
}

// MappingEntry is one destination/link pair in an ExecProfile's mapping
// table, keyed by source pattern.
type MappingEntry struct {
	Dest string `yaml:"dest"`
	Link string `yaml:"link"`
}

// ExecProfile configures the exec side (spec.md §6).
type ExecProfile struct {
	LogFilePath string                  `yaml:"log_file_path"`
	LogMode     string                  `yaml:"log_mode"`
	Mappings    map[string]MappingEntry `yaml:"mappings"`
}

// Recognized LogMode values, mirroring logpipe.Mode's three states.
const (
	LogModeDisabled = "disabled"
	LogModeInternal = "internal"
	LogModeExternal = "external"
)

// ResolvedLogMode returns the profile's configured LogMode, defaulting to
// external when a log file path is set (the common case) and to disabled
// otherwise, so older profiles without an explicit log_mode still behave
// the way they did before log_mode existed.
func (p ExecProfile) ResolvedLogMode() string {
	switch p.LogMode {
	case LogModeInternal, LogModeExternal, LogModeDisabled:
		return p.LogMode
	}
	if p.LogFilePath != "" {
		return LogModeExternal
	}
	return LogModeDisabled
}

// MappingConfigs converts the profile's mapping table into the ordered
// list pathmap.NewExecMapper expects. Go maps have no stable iteration
// order, so entries are sorted by source pattern to keep mapper
// construction deterministic across runs of the same profile.
func (p ExecProfile) MappingConfigs() []pathmap.MappingConfig {
	keys := make([]string, 0, len(p.Mappings))
	for k := range p.Mappings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]pathmap.MappingConfig, 0, len(keys))
	for _, k := range keys {
		entry := p.Mappings[k]
		out = append(out, pathmap.MappingConfig{SrcPattern: k, Dest: entry.Dest, Link: entry.Link})
	}
	return out
}
