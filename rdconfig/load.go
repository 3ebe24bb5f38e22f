package rdconfig

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadDevProfile reads and parses a dev profile from path. SSHPassword is
// left obscured; callers must Reveal it before building a
// transport.TunnelConfig.
func LoadDevProfile(path string) (*DevProfile, error) {
	var p DevProfile
	if err := loadYAML(path, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadExecProfile reads and parses an exec profile from path.
func LoadExecProfile(path string) (*ExecProfile, error) {
	var p ExecProfile
	if err := loadYAML(path, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading profile %s", path)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "parsing profile %s", path)
	}
	return nil
}
