package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads an isolation profile from the provided path. Unknown keys
// are rejected, environment references in values are expanded, and the
// root directory is resolved relative to the profile file.
func Load(path string) (*Profile, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve profile path: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	var profile Profile
	if err := decoder.Decode(&profile); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", absPath, err)
	}

	profileDir := filepath.Dir(absPath)
	if profile.Root != "" {
		profile.Root = resolveDir(profileDir, os.ExpandEnv(profile.Root))
	}
	profile.Workdir = os.ExpandEnv(profile.Workdir)

	if len(profile.Env) > 0 {
		expanded := make(map[string]string, len(profile.Env))
		for k, v := range profile.Env {
			expanded[k] = os.ExpandEnv(v)
		}
		profile.Env = expanded
	}

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	return &profile, nil
}

func resolveDir(base, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(base, dir)
}
