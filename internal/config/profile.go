// Package config loads isolation profiles: the YAML description of how
// the child process is confined before the isolated command runs.
package config

import (
	"fmt"
	"path/filepath"
)

// Profile describes child-side confinement. All fields are optional;
// an empty profile isolates nothing beyond the process boundary itself.
type Profile struct {
	// Root is the directory the child chroots into. Requires privilege.
	Root string `yaml:"root"`

	// Workdir is the working directory after confinement, interpreted
	// inside Root when one is set.
	Workdir string `yaml:"workdir"`

	// Hostname is set inside the child when non-empty.
	Hostname string `yaml:"hostname"`

	// Env holds variables set in the confined environment.
	Env map[string]string `yaml:"env"`

	// KeepEnv lists parent variables carried into the confined
	// environment. Everything else is scrubbed unless KeepAllEnv.
	KeepEnv []string `yaml:"keep-env"`

	// KeepAllEnv carries the parent's entire environment through.
	KeepAllEnv bool `yaml:"keep-all-env"`

	// UID and GID drop the child's credentials after chroot. Nil means
	// keep the current credentials.
	UID *int `yaml:"uid"`
	GID *int `yaml:"gid"`
}

// Validate checks cross-field consistency.
func (p *Profile) Validate() error {
	if p.Root != "" && !filepath.IsAbs(p.Root) {
		return fmt.Errorf("profile: root %q must be absolute", p.Root)
	}
	if p.UID != nil && *p.UID < 0 {
		return fmt.Errorf("profile: uid %d out of range", *p.UID)
	}
	if p.GID != nil && *p.GID < 0 {
		return fmt.Errorf("profile: gid %d out of range", *p.GID)
	}
	if p.UID != nil && p.GID == nil {
		return fmt.Errorf("profile: uid without gid would keep the primary group; set gid too")
	}
	for _, key := range p.KeepEnv {
		if key == "" {
			return fmt.Errorf("profile: keep-env contains an empty variable name")
		}
	}
	return nil
}
