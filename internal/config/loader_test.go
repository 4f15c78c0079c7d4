package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadProfile(t *testing.T) {
	t.Setenv("SPLITEXEC_TEST_HOME", "/srv/jail")

	path := writeProfile(t, `
root: ${SPLITEXEC_TEST_HOME}/root
workdir: /work
hostname: jail
env:
  LANG: C
  HOME: ${SPLITEXEC_TEST_HOME}
keep-env:
  - PATH
  - TERM
uid: 1000
gid: 1000
`)

	profile, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/jail/root", profile.Root)
	assert.Equal(t, "/work", profile.Workdir)
	assert.Equal(t, "jail", profile.Hostname)
	assert.Equal(t, "/srv/jail", profile.Env["HOME"])
	assert.Equal(t, "C", profile.Env["LANG"])
	assert.Equal(t, []string{"PATH", "TERM"}, profile.KeepEnv)
	require.NotNil(t, profile.UID)
	assert.Equal(t, 1000, *profile.UID)
}

func TestLoadProfileRelativeRoot(t *testing.T) {
	path := writeProfile(t, "root: jail\n")

	profile, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "jail"), profile.Root)
	assert.True(t, filepath.IsAbs(profile.Root))
}

func TestLoadProfileRejectsUnknownKeys(t *testing.T) {
	path := writeProfile(t, "chroot: /srv/jail\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chroot")
}

func TestLoadProfileMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateUIDWithoutGID(t *testing.T) {
	uid := 1000
	profile := &Profile{UID: &uid}
	err := profile.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gid")
}

func TestValidateNegativeUID(t *testing.T) {
	uid, gid := -1, 0
	profile := &Profile{UID: &uid, GID: &gid}
	assert.Error(t, profile.Validate())
}

func TestValidateEmptyKeepEnvEntry(t *testing.T) {
	profile := &Profile{KeepEnv: []string{"PATH", ""}}
	assert.Error(t, profile.Validate())
}

func TestValidateEmptyProfile(t *testing.T) {
	assert.NoError(t, (&Profile{}).Validate())
}
