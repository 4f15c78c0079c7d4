//go:build !windows

package isolate_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paintersrp/splitexec"
	"github.com/Paintersrp/splitexec/internal/config"
	"github.com/Paintersrp/splitexec/internal/isolate"
)

func TestMain(m *testing.M) {
	splitexec.Main()
	os.Exit(m.Run())
}

func runSpec(t *testing.T, spec *isolate.Spec) error {
	t.Helper()
	payload, err := isolate.MarshalSpec(spec)
	require.NoError(t, err)

	sep, err := splitexec.New(isolate.RegionName,
		splitexec.WithPayload(payload),
		splitexec.WithStdio(io.Discard, os.Stderr))
	require.NoError(t, err)
	return sep.Run(context.Background())
}

func TestCommandRunsConfined(t *testing.T) {
	workdir := t.TempDir()
	out := filepath.Join(workdir, "out")

	err := runSpec(t, &isolate.Spec{
		Profile: config.Profile{
			Workdir: workdir,
			Env:     map[string]string{"ISOLATE_GREETING": "hello"},
		},
		Argv: []string{"/bin/sh", "-c", `printf '%s' "$ISOLATE_GREETING" > out`},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestCommandEnvScrubbed(t *testing.T) {
	t.Setenv("ISOLATE_SECRET", "leaky")
	workdir := t.TempDir()
	out := filepath.Join(workdir, "out")

	err := runSpec(t, &isolate.Spec{
		Profile: config.Profile{Workdir: workdir},
		Argv:    []string{"/bin/sh", "-c", `printf '%s' "$ISOLATE_SECRET" > out`},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Empty(t, string(data))
}

func TestCommandExitStatusPropagates(t *testing.T) {
	err := runSpec(t, &isolate.Spec{
		Argv: []string{"/bin/sh", "-c", "exit 7"},
	})

	var child *splitexec.ChildError
	require.ErrorAs(t, err, &child)
	assert.Equal(t, 7, child.ExitStatus())
	assert.Contains(t, child.Kind, "CommandExitError")
	assert.Contains(t, child.Message, "status=7")
}

func TestCommandMissingBinary(t *testing.T) {
	err := runSpec(t, &isolate.Spec{
		Argv: []string{"/nonexistent/definitely-not-here"},
	})

	var child *splitexec.ChildError
	require.ErrorAs(t, err, &child)
	assert.Contains(t, child.Message, "definitely-not-here")
}

func TestMarshalSpecRequiresCommand(t *testing.T) {
	_, err := isolate.MarshalSpec(&isolate.Spec{})
	assert.Error(t, err)
}

func TestBuildEnvKeepList(t *testing.T) {
	profile := &config.Profile{
		KeepEnv: []string{"PATH"},
		Env:     map[string]string{"LANG": "C"},
	}
	parent := []string{"PATH=/usr/bin", "HOME=/root", "TERM=xterm"}

	env := isolate.BuildEnv(profile, parent)
	assert.Equal(t, []string{"LANG=C", "PATH=/usr/bin"}, env)
}

func TestBuildEnvKeepAll(t *testing.T) {
	profile := &config.Profile{
		KeepAllEnv: true,
		Env:        map[string]string{"HOME": "/jail"},
	}
	parent := []string{"HOME=/root", "PATH=/usr/bin"}

	env := isolate.BuildEnv(profile, parent)
	assert.Contains(t, env, "PATH=/usr/bin")
	assert.Contains(t, env, "HOME=/jail")
	assert.NotContains(t, env, "HOME=/root")
}

func TestBuildEnvScrubsByDefault(t *testing.T) {
	env := isolate.BuildEnv(&config.Profile{}, []string{"HOME=/root"})
	assert.Empty(t, env)
}

func TestBuildEnvSorted(t *testing.T) {
	profile := &config.Profile{Env: map[string]string{"B": "2", "A": "1", "C": "3"}}
	env := isolate.BuildEnv(profile, nil)
	assert.True(t, sort.StringsAreSorted(env), "environment should be sorted: %v", env)
}
