// Package isolate is the built-in collaborator for the splitexec core:
// a region that confines the child process according to an isolation
// profile and then runs a command inside the confinement. The parent
// only ever sees the command's outcome through the transported report.
package isolate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/Paintersrp/splitexec"
	"github.com/Paintersrp/splitexec/internal/config"
	"github.com/Paintersrp/splitexec/internal/exitstatus"
)

// RegionName is the registered name of the confinement region.
const RegionName = "isolate.command"

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("isolate: build CBOR enc mode: %v", err))
	}
	cborEncMode = em

	splitexec.Register(RegionName, splitexec.Region{
		ChildSetup: childSetup,
		Body:       runCommand,
	})
}

// Spec is the payload crossing into the child: the confinement profile
// plus the command to run inside it.
type Spec struct {
	Profile config.Profile `cbor:"profile"`
	Argv    []string       `cbor:"argv"`
}

// MarshalSpec serializes a Spec for use as a region payload.
func MarshalSpec(s *Spec) ([]byte, error) {
	if len(s.Argv) == 0 {
		return nil, errors.New("isolate: spec requires a command")
	}
	return cborEncMode.Marshal(s)
}

// UnmarshalSpec deserializes a region payload back into a Spec.
func UnmarshalSpec(data []byte) (*Spec, error) {
	var s Spec
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("isolate: unmarshal spec: %w", err)
	}
	if len(s.Argv) == 0 {
		return nil, errors.New("isolate: spec requires a command")
	}
	return &s, nil
}

// current is the Spec decoded by childSetup, consumed by runCommand.
// Both run sequentially inside one child process.
var current *Spec

func childSetup(ctx context.Context, payload []byte) error {
	spec, err := UnmarshalSpec(payload)
	if err != nil {
		return err
	}
	if err := spec.Profile.Validate(); err != nil {
		return err
	}
	if err := confine(&spec.Profile); err != nil {
		return err
	}
	current = spec
	return nil
}

func runCommand(ctx context.Context, payload []byte) error {
	spec := current
	if spec == nil {
		decoded, err := UnmarshalSpec(payload)
		if err != nil {
			return err
		}
		spec = decoded
	}

	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = BuildEnv(&spec.Profile, os.Environ())
	if spec.Profile.Workdir != "" {
		cmd.Dir = spec.Profile.Workdir
	}

	if err := cmd.Run(); err != nil {
		if status, ok := exitstatus.FromError(err); ok {
			return &CommandExitError{Argv: spec.Argv, Status: status}
		}
		return fmt.Errorf("run %s: %w", spec.Argv[0], err)
	}
	return nil
}

// CommandExitError reports a confined command that terminated with a
// non-zero status or on a signal.
type CommandExitError struct {
	Argv   []string
	Status exitstatus.Status
}

func (e *CommandExitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Argv[0], e.Status.Error())
}

// ExitStatus exposes the command's exit code so the parent can mirror
// it.
func (e *CommandExitError) ExitStatus() int {
	return e.Status.Code
}

// BuildEnv computes the confined environment: the parent environment
// scrubbed down to KeepEnv (or kept wholesale with KeepAllEnv), with
// the profile's own variables layered on top. Output is sorted for
// stable comparison.
func BuildEnv(profile *config.Profile, parent []string) []string {
	kept := make(map[string]string)

	if profile.KeepAllEnv {
		for _, kv := range parent {
			if k, v, ok := strings.Cut(kv, "="); ok {
				kept[k] = v
			}
		}
	} else if len(profile.KeepEnv) > 0 {
		keep := make(map[string]bool, len(profile.KeepEnv))
		for _, k := range profile.KeepEnv {
			keep[k] = true
		}
		for _, kv := range parent {
			if k, v, ok := strings.Cut(kv, "="); ok && keep[k] {
				kept[k] = v
			}
		}
	}

	for k, v := range profile.Env {
		kept[k] = v
	}

	env := make([]string, 0, len(kept))
	for k, v := range kept {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}
