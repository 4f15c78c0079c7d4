package splitexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Paintersrp/splitexec/internal/exitstatus"
	"github.com/Paintersrp/splitexec/internal/wire"
)

// Lifecycle states of one region entry. No state is ever revisited.
type state int

const (
	stateIdle state = iota
	stateEntered
	stateAwaiting
	stateReaped
	stateDone
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateEntered:
		return "entered"
	case stateAwaiting:
		return "awaiting-child"
	case stateReaped:
		return "reaped"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// Separator coordinates fork, channel and lifecycle for one region
// entry. It is single-use: construct with New, enter with Run, done.
// Distinct Separator instances may run concurrently from different
// goroutines; each owns disjoint process and channel resources.
type Separator struct {
	name       string
	region     Region
	token      string
	payload    []byte
	inheritEnv bool
	stdout     io.Writer
	stderr     io.Writer
	logger     *zap.Logger

	mu       sync.Mutex
	st       state
	childPID int
}

// Option configures a Separator.
type Option func(*Separator)

// WithPayload hands opaque bytes to the child's region; they arrive as
// the payload argument of ChildSetup and Body.
func WithPayload(payload []byte) Option {
	return func(s *Separator) { s.payload = payload }
}

// WithLogger attaches a structured logger for debug-level lifecycle
// events. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Separator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInheritEnv controls whether the child inherits the parent's
// environment (default true). The gate's own marker variables are
// always set.
func WithInheritEnv(inherit bool) Option {
	return func(s *Separator) { s.inheritEnv = inherit }
}

// WithStdio redirects the child's stdout and stderr. By default the
// child shares the parent's.
func WithStdio(stdout, stderr io.Writer) Option {
	return func(s *Separator) {
		s.stdout = stdout
		s.stderr = stderr
	}
}

// New constructs a Separator for one entry of the named region. The
// region must already be registered; the check happens here so a typo
// fails in the parent before any child exists.
func New(name string, opts ...Option) (*Separator, error) {
	region, ok := lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, name)
	}

	s := &Separator{
		name:       name,
		region:     region,
		token:      uuid.NewString(),
		inheritEnv: true,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ChildPID returns the child's process id, or zero before the fork.
// After the fork it is owned exclusively by the parent.
func (s *Separator) ChildPID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.childPID
}

// Run enters the region. In the parent it spawns the child, runs
// ParentSetup, blocks at the region's exit point until the child's
// single report arrives (or the channel closes), reaps the child, runs
// the matching cleanup hook and either returns nil or re-raises the
// transported failure as a *ChildError.
//
// The receive is a blocking point with no timeout: a hung child blocks
// Run indefinitely, by design. The context is consulted before the
// child is spawned and passed to the parent-side hooks; cancelling it
// does not abort the receive.
func (s *Separator) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.enter(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		s.setState(stateDone)
		return err
	}

	pair, childFiles, err := wire.NewPipePair()
	if err != nil {
		s.setState(stateDone)
		return err
	}

	cmd, err := s.childCommand(childFiles)
	if err != nil {
		closeAll(pair, childFiles)
		s.setState(stateDone)
		return err
	}

	// Fork point. A failure here is fatal and propagates before any
	// child exists.
	if err := cmd.Start(); err != nil {
		closeAll(pair, childFiles)
		s.setState(stateDone)
		return fmt.Errorf("splitexec: spawn region %q: %w", s.name, err)
	}

	// Each process owns one endpoint of each leg; drop the child's.
	childFiles[0].Close()
	childFiles[1].Close()
	defer pair.Up.Close()
	defer pair.Down.Close()

	s.setChildPID(cmd.Process.Pid)
	s.logger.Debug("region child spawned",
		zap.String("region", s.name),
		zap.Int("pid", cmd.Process.Pid))

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	// Parent continuation.
	var parentErr error
	if s.region.ParentSetup != nil {
		if err := s.region.ParentSetup(ctx); err != nil {
			parentErr = fmt.Errorf("splitexec: parent setup: %w", err)
		}
	}

	if parentErr == nil {
		hello := &wire.Frame{Hello: &wire.Hello{Token: s.token, Payload: s.payload}}
		if err := pair.Down.Send(hello); err != nil && !wire.IsPeerGone(err) {
			parentErr = fmt.Errorf("splitexec: handshake: %w", err)
		}
		// A gone peer means the child already died; the receive below
		// classifies that as abnormal termination.
	}

	if parentErr != nil {
		// Forward the parent-side failure to the child instead of
		// raising it twice, then still drain and reap through the
		// normal path so no zombie is left behind.
		if err := pair.Down.Send(&wire.Frame{Forward: &wire.Forward{Message: parentErr.Error()}}); err != nil && !wire.IsPeerGone(err) {
			s.logger.Debug("forward to child failed", zap.Error(err))
		}
	}

	// Exit point: block for the child's single report.
	s.setState(stateAwaiting)
	frame, recvErr := pair.Up.Receive()

	// Reap strictly before any cleanup hook runs.
	reapErr := <-waitErr
	s.setState(stateReaped)
	s.logger.Debug("region child reaped",
		zap.String("region", s.name),
		zap.Int("pid", s.ChildPID()),
		zap.NamedError("wait", reapErr))

	if parentErr != nil {
		return s.finishFailure(ctx, parentErr)
	}

	report := reportFrom(frame)
	switch {
	case recvErr != nil || report == nil:
		return s.finishFailure(ctx, s.abnormalError(recvErr, reapErr))
	case report.Clean:
		return s.finishClean(ctx)
	default:
		failure := report.Failure
		if failure == nil {
			return s.finishFailure(ctx, s.abnormalError(nil, reapErr))
		}
		return s.finishFailure(ctx, &ChildError{
			Kind:    failure.Kind,
			Message: failure.Message,
			Trace:   failure.Trace,
			Status:  failure.Status,
		})
	}
}

func (s *Separator) enter() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.st {
	case stateIdle:
		s.st = stateEntered
		return nil
	case stateDone:
		return ErrTerminated
	default:
		return ErrAlreadyEntered
	}
}

func (s *Separator) setState(st state) {
	s.mu.Lock()
	s.st = st
	s.mu.Unlock()
}

func (s *Separator) setChildPID(pid int) {
	s.mu.Lock()
	s.childPID = pid
	s.mu.Unlock()
}

// finishClean runs Cleanup and reaches the terminal state.
func (s *Separator) finishClean(ctx context.Context) error {
	defer s.setState(stateDone)
	if s.region.Cleanup == nil {
		return nil
	}
	if err := s.region.Cleanup(ctx); err != nil {
		return fmt.Errorf("splitexec: cleanup: %w", err)
	}
	return nil
}

// finishFailure runs ExceptionCleanup (or Cleanup when no override is
// supplied) and surfaces cause, joined with any cleanup failure.
func (s *Separator) finishFailure(ctx context.Context, cause error) error {
	defer s.setState(stateDone)
	cleanup := s.region.ExceptionCleanup
	if cleanup == nil {
		cleanup = s.region.Cleanup
	}
	if cleanup == nil {
		return cause
	}
	if err := cleanup(ctx); err != nil {
		return errors.Join(cause, fmt.Errorf("splitexec: exception cleanup: %w", err))
	}
	return cause
}

// abnormalError synthesizes the channel-closed-without-message failure,
// naming the child's collected exit status when one is available.
func (s *Separator) abnormalError(recvErr, reapErr error) error {
	if status, ok := exitstatus.FromError(reapErr); ok && (status.Code != 0 || status.Signal != "") {
		return fmt.Errorf("%w: %s", ErrAbnormalTermination, status.Error())
	}
	if recvErr != nil && !errors.Is(recvErr, wire.ErrClosed) {
		return fmt.Errorf("%w: %v", ErrAbnormalTermination, recvErr)
	}
	return fmt.Errorf("%w: channel closed before the child reported", ErrAbnormalTermination)
}

func (s *Separator) childCommand(childFiles []*os.File) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("splitexec: resolve executable: %w", err)
	}

	cmd := exec.Command(exe)
	var env []string
	if s.inheritEnv {
		env = os.Environ()
	}
	cmd.Env = append(env,
		regionEnv+"="+s.name,
		tokenEnv+"="+s.token,
	)
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	cmd.ExtraFiles = childFiles
	configureCmdSysProcAttr(cmd)
	return cmd, nil
}

func reportFrom(frame *wire.Frame) *wire.Report {
	if frame == nil {
		return nil
	}
	return frame.Report
}

func closeAll(pair wire.Pair, files []*os.File) {
	pair.Up.Close()
	pair.Down.Close()
	for _, f := range files {
		f.Close()
	}
}
