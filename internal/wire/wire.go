// Package wire implements the message channel between the parent and
// the forked child. Each direction is a pipe inherited across exec, with
// length-prefixed CBOR frames on top so message boundaries survive the
// byte stream. Exactly one report crosses child-to-parent per region.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/fxamacker/cbor/v2"
)

// MaxFrameSize bounds a single frame body. Reports carry rendered trace
// text, never bulk data, so anything larger indicates a corrupt stream.
const MaxFrameSize = 1 << 20

var (
	// ErrFrameTooLarge is returned when a frame header declares a body
	// exceeding MaxFrameSize.
	ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

	// ErrClosed is returned by Receive when the peer closed the channel
	// without sending a complete frame.
	ErrClosed = errors.New("wire: channel closed")
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: build CBOR enc mode: %v", err))
	}
	encMode = em
}

// Hello is the first frame the parent sends downstream after spawning
// the child. The token pairs the child with the entry that spawned it
// and the payload is handed opaquely to the region.
type Hello struct {
	Token   string `cbor:"token"`
	Payload []byte `cbor:"payload,omitempty"`
}

// Failure describes a child-side fault: a kind (the error's type, or
// "panic"), a message, the trace rendered at the capture site, and the
// command exit status when the failing error exposed one.
type Failure struct {
	Kind    string `cbor:"kind"`
	Message string `cbor:"message"`
	Trace   string `cbor:"trace,omitempty"`
	Status  int    `cbor:"status,omitempty"`
}

// Report is the single child-to-parent message per region: either the
// clean-exit sentinel or a transported failure.
type Report struct {
	Clean   bool     `cbor:"clean"`
	Failure *Failure `cbor:"failure,omitempty"`
}

// Forward carries a parent-side failure downstream so the child can
// bail out instead of the parent raising it a second time.
type Forward struct {
	Message string `cbor:"message"`
}

// Frame is the sum of all channel messages. Exactly one field is set.
type Frame struct {
	Hello   *Hello   `cbor:"hello,omitempty"`
	Report  *Report  `cbor:"report,omitempty"`
	Forward *Forward `cbor:"forward,omitempty"`
}

// Endpoint is one end of a unidirectional channel leg. Each process owns
// the endpoints it uses exclusively; endpoints are never shared.
type Endpoint struct {
	f *os.File
}

// NewEndpoint wraps an inherited pipe file.
func NewEndpoint(f *os.File) *Endpoint {
	return &Endpoint{f: f}
}

// Pair holds both legs of the channel as seen by one process.
type Pair struct {
	// Up is the child-to-parent leg: the child sends its report here,
	// the parent receives it.
	Up *Endpoint
	// Down is the parent-to-child leg: hello and forwards.
	Down *Endpoint
}

// NewPipePair creates the two pipes backing a channel and returns the
// parent's endpoints plus the files the child inherits (report write
// end, control read end, in ExtraFiles order).
func NewPipePair() (parent Pair, childFiles []*os.File, err error) {
	upR, upW, err := os.Pipe()
	if err != nil {
		return Pair{}, nil, fmt.Errorf("wire: create report pipe: %w", err)
	}
	downR, downW, err := os.Pipe()
	if err != nil {
		upR.Close()
		upW.Close()
		return Pair{}, nil, fmt.Errorf("wire: create control pipe: %w", err)
	}

	parent = Pair{Up: NewEndpoint(upR), Down: NewEndpoint(downW)}
	childFiles = []*os.File{upW, downR}
	return parent, childFiles, nil
}

// ChildPair reconstructs the child's endpoints from the inherited file
// descriptors (fd 3 report, fd 4 control).
func ChildPair() Pair {
	return Pair{
		Up:   NewEndpoint(os.NewFile(3, "splitexec-report")),
		Down: NewEndpoint(os.NewFile(4, "splitexec-control")),
	}
}

// Send writes one frame. A broken pipe means the peer is gone; callers
// on the child side treat that as non-fatal via IsPeerGone.
func (e *Endpoint) Send(fr *Frame) error {
	body, err := encMode.Marshal(fr)
	if err != nil {
		return fmt.Errorf("wire: marshal frame: %w", err)
	}
	if len(body) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := e.f.Write(header[:]); err != nil {
		return fmt.Errorf("wire: write frame header: %w", err)
	}
	if _, err := e.f.Write(body); err != nil {
		return fmt.Errorf("wire: write frame body: %w", err)
	}
	return nil
}

// Receive blocks until one frame arrives. A channel closed before a
// complete frame yields ErrClosed, never a partial message.
func (e *Endpoint) Receive() (*Frame, error) {
	var header [4]byte
	if _, err := io.ReadFull(e.f, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("wire: read frame header: %w", err)
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(e.f, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("wire: read frame body: %w", err)
	}

	var fr Frame
	if err := cbor.Unmarshal(body, &fr); err != nil {
		return nil, fmt.Errorf("wire: unmarshal frame: %w", err)
	}
	return &fr, nil
}

// Close releases the endpoint's file descriptor.
func (e *Endpoint) Close() error {
	return e.f.Close()
}

// IsPeerGone reports whether err indicates the other end of the channel
// has already closed or exited.
func IsPeerGone(err error) bool {
	return errors.Is(err, ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ESHUTDOWN) ||
		errors.Is(err, os.ErrClosed)
}
