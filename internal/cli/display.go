package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Paintersrp/splitexec"
)

const (
	ansiRed   = "\x1b[31m"
	ansiDim   = "\x1b[2m"
	ansiReset = "\x1b[0m"
)

// renderChildError prints a transported child failure with the child's
// diagnostic trace, which names the actual failure site, instead of the
// parent's call stack.
func renderChildError(w io.Writer, err *splitexec.ChildError, colorize bool) {
	header := err.Error()
	if colorize {
		header = ansiRed + header + ansiReset
	}
	fmt.Fprintln(w, header)

	trace := strings.TrimRight(err.Trace, "\n")
	if trace == "" {
		return
	}
	if colorize {
		trace = ansiDim + trace + ansiReset
	}
	fmt.Fprintln(w, trace)
}

// shouldColorize enables color only for real terminals that have not
// opted out.
func shouldColorize(f *os.File, noColor bool) bool {
	if noColor {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
