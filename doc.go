// Package splitexec runs a designated region of work in a child process
// while the parent skips the region body and resumes immediately after
// it. Callers get OS-level isolation for one scoped block without
// restructuring their program around explicit fork/exec plumbing.
//
// The Go runtime cannot survive a bare fork in a multi-threaded
// process, so the child is a re-execution of the current binary. Region
// bodies are registered by name before Main runs:
//
//	func init() {
//		splitexec.Register("scrub", splitexec.Region{
//			Body: func(ctx context.Context, payload []byte) error {
//				// runs in the child only
//				return scrub(payload)
//			},
//		})
//	}
//
//	func main() {
//		splitexec.Main()
//		// parent-only from here on
//		sep, err := splitexec.New("scrub", splitexec.WithPayload(data))
//		...
//		err = sep.Run(ctx)
//	}
//
// Main hijacks the process when it was started as a region child: it
// runs the region's child setup and body, reports the outcome over an
// inherited pipe, and exits without returning. In the parent, Run never
// invokes the body, so the block is structurally unreachable there.
//
// A failure inside the child crosses back to the parent as data: the
// error's kind, message and a trace rendered at the capture site. Run
// re-raises it as a *ChildError whose trace names the child's failure
// site rather than the parent's call stack. A child that dies without
// reporting (crash, kill, closed channel) surfaces as
// ErrAbnormalTermination, never as a hang past the receive point or a
// false success.
//
// A Separator is single-use: one region entry, then it is terminated.
// The blocking receive at the region's exit point has no timeout;
// bounding the wait (signalling the child, deadlines) is the caller's
// concern, layered on top.
package splitexec
