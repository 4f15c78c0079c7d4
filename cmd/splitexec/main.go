package main

import (
	"github.com/Paintersrp/splitexec"
	"github.com/Paintersrp/splitexec/internal/cli"
)

func main() {
	// Hijacks the process when it was spawned as a region child;
	// everything below runs in the parent only.
	splitexec.Main()

	cli.Execute()
}
