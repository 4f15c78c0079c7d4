//go:build !windows

package isolate

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/Paintersrp/splitexec/internal/config"
)

// confine applies the profile inside the child: hostname, chroot,
// working directory, then credential drop, in that order — credentials
// go last so the privileged steps can still happen.
func confine(profile *config.Profile) error {
	if profile.Hostname != "" {
		if err := unix.Sethostname([]byte(profile.Hostname)); err != nil {
			return fmt.Errorf("set hostname %q: %w", profile.Hostname, err)
		}
	}

	if profile.Root != "" {
		if err := unix.Chroot(profile.Root); err != nil {
			return fmt.Errorf("chroot %q: %w", profile.Root, err)
		}
		if err := unix.Chdir("/"); err != nil {
			return fmt.Errorf("chdir into chroot: %w", err)
		}
	}

	if profile.Workdir != "" {
		if err := unix.Chdir(profile.Workdir); err != nil {
			return fmt.Errorf("chdir %q: %w", profile.Workdir, err)
		}
	}

	if profile.GID != nil {
		if err := unix.Setgid(*profile.GID); err != nil {
			return fmt.Errorf("setgid %d: %w", *profile.GID, err)
		}
	}
	if profile.UID != nil {
		if err := unix.Setuid(*profile.UID); err != nil {
			return fmt.Errorf("setuid %d: %w", *profile.UID, err)
		}
	}
	return nil
}
