package isolate

import (
	"errors"

	"github.com/Paintersrp/splitexec/internal/config"
)

// Confinement needs chroot-like and credential-drop semantics that
// Windows does not offer.
func confine(profile *config.Profile) error {
	return errors.New("isolate: confinement is not supported on windows")
}
