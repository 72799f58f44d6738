package ncchview

import (
	"errors"

	"github.com/connesc/ncchview/ctrutil"
)

// Errors returned by this package. They are always wrapped with context,
// so callers should test them with errors.Is.
var (
	// ErrCorrupt reports a structural violation in the input, such as a
	// missing magic number or an extended header with an impossible size.
	ErrCorrupt = errors.New("corrupt data")

	// ErrNotFound reports a section that is legitimately absent from the
	// NCCH, such as the RomFS of a container that never had one. It never
	// indicates corruption.
	ErrNotFound = errors.New("section not found")

	// ErrUnsupportedCryptMethod reports a crypt method byte outside the
	// four known rulesets.
	ErrUnsupportedCryptMethod = errors.New("unsupported crypt method")

	// ErrSeedUnavailable reports that seed crypto is required but no seed
	// is known for the title.
	ErrSeedUnavailable = errors.New("seed unavailable")

	// ErrSeedHashMismatch reports a seed that fails the verification hash
	// stored in the NCCH header.
	ErrSeedHashMismatch = errors.New("seed hash mismatch")

	// ErrOutOfRange reports a seek outside the extent of a section stream.
	ErrOutOfRange = ctrutil.ErrOutOfRange
)
