package transform

import "errors"

var (
	// ErrDecodeFailed indicates source bytes could not be interpreted as
	// an image (corrupt, truncated, or unsupported format). Recoverable:
	// the pipeline skips the item instead of aborting the run.
	ErrDecodeFailed = errors.New("image decode failed")

	// ErrInvalidResolution indicates a preparer was configured with a
	// non-positive target resolution.
	ErrInvalidResolution = errors.New("resolution must be greater than 0")
)
