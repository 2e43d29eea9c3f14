package stream

import "errors"

// Framing faults. The pipeline wraps these with the position at which they occurred.
var (
	ErrMissingStartOfFrame    = errors.New("stream ended before any start-of-frame marker")
	ErrTruncatedFrame         = errors.New("stream ended inside a frame")
	ErrMissingEndOfLine       = errors.New("stream ended before end-of-line")
	ErrUnexpectedStartOfFrame = errors.New("start-of-frame inside a frame")
	ErrStalled                = errors.New("no sample within stall timeout")
	ErrMarkerMismatch         = errors.New("framing markers disagree with frame geometry")
)

// IsFramingError reports whether err is one of the framing faults above.
func IsFramingError(err error) bool {
	for _, target := range []error{
		ErrMissingStartOfFrame,
		ErrTruncatedFrame,
		ErrMissingEndOfLine,
		ErrUnexpectedStartOfFrame,
		ErrStalled,
		ErrMarkerMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
