package vcdiff

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel error kinds. Concrete errors wrap one of these with
// fmt.Errorf("...: %w", ErrX) so callers can test with errors.Is.
var (
	ErrIo               = errors.New("io error")
	ErrInvalidHeader    = errors.New("invalid VCDIFF header")
	ErrInvalidWindow    = errors.New("invalid VCDIFF window")
	ErrVarintOverflow   = errors.New("varint overflow")
	ErrWindowTooLarge   = errors.New("window exceeds configured maximum")
	ErrChecksumMismatch = errors.New("adler-32 checksum mismatch")
	ErrUnsupported      = errors.New("unsupported VCDIFF feature")
	ErrInvalidConfig    = errors.New("invalid stream configuration")

	// Legacy aliases kept from the teacher for source compatibility.
	ErrInvalidMagic    = fmt.Errorf("invalid VCDIFF magic bytes: %w", ErrInvalidHeader)
	ErrInvalidVersion  = fmt.Errorf("unsupported VCDIFF version: %w", ErrInvalidHeader)
	ErrInvalidFormat   = ErrInvalidWindow
	ErrCorruptedData   = ErrInvalidWindow
	ErrInvalidChecksum = ErrChecksumMismatch
)

func errUnexpectedEOF(context string, bytesNeeded int) error {
	return fmt.Errorf("unexpected EOF while reading %s: need %d bytes: %w", context, bytesNeeded, ErrInvalidHeader)
}

func errDataOverrun(instruction string, offset int, needed int, available int) error {
	return fmt.Errorf("%s instruction at offset %d requires %d bytes but only %d available in data section: %w",
		instruction, offset, needed, available, ErrInvalidWindow)
}

func errInvalidValue(field string, offset int, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s at offset %d: value %v, %s: %w", field, offset, value, reason, ErrInvalidHeader)
}

func errOutOfBounds(instruction string, address uint64, size uint64, maxBound uint64) error {
	return fmt.Errorf("%s instruction address %d + size %d exceeds bounds (max %d): %w",
		instruction, address, size, maxBound, ErrInvalidWindow)
}

// wrapDriver attaches a stack trace at a state-machine driver boundary,
// the one place a library consumer actually benefits from one: decoding
// an untrusted, possibly-corrupt delta handed in by a remote peer.
func wrapDriver(err error, context string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, context)
}
