package adns7550

import (
	"errors"
	"fmt"
)

var (
	// ErrLinkTimeout is reported when the laser-on status bit was not seen
	// within the link poll retry budget.
	ErrLinkTimeout = errors.New("adns7550: link poll timed out")

	// ErrIdentityMismatch is reported when the identity registers do not hold
	// the documented values. The concrete error is an *IdentityError.
	ErrIdentityMismatch = errors.New("adns7550: identity mismatch")

	// ErrFrameNotStarted is returned by ReadPixel when a frame was requested
	// but the chip did not flag the first pixel. Call again to retry.
	ErrFrameNotStarted = errors.New("adns7550: start of frame not flagged")

	// ErrHalted is returned by every operation after Halt.
	ErrHalted = errors.New("adns7550: halted")
)

// IdentityError carries the identity bytes read back from the chip.
type IdentityError struct {
	Product         byte
	InverseProduct  byte
	Revision        byte
	InverseRevision byte
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("adns7550: identity mismatch: product 0x%02X/0x%02X, revision 0x%02X/0x%02X, want 0x%02X/0x%02X, 0x%02X/0x%02X",
		e.Product, e.InverseProduct, e.Revision, e.InverseRevision,
		ProductID, InverseProductID, RevisionID, InverseRevisionID)
}

func (e *IdentityError) Unwrap() error {
	return ErrIdentityMismatch
}
