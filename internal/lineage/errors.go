package lineage

import (
	"errors"
	"fmt"
)

// History errors
var (
	// ErrEmptyHistory indicates an undo past the first artifact or a redo
	// with nothing left to redo.
	ErrEmptyHistory = errors.New("empty history")

	// ErrIndexOutOfRange indicates a snapshot index outside the lineage.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Transformation errors
var (
	// ErrInvalidOperation indicates a transformation rejected its input.
	// Transformations wrap it so callers can test with errors.Is.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrBranchingOutcome indicates a one-to-many result was applied to a
	// single Lineage. Use a Forest for branching transformations.
	ErrBranchingOutcome = errors.New("transformation produced multiple artifacts")

	// ErrNilArtifact indicates a missing artifact where one is required.
	ErrNilArtifact = errors.New("nil artifact")
)

// Construction and serialization errors
var (
	// ErrLengthMismatch indicates forest seeds that do not pair up with the
	// initial artifacts.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrMalformedRecord indicates a serialized lineage that cannot be decoded.
	ErrMalformedRecord = errors.New("malformed lineage record")
)

// MemberError reports which forest member caused a failure.
type MemberError struct {
	// Index is the member's position in the forest when the call started.
	Index int

	// Digest identifies the member's current artifact (see ArtifactDigest).
	Digest string

	// Err is the underlying error, unchanged.
	Err error
}

// Error implements the error interface.
func (e *MemberError) Error() string {
	d := e.Digest
	if len(d) > 12 {
		d = d[:12]
	}
	return fmt.Sprintf("member %d (artifact %s): %v", e.Index, d, e.Err)
}

// Unwrap returns the underlying error.
func (e *MemberError) Unwrap() error {
	return e.Err
}

func memberError(i int, m *Lineage, err error) *MemberError {
	return &MemberError{Index: i, Digest: ArtifactDigest(m.Current()), Err: err}
}
