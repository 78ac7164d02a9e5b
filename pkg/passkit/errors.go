package passkit

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEnumeration is returned when a restricted attribute is given
	// a value outside its fixed set.
	ErrInvalidEnumeration = errors.New("invalid enumeration value")
	// ErrInvalidValue is returned for malformed non-enumerated input such as a
	// non-scalar field value or an out of range coordinate.
	ErrInvalidValue = errors.New("invalid value")
	// ErrIO marks filesystem failures during pack or cleanup.
	ErrIO = errors.New("i/o failure")

	ErrPackFailure        = errors.New("pack failed")
	ErrIdentityExtraction = errors.New("identity extraction failed")
	ErrManifestFailure    = errors.New("manifest failed")
	ErrSigningFailure     = errors.New("signing failed")
	ErrArchiveFailure     = errors.New("archive failed")
)

// Phase names a step of the signing pipeline.
type Phase string

const (
	PhasePack     Phase = "pack"
	PhaseIdentity Phase = "identity"
	PhaseManifest Phase = "manifest"
	PhaseSign     Phase = "sign"
	PhaseArchive  Phase = "archive"
)

var phaseSentinels = map[Phase]error{
	PhasePack:     ErrPackFailure,
	PhaseIdentity: ErrIdentityExtraction,
	PhaseManifest: ErrManifestFailure,
	PhaseSign:     ErrSigningFailure,
	PhaseArchive:  ErrArchiveFailure,
}

// PhaseError reports which pipeline phase failed.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the failed phase, so
// errors.Is(err, ErrSigningFailure) holds for a failed sign phase.
func (e *PhaseError) Is(target error) bool {
	return phaseSentinels[e.Phase] == target
}

func phaseError(phase Phase, err error) error {
	if err == nil {
		return nil
	}
	return &PhaseError{Phase: phase, Err: err}
}

func invalidEnum(kind string, value interface{}) error {
	return fmt.Errorf("%w: %s %q", ErrInvalidEnumeration, kind, fmt.Sprint(value))
}
