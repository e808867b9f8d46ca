package ml

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingArtifact is returned when a configured artifact file does not exist.
	ErrMissingArtifact = errors.New("missing artifact")
	// ErrIncompatibleArtifact is returned when an artifact exists but cannot be decoded
	// into something this build understands.
	ErrIncompatibleArtifact = errors.New("incompatible artifact")
	// ErrFeatureMismatch is returned when an encoded vector does not have the width
	// the artifact was fit against.
	ErrFeatureMismatch = errors.New("feature mismatch")
	// ErrInvalidRecord is returned when a record cannot be encoded under the schema.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrNoProbability is returned by models that cannot estimate class membership.
	ErrNoProbability = errors.New("model does not expose class probabilities")
)

// ArtifactError ties a load failure to the file that caused it.
type ArtifactError struct {
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	if errors.Is(e.Err, ErrMissingArtifact) {
		return fmt.Sprintf("artifact %s not found: place the file there or fix artifact paths in the config", e.Path)
	}
	return fmt.Sprintf("artifact %s cannot be used: %v", e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

func missing(path string, err error) error {
	return &ArtifactError{Path: path, Err: fmt.Errorf("%w: %v", ErrMissingArtifact, err)}
}

func incompatible(path string, format string, args ...interface{}) error {
	return &ArtifactError{Path: path, Err: fmt.Errorf("%w: %s", ErrIncompatibleArtifact, fmt.Sprintf(format, args...))}
}

// FeatureMismatchError carries both sides of a width disagreement.
type FeatureMismatchError struct {
	Expected int
	Actual   int
}

func (e *FeatureMismatchError) Error() string {
	return fmt.Sprintf("feature mismatch: model expects %d features, input produced %d", e.Expected, e.Actual)
}

func (e *FeatureMismatchError) Is(target error) bool { return target == ErrFeatureMismatch }

// StageError reports which step of a prediction failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
