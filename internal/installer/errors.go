package installer

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrNetwork      = errors.New("network error")
	ErrNotFound     = errors.New("not found")
	ErrIntegrity    = errors.New("integrity check failed")
	ErrExtraction   = errors.New("extraction failed")
	ErrPermission   = errors.New("permission denied")
	ErrVerification = errors.New("installation verification failed")
)

// Stage identifies a step of the install pipeline.
type Stage string

const (
	StageResolve   Stage = "resolve"
	StageVerify    Stage = "verify"
	StagePlace     Stage = "place"
	StageSmokeTest Stage = "smoke test"
)

// StageError records the pipeline stage an install failed at.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// FailedStage returns the stage err was raised in, if any.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// classifyFSError maps permission failures onto ErrPermission and leaves
// other errors alone.
func classifyFSError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %w", ErrPermission, err)
	}
	return err
}
