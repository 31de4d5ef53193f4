package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgallion1/outliner/internal/chunker"
	"github.com/dgallion1/outliner/internal/llm"
)

var (
	ErrValidation    = errors.New("invalid input")
	ErrConfiguration = errors.New("invalid configuration")
	ErrGeneration    = errors.New("generation failed")
	// ErrNoContent is the generation failure reported when every partial or
	// section came back empty.
	ErrNoContent            = fmt.Errorf("%w: no content produced", ErrGeneration)
	ErrGeneratorUnavailable = errors.New("generator unavailable")
)

// StageError names the stage at which a run failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// FailedStage returns the stage recorded in err, if any.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// Code is a coarse error class for logs and status codes.
type Code string

const (
	CodeUnknown       Code = "unknown"
	CodeValidation    Code = "validation"
	CodeConfiguration Code = "configuration"
	CodeGeneration    Code = "generation"
	CodeUnavailable   Code = "unavailable"
	CodeCancel        Code = "cancel"
)

// Classify maps err onto a Code using sentinel errors only.
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	case errors.Is(err, ErrGeneratorUnavailable), errors.Is(err, llm.ErrUnavailable):
		return CodeUnavailable
	case errors.Is(err, ErrConfiguration):
		return CodeConfiguration
	case errors.Is(err, ErrValidation), errors.Is(err, chunker.ErrInvalidBudget):
		return CodeValidation
	case errors.Is(err, ErrGeneration):
		return CodeGeneration
	}
	return CodeUnknown
}
