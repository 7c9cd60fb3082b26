package gqlindex

import (
	"errors"
	"fmt"
)

// Stage names a compilation stage.
type Stage string

const (
	// StageTransform resolves the key directives and rewrites the schema.
	StageTransform Stage = "transform"
	// StageResolvers declares tables and indexes and emits resolver fragments.
	StageResolvers Stage = "resolvers"
)

// StageError wraps a failure during one stage. Directive errors keep their
// type underneath and can be recovered with errors.As.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// IsStage reports whether err failed during stage.
func IsStage(err error, stage Stage) bool {
	var se *StageError
	return errors.As(err, &se) && se.Stage == stage
}
