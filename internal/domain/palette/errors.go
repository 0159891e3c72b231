package palette

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyVideo     = errors.New("video has no decodable frames")
	ErrDecodeFailure  = errors.New("frame could not be decoded")
	ErrEmptyPalette   = errors.New("palette is empty")
	ErrIOFailure      = errors.New("palette could not be written")
	ErrInvalidFrame   = errors.New("invalid frame")
	ErrInvalidPalette = errors.New("invalid palette document")
)

// Stage names a step of the extraction pipeline.
type Stage string

const (
	StageProbe     Stage = "probe"
	StageSample    Stage = "sample"
	StageDecode    Stage = "decode"
	StageCluster   Stage = "cluster"
	StageAggregate Stage = "aggregate"
	StageExport    Stage = "export"
	StageWrite     Stage = "write"
)

// StageError tags a pipeline failure with the stage it happened in.
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

// Fail wraps err with its stage. A nil err stays nil.
func Fail(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf reports the failing stage of err, if any.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
