package ingest

import (
	"errors"
	"fmt"

	"github.com/akolanti/GoIngest/internal/domain/jobModel"
	"github.com/akolanti/GoIngest/internal/rag/embedding"
)

var ErrEmptyDocument = errors.New("document has no extractable text")

var ErrUnsupportedType = errors.New("unsupported document type")

// StageError is the typed failure of one ingestion run.
type StageError struct {
	Stage jobModel.Stage
	Kind  jobModel.ErrorKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// stageError classifies err. A dimension mismatch is a configuration fault and
// stops the consumer, anything else fails only this run.
func stageError(stage jobModel.Stage, err error) *StageError {
	kind := jobModel.KindPermanent
	if errors.Is(err, embedding.ErrDimensionMismatch) {
		kind = jobModel.KindFatal
	}
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// IsFatal reports whether err must halt the consumer without committing.
func IsFatal(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind == jobModel.KindFatal
	}
	return errors.Is(err, embedding.ErrDimensionMismatch)
}

// JobErrorOf describes err for an ingestion run record.
func JobErrorOf(err error) *jobModel.JobError {
	var se *StageError
	if errors.As(err, &se) {
		return &jobModel.JobError{Stage: se.Stage, Kind: se.Kind, Message: se.Err.Error()}
	}
	return &jobModel.JobError{Kind: jobModel.KindPermanent, Message: err.Error()}
}
