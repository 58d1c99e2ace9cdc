package pipeline

import (
	"errors"
	"fmt"

	"go-lake-pipeline/internal/engine"
	"go-lake-pipeline/internal/objstore"
	"go-lake-pipeline/internal/staging"
)

// ErrInvalidDataset is returned when a dataset violates its validation rules.
var ErrInvalidDataset = errors.New("invalid dataset")

// Stage names, in execution order.
const (
	StageGenerate    = "generate"
	StageValidate    = "validate"
	StageContainer   = "ensure_container"
	StageSerialize   = "serialize"
	StageUpload      = "upload"
	StageDownload    = "download"
	StageDeserialize = "deserialize"
	StageStage       = "stage"
	StageLoad        = "load"
	StageQuery       = "query"
)

// StageError reports which stage of a run failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err originates from the object store.
func IsStoreError(err error) bool {
	return errors.Is(err, objstore.ErrStoreUnavailable) ||
		errors.Is(err, objstore.ErrStore) ||
		errors.Is(err, objstore.ErrObjectNotFound)
}

// errorType classifies err for stage error records.
func errorType(err error) string {
	switch {
	case errors.Is(err, objstore.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, objstore.ErrObjectNotFound):
		return "object_not_found"
	case errors.Is(err, objstore.ErrStore):
		return "store"
	case errors.Is(err, staging.ErrMalformedStagingData):
		return "malformed_data"
	case errors.Is(err, staging.ErrUnrepresentable):
		return "unrepresentable_data"
	case errors.Is(err, ErrInvalidDataset):
		return "invalid_dataset"
	case errors.Is(err, engine.ErrLoad):
		return "load"
	case errors.Is(err, engine.ErrQuery):
		return "query"
	default:
		return "internal"
	}
}
