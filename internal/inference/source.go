package inference

import (
	"context"
	"errors"

	"heartstream/internal/models"
)

// Source produces a prediction for one patient feature vector. Exactly two
// implementations exist, remote and local; the variant is chosen once at
// session start and never switched at runtime.
type Source interface {
	// Predict classifies the record's feature vector. The label is 0 or 1 and
	// the probability is the class-1 probability in [0,1].
	Predict(ctx context.Context, rec *models.PatientRecord) (*models.Prediction, error)

	// ModelName and ModelVersion identify the model backing this source, for
	// audit rows and device attributes.
	ModelName() string
	ModelVersion() string
}

var (
	// ErrUnavailable marks a remote endpoint that could not be reached or
	// answered with a non-success status. Call deadlines map here too.
	ErrUnavailable = errors.New("inference service unavailable")

	// ErrSchema marks a remote response missing the expected fields.
	ErrSchema = errors.New("inference response schema mismatch")

	// ErrModelLoad marks a missing or incompatible local model artifact.
	// Raised at startup only; a source that fails to load is fatal.
	ErrModelLoad = errors.New("model artifact load failed")

	// ErrEvaluate marks a per-call local evaluation failure.
	ErrEvaluate = errors.New("model evaluation failed")
)
