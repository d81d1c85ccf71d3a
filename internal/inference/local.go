package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"go.uber.org/zap"

	"heartstream/internal/models"
)

// artifact is the serialized logistic-regression export produced by the
// training pipeline: standardization parameters plus the fitted weights,
// all in canonical feature order.
type artifact struct {
	ModelName    string    `json:"model_name"`
	ModelVersion string    `json:"model_version"`
	Features     []string  `json:"features"`
	Means        []float64 `json:"means"`
	Scales       []float64 `json:"scales"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Threshold    float64   `json:"threshold"`
}

// LocalSource evaluates a trained classifier in-process. The artifact is
// loaded once at startup and read-only afterwards.
type LocalSource struct {
	art    artifact
	logger *zap.Logger
}

// NewLocalSource loads the model artifact at path. A missing or incompatible
// artifact is a startup failure.
func NewLocalSource(path string, logger *zap.Logger) (*LocalSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	n := len(models.FeatureNames)
	if len(art.Features) != n || len(art.Coefficients) != n {
		return nil, fmt.Errorf("%w: artifact has %d features and %d coefficients, want %d",
			ErrModelLoad, len(art.Features), len(art.Coefficients), n)
	}
	for i, name := range models.FeatureNames {
		if art.Features[i] != name {
			return nil, fmt.Errorf("%w: feature %d is %q, want %q", ErrModelLoad, i, art.Features[i], name)
		}
	}
	if len(art.Means) != 0 && (len(art.Means) != n || len(art.Scales) != n) {
		return nil, fmt.Errorf("%w: scaler parameters do not match feature count", ErrModelLoad)
	}
	if art.Threshold == 0 {
		art.Threshold = 0.5
	}

	logger.Info("Model artifact loaded",
		zap.String("path", path),
		zap.String("model_name", art.ModelName),
		zap.String("model_version", art.ModelVersion))

	return &LocalSource{art: art, logger: logger}, nil
}

// Predict evaluates the logistic model on the record's feature vector.
func (s *LocalSource) Predict(_ context.Context, rec *models.PatientRecord) (*models.Prediction, error) {
	start := time.Now()

	features := rec.Features()
	z := s.art.Intercept
	for i, x := range features {
		if len(s.art.Means) != 0 {
			if s.art.Scales[i] == 0 {
				return nil, fmt.Errorf("%w: zero scale for feature %s", ErrEvaluate, s.art.Features[i])
			}
			x = (x - s.art.Means[i]) / s.art.Scales[i]
		}
		z += s.art.Coefficients[i] * x
	}

	prob := 1.0 / (1.0 + math.Exp(-z))
	if math.IsNaN(prob) || math.IsInf(prob, 0) {
		return nil, fmt.Errorf("%w: non-finite probability for feature vector", ErrEvaluate)
	}

	label := 0
	if prob >= s.art.Threshold {
		label = 1
	}

	return &models.Prediction{
		Label:        label,
		Probability:  prob,
		ModelName:    s.art.ModelName,
		ModelVersion: s.art.ModelVersion,
		Source:       models.SourceLocal,
		Latency:      time.Since(start),
	}, nil
}

func (s *LocalSource) ModelName() string    { return s.art.ModelName }
func (s *LocalSource) ModelVersion() string { return s.art.ModelVersion }
