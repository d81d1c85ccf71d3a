package models

import "time"

// SourceVariant identifies which inference path produced a prediction.
type SourceVariant string

const (
	SourceRemote SourceVariant = "remote"
	SourceLocal  SourceVariant = "local"
)

// Prediction is the outcome of one inference call. It lives only for the
// duration of a single replay iteration; the persisted audit row is the
// durable copy.
type Prediction struct {
	Label        int           `json:"prediction"`  // 0=healthy, 1=disease
	Probability  float64       `json:"probability"` // probability of class 1, [0,1]
	ModelName    string        `json:"model_name"`
	ModelVersion string        `json:"model_version"`
	Source       SourceVariant `json:"source"`
	Latency      time.Duration `json:"-"`
}

// PredictionRow is the append-only audit record stored in
// heart_disease.predictions.
type PredictionRow struct {
	ID           int64     `db:"id"`
	SessionID    string    `db:"session_id"`
	PatientData  []byte    `db:"patient_data"` // JSONB payload of the raw record
	Prediction   int       `db:"prediction"`
	Probability  float64   `db:"probability"`
	TrueLabel    int       `db:"true_label"`
	ModelName    string    `db:"model_name"`
	ModelVersion string    `db:"model_version"`
	CreatedAt    time.Time `db:"created_at"`
}

// Snapshot is the fixed eight-key telemetry projection of one prediction plus
// the running session stats. The dashboard widgets key on these exact JSON
// names; keeping them in a tagged struct prevents silent key drift.
type Snapshot struct {
	PatientID          int     `json:"patient_id"`
	Prediction         int     `json:"prediction"`
	Probability        float64 `json:"probability"` // percent, 0-100
	TrueLabel          int     `json:"true_label"`
	IsCorrect          int     `json:"is_correct"` // 0/1 for widget compatibility
	TotalPredictions   int64   `json:"total_predictions"`
	CorrectPredictions int64   `json:"correct_predictions"`
	Accuracy           float64 `json:"accuracy"` // percent, 0-100
}
