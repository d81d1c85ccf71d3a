package repository

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"heartstream/internal/models"
)

// PredictionRepository is the append-only audit store for replay decisions.
type PredictionRepository interface {
	SavePrediction(row *models.PredictionRow) error
	GetRecentPredictions(limit int) ([]*models.PredictionRow, error)
}

type predictionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPredictionRepository(db *sqlx.DB, logger *zap.Logger) PredictionRepository {
	return &predictionRepository{db: db, logger: logger}
}

func (r *predictionRepository) SavePrediction(row *models.PredictionRow) error {
	query := `INSERT INTO heart_disease.predictions (session_id, patient_data, prediction, probability, true_label, model_name, model_version)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`
	return r.db.QueryRowx(query, row.SessionID, row.PatientData, row.Prediction,
		row.Probability, row.TrueLabel, row.ModelName, row.ModelVersion).StructScan(row)
}

func (r *predictionRepository) GetRecentPredictions(limit int) ([]*models.PredictionRow, error) {
	var rows []*models.PredictionRow
	query := `SELECT id, session_id, patient_data, prediction, probability, true_label, model_name, model_version, created_at
	          FROM heart_disease.predictions ORDER BY created_at DESC LIMIT $1`
	err := r.db.Select(&rows, query, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
