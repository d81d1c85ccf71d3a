package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"heartstream/internal/inference"
	"heartstream/internal/metrics"
	"heartstream/internal/models"
	"heartstream/internal/telemetry"
)

// State is the replay session's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// AuditStore is the slice of the prediction repository the session needs.
type AuditStore interface {
	SavePrediction(row *models.PredictionRow) error
}

// Publisher is the slice of the telemetry client the session needs.
type Publisher interface {
	Publish(ctx context.Context, snap *models.Snapshot) error
	PublishAttributes(ctx context.Context, modelName, modelVersion string) error
}

// Options are the replay pacing and termination knobs.
type Options struct {
	// Interval is the pause between samples; 0 replays as fast as possible.
	Interval time.Duration
	// MaxSamples caps the number of processed samples. Negative means
	// unbounded; 0 completes the session without touching any sink.
	MaxSamples int64
	// InferenceTimeout is the per-call deadline on the inference source.
	InferenceTimeout time.Duration
}

// Session replays an ordered set of labeled samples through the classifier,
// one at a time, reporting every decision to the audit store and the
// dashboard. RunningStats is owned exclusively by the session; observers only
// ever see copies.
type Session struct {
	id      string
	source  inference.Source
	audit   AuditStore
	pub     Publisher
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Metrics

	stats models.RunningStats
	state State

	// onSnapshot, when set, receives a copy of each published snapshot.
	// Used to feed the status server without sharing live state.
	onSnapshot func(models.Snapshot)
}

// NewSession creates a session in the Idle state.
func NewSession(source inference.Source, audit AuditStore, pub Publisher, opts Options, m *metrics.Metrics, logger *zap.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:      id,
		source:  source,
		audit:   audit,
		pub:     pub,
		opts:    opts,
		logger:  logger.With(zap.String("session_id", id)),
		metrics: m,
		state:   StateIdle,
	}
}

// ID returns the session's identifier, stamped into logs and audit rows.
func (s *Session) ID() string { return s.id }

// State returns the session's current lifecycle state.
func (s *Session) State() State { return s.state }

// Stats returns a copy of the running counters.
func (s *Session) Stats() models.RunningStats { return s.stats }

// OnSnapshot registers an observer for published snapshot copies. Must be
// called before Run.
func (s *Session) OnSnapshot(fn func(models.Snapshot)) { s.onSnapshot = fn }

// Run replays records in order until exhaustion, the sample cap, or
// cancellation. It returns the terminal state; the error is non-nil only for
// Aborted. A sample that has been dispatched always finishes its sink writes
// (or exhausts their retries) before cancellation is honored.
func (s *Session) Run(ctx context.Context, records []models.PatientRecord) (State, error) {
	s.logger.Info("Replay session starting",
		zap.Int("records", len(records)),
		zap.Duration("interval", s.opts.Interval),
		zap.Int64("max_samples", s.opts.MaxSamples))

	if s.opts.MaxSamples == 0 {
		s.logger.Info("Sample cap is zero, nothing to replay")
		s.state = StateCompleted
		return s.state, nil
	}

	// Report the serving model's identity once, before the first sample.
	// Transient failures here are tolerable; a rejected token is not.
	if err := s.pub.PublishAttributes(context.WithoutCancel(ctx), s.source.ModelName(), s.source.ModelVersion()); err != nil {
		if errors.Is(err, telemetry.ErrAuthRejected) {
			s.state = StateAborted
			return s.state, fmt.Errorf("telemetry authentication rejected: %w", err)
		}
		s.logger.Warn("Failed to publish model attributes", zap.Error(err))
	}

	var processed int64
	for i := range records {
		select {
		case <-ctx.Done():
			s.logger.Info("Replay cancelled between iterations",
				zap.Int64("processed", processed))
			s.state = StateCompleted
			return s.state, nil
		default:
		}

		s.state = StateRunning
		if err := s.processSample(ctx, i+1, &records[i]); err != nil {
			s.state = StateAborted
			return s.state, err
		}
		processed++

		if s.opts.MaxSamples > 0 && processed >= s.opts.MaxSamples {
			s.logger.Info("Sample cap reached", zap.Int64("processed", processed))
			break
		}

		if i < len(records)-1 && s.opts.Interval > 0 {
			select {
			case <-ctx.Done():
				s.logger.Info("Replay cancelled during pacing sleep",
					zap.Int64("processed", processed))
				s.state = StateCompleted
				return s.state, nil
			case <-time.After(s.opts.Interval):
			}
		}
	}

	s.logger.Info("Replay session finished",
		zap.Int64("total", s.stats.Total),
		zap.Int64("correct", s.stats.Correct),
		zap.Float64("accuracy", s.stats.Accuracy()))

	s.state = StateCompleted
	return s.state, nil
}

// processSample runs one full iteration for a dispatched sample. The returned
// error is non-nil only for fatal conditions; per-sample failures are logged
// and swallowed so a bad sample never halts the stream.
func (s *Session) processSample(ctx context.Context, patientID int, rec *models.PatientRecord) error {
	// Out-of-range fields are a caller error, not an inference failure.
	if err := rec.Validate(); err != nil {
		s.logger.Warn("Skipping invalid sample",
			zap.Int("patient_id", patientID),
			zap.Error(err))
		return nil
	}

	// A dispatched sample runs to completion even if the session is being
	// cancelled, so sink writes carry their own deadlines detached from the
	// session context.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.InferenceTimeout)
	pred, err := s.source.Predict(callCtx, rec)
	cancel()
	if err != nil {
		s.logger.Error("Inference call failed",
			zap.Int("patient_id", patientID),
			zap.Error(err))
		return nil
	}
	s.metrics.InferenceLatency.Observe(pred.Latency.Seconds())

	// Some prediction services omit the model identity per response; fall
	// back to the source's advertised identity for the audit trail.
	if pred.ModelName == "" {
		pred.ModelName = s.source.ModelName()
	}
	if pred.ModelVersion == "" {
		pred.ModelVersion = s.source.ModelVersion()
	}

	correct := pred.Label == rec.Target
	s.stats.Record(correct)
	s.metrics.SamplesProcessed.Inc()
	if correct {
		s.metrics.CorrectPredictions.Inc()
	}

	s.logger.Info("Prediction",
		zap.Int("patient_id", patientID),
		zap.Int("prediction", pred.Label),
		zap.Float64("probability", pred.Probability),
		zap.Int("true_label", rec.Target),
		zap.Bool("is_correct", correct),
		zap.Float64("accuracy", s.stats.Accuracy()))

	s.persist(patientID, rec, pred)

	return s.publish(ctx, patientID, rec, pred, correct)
}

// persist appends the audit row. An audit gap is tolerable; halting the
// stream is not.
func (s *Session) persist(patientID int, rec *models.PatientRecord, pred *models.Prediction) {
	row, err := newAuditRow(s.id, rec, pred)
	if err == nil {
		err = s.audit.SavePrediction(row)
	}
	if err != nil {
		s.metrics.PersistenceFailures.Inc()
		s.logger.Error("Failed to persist prediction",
			zap.Int("patient_id", patientID),
			zap.Error(err))
	}
}

// publish pushes the snapshot to the dashboard. Retries are bounded inside
// the client; only an auth rejection escalates to a fatal error.
func (s *Session) publish(ctx context.Context, patientID int, rec *models.PatientRecord, pred *models.Prediction, correct bool) error {
	snap := s.snapshot(patientID, rec, pred, correct)

	if err := s.pub.Publish(context.WithoutCancel(ctx), &snap); err != nil {
		if errors.Is(err, telemetry.ErrAuthRejected) {
			return fmt.Errorf("telemetry authentication rejected: %w", err)
		}
		s.metrics.TelemetryDrops.Inc()
		s.logger.Warn("Telemetry dropped after retries",
			zap.Int("patient_id", patientID),
			zap.Error(err))
		return nil
	}

	if s.onSnapshot != nil {
		s.onSnapshot(snap)
	}
	return nil
}

// newAuditRow packages one decision into its durable form, with the raw
// patient payload serialized for the JSONB column.
func newAuditRow(sessionID string, rec *models.PatientRecord, pred *models.Prediction) (*models.PredictionRow, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patient payload: %w", err)
	}
	return &models.PredictionRow{
		SessionID:    sessionID,
		PatientData:  payload,
		Prediction:   pred.Label,
		Probability:  pred.Probability,
		TrueLabel:    rec.Target,
		ModelName:    pred.ModelName,
		ModelVersion: pred.ModelVersion,
	}, nil
}

func (s *Session) snapshot(patientID int, rec *models.PatientRecord, pred *models.Prediction, correct bool) models.Snapshot {
	isCorrect := 0
	if correct {
		isCorrect = 1
	}
	return models.Snapshot{
		PatientID:          patientID,
		Prediction:         pred.Label,
		Probability:        pred.Probability * 100,
		TrueLabel:          rec.Target,
		IsCorrect:          isCorrect,
		TotalPredictions:   s.stats.Total,
		CorrectPredictions: s.stats.Correct,
		Accuracy:           s.stats.Accuracy() * 100,
	}
}
