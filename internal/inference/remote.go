package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"heartstream/internal/models"
)

// RemoteSource is a client for the prediction service's HTTP API.
type RemoteSource struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	modelName    string
	modelVersion string
}

// predictResponse mirrors the prediction endpoint's response body. Pointer
// fields let us distinguish a missing key from a zero value.
type predictResponse struct {
	Prediction   *int     `json:"prediction"`
	Probability  *float64 `json:"probability"`
	ModelName    string   `json:"model_name"`
	ModelVersion string   `json:"model_version"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// NewRemoteSource creates a prediction service client and probes the
// service's health endpoint. An unreachable service is a startup failure;
// the caller must not start a session on it.
func NewRemoteSource(ctx context.Context, baseURL string, timeout time.Duration, logger *zap.Logger) (*RemoteSource, error) {
	s := &RemoteSource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}

	if err := s.healthCheck(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Predict posts the fixed 11-field clinical payload to /predict.
func (s *RemoteSource) Predict(ctx context.Context, rec *models.PatientRecord) (*models.Prediction, error) {
	jsonData, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/predict", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if result.Prediction == nil || result.Probability == nil {
		return nil, fmt.Errorf("%w: response missing prediction or probability", ErrSchema)
	}

	// The service reports its serving model per response; remember the last
	// seen identity for audit rows.
	if result.ModelName != "" {
		s.modelName = result.ModelName
	}
	if result.ModelVersion != "" {
		s.modelVersion = result.ModelVersion
	}

	return &models.Prediction{
		Label:        *result.Prediction,
		Probability:  *result.Probability,
		ModelName:    result.ModelName,
		ModelVersion: result.ModelVersion,
		Source:       models.SourceRemote,
		Latency:      time.Since(start),
	}, nil
}

func (s *RemoteSource) ModelName() string {
	if s.modelName == "" {
		return "remote"
	}
	return s.modelName
}

func (s *RemoteSource) ModelVersion() string {
	if s.modelVersion == "" {
		return "unknown"
	}
	return s.modelVersion
}

func (s *RemoteSource) healthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}

	s.logger.Info("Prediction service reachable",
		zap.String("url", s.baseURL),
		zap.String("service", health.Service),
		zap.String("status", health.Status))

	return nil
}
