package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"heartstream/internal/models"
)

func testRecord() *models.PatientRecord {
	return &models.PatientRecord{
		Age: 54, Sex: 1, ChestPainType: 3, RestingBP: 150, Cholesterol: 195,
		FastingBS: 0, RestingECG: 0, MaxHR: 122, ExerciseAngina: 0,
		Oldpeak: 0.0, STSlope: 1,
		Target: 1,
	}
}

func healthyHandler(predict http.HandlerFunc) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"service": "Heart Disease ML API",
			"version": "1.0.0",
		})
	})
	mux.HandleFunc("/predict", predict)
	return mux
}

func TestRemotePredict(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(healthyHandler(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"prediction":    1,
			"probability":   0.8523,
			"model_name":    "random_forest",
			"model_version": "1",
		})
	}))
	defer srv.Close()

	src, err := NewRemoteSource(context.Background(), srv.URL, time.Second, zap.NewNop())
	require.NoError(t, err)

	pred, err := src.Predict(context.Background(), testRecord())
	require.NoError(t, err)
	assert.Equal(t, 1, pred.Label)
	assert.InDelta(t, 0.8523, pred.Probability, 1e-9)
	assert.Equal(t, models.SourceRemote, pred.Source)
	assert.Equal(t, "random_forest", src.ModelName())
	assert.Equal(t, "1", src.ModelVersion())

	// Exactly the fixed 11-field clinical schema, no ground truth leaked.
	for _, key := range models.FeatureNames {
		assert.Contains(t, gotPayload, key)
	}
	assert.Len(t, gotPayload, len(models.FeatureNames))
}

func TestRemoteStartupProbeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	srv.Close() // unreachable endpoint

	_, err := NewRemoteSource(context.Background(), srv.URL, time.Second, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRemotePredictServerError(t *testing.T) {
	srv := httptest.NewServer(healthyHandler(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src, err := NewRemoteSource(context.Background(), srv.URL, time.Second, zap.NewNop())
	require.NoError(t, err)

	_, err = src.Predict(context.Background(), testRecord())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRemotePredictSchemaMismatch(t *testing.T) {
	srv := httptest.NewServer(healthyHandler(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))
	defer srv.Close()

	src, err := NewRemoteSource(context.Background(), srv.URL, time.Second, zap.NewNop())
	require.NoError(t, err)

	_, err = src.Predict(context.Background(), testRecord())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestRemotePredictDeadline(t *testing.T) {
	srv := httptest.NewServer(healthyHandler(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	src, err := NewRemoteSource(context.Background(), srv.URL, time.Second, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = src.Predict(ctx, testRecord())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}
