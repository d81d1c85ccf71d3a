package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"heartstream/internal/models"
)

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		PatientID:          7,
		Prediction:         1,
		Probability:        85.23,
		TrueLabel:          1,
		IsCorrect:          1,
		TotalPredictions:   7,
		CorrectPredictions: 6,
		Accuracy:           85.71,
	}
}

func TestPublishSendsFixedKeys(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "device-token", time.Second, 3, zap.NewNop())
	require.NoError(t, c.Publish(context.Background(), testSnapshot()))

	assert.Equal(t, "/api/v1/device-token/telemetry", gotPath)
	for _, key := range []string{
		"patient_id", "prediction", "probability", "true_label",
		"is_correct", "total_predictions", "correct_predictions", "accuracy",
	} {
		assert.Contains(t, gotBody, key)
	}
	assert.Len(t, gotBody, 8)
}

func TestPublishAttributesEndpoint(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "device-token", time.Second, 3, zap.NewNop())
	require.NoError(t, c.PublishAttributes(context.Background(), "logistic_regression", "3"))

	assert.Equal(t, "/api/v1/device-token/attributes", gotPath)
	assert.Equal(t, "logistic_regression", gotBody["model_name"])
	assert.Equal(t, "3", gotBody["model_version"])
}

func TestPublishAuthRejectedNoRetry(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-token", time.Second, 5, zap.NewNop())
	err := c.Publish(context.Background(), testSnapshot())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthRejected)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestPublishTransientFailureRetriedToBound(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "device-token", time.Second, 2, zap.NewNop())
	err := c.Publish(context.Background(), testSnapshot())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthRejected)
	// Initial attempt plus two bounded retries.
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestPublishRecoversWithinRetryBudget(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "device-token", time.Second, 3, zap.NewNop())
	require.NoError(t, c.Publish(context.Background(), testSnapshot()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}
