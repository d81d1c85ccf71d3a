package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPatient() PatientRecord {
	return PatientRecord{
		Age: 54, Sex: 1, ChestPainType: 3, RestingBP: 150, Cholesterol: 195,
		FastingBS: 0, RestingECG: 0, MaxHR: 122, ExerciseAngina: 0,
		Oldpeak: 0.0, STSlope: 1,
		Target: 1,
	}
}

func TestFeaturesMatchCanonicalOrder(t *testing.T) {
	p := validPatient()
	features := p.Features()
	require.Len(t, features, len(FeatureNames))
	assert.Equal(t, 54.0, features[0])  // age
	assert.Equal(t, 195.0, features[4]) // cholesterol
	assert.Equal(t, 1.0, features[10])  // st_slope
}

func TestValidate(t *testing.T) {
	p := validPatient()
	require.NoError(t, p.Validate())

	p.ChestPainType = 0
	assert.Error(t, p.Validate())

	p = validPatient()
	p.Oldpeak = 9.5
	assert.Error(t, p.Validate())

	p = validPatient()
	p.Target = 2
	assert.Error(t, p.Validate())
}

func TestPatientJSONOmitsTarget(t *testing.T) {
	data, err := json.Marshal(validPatient())
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.NotContains(t, payload, "target")
	assert.Len(t, payload, len(FeatureNames))
}

func TestRunningStats(t *testing.T) {
	var s RunningStats
	assert.Equal(t, 0.0, s.Accuracy())

	outcomes := []bool{true, false, true, true, false, true}
	for _, ok := range outcomes {
		s.Record(ok)
		assert.LessOrEqual(t, s.Correct, s.Total)
	}
	assert.Equal(t, int64(6), s.Total)
	assert.Equal(t, int64(4), s.Correct)
	assert.InDelta(t, 4.0/6.0, s.Accuracy(), 1e-12)
	// Recomputed, not drifted: repeated reads are identical.
	assert.Equal(t, s.Accuracy(), s.Accuracy())
}
