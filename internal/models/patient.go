package models

import "fmt"

// PatientRecord is one labeled validation sample: the fixed 11-field clinical
// feature schema plus the ground-truth label. Field order matches the dataset
// columns and the prediction service's request contract.
type PatientRecord struct {
	Age            int     `json:"age"`
	Sex            int     `json:"sex"`             // 0=female, 1=male
	ChestPainType  int     `json:"chest_pain_type"` // 1-4
	RestingBP      int     `json:"resting_bp"`
	Cholesterol    int     `json:"cholesterol"`
	FastingBS      int     `json:"fasting_bs"` // 0/1, >120 mg/dl
	RestingECG     int     `json:"resting_ecg"`
	MaxHR          int     `json:"max_hr"`
	ExerciseAngina int     `json:"exercise_angina"` // 0/1
	Oldpeak        float64 `json:"oldpeak"`
	STSlope        int     `json:"st_slope"` // 0-3

	Target int `json:"-"` // ground truth, never sent to the model
}

// FeatureNames is the canonical column order shared by the dataset, the
// prediction request payload, and the local model artifact.
var FeatureNames = []string{
	"age", "sex", "chest_pain_type", "resting_bp", "cholesterol",
	"fasting_bs", "resting_ecg", "max_hr", "exercise_angina",
	"oldpeak", "st_slope",
}

// Features returns the record's feature values in FeatureNames order.
func (p *PatientRecord) Features() []float64 {
	return []float64{
		float64(p.Age), float64(p.Sex), float64(p.ChestPainType),
		float64(p.RestingBP), float64(p.Cholesterol), float64(p.FastingBS),
		float64(p.RestingECG), float64(p.MaxHR), float64(p.ExerciseAngina),
		p.Oldpeak, float64(p.STSlope),
	}
}

// Validate checks every feature against the numeric domains declared by the
// training dataset. A violation is a caller error, not an inference error.
func (p *PatientRecord) Validate() error {
	checks := []struct {
		name     string
		val      float64
		min, max float64
	}{
		{"age", float64(p.Age), 18, 100},
		{"sex", float64(p.Sex), 0, 1},
		{"chest_pain_type", float64(p.ChestPainType), 1, 4},
		{"resting_bp", float64(p.RestingBP), 60, 260},
		{"cholesterol", float64(p.Cholesterol), 70, 900},
		{"fasting_bs", float64(p.FastingBS), 0, 1},
		{"resting_ecg", float64(p.RestingECG), 0, 2},
		{"max_hr", float64(p.MaxHR), 30, 260},
		{"exercise_angina", float64(p.ExerciseAngina), 0, 1},
		{"oldpeak", p.Oldpeak, -3.0, 7.0},
		{"st_slope", float64(p.STSlope), 0, 3},
	}
	for _, c := range checks {
		if c.val < c.min || c.val > c.max {
			return fmt.Errorf("field %s=%v out of range [%v, %v]", c.name, c.val, c.min, c.max)
		}
	}
	if p.Target != 0 && p.Target != 1 {
		return fmt.Errorf("target=%d is not a binary label", p.Target)
	}
	return nil
}
