package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"

	"heartstream/internal/models"
)

// Load reads the validation CSV at path into an ordered slice of samples.
// The file must carry a header naming the 11 feature columns plus "target";
// column order in the file is free, replay order is file row order.
func Load(path string, logger *zap.Logger) ([]models.PatientRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	required := append([]string{}, models.FeatureNames...)
	required = append(required, "target")
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("dataset is missing column %q", name)
		}
	}

	var records []models.PatientRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset row %d: %w", line, err)
		}

		rec, err := parseRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("dataset row %d: %w", line, err)
		}
		records = append(records, rec)
	}

	logger.Info("Validation dataset loaded",
		zap.String("path", path),
		zap.Int("records", len(records)))

	return records, nil
}

func parseRow(row []string, idx map[string]int) (models.PatientRecord, error) {
	var rec models.PatientRecord

	intField := func(name string, dst *int) error {
		// CSV exports of the training split may carry floats for int columns.
		v, err := strconv.ParseFloat(row[idx[name]], 64)
		if err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
		*dst = int(v)
		return nil
	}

	for _, f := range []struct {
		name string
		dst  *int
	}{
		{"age", &rec.Age}, {"sex", &rec.Sex}, {"chest_pain_type", &rec.ChestPainType},
		{"resting_bp", &rec.RestingBP}, {"cholesterol", &rec.Cholesterol},
		{"fasting_bs", &rec.FastingBS}, {"resting_ecg", &rec.RestingECG},
		{"max_hr", &rec.MaxHR}, {"exercise_angina", &rec.ExerciseAngina},
		{"st_slope", &rec.STSlope}, {"target", &rec.Target},
	} {
		if err := intField(f.name, f.dst); err != nil {
			return rec, err
		}
	}

	oldpeak, err := strconv.ParseFloat(row[idx["oldpeak"]], 64)
	if err != nil {
		return rec, fmt.Errorf("column oldpeak: %w", err)
	}
	rec.Oldpeak = oldpeak

	return rec, nil
}
