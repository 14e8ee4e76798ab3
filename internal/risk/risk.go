// Genoscope - Biomarker Evidence Scoring and Browser
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genoscope

// Package risk implements the demonstration risk-score predictor. It is not
// a medical model: the score is a deterministic hash of the submitted form,
// so identical inputs always yield the same number. It exists to exercise
// the patient-data form end to end.
package risk

import (
	"fmt"
	"hash/fnv"
)

// PatientData is the risk predictor input form. Ranges are loose sanity
// bounds, not clinical reference ranges.
type PatientData struct {
	Age         int `json:"age" validate:"required,min=0,max=130"`
	Gender      int `json:"gender" validate:"min=0,max=1"`
	Glucose     int `json:"glucose" validate:"min=0,max=1000"`
	Cholesterol int `json:"cholesterol" validate:"min=0,max=1000"`
	HDL         int `json:"hdl" validate:"min=0,max=500"`
	TCH         int `json:"tch" validate:"min=0,max=1000"`
	LDL         int `json:"ldl" validate:"min=0,max=1000"`
	BMI         int `json:"bmi" validate:"min=0,max=200"`
	Smoker      int `json:"smoker" validate:"min=0,max=1"`
	Alcohol     int `json:"alcohol" validate:"min=0,max=1"`
}

// Prediction is the predictor output.
type Prediction struct {
	Result int `json:"result"`
}

// Score returns a pseudo-random risk in [0,100] derived from the inputs.
// The FNV-1a hash of the canonical field encoding makes the result stable
// across runs and platforms.
func Score(data PatientData) Prediction {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%d|%d|%d|%d|%d|%d|%d|%d|%d",
		data.Age, data.Gender, data.Glucose, data.Cholesterol, data.HDL,
		data.TCH, data.LDL, data.BMI, data.Smoker, data.Alcohol)
	return Prediction{Result: int(h.Sum64() % 101)}
}
