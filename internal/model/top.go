package model

import (
	"fmt"
	"math"

	"github.com/Brownie44l1/pesticide-api/internal/pesticide"
)

// Top picks the argmax over the first len(labels) outputs. Ties go to the
// lowest index. Confidence is clamped into [0,1].
func Top(output []float32, labels []pesticide.ClassLabel) (*PredictionResponse, error) {
	if len(labels) == 0 || len(output) < len(labels) {
		return nil, fmt.Errorf("%w: %d outputs for %d classes", ErrInputSize, len(output), len(labels))
	}

	maxIdx := 0
	maxVal := output[0]
	predictions := make(map[string]float32, len(labels))

	for i, l := range labels {
		val := output[i]
		predictions[string(l)] = val
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}

	return &PredictionResponse{
		Class:       labels[maxIdx],
		Confidence:  clamp(maxVal),
		Predictions: predictions,
	}, nil
}

func clamp(v float32) float32 {
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
