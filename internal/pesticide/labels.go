package pesticide

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// ClassLabel is one of the pesticide categories the classifier can output.
type ClassLabel string

const (
	Insecticide ClassLabel = "insecticide"
	Fungicide   ClassLabel = "fungicide"
	Herbicide   ClassLabel = "herbicide"
	Bactericide ClassLabel = "bactericide"
	Rodenticide ClassLabel = "Rodenticide"
	Nematicide  ClassLabel = "Nematicide"
	Miticide    ClassLabel = "Miticide"
)

// LowConfidenceThreshold is the confidence below which a prediction must
// be verified manually.
const LowConfidenceThreshold float32 = 0.7

var ErrUnknownLabel = errors.New("unknown pesticide label")

// labels is in model output order.
var labels = [...]ClassLabel{
	Insecticide,
	Fungicide,
	Herbicide,
	Bactericide,
	Rodenticide,
	Nematicide,
	Miticide,
}

// Labels returns the label set in model output order.
func Labels() []ClassLabel {
	out := make([]ClassLabel, len(labels))
	copy(out, labels[:])
	return out
}

// Names returns the label set as plain strings, in model output order.
func Names() []string {
	return lo.Map(labels[:], func(l ClassLabel, _ int) string { return string(l) })
}

// ParseLabel matches name exactly against the label set.
func ParseLabel(name string) (ClassLabel, error) {
	l := ClassLabel(name)
	if !lo.Contains(labels[:], l) {
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, name)
	}
	return l, nil
}

func (l ClassLabel) Valid() bool {
	return lo.Contains(labels[:], l)
}

func (l ClassLabel) String() string {
	return string(l)
}

// IsLowConfidence reports whether a prediction needs manual review.
func IsLowConfidence(confidence float32) bool {
	return confidence < LowConfidenceThreshold
}
