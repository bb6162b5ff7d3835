package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Brownie44l1/pesticide-api/internal/pesticide"
)

const (
	LayoutNHWC = "nhwc"
	LayoutNCHW = "nchw"

	defaultImageSize  = 128
	defaultInputName  = "input"
	defaultOutputName = "output"
)

var (
	ErrInputSize = errors.New("input size mismatch")
	ErrMetadata  = errors.New("invalid model metadata")
)

// Metadata describes the exported classifier. It is written next to the
// .onnx file by the export script.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	Layout      string   `json:"layout"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`

	labels []pesticide.ClassLabel
}

// DefaultMetadata matches the Keras model: 128x128 RGB, channels last,
// seven softmax outputs.
func DefaultMetadata() Metadata {
	m := Metadata{
		InputShape:  []int64{1, defaultImageSize, defaultImageSize, 3},
		OutputShape: []int64{1, int64(len(pesticide.Labels()))},
		Classes:     pesticide.Names(),
		ImageSize:   defaultImageSize,
		Layout:      LayoutNHWC,
		InputName:   defaultInputName,
		OutputName:  defaultOutputName,
	}
	_ = m.normalize()
	return m
}

// LoadMetadata reads and validates a metadata file. Missing optional
// fields fall back to the Keras defaults.
func LoadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if err := m.normalize(); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

func (m *Metadata) normalize() error {
	if m.ImageSize == 0 {
		m.ImageSize = defaultImageSize
	}
	if m.ImageSize < 0 {
		return fmt.Errorf("%w: image size %d", ErrMetadata, m.ImageSize)
	}
	m.Layout = strings.ToLower(m.Layout)
	if m.Layout == "" {
		m.Layout = LayoutNHWC
	}
	if m.Layout != LayoutNHWC && m.Layout != LayoutNCHW {
		return fmt.Errorf("%w: layout %q", ErrMetadata, m.Layout)
	}
	if m.InputName == "" {
		m.InputName = defaultInputName
	}
	if m.OutputName == "" {
		m.OutputName = defaultOutputName
	}
	if len(m.Classes) == 0 {
		m.Classes = pesticide.Names()
	}

	m.labels = make([]pesticide.ClassLabel, 0, len(m.Classes))
	for _, c := range m.Classes {
		l, err := pesticide.ParseLabel(c)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMetadata, err)
		}
		m.labels = append(m.labels, l)
	}

	if len(m.InputShape) == 0 {
		if m.Layout == LayoutNCHW {
			m.InputShape = []int64{1, 3, int64(m.ImageSize), int64(m.ImageSize)}
		} else {
			m.InputShape = []int64{1, int64(m.ImageSize), int64(m.ImageSize), 3}
		}
	}
	if len(m.OutputShape) == 0 {
		m.OutputShape = []int64{1, int64(len(m.labels))}
	}

	if !positive(m.InputShape) || !positive(m.OutputShape) {
		return fmt.Errorf("%w: shapes %v and %v must have positive dimensions", ErrMetadata, m.InputShape, m.OutputShape)
	}
	if want := int64(3 * m.ImageSize * m.ImageSize); product(m.InputShape) != want {
		return fmt.Errorf("%w: input shape %v does not hold a %dx%d RGB image", ErrMetadata, m.InputShape, m.ImageSize, m.ImageSize)
	}
	if last := m.OutputShape[len(m.OutputShape)-1]; last != int64(len(m.labels)) {
		return fmt.Errorf("%w: output shape %v does not match %d classes", ErrMetadata, m.OutputShape, len(m.labels))
	}
	return nil
}

// Labels returns the class labels in output order.
func (m Metadata) Labels() []pesticide.ClassLabel {
	return m.labels
}

// InputSize is the number of float32 values the model expects.
func (m Metadata) InputSize() int {
	return int(product(m.InputShape))
}

func positive(shape []int64) bool {
	for _, d := range shape {
		if d <= 0 {
			return false
		}
	}
	return true
}

func product(shape []int64) int64 {
	if len(shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

type PredictionRequest struct {
	Image []float32 `json:"image"`
}

// PredictionResponse is the argmax class with its probability and the
// full output vector keyed by label.
type PredictionResponse struct {
	Class       pesticide.ClassLabel `json:"class"`
	Confidence  float32              `json:"confidence"`
	Predictions map[string]float32   `json:"predictions"`
}
