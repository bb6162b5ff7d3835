package model

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Server owns one ONNX Runtime session with preallocated input and output
// tensors. Runs share those tensors, so Predict is serialized.
type Server struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// Options locate the runtime and the exported model on disk.
type Options struct {
	ModelPath string
	// SharedLibraryPath points at libonnxruntime. Empty uses the
	// platform default lookup.
	SharedLibraryPath string
}

var ErrModelClosed = errors.New("model closed")

// envMu guards the process-wide ONNX Runtime environment. Failures are not
// remembered: the next open tries again, with whatever library path it has.
var envMu sync.Mutex

func initEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	return ort.InitializeEnvironment()
}

func NewServer(opts Options, metadata Metadata, log *slog.Logger) (*Server, error) {
	if err := initEnvironment(opts.SharedLibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputShape := ort.NewShape(metadata.InputShape...)
	outputShape := ort.NewShape(metadata.OutputShape...)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(opts.ModelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	log.Info("Model loaded",
		"path", opts.ModelPath,
		"input_shape", metadata.InputShape,
		"output_shape", metadata.OutputShape,
		"layout", metadata.Layout,
		"classes", metadata.Classes)

	return &Server{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (s *Server) Predict(inputData []float32) (*PredictionResponse, error) {
	if want := s.Metadata.InputSize(); len(inputData) != want {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrInputSize, want, len(inputData))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil || s.inputTensor == nil || s.outputTensor == nil {
		return nil, ErrModelClosed
	}

	copy(s.inputTensor.GetData(), inputData)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return Top(s.outputTensor.GetData(), s.Metadata.Labels())
}

// Close releases the session and tensors. The runtime environment itself
// stays up for the life of the process.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inputTensor != nil {
		s.inputTensor.Destroy()
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
		s.outputTensor = nil
	}
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
}

// Shutdown tears down the ONNX Runtime environment. Call once, after every
// Server is closed.
func Shutdown() error {
	envMu.Lock()
	defer envMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
