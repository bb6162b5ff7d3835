package model

import (
	"fmt"
	"log/slog"
	"sync"
)

// Predictor runs one preprocessed tensor through a classifier.
type Predictor interface {
	Predict(inputData []float32) (*PredictionResponse, error)
}

// Opener builds the underlying predictor. It is called at most once per
// successful load.
type Opener func() (Predictor, error)

// Lazy is the process-wide classifier handle. The predictor is opened on
// first use and kept until Close. A failed open is returned to the caller
// and attempted again on the next call.
type Lazy struct {
	log  *slog.Logger
	open Opener

	mu        sync.Mutex
	predictor Predictor
}

func NewLazy(log *slog.Logger, open Opener) *Lazy {
	return &Lazy{log: log, open: open}
}

// ONNXOpener opens a Server for the given model and metadata.
func ONNXOpener(opts Options, metadata Metadata, log *slog.Logger) Opener {
	return func() (Predictor, error) {
		return NewServer(opts, metadata, log)
	}
}

// Get returns the loaded predictor, opening it if needed.
func (l *Lazy) Get() (Predictor, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.predictor != nil {
		return l.predictor, nil
	}

	p, err := l.open()
	if err != nil {
		l.log.Error("Model load failed", "error", err)
		return nil, fmt.Errorf("load model: %w", err)
	}
	l.predictor = p
	return p, nil
}

func (l *Lazy) Predict(inputData []float32) (*PredictionResponse, error) {
	p, err := l.Get()
	if err != nil {
		return nil, err
	}
	return p.Predict(inputData)
}

// Loaded reports whether the predictor has been opened.
func (l *Lazy) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.predictor != nil
}

// Close releases the predictor if it was opened and supports closing.
func (l *Lazy) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.predictor.(interface{ Close() }); ok {
		c.Close()
	}
	l.predictor = nil
}
