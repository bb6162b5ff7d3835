package model

import (
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Brownie44l1/pesticide-api/internal/pesticide"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestTop(t *testing.T) {
	labels := pesticide.Labels()

	tests := []struct {
		name       string
		output     []float32
		want       pesticide.ClassLabel
		confidence float32
	}{
		{
			name:       "clear winner",
			output:     []float32{0.01, 0.02, 0.9, 0.02, 0.02, 0.02, 0.01},
			want:       pesticide.Herbicide,
			confidence: 0.9,
		},
		{
			name:       "last class",
			output:     []float32{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.4},
			want:       pesticide.Miticide,
			confidence: 0.4,
		},
		{
			name:       "tie goes to lowest index",
			output:     []float32{0.3, 0.3, 0.1, 0.1, 0.1, 0.05, 0.05},
			want:       pesticide.Insecticide,
			confidence: 0.3,
		},
		{
			name:       "logits are clamped",
			output:     []float32{-2, 5, 1, 0, 0, 0, 0},
			want:       pesticide.Fungicide,
			confidence: 1,
		},
		{
			name:       "all negative",
			output:     []float32{-3, -1, -2, -4, -5, -6, -7},
			want:       pesticide.Fungicide,
			confidence: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, err := Top(tt.output, labels)
			req.NoError(err)
			req.Equal(tt.want, got.Class)
			req.InDelta(tt.confidence, got.Confidence, 1e-6)
			req.Len(got.Predictions, len(labels))
			req.True(got.Class.Valid())
		})
	}
}

func TestTop_NaNConfidence(t *testing.T) {
	out := []float32{float32(math.NaN()), 0, 0, 0, 0, 0, 0}
	got, err := Top(out, pesticide.Labels())
	require.NoError(t, err)
	require.Equal(t, float32(0), got.Confidence)
}

func TestTop_ShortOutput(t *testing.T) {
	_, err := Top([]float32{1, 2}, pesticide.Labels())
	require.ErrorIs(t, err, ErrInputSize)
}

func TestDefaultMetadata(t *testing.T) {
	req := require.New(t)
	m := DefaultMetadata()
	req.Equal(128, m.ImageSize)
	req.Equal(LayoutNHWC, m.Layout)
	req.Equal(128*128*3, m.InputSize())
	req.Equal(pesticide.Labels(), m.Labels())
}

func writeMetadata(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model_metadata.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMetadata(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		check   func(*require.Assertions, Metadata)
	}{
		{
			name: "minimal file uses keras defaults",
			body: `{}`,
			check: func(req *require.Assertions, m Metadata) {
				req.Equal([]int64{1, 128, 128, 3}, m.InputShape)
				req.Equal([]int64{1, 7}, m.OutputShape)
				req.Equal("input", m.InputName)
				req.Equal("output", m.OutputName)
			},
		},
		{
			name: "nchw with explicit names",
			body: `{"input_shape":[1,3,64,64],"output_shape":[1,7],"image_size":64,"layout":"NCHW","input_name":"images","output_name":"probs"}`,
			check: func(req *require.Assertions, m Metadata) {
				req.Equal(LayoutNCHW, m.Layout)
				req.Equal(3*64*64, m.InputSize())
				req.Equal("images", m.InputName)
			},
		},
		{
			name: "reordered classes are kept in file order",
			body: `{"classes":["Miticide","Nematicide","Rodenticide","bactericide","herbicide","fungicide","insecticide"]}`,
			check: func(req *require.Assertions, m Metadata) {
				req.Equal(pesticide.Miticide, m.Labels()[0])
			},
		},
		{
			name:    "unknown class",
			body:    `{"classes":["insecticide","weedkiller"],"output_shape":[1,2]}`,
			wantErr: ErrMetadata,
		},
		{
			name:    "output shape mismatch",
			body:    `{"output_shape":[1,5]}`,
			wantErr: ErrMetadata,
		},
		{
			name:    "input shape mismatch",
			body:    `{"input_shape":[1,48,48,1]}`,
			wantErr: ErrMetadata,
		},
		{
			name:    "negative image size with matching shape",
			body:    `{"image_size":-4,"input_shape":[1,-4,-4,3]}`,
			wantErr: ErrMetadata,
		},
		{
			name:    "non-positive output dimension",
			body:    `{"output_shape":[0,7]}`,
			wantErr: ErrMetadata,
		},
		{
			name:    "negative input dimensions",
			body:    `{"input_shape":[-1,-128,128,3]}`,
			wantErr: ErrMetadata,
		},
		{
			name:    "bad layout",
			body:    `{"layout":"hwc"}`,
			wantErr: ErrMetadata,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			m, err := LoadMetadata(writeMetadata(t, tt.body))
			if tt.wantErr != nil {
				req.ErrorIs(err, tt.wantErr)
				return
			}
			req.NoError(err)
			tt.check(req, m)
		})
	}
}

func TestServer_PredictAfterClose(t *testing.T) {
	req := require.New(t)
	srv := &Server{Metadata: DefaultMetadata()}
	srv.Close()

	_, err := srv.Predict(make([]float32, srv.Metadata.InputSize()))
	req.ErrorIs(err, ErrModelClosed)

	_, err = srv.Predict(make([]float32, 3))
	req.ErrorIs(err, ErrInputSize)
}

func TestONNXOpener_RetriesEnvironmentInit(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	dir := t.TempDir()
	first := filepath.Join(dir, "first", "missing.so")
	second := filepath.Join(dir, "second", "other.so")

	_, err := ONNXOpener(Options{SharedLibraryPath: first}, DefaultMetadata(), log)()
	req.Error(err)
	req.Contains(err.Error(), first)

	_, err = ONNXOpener(Options{SharedLibraryPath: second}, DefaultMetadata(), log)()
	req.Error(err)
	req.Contains(err.Error(), second)
	req.NotContains(err.Error(), first)
}

func TestLoadMetadata_MissingFile(t *testing.T) {
	_, err := LoadMetadata(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

type countingPredictor struct {
	closed bool
}

func (c *countingPredictor) Predict(in []float32) (*PredictionResponse, error) {
	return &PredictionResponse{Class: pesticide.Fungicide, Confidence: 0.8}, nil
}

func (c *countingPredictor) Close() { c.closed = true }

func TestLazy_OpensOnceOnFirstUse(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	opens := 0
	p := &countingPredictor{}
	lazy := NewLazy(log, func() (Predictor, error) {
		opens++
		return p, nil
	})

	req.False(lazy.Loaded())
	req.Equal(0, opens)

	for range 3 {
		got, err := lazy.Predict(nil)
		req.NoError(err)
		req.Equal(pesticide.Fungicide, got.Class)
	}
	req.Equal(1, opens)
	req.True(lazy.Loaded())

	lazy.Close()
	req.True(p.closed)
	req.False(lazy.Loaded())
}

func TestLazy_RetriesAfterFailure(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	boom := errors.New("no such file")

	attempts := 0
	lazy := NewLazy(log, func() (Predictor, error) {
		attempts++
		if attempts == 1 {
			return nil, boom
		}
		return &countingPredictor{}, nil
	})

	_, err := lazy.Predict(nil)
	req.ErrorIs(err, boom)
	req.False(lazy.Loaded())

	_, err = lazy.Predict(nil)
	req.NoError(err)
	req.Equal(2, attempts)
}
