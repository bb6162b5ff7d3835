package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/Brownie44l1/pesticide-api/internal/imageproc"
	"github.com/Brownie44l1/pesticide-api/internal/model"
	"github.com/Brownie44l1/pesticide-api/internal/pesticide"
	gocache "github.com/patrickmn/go-cache"
)

// Outcome is everything the UI needs to render one classification.
type Outcome struct {
	Label         pesticide.ClassLabel `json:"label"`
	Confidence    float32              `json:"confidence"`
	LowConfidence bool                 `json:"low_confidence"`
	Predictions   map[string]float32   `json:"predictions"`
	Info          pesticide.Info       `json:"info"`
	MimeType      string               `json:"mime_type"`
	Cached        bool                 `json:"cached"`
}

// Service is the inference wrapper: decode, normalize, predict, annotate.
type Service struct {
	log       *slog.Logger
	predictor model.Predictor
	metadata  model.Metadata
	cache     *gocache.Cache
	cacheTTL  time.Duration
}

// NewService builds the wrapper. A zero cacheTTL disables result caching.
func NewService(log *slog.Logger, predictor model.Predictor, metadata model.Metadata, cacheTTL time.Duration) *Service {
	s := &Service{
		log:       log,
		predictor: predictor,
		metadata:  metadata,
		cacheTTL:  cacheTTL,
	}
	if cacheTTL > 0 {
		s.cache = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return s
}

func (s *Service) Metadata() model.Metadata {
	return s.metadata
}

// Classify runs one uploaded image through the classifier. Undecodable
// input fails with imageproc.ErrUndecodable.
func (s *Service) Classify(ctx context.Context, raw []byte) (*Outcome, error) {
	key := cacheKey(raw)
	if s.cache != nil {
		if v, found := s.cache.Get(key); found {
			out := *v.(*Outcome)
			out.Cached = true
			return &out, nil
		}
	}

	decoded, err := imageproc.Decode(raw)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	inputData := imageproc.Tensor(decoded.Image, s.metadata)

	res, err := s.predictor.Predict(inputData)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	out, err := annotate(res)
	if err != nil {
		return nil, err
	}
	out.MimeType = decoded.MimeType

	s.log.Debug("Image classified",
		"label", out.Label,
		"confidence", out.Confidence,
		"low_confidence", out.LowConfidence,
		"mime_type", out.MimeType,
		"width", decoded.Image.Bounds().Dx(),
		"height", decoded.Image.Bounds().Dy(),
		"took", time.Since(start))

	if s.cache != nil {
		stored := *out
		s.cache.Set(key, &stored, s.cacheTTL)
	}
	return out, nil
}

// ClassifyTensor runs an already normalized tensor.
func (s *Service) ClassifyTensor(inputData []float32) (*Outcome, error) {
	if want := s.metadata.InputSize(); len(inputData) != want {
		return nil, fmt.Errorf("%w: expected %d values, got %d", model.ErrInputSize, want, len(inputData))
	}
	res, err := s.predictor.Predict(inputData)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	return annotate(res)
}

func annotate(res *model.PredictionResponse) (*Outcome, error) {
	info, err := pesticide.Lookup(res.Class)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Label:         res.Class,
		Confidence:    res.Confidence,
		LowConfidence: pesticide.IsLowConfidence(res.Confidence),
		Predictions:   res.Predictions,
		Info:          info,
	}, nil
}

func cacheKey(raw []byte) string {
	hash := sha256.Sum256(raw)
	return "pesticide:v1:" + hex.EncodeToString(hash[:])
}
