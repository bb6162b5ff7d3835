package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/Brownie44l1/pesticide-api/internal/classify"
	"github.com/Brownie44l1/pesticide-api/internal/imageproc"
	"github.com/Brownie44l1/pesticide-api/internal/model"
	"github.com/Brownie44l1/pesticide-api/internal/pesticide"
)

// Classifier is the inference wrapper as seen by the HTTP layer.
type Classifier interface {
	Classify(ctx context.Context, raw []byte) (*classify.Outcome, error)
	ClassifyTensor(inputData []float32) (*classify.Outcome, error)
	Metadata() model.Metadata
}

// ModelStatus reports whether the model handle has been opened.
type ModelStatus interface {
	Loaded() bool
}

type Options struct {
	LogoPath       string
	DeveloperName  string
	MaxUploadBytes int64
}

type Handler struct {
	log        *slog.Logger
	classifier Classifier
	status     ModelStatus
	opts       Options
	pages      *pages
}

var errNoImage = errors.New("no image file provided")

func NewHandler(log *slog.Logger, classifier Classifier, status ModelStatus, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Handler{
		log:        log,
		classifier: classifier,
		status:     status,
		opts:       opts,
		pages:      parsePages(),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"model_loaded": h.status.Loaded(),
	})
}

// Labels returns the fact sheet for every class, in model output order.
func (h *Handler) Labels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pesticide.Catalog())
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req model.PredictionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	expectedSize := h.classifier.Metadata().InputSize()
	if len(req.Image) != expectedSize {
		http.Error(w, fmt.Sprintf("Expected %d values, got %d", expectedSize, len(req.Image)),
			http.StatusBadRequest)
		return
	}

	result, err := h.classifier.ClassifyTensor(req.Image)
	if err != nil {
		h.logger(r).Error("Prediction error", "error", err)
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request) {
	raw, err := h.readUpload(w, r)
	if err != nil {
		if errors.Is(err, errNoImage) {
			http.Error(w, "No image file provided. Use 'image' as the form field name", http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	result, err := h.classifier.Classify(r.Context(), raw)
	if err != nil {
		if errors.Is(err, imageproc.ErrUndecodable) {
			http.Error(w, "Invalid image format. Supported: JPEG, PNG", http.StatusBadRequest)
			return
		}
		h.logger(r).Error("Prediction error", "error", err)
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// readUpload pulls the "image" form file out of a multipart request.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, errNoImage
		}
		return nil, fmt.Errorf("parse form: %w", err)
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, errNoImage
		}
		return nil, fmt.Errorf("form file: %w", err)
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	h.logger(r).Info("Received file", "filename", header.Filename, "size", header.Size)
	return raw, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
