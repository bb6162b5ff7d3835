package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Brownie44l1/pesticide-api/internal/classify"
	"github.com/Brownie44l1/pesticide-api/internal/config"
	"github.com/Brownie44l1/pesticide-api/internal/model"
)

// newClassifier builds the inference wrapper around a lazily opened ONNX
// session. The caller owns the returned handle and must Close it.
func newClassifier(cfg config.Config, log *slog.Logger) (*classify.Service, *model.Lazy, error) {
	metadata := model.DefaultMetadata()
	if cfg.MetadataPath != "" {
		m, err := model.LoadMetadata(cfg.MetadataPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Warn("No model metadata file, using defaults", "path", cfg.MetadataPath)
		case err != nil:
			return nil, nil, fmt.Errorf("metadata %s: %w", cfg.MetadataPath, err)
		default:
			metadata = m
		}
	}

	opts := model.Options{
		ModelPath:         cfg.ModelPath,
		SharedLibraryPath: cfg.OnnxLibraryPath,
	}
	lazy := model.NewLazy(log, model.ONNXOpener(opts, metadata, log))
	svc := classify.NewService(log, lazy, metadata, cfg.CacheTTL)
	return svc, lazy, nil
}

func closeClassifier(lazy *model.Lazy, log *slog.Logger) {
	loaded := lazy.Loaded()
	lazy.Close()
	if !loaded {
		return
	}
	if err := model.Shutdown(); err != nil {
		log.Warn("ONNX environment teardown failed", "error", err)
	}
}
