package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Brownie44l1/pesticide-api/internal/handlers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and JSON API",
	Long: `Serve starts the HTTP server.

Pages:
  GET  /                  Welcome (?page=Classification for the upload form)
  GET  /classify          Upload form
  POST /classify          Classify an uploaded image and render the result

API:
  GET  /health            Health check
  GET  /labels            Fact sheet for every class
  POST /predict           Raw tensor prediction
  POST /predict/image     Predict from image upload (form field "image")

Example:
  pesticide serve --port 8080 --model models/pesticide_cnn_model.onnx
  curl -X POST -F "image=@label.jpg" http://localhost:8080/predict/image`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "listen port")
	serveCmd.Flags().String("host", "", "listen host")
	serveCmd.Flags().String("logo", "", "path to the logo shown under results")
	serveCmd.Flags().Bool("preload", false, "open the model at startup instead of on first request")
	serveCmd.Flags().Duration("cache-ttl", 10*time.Minute, "how long identical uploads reuse a result (0 disables)")
	serveCmd.Flags().Float64("rate-limit", 5, "classification requests per second (0 disables)")

	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("logo_path", serveCmd.Flags().Lookup("logo"))
	_ = viper.BindPFlag("preload", serveCmd.Flags().Lookup("preload"))
	_ = viper.BindPFlag("cache_ttl", serveCmd.Flags().Lookup("cache-ttl"))
	_ = viper.BindPFlag("rate_limit", serveCmd.Flags().Lookup("rate-limit"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	svc, lazy, err := newClassifier(cfg, log)
	if err != nil {
		return err
	}
	defer closeClassifier(lazy, log)

	if cfg.Preload {
		if _, err := lazy.Get(); err != nil {
			return err
		}
	}

	handler := handlers.NewHandler(log, svc, lazy, handlers.Options{
		LogoPath:       cfg.LogoPath,
		DeveloperName:  cfg.DeveloperName,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler.Routes(cfg.RateLimit, cfg.RateBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Info("Server starting",
			"address", srv.Addr,
			"model", cfg.ModelPath,
			"classes", svc.Metadata().Classes,
			"preload", cfg.Preload)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("Server stopped cleanly")
	return nil
}
