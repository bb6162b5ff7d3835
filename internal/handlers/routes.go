package handlers

import (
	"net/http"

	"golang.org/x/time/rate"
)

// Routes mounts the pages and the JSON API. rps <= 0 disables rate
// limiting on the classification endpoints.
func (h *Handler) Routes(rps float64, burst int) http.Handler {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /classify", h.ClassificationForm)
	mux.HandleFunc("POST /classify", limit(limiter, h.ClassificationThrottled, h.ClassificationSubmit))

	mux.HandleFunc("/health", enableCORS(h.Health))
	mux.HandleFunc("/labels", enableCORS(h.Labels))
	mux.HandleFunc("POST /predict", enableCORS(limit(limiter, tooManyRequests, h.Predict)))
	mux.HandleFunc("OPTIONS /predict", enableCORS(h.Predict))
	mux.HandleFunc("POST /predict/image", enableCORS(limit(limiter, tooManyRequests, h.PredictFromImage)))
	mux.HandleFunc("OPTIONS /predict/image", enableCORS(h.PredictFromImage))

	return h.withRequestLog(mux)
}
