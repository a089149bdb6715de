package http

import (
	"log/slog"
	"net/http"

	apierrors "retailcast/internal/errors"
)

// MetricsHandler serves the Prometheus scrape endpoint
type MetricsHandler struct {
	exporter     http.Handler
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewMetricsHandler creates a metrics handler. A nil exporter means metrics
// export is disabled and scrapes answer 503.
func NewMetricsHandler(exporter http.Handler, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{
		exporter:     exporter,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "metrics")),
	}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		h.errorHandler.HandleError(w, r,
			apierrors.New(http.StatusServiceUnavailable, apierrors.CodeUnavailable, "Metrics export is disabled"))
		return
	}
	h.exporter.ServeHTTP(w, r)
}
