package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "retailcast/internal/errors"
	"retailcast/internal/middleware"
	"retailcast/pkg/contracts/domain"
)

// ForecastHandler handles series forecasts and sales-log analytics
type ForecastHandler struct {
	service      ForecastServiceInterface
	ingest       IngestServiceInterface
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(service ForecastServiceInterface, ingest IngestServiceInterface, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ForecastHandler {
	return &ForecastHandler{
		service:      service,
		ingest:       ingest,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "forecast_handler")),
	}
}

// Routes returns the forecast routes, mounted at /api/v1/forecast
func (h *ForecastHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.ContentTypeValidator(h.errorHandler, "application/json"))
	r.Post("/", h.Forecast)
	return r
}

// SalesRoutes returns the sales routes, mounted at /api/v1/sales
func (h *ForecastHandler) SalesRoutes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeValidator(h.errorHandler, "application/json"))
		r.Post("/series", h.SalesSeries)
		r.Post("/trends", h.SalesTrends)
		r.Post("/forecast", h.SalesForecast)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data"))
		r.Post("/trends/upload", h.SalesTrendsUpload)
		r.Post("/forecast/upload", h.SalesForecastUpload)
		r.Post("/summary/upload", h.SalesSummaryUpload)
	})

	return r
}

// Forecast handles POST /api/v1/forecast
func (h *ForecastHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	var req domain.ForecastRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.Forecast(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// SalesSeries handles POST /api/v1/sales/series
func (h *ForecastHandler) SalesSeries(w http.ResponseWriter, r *http.Request) {
	q, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}
	resp, err := h.service.SalesSeries(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// SalesTrends handles POST /api/v1/sales/trends
func (h *ForecastHandler) SalesTrends(w http.ResponseWriter, r *http.Request) {
	q, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}
	resp, err := h.service.SalesTrends(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// SalesForecast handles POST /api/v1/sales/forecast
func (h *ForecastHandler) SalesForecast(w http.ResponseWriter, r *http.Request) {
	q, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}
	resp, err := h.service.SalesForecast(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// SalesTrendsUpload handles POST /api/v1/sales/trends/upload
func (h *ForecastHandler) SalesTrendsUpload(w http.ResponseWriter, r *http.Request) {
	q, ok := h.uploadQuery(w, r)
	if !ok {
		return
	}
	resp, err := h.service.SalesTrends(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// SalesForecastUpload handles POST /api/v1/sales/forecast/upload
func (h *ForecastHandler) SalesForecastUpload(w http.ResponseWriter, r *http.Request) {
	q, ok := h.uploadQuery(w, r)
	if !ok {
		return
	}
	resp, err := h.service.SalesForecast(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// SalesSummaryUpload handles POST /api/v1/sales/summary/upload
func (h *ForecastHandler) SalesSummaryUpload(w http.ResponseWriter, r *http.Request) {
	ds, err := readUpload(r, h.ingest)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, h.ingest.Summarize(r.Context(), ds))
}

func (h *ForecastHandler) decodeQuery(w http.ResponseWriter, r *http.Request) (domain.SalesQuery, bool) {
	var q domain.SalesQuery
	if err := h.validator.DecodeAndValidate(r, &q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return q, false
	}
	return q, true
}

// uploadQuery builds a sales query from a multipart upload; product,
// category, metric and horizon_days are optional form fields
func (h *ForecastHandler) uploadQuery(w http.ResponseWriter, r *http.Request) (domain.SalesQuery, bool) {
	var q domain.SalesQuery
	ds, err := readUpload(r, h.ingest)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return q, false
	}

	horizon, err := formInt(r, "horizon_days")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return q, false
	}

	q = domain.SalesQuery{
		Lines:       ds.Lines,
		Product:     strings.TrimSpace(r.FormValue("product")),
		Category:    strings.TrimSpace(r.FormValue("category")),
		Metric:      strings.ToLower(strings.TrimSpace(r.FormValue("metric"))),
		HorizonDays: horizon,
	}
	if err := h.validator.Struct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return q, false
	}

	h.logger.DebugContext(r.Context(), "sales upload accepted",
		slog.String("file", ds.Source),
		slog.Int("lines", len(ds.Lines)),
	)
	return q, true
}
