package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "retailcast/internal/errors"
	"retailcast/internal/middleware"
	"retailcast/pkg/contracts/domain"
)

// BasketHandler handles market-basket analysis requests
type BasketHandler struct {
	service      BasketServiceInterface
	ingest       IngestServiceInterface
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewBasketHandler creates a new basket handler
func NewBasketHandler(service BasketServiceInterface, ingest IngestServiceInterface, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *BasketHandler {
	return &BasketHandler{
		service:      service,
		ingest:       ingest,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "basket_handler")),
	}
}

// Routes returns the basket routes
func (h *BasketHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeValidator(h.errorHandler, "application/json"))
		r.Post("/analyze", h.Analyze)
		r.Post("/recommendations", h.Recommend)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data"))
		r.Post("/analyze/upload", h.AnalyzeUpload)
	})

	return r
}

// Analyze handles POST /api/v1/basket/analyze
func (h *BasketHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req domain.BasketAnalysisRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// Recommend handles POST /api/v1/basket/recommendations
func (h *BasketHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req domain.RecommendationRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.Recommend(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// uploadThresholds are the optional form fields of an upload analysis
type uploadThresholds struct {
	MinSupport    *float64 `json:"min_support" validate:"omitempty,gt=0,lte=1"`
	MinConfidence *float64 `json:"min_confidence" validate:"omitempty,gte=0,lte=1"`
	MinLift       *float64 `json:"min_lift" validate:"omitempty,gte=0"`
}

// AnalyzeUpload handles POST /api/v1/basket/analyze/upload. The multipart
// body carries a CSV or XLSX line-item file and optional threshold fields.
func (h *BasketHandler) AnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	ds, err := readUpload(r, h.ingest)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var th uploadThresholds
	fields := []struct {
		name string
		dst  **float64
	}{
		{"min_support", &th.MinSupport},
		{"min_confidence", &th.MinConfidence},
		{"min_lift", &th.MinLift},
	}
	for _, f := range fields {
		if *f.dst, err = formFloat(r, f.name); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}
	if err := h.validator.Struct(th); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	thresholds := h.service.Thresholds(domain.BasketAnalysisRequest{
		MinSupport:    th.MinSupport,
		MinConfidence: th.MinConfidence,
		MinLift:       th.MinLift,
	})

	h.logger.InfoContext(r.Context(), "analyzing uploaded baskets",
		slog.String("file", ds.Source),
		slog.Int("lines", len(ds.Lines)),
		slog.Int("skipped", ds.Skipped),
	)

	resp, err := h.service.AnalyzeTransactions(r.Context(), ds.Transactions(), thresholds)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}
