package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"retailcast/internal/basket"
	apierrors "retailcast/internal/errors"
	"retailcast/internal/forecast"
	"retailcast/internal/middleware"
	"retailcast/internal/services"
	"retailcast/pkg/contracts/domain"
)

// MockBasketService is a mock implementation of BasketServiceInterface
type MockBasketService struct {
	mock.Mock
}

func (m *MockBasketService) Thresholds(req domain.BasketAnalysisRequest) basket.Thresholds {
	args := m.Called(req)
	return args.Get(0).(basket.Thresholds)
}

func (m *MockBasketService) Analyze(ctx context.Context, req domain.BasketAnalysisRequest) (*domain.BasketAnalysisResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BasketAnalysisResponse), args.Error(1)
}

func (m *MockBasketService) AnalyzeTransactions(ctx context.Context, txns []domain.Transaction, th basket.Thresholds) (*domain.BasketAnalysisResponse, error) {
	args := m.Called(txns, th)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BasketAnalysisResponse), args.Error(1)
}

func (m *MockBasketService) Recommend(ctx context.Context, req domain.RecommendationRequest) (*domain.RecommendationResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecommendationResponse), args.Error(1)
}

// MockForecastService is a mock implementation of ForecastServiceInterface
type MockForecastService struct {
	mock.Mock
}

func (m *MockForecastService) Forecast(ctx context.Context, req domain.ForecastRequest) (*domain.ForecastResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ForecastResponse), args.Error(1)
}

func (m *MockForecastService) SalesSeries(ctx context.Context, q domain.SalesQuery) (*domain.SalesSeriesResponse, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SalesSeriesResponse), args.Error(1)
}

func (m *MockForecastService) SalesTrends(ctx context.Context, q domain.SalesQuery) (*domain.SalesTrends, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SalesTrends), args.Error(1)
}

func (m *MockForecastService) SalesForecast(ctx context.Context, q domain.SalesQuery) (*domain.SalesForecastResponse, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SalesForecastResponse), args.Error(1)
}

const salesCSV = "transaction_id,product_name,date,quantity,unit_price\n" +
	"T1,Milk,2024-03-01,1,2.50\n" +
	"T1,Bread,2024-03-01,2,1.25\n" +
	"T2,Milk,2024-03-02,1,2.50\n"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestBasketHandler(svc BasketServiceInterface) *BasketHandler {
	logger := testLogger()
	return NewBasketHandler(svc, services.NewIngestService(0, nil, logger),
		middleware.NewValidator(logger), apierrors.NewErrorHandler(logger, false), logger)
}

func newTestForecastHandler(svc ForecastServiceInterface) *ForecastHandler {
	logger := testLogger()
	return NewForecastHandler(svc, services.NewIngestService(0, nil, logger),
		middleware.NewValidator(logger), apierrors.NewErrorHandler(logger, false), logger)
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, path, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile(UploadField, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestBasketHandler_Analyze(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		contentType    string
		setupMock      func(*MockBasketService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "successful analysis",
			body:        `{"transactions":[["milk","bread"],["milk"]],"min_support":0.5}`,
			contentType: "application/json",
			setupMock: func(m *MockBasketService) {
				m.On("Analyze", mock.MatchedBy(func(req domain.BasketAnalysisRequest) bool {
					return len(req.Transactions) == 2 && req.MinSupport != nil && *req.MinSupport == 0.5
				})).Return(&domain.BasketAnalysisResponse{
					AnalysisID:       "a-1",
					FrequentItemsets: []domain.ItemSet{{Items: []string{"milk"}, Support: 1, Count: 2}},
					AssociationRules: []domain.AssociationRule{},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"analysis_id":"a-1"`,
		},
		{
			name:           "empty transactions rejected",
			body:           `{"transactions":[]}`,
			contentType:    "application/json",
			setupMock:      func(m *MockBasketService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"transactions"`,
		},
		{
			name:           "min_support out of range",
			body:           `{"transactions":[["milk"]],"min_support":1.5}`,
			contentType:    "application/json",
			setupMock:      func(m *MockBasketService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"min_support"`,
		},
		{
			name:           "malformed json",
			body:           `{"transactions":`,
			contentType:    "application/json",
			setupMock:      func(m *MockBasketService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"INVALID_REQUEST"`,
		},
		{
			name:        "resource limit",
			body:        `{"transactions":[["milk","bread"]]}`,
			contentType: "application/json",
			setupMock: func(m *MockBasketService) {
				m.On("Analyze", mock.Anything).Return(nil, basket.ErrResourceLimitExceeded)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"guidance"`,
		},
		{
			name:           "unsupported content type",
			body:           `transactions`,
			contentType:    "text/plain",
			setupMock:      func(m *MockBasketService) {},
			expectedStatus: http.StatusUnsupportedMediaType,
			expectedBody:   `"Unsupported content type"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockBasketService)
			tt.setupMock(mockService)
			handler := newTestBasketHandler(mockService)

			req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()

			handler.Routes().ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestBasketHandler_Recommend(t *testing.T) {
	mockService := new(MockBasketService)
	mockService.On("Recommend", mock.MatchedBy(func(req domain.RecommendationRequest) bool {
		return len(req.Rules) == 1 && req.TopN == 3 && req.CurrentItems[0] == "milk"
	})).Return(&domain.RecommendationResponse{
		Recommendations: []domain.Recommendation{{ItemID: "bread", Confidence: 0.8, Lift: 1.6, BasedOn: []string{"milk"}, RuleCount: 1}},
	}, nil)
	handler := newTestBasketHandler(mockService)

	body := `{"rules":[{"antecedent":["milk"],"consequent":["bread"],"support":0.4,"confidence":0.8,"lift":1.6,"conviction":null}],` +
		`"current_items":["milk"],"top_n":3}`
	w := httptest.NewRecorder()
	handler.Routes().ServeHTTP(w, jsonRequest("/recommendations", body))

	require.Equal(t, http.StatusOK, w.Code)
	recs := decodeBody(t, w)["recommendations"].([]interface{})
	require.Len(t, recs, 1)
	assert.Equal(t, "bread", recs[0].(map[string]interface{})["item_id"])
	mockService.AssertExpectations(t)
}

func TestBasketHandler_AnalyzeUpload(t *testing.T) {
	t.Run("parses file and thresholds", func(t *testing.T) {
		th := basket.Thresholds{MinSupport: 0.5, MinConfidence: 0.2, MinLift: 1}
		mockService := new(MockBasketService)
		mockService.On("Thresholds", mock.MatchedBy(func(req domain.BasketAnalysisRequest) bool {
			return req.MinSupport != nil && *req.MinSupport == 0.5 && req.MinConfidence == nil
		})).Return(th)
		mockService.On("AnalyzeTransactions", mock.MatchedBy(func(txns []domain.Transaction) bool {
			return len(txns) == 2 && len(txns[0].Items) == 2
		}), th).Return(&domain.BasketAnalysisResponse{AnalysisID: "upload-1"}, nil)
		handler := newTestBasketHandler(mockService)

		req := uploadRequest(t, "/analyze/upload", "sales.csv", salesCSV, map[string]string{"min_support": "0.5"})
		w := httptest.NewRecorder()
		handler.Routes().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "upload-1", decodeBody(t, w)["analysis_id"])
		mockService.AssertExpectations(t)
	})

	tests := []struct {
		name           string
		filename       string
		content        string
		fields         map[string]string
		expectedStatus int
		expectedBody   string
	}{
		{"missing file", "", "", nil, http.StatusBadRequest, `"file"`},
		{"non-numeric threshold", "sales.csv", salesCSV, map[string]string{"min_lift": "high"}, http.StatusBadRequest, `"min_lift"`},
		{"threshold out of range", "sales.csv", salesCSV, map[string]string{"min_confidence": "2"}, http.StatusBadRequest, `"min_confidence"`},
		{"unsupported extension", "sales.pdf", salesCSV, nil, http.StatusBadRequest, `"Unreadable Data"`},
		{"no product column", "sales.csv", "id,amount\n1,2\n", nil, http.StatusBadRequest, `"Unreadable Data"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockBasketService)
			handler := newTestBasketHandler(mockService)

			w := httptest.NewRecorder()
			handler.Routes().ServeHTTP(w, uploadRequest(t, "/analyze/upload", tt.filename, tt.content, tt.fields))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertNotCalled(t, "AnalyzeTransactions", mock.Anything, mock.Anything)
		})
	}
}

func TestForecastHandler_Forecast(t *testing.T) {
	day := domain.NewDate(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockForecastService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "successful forecast",
			body: `{"series":[{"date":"2024-02-29","value":10},{"date":"2024-03-01","value":12}],"horizon_days":1}`,
			setupMock: func(m *MockForecastService) {
				m.On("Forecast", mock.MatchedBy(func(req domain.ForecastRequest) bool {
					return len(req.Series) == 2 && req.HorizonDays == 1
				})).Return(&domain.ForecastResponse{
					Forecast: []domain.ForecastPoint{{Date: day, Predicted: 11, LowerBound: 9, UpperBound: 13, Confidence: 0.7}},
					Degraded: true,
					Warnings: []string{"history too short"},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"degraded":true`,
		},
		{
			name:           "horizon out of range",
			body:           `{"series":[{"date":"2024-03-01","value":12}],"horizon_days":400}`,
			setupMock:      func(m *MockForecastService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"horizon_days"`,
		},
		{
			name:           "bad date",
			body:           `{"series":[{"date":"03/01/2024","value":12}],"horizon_days":5}`,
			setupMock:      func(m *MockForecastService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"INVALID_REQUEST"`,
		},
		{
			name: "invalid series",
			body: `{"series":[{"date":"2024-03-01","value":12}],"horizon_days":5}`,
			setupMock: func(m *MockForecastService) {
				m.On("Forecast", mock.Anything).Return(nil, forecast.ErrInvalidInput)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"Invalid Input"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockForecastService)
			tt.setupMock(mockService)
			handler := newTestForecastHandler(mockService)

			w := httptest.NewRecorder()
			handler.Routes().ServeHTTP(w, jsonRequest("/", tt.body))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestForecastHandler_Sales(t *testing.T) {
	lines := `{"lines":[{"transaction_id":"T1","date":"2024-03-01","product_name":"Milk","quantity":1,"unit_price":2.5,"total_amount":2.5}]`

	t.Run("series", func(t *testing.T) {
		mockService := new(MockForecastService)
		mockService.On("SalesSeries", mock.MatchedBy(func(q domain.SalesQuery) bool {
			return len(q.Lines) == 1 && q.Lines[0].Product == "Milk"
		})).Return(&domain.SalesSeriesResponse{Metric: forecast.MetricRevenue}, nil)
		handler := newTestForecastHandler(mockService)

		w := httptest.NewRecorder()
		handler.SalesRoutes().ServeHTTP(w, jsonRequest("/series", lines+"}"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, forecast.MetricRevenue, decodeBody(t, w)["metric"])
		mockService.AssertExpectations(t)
	})

	t.Run("trends", func(t *testing.T) {
		mockService := new(MockForecastService)
		mockService.On("SalesTrends", mock.Anything).Return(&domain.SalesTrends{}, nil)
		handler := newTestForecastHandler(mockService)

		w := httptest.NewRecorder()
		handler.SalesRoutes().ServeHTTP(w, jsonRequest("/trends", lines+"}"))

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("unknown metric rejected", func(t *testing.T) {
		mockService := new(MockForecastService)
		handler := newTestForecastHandler(mockService)

		w := httptest.NewRecorder()
		handler.SalesRoutes().ServeHTTP(w, jsonRequest("/forecast", lines+`,"metric":"margin"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"metric"`)
		mockService.AssertNotCalled(t, "SalesForecast", mock.Anything)
	})

	t.Run("undated lines", func(t *testing.T) {
		mockService := new(MockForecastService)
		mockService.On("SalesForecast", mock.Anything).Return(nil, services.ErrNoSalesDates)
		handler := newTestForecastHandler(mockService)

		w := httptest.NewRecorder()
		handler.SalesRoutes().ServeHTTP(w, jsonRequest("/forecast", lines+"}"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("forecast upload", func(t *testing.T) {
		mockService := new(MockForecastService)
		mockService.On("SalesForecast", mock.MatchedBy(func(q domain.SalesQuery) bool {
			return len(q.Lines) == 3 && q.Product == "Milk" && q.Metric == "quantity" && q.HorizonDays == 7
		})).Return(&domain.SalesForecastResponse{Metric: "quantity", HistoryDays: 2}, nil)
		handler := newTestForecastHandler(mockService)

		req := uploadRequest(t, "/forecast/upload", "sales.csv", salesCSV, map[string]string{
			"product":      "Milk",
			"metric":       "Quantity",
			"horizon_days": "7",
		})
		w := httptest.NewRecorder()
		handler.SalesRoutes().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.EqualValues(t, 2, decodeBody(t, w)["history_days"])
		mockService.AssertExpectations(t)
	})

	t.Run("upload with bad horizon", func(t *testing.T) {
		mockService := new(MockForecastService)
		handler := newTestForecastHandler(mockService)

		req := uploadRequest(t, "/trends/upload", "sales.csv", salesCSV, map[string]string{"horizon_days": "soon"})
		w := httptest.NewRecorder()
		handler.SalesRoutes().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"horizon_days"`)
	})
}

func TestForecastHandler_SummaryUpload(t *testing.T) {
	t.Run("summarizes the upload", func(t *testing.T) {
		handler := newTestForecastHandler(new(MockForecastService))

		req := uploadRequest(t, "/summary/upload", "sales.csv", salesCSV, nil)
		w := httptest.NewRecorder()
		handler.SalesRoutes().ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var summary domain.DataSummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
		assert.Equal(t, "sales.csv", summary.Source)
		assert.Equal(t, 3, summary.TotalRows)
		assert.Equal(t, 2, summary.TotalTransactions)
		assert.Equal(t, 2, summary.TotalProducts)
		assert.Equal(t, []domain.NameCount{{Name: "Milk", Lines: 2}, {Name: "Bread", Lines: 1}}, summary.TopProducts)
		assert.InDelta(t, 7.5, summary.TotalRevenue, 1e-9)
		assert.InDelta(t, 3.75, summary.AvgOrderValue, 1e-9)
		require.NotNil(t, summary.DateRange)
		assert.Equal(t, "2024-03-01", summary.DateRange.Start.String())
		assert.Equal(t, "2024-03-02", summary.DateRange.End.String())
	})

	t.Run("missing file", func(t *testing.T) {
		handler := newTestForecastHandler(new(MockForecastService))

		req := uploadRequest(t, "/summary/upload", "", "", map[string]string{"product": "Milk"})
		w := httptest.NewRecorder()
		handler.SalesRoutes().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"file"`)
	})
}

func TestHealthHandler(t *testing.T) {
	logger := testLogger()

	t.Run("ready", func(t *testing.T) {
		svc := services.NewHealthService("1.0.0", t.TempDir(), logger)
		svc.RegisterCheck("basket", services.ReadyWhen("basket", func() bool { return true }))
		handler := NewHealthHandler(svc, logger)

		w := httptest.NewRecorder()
		handler.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, services.StatusReady, decodeBody(t, w)["status"])
	})

	t.Run("not ready", func(t *testing.T) {
		svc := services.NewHealthService("1.0.0", "", logger)
		svc.RegisterCheck("forecast", services.ReadyWhen("forecast", func() bool { return false }))
		handler := NewHealthHandler(svc, logger)

		w := httptest.NewRecorder()
		handler.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "forecast not initialized")
	})

	t.Run("liveness and version", func(t *testing.T) {
		handler := NewHealthHandler(services.NewHealthService("2.1.0", "", logger), logger)

		w := httptest.NewRecorder()
		handler.LivenessCheck(w, httptest.NewRequest(http.MethodGet, "/api/health/live", nil))
		assert.Equal(t, services.StatusAlive, decodeBody(t, w)["status"])

		w = httptest.NewRecorder()
		handler.Version(w, httptest.NewRequest(http.MethodGet, "/api/version", nil))
		assert.Equal(t, "2.1.0", decodeBody(t, w)["version"])
	})
}

func TestMetricsHandler(t *testing.T) {
	logger := testLogger()
	errorHandler := apierrors.NewErrorHandler(logger, false)

	t.Run("disabled", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewMetricsHandler(nil, errorHandler, logger).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	})

	t.Run("delegates to exporter", func(t *testing.T) {
		exporter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("retailcast_analysis_runs_total 1\n"))
		})
		w := httptest.NewRecorder()
		NewMetricsHandler(exporter, errorHandler, logger).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "retailcast_analysis_runs_total")
	})
}
