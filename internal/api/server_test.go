package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediscan-triage-server/internal/catalog"
	"github.com/mediscan-triage-server/internal/domain"
	"github.com/mediscan-triage-server/internal/metrics"
	"github.com/mediscan-triage-server/internal/service"
)

type staticConfig struct {
	cfg *domain.Config
}

func (s *staticConfig) GetConfig() *domain.Config               { return s.cfg }
func (s *staticConfig) GetServerConfig() *domain.ServerConfig   { return &s.cfg.Server }
func (s *staticConfig) GetLoggingConfig() *domain.LoggingConfig { return &s.cfg.Logging }
func (s *staticConfig) Reload() error                           { return nil }
func (s *staticConfig) Validate() error                         { return nil }

func testConfig() *domain.Config {
	return &domain.Config{
		Environment: "test",
		Server: domain.ServerConfig{
			Host:            "127.0.0.1",
			Port:            8000,
			ShutdownTimeout: time.Second,
			Version:         "1.0.0-test",
		},
		Logging: domain.LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		CORS: domain.CORSConfig{
			AllowedOrigins:   []string{"http://localhost:5173"},
			AllowCredentials: true,
		},
		RateLimit: domain.RateLimitConfig{Enabled: false, RequestsPerSecond: 5, Burst: 10, MaxClients: 100},
		Upload:    domain.UploadConfig{MaxBytes: 1 << 20},
		Metrics:   domain.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

type panicProcessor struct{}

func (panicProcessor) Diagnose(context.Context, string, *domain.ImageUpload) (*domain.DiagnosisResponse, error) {
	panic("boom")
}

type failingProcessor struct{ err error }

func (p failingProcessor) Diagnose(context.Context, string, *domain.ImageUpload) (*domain.DiagnosisResponse, error) {
	return nil, p.err
}

func newTestServer(t *testing.T, cfg *domain.Config, processor domain.TriageProcessor) (*Server, *metrics.Collector) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	cat := catalog.Default()
	if processor == nil {
		processor = service.NewTriageService(logger, cat)
	}
	collector := metrics.NewCollector()

	srv, err := NewServer(&staticConfig{cfg: cfg}, Dependencies{
		Logger:    logger,
		Processor: processor,
		Catalog:   cat,
		Metrics:   collector,
	})
	require.NoError(t, err)
	return srv, collector
}

type filePart struct {
	filename    string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, file *filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, file.filename))
		if file.contentType != "" {
			h.Set("Content-Type", file.contentType)
		}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(&staticConfig{cfg: testConfig()}, Dependencies{})
	assert.Error(t, err)
}

func TestHandleRoot(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"message": "Healthcare Diagnostic API is running"}, decodeJSON(t, rec))
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.0.0-test", body["version"])

	cat, ok := body["catalog"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(32), cat["phrases"])
	assert.Len(t, cat["categories"], 3)
}

func TestHandleDiagnose_Scenarios(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	tests := []struct {
		name           string
		symptoms       string
		diagnosis      string
		risk           string
		recommendation string
	}{
		{"infection", "I have a high fever", "Infected", "High", service.AdviceHighRisk},
		{"medium risk", "Persistent headache for days", "Medical Consultation Recommended", "Medium", service.AdviceMediumRisk},
		{"emergency", "difficulty breathing", "Requires Immediate Medical Attention", "High", service.AdviceHighRisk},
		{"healthy", "feeling fine today", "Healthy", "Low", service.AdviceLowRisk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(srv, multipartRequest(t, "/diagnose", map[string]string{"symptoms": tt.symptoms}, nil))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			body := decodeJSON(t, rec)
			assert.Equal(t, tt.diagnosis, body["diagnosis"])
			assert.Equal(t, tt.risk, body["riskLevel"])
			assert.Equal(t, tt.symptoms, body["symptoms_analyzed"])
			assert.Equal(t, false, body["image_processed"])
			assert.Equal(t, tt.recommendation, body["recommendation"])
			assert.NotContains(t, body, "image_info")
		})
	}
}

func TestHandleDiagnose_WithImage(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	req := multipartRequest(t, "/api/v1/diagnose",
		map[string]string{"symptoms": "swelling around the wound"},
		&filePart{filename: "wound.png", contentType: "image/png", data: pngBytes(t, 4, 3)},
	)
	rec := serve(srv, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeJSON(t, rec)
	assert.Equal(t, "Infected", body["diagnosis"])
	assert.Equal(t, true, body["image_processed"])
	assert.Equal(t, map[string]any{
		"filename": "wound.png",
		"size":     []any{float64(4), float64(3)},
		"format":   "PNG",
		"mode":     "RGB",
	}, body["image_info"])
}

func TestHandleDiagnose_EmptyFilePartIsIgnored(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	req := multipartRequest(t, "/diagnose",
		map[string]string{"symptoms": "nausea"},
		&filePart{filename: "", contentType: "application/octet-stream"},
	)
	rec := serve(srv, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, decodeJSON(t, rec)["image_processed"])
}

func TestHandleDiagnose_ClientErrors(t *testing.T) {
	srv, collector := newTestServer(t, testConfig(), nil)

	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		code   string
		detail string
	}{
		{
			name: "blank symptoms",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/diagnose", map[string]string{"symptoms": "   \n\t"}, nil)
			},
			code:   "EMPTY_SYMPTOMS",
			detail: "Symptoms cannot be empty",
		},
		{
			name: "missing symptoms field",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/diagnose", nil, nil)
			},
			code:   "EMPTY_SYMPTOMS",
			detail: "Symptoms cannot be empty",
		},
		{
			name: "blank symptoms with bad image",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/diagnose", map[string]string{"symptoms": ""},
					&filePart{filename: "notes.txt", contentType: "text/plain", data: []byte("hello")})
			},
			code:   "EMPTY_SYMPTOMS",
			detail: "Symptoms cannot be empty",
		},
		{
			name: "non image content type",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/diagnose", map[string]string{"symptoms": "fever"},
					&filePart{filename: "notes.txt", contentType: "text/plain", data: []byte("hello")})
			},
			code:   "INVALID_CONTENT_TYPE",
			detail: "File must be an image",
		},
		{
			name: "undecodable image",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/diagnose", map[string]string{"symptoms": "fever"},
					&filePart{filename: "scan.png", contentType: "image/png", data: []byte("not really a png")})
			},
			code:   "INVALID_IMAGE",
			detail: "Invalid image file",
		},
		{
			name: "truncated image",
			req: func(t *testing.T) *http.Request {
				full := pngBytes(t, 100, 100)
				return multipartRequest(t, "/diagnose", map[string]string{"symptoms": "fever"},
					&filePart{filename: "scan.png", contentType: "image/png", data: full[:len(full)/2]})
			},
			code:   "INVALID_IMAGE",
			detail: "Invalid image file",
		},
		{
			name: "malformed multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/diagnose", strings.NewReader("garbage"))
				req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
				return req
			},
			code:   "INVALID_REQUEST",
			detail: "Malformed multipart form",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req(t)
			req.Header.Set("X-Correlation-ID", "req-42")
			rec := serve(srv, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeJSON(t, rec)
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, tt.detail, body["detail"])
			assert.Equal(t, "req-42", body["correlation_id"])
		})
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(collector.ErrorsTotal.WithLabelValues("EMPTY_SYMPTOMS")))
}

func TestHandleDiagnose_InternalErrors(t *testing.T) {
	t.Run("panic", func(t *testing.T) {
		srv, _ := newTestServer(t, testConfig(), panicProcessor{})

		rec := serve(srv, multipartRequest(t, "/diagnose", map[string]string{"symptoms": "fever"}, nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeJSON(t, rec)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", body["code"])
		assert.Equal(t, "Internal server error: boom", body["detail"])
	})

	t.Run("unexpected error", func(t *testing.T) {
		srv, _ := newTestServer(t, testConfig(), failingProcessor{err: errors.New("disk gone")})

		rec := serve(srv, multipartRequest(t, "/diagnose", map[string]string{"symptoms": "fever"}, nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeJSON(t, rec)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", body["code"])
		assert.Equal(t, "Internal server error: disk gone", body["detail"])
	})
}

func TestHandleDiagnose_BodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxBytes = 1024
	srv, _ := newTestServer(t, cfg, nil)

	large := bytes.Repeat([]byte{0x89}, 4096)

	t.Run("declared length", func(t *testing.T) {
		req := multipartRequest(t, "/diagnose", map[string]string{"symptoms": "fever"},
			&filePart{filename: "scan.png", contentType: "image/png", data: large})
		rec := serve(srv, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "REQUEST_TOO_LARGE", decodeJSON(t, rec)["code"])
	})

	t.Run("chunked", func(t *testing.T) {
		req := multipartRequest(t, "/diagnose", map[string]string{"symptoms": "fever"},
			&filePart{filename: "scan.png", contentType: "image/png", data: large})
		req.ContentLength = -1
		rec := serve(srv, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "REQUEST_TOO_LARGE", decodeJSON(t, rec)["code"])
	})
}

func TestHandleDiagnose_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2, MaxClients: 10}
	srv, _ := newTestServer(t, cfg, nil)

	for i := 0; i < 2; i++ {
		rec := serve(srv, multipartRequest(t, "/diagnose", map[string]string{"symptoms": "fever"}, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := serve(srv, multipartRequest(t, "/diagnose", map[string]string{"symptoms": "fever"}, nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeJSON(t, rec)["code"])

	// Health checks are never limited
	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	rec := serve(srv, multipartRequest(t, "/diagnose", map[string]string{"symptoms": "chest pain"}, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mediscan_diagnoses_total{diagnosis="Infected",risk_level="High"} 1`)
	assert.Contains(t, rec.Body.String(), `mediscan_http_requests_total{method="POST",route="/diagnose",status="200"} 1`)
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	srv, _ := newTestServer(t, cfg, nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/diagnose", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(srv, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestStart_GracefulShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = 0
	srv, _ := newTestServer(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
