package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"immigration/internal/config"
	"immigration/internal/handlers"
	"immigration/internal/metrics"
	"immigration/internal/notify"
	"immigration/internal/photo"
	"immigration/internal/repo"
	"immigration/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

var dbNameReplacer = strings.NewReplacer("/", "_", " ", "_", "#", "_")

type testServer struct {
	router http.Handler
	users  *service.UserService
}

// newTestServer поднимает весь стек поверх in-memory SQLite и временного каталога.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dsn := fmt.Sprintf("file:h_%s?mode=memory&cache=shared", dbNameReplacer.Replace(t.Name()))
	db, err := repo.InitDB(dsn)
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	logger := zap.NewNop().Sugar()
	m := metrics.New(prometheus.NewRegistry())
	store := photo.NewFSStore(t.TempDir())
	events := repo.NewEventRepository(db)
	docs := repo.NewDocumentRepository(db)
	forms := repo.NewFormRepository(db)
	clock := func() time.Time { return time.Date(2025, 5, 10, 9, 30, 0, 0, time.UTC) }

	users := service.NewUserService(repo.NewUserRepository(db), testSecret)
	svc := handlers.Services{
		Documents: service.NewDocumentService(docs, events, store, notify.NewDBSink(events), m, logger, service.WithClock(clock)),
		Forms:     service.NewFormService(forms, store, m, logger, service.WithClock(clock)),
		Reports:   service.NewReportService(docs, forms, store, logger, service.WithClock(clock)),
		Users:     users,
	}
	cfg := &config.Config{AuthSecret: testSecret, PhotoMaxMB: 1}
	h := handlers.NewHandler(svc, sqlDB, m, logger, cfg)
	return &testServer{router: h.Router, users: users}
}

func (s *testServer) do(t *testing.T, method, path string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) upload(t *testing.T, path string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", "photo.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png: %v", err)
	}
	return buf.Bytes()
}

func documentBody() map[string]any {
	return map[string]any{
		"full_name":             "Axmed Cali Xasan",
		"mother_name":           "Faadumo Maxamed",
		"birth_date":            "1990-04-01",
		"birth_place":           "Muqdisho",
		"identification_number": "SO12345",
		"region":                "Banadir",
		"district":              "Hodan",
		"sponsor_name":          "Dahabshiil",
		"phone_number":          "+252612345678",
		"has_sponsor_id":        true,
		"children":              []map[string]any{{"name": "Ayaan", "birth_date": "2015-02-03"}},
	}
}

func itoa(n int) string { return fmt.Sprint(n) }
