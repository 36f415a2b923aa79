package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"immigration/internal/metrics"
	"immigration/internal/notify"
	"immigration/internal/photo"
	"immigration/internal/repo"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

var dbNameReplacer = strings.NewReplacer("/", "_", " ", "_", "#", "_")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", dbNameReplacer.Replace(t.Name()))
	db, err := repo.InitDB(dsn)
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// fixedClock возвращает часы, которые можно сдвигать из теста.
type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// brokenDeletes оборачивает Store и ломает Delete.
type brokenDeletes struct {
	photo.Store
}

func (brokenDeletes) Delete(context.Context, string) error {
	return errors.New("disk is read-only")
}

type env struct {
	db      *gorm.DB
	docs    repo.DocumentRepository
	forms   repo.FormRepository
	events  repo.EventRepository
	store   photo.Store
	metrics *metrics.Metrics
	logs    *observer.ObservedLogs
	logger  *zap.SugaredLogger
	clock   *fixedClock
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := newTestDB(t)
	core, logs := observer.New(zapcore.DebugLevel)
	return &env{
		db:      db,
		docs:    repo.NewDocumentRepository(db),
		forms:   repo.NewFormRepository(db),
		events:  repo.NewEventRepository(db),
		store:   photo.NewFSStore(t.TempDir()),
		metrics: metrics.New(prometheus.NewRegistry()),
		logs:    logs,
		logger:  zap.New(core).Sugar(),
		clock:   &fixedClock{now: time.Date(2025, 5, 10, 9, 30, 0, 0, time.UTC)},
	}
}

func (e *env) documentService(opts ...Option) *DocumentService {
	opts = append([]Option{WithClock(e.clock.Now)}, opts...)
	return NewDocumentService(e.docs, e.events, e.store, notify.NewDBSink(e.events), e.metrics, e.logger, opts...)
}

func (e *env) formService(opts ...Option) *FormService {
	opts = append([]Option{WithClock(e.clock.Now)}, opts...)
	return NewFormService(e.forms, e.store, e.metrics, e.logger, opts...)
}

func (e *env) reportService() *ReportService {
	return NewReportService(e.docs, e.forms, e.store, e.logger, WithClock(e.clock.Now))
}

// pngBytes кодирует однотонное изображение w×h.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrInt(n int) *int { return &n }
