package service

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"immigration/internal/metrics"
	"immigration/internal/photo"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Actor is the staff member a mutation is attributed to. The zero value is
// the anonymous "system" actor.
type Actor struct {
	UserID   *uint
	Username string
}

func (a Actor) Name() string {
	if a.Username == "" {
		return "system"
	}
	return a.Username
}

// PhotoLimits bounds uploaded photos.
type PhotoLimits struct {
	MaxPx    int
	MaxBytes int64
}

// DefaultPhotoLimits: 1024px box, 5 MB upload.
var DefaultPhotoLimits = PhotoLimits{MaxPx: 1024, MaxBytes: 5 << 20}

type options struct {
	now    func() time.Time
	photo  PhotoLimits
	recent int
}

// Option tunes a service.
type Option func(*options)

// WithClock replaces time.Now, for tests and reference generation.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithPhotoLimits(l PhotoLimits) Option {
	return func(o *options) { o.photo = l }
}

// WithRecentDays sets the default window of "recent" statistics.
func WithRecentDays(days int) Option {
	return func(o *options) {
		if days > 0 {
			o.recent = days
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, photo: DefaultPhotoLimits, recent: 30}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// removePhotos deletes refs after their records are gone. Failures are
// logged and counted but never returned.
func removePhotos(ctx context.Context, store photo.Store, refs []string, m *metrics.Metrics, logger *zap.SugaredLogger) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := store.Delete(ctx, ref); err != nil {
			m.IncPhotoCleanupFailure()
			logger.Warnw("photo cleanup failed", "ref", ref, "error", err)
		}
	}
}

// diffFields returns the json fields whose values differ between before and
// after, with the new values. Only keys listed in fields are compared.
func diffFields(before, after any, fields []string) datatypes.JSONMap {
	b, a := asMap(before), asMap(after)
	out := datatypes.JSONMap{}
	for _, f := range fields {
		if !reflect.DeepEqual(b[f], a[f]) {
			out[f] = a[f]
		}
	}
	return out
}

func asMap(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	m := map[string]any{}
	_ = json.Unmarshal(raw, &m)
	return m
}

func since(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}
