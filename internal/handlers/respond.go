package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"immigration/internal/apperr"
	"immigration/internal/export"
	"immigration/internal/middleware"
	"immigration/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// base: общие зависимости и помощники хендлеров.
type base struct {
	users     *service.UserService
	logger    *zap.SugaredLogger
	maxUpload int64
}

type errorResponse struct {
	Error  string              `json:"error"`
	Fields []apperr.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail переводит ошибку сервиса в HTTP-ответ.
func (b *base) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *apperr.ValidationError
	var ite *apperr.InvalidTransitionError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: ve.Fields})
	case errors.As(err, &ite):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ite.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "conflict: record already exists"})
	case errors.Is(err, export.ErrUnsupported):
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: err.Error()})
	default:
		b.logger.Errorw(op+": service error", "request_id", middleware.GetRequestID(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (b *base) badRequest(w http.ResponseWriter, op, msg string, err error) {
	b.logger.Warnw(op+": "+msg, "error", err)
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func (b *base) decode(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		b.badRequest(w, op, "invalid request body", err)
		return false
	}
	return true
}

func (b *base) actor(r *http.Request) service.Actor {
	uid, ok := middleware.GetUserIDFromContext(r.Context())
	return b.users.ResolveActor(r.Context(), uid, ok)
}

// readPhoto достаёт файл "photo" из multipart-запроса.
func (b *base) readPhoto(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	// запас на служебные части multipart
	r.Body = http.MaxBytesReader(w, r.Body, b.maxUpload+1<<20)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, apperr.NewValidation("photo", nil, fmt.Sprintf("image file too large, maximum size is %d MB", b.maxUpload>>20))
		}
		return nil, apperr.NewValidation("photo", nil, "invalid multipart form")
	}
	f, _, err := r.FormFile("photo")
	if err != nil {
		return nil, apperr.NewValidation("photo", nil, "photo file is required")
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (b *base) streamPhoto(w http.ResponseWriter, r *http.Request, op string, rc io.ReadCloser) {
	defer rc.Close()
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		b.logger.Warnw(op+": stream failed", "request_id", middleware.GetRequestID(r.Context()), "error", err)
	}
}

func urlID(r *http.Request, name string) (uint, error) {
	n, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.NewValidation(name, chi.URLParam(r, name), "must be a positive integer")
	}
	return uint(n), nil
}

func queryInt(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return n
}

// page переводит page/page_size в limit/offset.
func page(r *http.Request) (limit, offset int) {
	size := queryInt(r, "page_size", defaultPageSize)
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	p := queryInt(r, "page", 1)
	if p < 1 {
		p = 1
	}
	return size, (p - 1) * size
}

// Date принимает "2006-01-02" или RFC3339. Пустая строка и null означают отсутствие даты.
type Date struct {
	Time     *time.Time
	dateOnly bool
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if string(b) == "null" {
		return nil
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, dateOnly, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Time, d.dateOnly = t, dateOnly
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.Time == nil {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time)
}

// EndOfDay расширяет дату без времени до конца суток (верхняя граница фильтра).
func (d Date) EndOfDay() *time.Time {
	if d.Time == nil || !d.dateOnly {
		return d.Time
	}
	t := d.Time.Add(24*time.Hour - time.Nanosecond)
	return &t
}

func parseDate(s string) (*time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	t = t.UTC()
	return &t, false, nil
}

// queryDate читает дату из query. Ошибка формата даёт ValidationError по полю.
func queryDate(r *http.Request, name string) (Date, error) {
	t, dateOnly, err := parseDate(r.URL.Query().Get(name))
	if err != nil {
		return Date{}, apperr.NewValidation(name, r.URL.Query().Get(name), err.Error())
	}
	return Date{Time: t, dateOnly: dateOnly}, nil
}
