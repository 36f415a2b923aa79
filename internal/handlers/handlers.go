package handlers

import (
	"context"
	"net/http"

	"immigration/internal/config"
	"immigration/internal/metrics"
	"immigration/internal/middleware"
	"immigration/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// Services: доменные сервисы, которые обслуживает HTTP API.
type Services struct {
	Documents *service.DocumentService
	Forms     *service.FormService
	Reports   *service.ReportService
	Users     *service.UserService
}

// Pinger проверяет доступность БД для /healthz (*sql.DB подходит).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewHandler разводящий для хендлеров
func NewHandler(
	svc Services,
	db Pinger,
	m *metrics.Metrics,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithRequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithGzip)
	r.Use(middleware.WithAuth(config.AuthSecret))
	r.Use(middleware.WithMetrics(m))

	base := &base{users: svc.Users, logger: logger, maxUpload: config.PhotoMaxBytes()}
	docs := &DocumentHandler{base: base, svc: svc.Documents}
	forms := &FormHandler{base: base, svc: svc.Forms}
	reports := &ReportHandler{base: base, svc: svc.Reports, db: db, secret: config.AuthSecret}

	r.Get("/healthz", reports.Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/statistics", reports.Statistics)
		r.Post("/auth/cookie", reports.Cookie)
		r.Post("/auth/login", reports.Login)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", docs.List)
			r.Post("/", docs.Create)
			r.Get("/statistics", docs.Statistics)
			r.Get("/by-region", docs.ByRegion)
			r.Get("/recent", docs.Recent)
			r.Post("/search", docs.Search)
			r.Post("/export", docs.Export)
			r.Post("/bulk", docs.Bulk)
			r.Post("/validate", docs.Validate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", docs.Get)
				r.Put("/", docs.Update)
				r.Delete("/", docs.Delete)
				r.Post("/approve", docs.Approve)
				r.Post("/print", docs.Print)
				r.Get("/history", docs.History)
				r.Post("/photo", docs.UploadPhoto)
				r.Get("/photo", docs.Photo)
				r.Post("/children", docs.AddChild)
				r.Delete("/children/{childID}", docs.RemoveChild)
				r.Post("/children/{childID}/photo", docs.UploadChildPhoto)
			})
		})

		r.Route("/forms/{kind}", func(r chi.Router) {
			r.Get("/", forms.List)
			r.Post("/", forms.Create)
			r.Get("/statistics", forms.Statistics)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", forms.Get)
				r.Put("/", forms.Update)
				r.Delete("/", forms.Delete)
				r.Post("/validate", forms.Validate)
				r.Post("/members", forms.AddMember)
				r.Delete("/members/{memberID}", forms.RemoveMember)
				r.Post("/members/{memberID}/photo", forms.UploadMemberPhoto)
				r.Get("/members/{memberID}/photo", forms.MemberPhoto)
			})
		})
	})

	return &Handler{Router: r}
}
