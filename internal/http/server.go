package httpapi

import (
	"net/http"
	"time"

	"daycare-backend-go/internal/config"
	"daycare-backend-go/internal/db"
	"daycare-backend-go/internal/models"
	"daycare-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type Server struct {
	Store   *db.Store
	Config  config.Config
	Tokens  services.TokenService
	Metrics *Metrics
	Now     func() time.Time
}

func NewServer(store *db.Store, cfg config.Config) *Server {
	tokens := services.TokenService{
		Secret:    []byte(cfg.JWTSecret),
		Issuer:    cfg.JWTIssuer,
		AccessTTL: time.Duration(cfg.AccessTTLSeconds) * time.Second,
		Revoked:   services.NewRevocationList(),
	}
	return &Server{
		Store:   store,
		Config:  cfg,
		Tokens:  tokens,
		Metrics: NewMetrics(),
		Now:     time.Now,
	}
}

func (s *Server) today() time.Time {
	now := s.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.Health)
	if s.Config.MetricsToken != "" {
		r.With(RequireScrapeToken(s.Config.MetricsToken)).Handle("/metrics", s.Metrics.Handler())
	}

	writers := RequireAnyRole(models.RoleAdmin, models.RoleEditor)
	admins := RequireRole(models.RoleAdmin)

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login", s.Login)

		api.Group(func(authed chi.Router) {
			authed.Use(WithSession(s.Store, s.Tokens))

			authed.Post("/auth/logout", s.Logout)
			authed.Get("/menu", s.Menu)
			authed.Post("/session/navigate", s.Navigate)

			authed.Route("/me", func(me chi.Router) {
				me.Get("/", s.Me)
				me.Put("/password", s.ChangePassword)
			})

			authed.Route("/children", func(children chi.Router) {
				children.Get("/", s.ListChildren)
				children.With(writers).Post("/", s.CreateChild)
				children.Post("/report", s.ChildrenReport)
				children.Get("/{childId}", s.ChildDetail)
				children.With(writers).Put("/{childId}", s.UpdateChild)
				children.With(writers).Post("/{childId}/photo", s.UploadChildPhoto)
				children.Get("/{childId}/photo", s.ChildPhoto)
			})

			authed.Route("/attendance", func(att chi.Router) {
				att.With(writers).Post("/", s.MarkAttendance)
				att.Get("/status", s.AttendanceStatus)
				att.Get("/report", s.AttendanceReport)
				att.Get("/calendar", s.AttendanceCalendar)
				att.With(admins).Post("/dedup", s.DedupAttendance)
			})

			authed.Route("/egress", func(eg chi.Router) {
				eg.Get("/", s.ListEgress)
				eg.With(writers).Post("/", s.DepartChild)
			})

			authed.Route("/admin", func(admin chi.Router) {
				admin.Use(admins)
				admin.Get("/system", s.SystemStatus)
				admin.Route("/users", func(users chi.Router) {
					users.Get("/", s.ListUsers)
					users.Post("/", s.CreateUser)
					users.Put("/{userId}/role", s.UpdateUserRole)
					users.Delete("/{userId}", s.DeleteUser)
				})
			})
		})
	})
	return r
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	var one int
	if err := s.Store.Get(r.Context(), &one, `SELECT 1`); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
