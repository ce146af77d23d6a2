package server

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sendrec/videoexp/internal/auth"
	"github.com/sendrec/videoexp/internal/docs"
	"github.com/sendrec/videoexp/internal/experience"
	"github.com/sendrec/videoexp/internal/ratelimit"
	"github.com/sendrec/videoexp/internal/storage"
)

const (
	defaultRateLimitRPS   = 5
	defaultRateLimitBurst = 20
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Store          storage.Store
	Pinger         Pinger
	Verifier       *auth.Verifier
	Access         auth.AccessChecker
	Directory      auth.Directory
	BaseURL        string
	FrameAncestors []string
	Geo            CountryResolver
	EnableDocs     bool
	RateLimitRPS   float64
	RateLimitBurst int
}

type Server struct {
	router     chi.Router
	pinger     Pinger
	verifier   *auth.Verifier
	experience *experience.Handler
	limiter    *ratelimit.Limiter
	docs       *docs.Handler
}

func New(cfg Config) *Server {
	if cfg.Verifier == nil {
		log.Fatal("server: a token verifier is required")
	}
	if cfg.Store == nil {
		cfg.Store = storage.Unconfigured{}
	}
	if cfg.Access == nil {
		log.Fatal("server: an access checker is required")
	}
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = defaultRateLimitRPS
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = defaultRateLimitBurst
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(slogMiddleware(cfg.Geo))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{
		BaseURL:        cfg.BaseURL,
		FrameAncestors: cfg.FrameAncestors,
	}))

	s := &Server{
		router:     r,
		pinger:     cfg.Pinger,
		verifier:   cfg.Verifier,
		experience: experience.NewHandler(cfg.Store, cfg.Access),
		limiter:    ratelimit.NewLimiter(rps, burst),
	}
	if cfg.Directory != nil {
		s.experience.SetDirectory(cfg.Directory)
	}
	if cfg.EnableDocs {
		s.docs = docs.New(cfg.BaseURL)
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	if s.docs != nil {
		s.router.Mount("/api/docs", s.docs.Routes())
	}

	s.router.Route("/experience-data", func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		r.Use(experience.RequireExperienceID)
		r.Use(s.verifier.Middleware)
		r.Get("/", s.experience.Get)
		r.Put("/", s.experience.Put)
		r.Get("/access", s.experience.Access)
		r.Get("/admin", s.experience.ListStored)
		r.Delete("/admin", s.experience.DeleteStored)
	})

	s.router.With(s.verifier.Middleware).Get("/experiences/{experienceId}", s.experience.WatchPage)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"storage unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
