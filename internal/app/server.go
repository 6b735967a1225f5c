package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/filingscope/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/filingscope/internal/api/middlewares"
	"github.com/markdave123-py/filingscope/internal/platform/logger"
)

// Ingestion runs synchronously inside the request, so the route timeout is generous.
const requestTimeout = 10 * time.Minute

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer builds and wires all routes.
func NewServer(port string, log *logger.Logger, companies handlers.CompanyAPI, filings handlers.FilingAPI, bonds handlers.BondAPI) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           NewRouter(log, companies, filings, bonds),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

func NewRouter(log *logger.Logger, companies handlers.CompanyAPI, filings handlers.FilingAPI, bonds handlers.BondAPI) http.Handler {
	companyHandler := handlers.NewCompanyHandler(companies)
	filingHandler := handlers.NewFilingHandler(filings)
	bondHandler := handlers.NewBondHandler(bonds)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appMiddleware.AccessLog(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Get("/healthz", handlers.Health)

	r.Route("/api", func(api chi.Router) {
		api.Route("/companies", func(c chi.Router) {
			c.Put("/import", companyHandler.ImportDirectory)
			c.Get("/resolve", companyHandler.Resolve)
			c.Post("/ingest", filingHandler.IngestByName)

			c.Route("/{cik}", func(co chi.Router) {
				co.Get("/filings/latest", filingHandler.LatestFilings)
				co.Get("/documents", filingHandler.ListDocuments)
				co.Post("/ingest", filingHandler.IngestCompany)
				co.Post("/ask", filingHandler.Ask)
			})
		})
		api.Post("/search", filingHandler.Search)
		api.Get("/bonds", bondHandler.FindBonds)
	})

	return r
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
