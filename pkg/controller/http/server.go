package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
	"github.com/starlog-lab/starlog/pkg/utils/async"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
)

// ArticleIngester ingests a single pushed article
type ArticleIngester interface {
	IngestArticle(ctx context.Context, article *model.Article) (*model.IngestResult, error)
}

// CompactionRunner compacts figures, all stored figures when figureIDs is empty
type CompactionRunner interface {
	Run(ctx context.Context, figureIDs []types.FigureID) (*model.CompactRunReport, error)
}

// Diagnoser reports marker consistency of committed timelines
type Diagnoser interface {
	Diagnose(ctx context.Context, figureIDs []types.FigureID) (*model.DiagnosisReport, error)
}

type Server struct {
	router     *chi.Mux
	apiToken   string
	ingester   ArticleIngester
	compactor  CompactionRunner
	diagnoser  Diagnoser
	dispatcher *async.Dispatcher
}

type Options func(*Server)

// WithAPIToken requires "Authorization: Bearer <token>" on /api routes
func WithAPIToken(token string) Options {
	return func(s *Server) {
		s.apiToken = token
	}
}

func WithIngester(ingester ArticleIngester) Options {
	return func(s *Server) {
		s.ingester = ingester
	}
}

func WithCompactionRunner(runner CompactionRunner) Options {
	return func(s *Server) {
		s.compactor = runner
	}
}

func WithDiagnoser(diagnoser Diagnoser) Options {
	return func(s *Server) {
		s.diagnoser = diagnoser
	}
}

// WithDispatcher sets the dispatcher that runs compaction jobs. The caller
// drains it on shutdown.
func WithDispatcher(d *async.Dispatcher) Options {
	return func(s *Server) {
		s.dispatcher = d
	}
}

func New(opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:     r,
		dispatcher: &async.Dispatcher{},
	}
	for _, opt := range opts {
		opt(s)
	}

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		if s.apiToken != "" {
			r.Use(tokenMiddleware(s.apiToken))
		}
		if s.ingester != nil {
			r.Post("/articles", ingestHandler(s.ingester))
		}
		if s.compactor != nil {
			r.Post("/compactions", compactHandler(s.compactor, s.dispatcher))
		}
		if s.diagnoser != nil {
			r.Get("/figures/{figureID}/diagnosis", diagnoseHandler(s.diagnoser))
		}
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := logging.Default().With("request_id", middleware.GetReqID(r.Context()))
		r = r.WithContext(logging.With(r.Context(), logger))

		defer func() {
			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
