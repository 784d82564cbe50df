package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/Boris-Bot69/fitness-ios/internal/auth"
	"github.com/Boris-Bot69/fitness-ios/internal/blob"
	"github.com/Boris-Bot69/fitness-ios/internal/config"
	"github.com/Boris-Bot69/fitness-ios/internal/events"
	"github.com/Boris-Bot69/fitness-ios/internal/reports"
	"github.com/Boris-Bot69/fitness-ios/internal/storage"
	"github.com/Boris-Bot69/fitness-ios/internal/trainingzones"
	"github.com/Boris-Bot69/fitness-ios/internal/workouts"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the optional collaborators of the server. Nil fields disable the
// corresponding feature.
type Deps struct {
	Archive   *blob.Archive
	Publisher events.Publisher
	Logger    *slog.Logger
}

// Server представляет HTTP сервер
type Server struct {
	config         *config.Config
	mux            *http.ServeMux
	storage        storage.Storage
	logger         *slog.Logger
	authMiddleware *auth.Middleware
}

// New создаёт новый HTTP сервер поверх готового storage
func New(cfg *config.Config, store storage.Storage, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		config:  cfg,
		mux:     http.NewServeMux(),
		storage: store,
		logger:  logger,
	}
	s.routes(deps)
	return s
}

// routes регистрирует маршруты
func (s *Server) routes(deps Deps) {
	// Health check and metrics (no auth required)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Auth API
	authService := auth.NewService(s.config)
	authHandler := auth.NewHandlers(authService)
	s.authMiddleware = auth.NewMiddleware(s.config, authService)

	// POST /v1/auth/dev - local dev token
	s.mux.HandleFunc("POST /v1/auth/dev", authHandler.HandleDevAuth)

	// Training zones API
	zonesService := trainingzones.NewService(s.storage, s.logger)
	zonesHandler := trainingzones.NewHandlers(zonesService)

	s.mux.HandleFunc("POST /v1/training-zones", zonesHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/training-zones", zonesHandler.HandleList)

	// Workouts API
	workoutsService := workouts.NewService(s.storage, zonesService, s.config.Pipeline, s.logger)
	if deps.Archive != nil {
		workoutsService.SetArchive(deps.Archive)
	}
	if deps.Publisher != nil {
		workoutsService.SetPublisher(deps.Publisher)
	}
	workoutsHandler := workouts.NewHandlers(workoutsService, s.config.Pipeline.MaxBodyBytes)

	s.mux.HandleFunc("POST /v1/workouts", workoutsHandler.HandleCreate)
	s.mux.HandleFunc("PATCH /v1/workouts", workoutsHandler.HandlePatch)
	s.mux.HandleFunc("GET /v1/workouts", workoutsHandler.HandleList)
	s.mux.HandleFunc("GET /v1/workouts/{id}", workoutsHandler.HandleGet)
	s.mux.HandleFunc("GET /v1/workouts/{id}/raw", workoutsHandler.HandleRaw)

	// Reports API
	reportsHandler := reports.NewHandlers(workoutsService, reports.NewGenerator())
	s.mux.HandleFunc("GET /v1/workouts/{id}/report.pdf", reportsHandler.HandleWorkoutPDF)
}

// handleHealthz возвращает статус сервера и хранилища
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := s.storage.Ping(ctx); err != nil {
		s.logger.Warn("healthz: storage ping failed", "error", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
	})
}

// Handler builds the middleware chain (outermost first): CORS → Rate Limit → Auth → Router
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = s.authMiddleware.Authenticate(handler)
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)
	return handler
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("INFO http: listening on http://localhost%s", addr)
		log.Printf("INFO http: health check http://localhost%s/healthz", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	log.Printf("INFO http: shutting down")
	return srv.Shutdown(shutdownCtx)
}

// Close закрывает storage и освобождает ресурсы
func (s *Server) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
