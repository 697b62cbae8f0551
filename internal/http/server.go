package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"tanklog/internal/backend"
	"tanklog/internal/cache"
	"tanklog/internal/log"
	"tanklog/internal/middleware/ratelimit"
	"tanklog/internal/middleware/security"
	"tanklog/internal/middleware/trace"
	"tanklog/internal/services"
)

// appMetrics tracks application-level counters exposed on /metrics.
type appMetrics struct {
	totalFillups int64
	totalImports int64
	cacheHits    int64
	cacheMisses  int64
	startedAt    time.Time
}

type Server struct {
	http.Server

	backend *backend.Backend
	logger  *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	// Report responses are cached per vehicle and invalidated on every
	// mutation touching that vehicle's timeline.
	reportCache  *cache.LRUCache[services.VehicleReport]
	cacheManager *cache.Manager

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, b *backend.Backend, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	mux := http.NewServeMux()

	s := &Server{
		backend:          b,
		logger:           logger,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		securityDetector: security.NewDetector(),
		reportCache:      cache.NewLRUCache[services.VehicleReport](100, 5*time.Minute),
		cacheManager:     cache.NewManager(),
		appMetrics:       appMetrics{startedAt: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP)

	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/vehicles", s.handleListVehicles)
	mux.HandleFunc("POST /api/vehicles", s.handleCreateVehicle)
	mux.HandleFunc("GET /api/vehicles/{id}", s.handleGetVehicle)
	mux.HandleFunc("PATCH /api/vehicles/{id}", s.handleRenameVehicle)

	mux.HandleFunc("GET /api/vehicles/{id}/fillups", s.handleListFillups)
	mux.HandleFunc("POST /api/vehicles/{id}/fillups", s.handleCreateFillup)
	mux.HandleFunc("GET /api/fillups/{id}", s.handleGetFillup)
	mux.HandleFunc("PUT /api/fillups/{id}", s.handleUpdateFillup)
	mux.HandleFunc("DELETE /api/fillups/{id}", s.handleDeleteFillup)

	mux.HandleFunc("POST /api/vehicles/{id}/import", s.handleImport)
	mux.HandleFunc("GET /api/vehicles/{id}/stats", s.handleVehicleStats)
	mux.HandleFunc("GET /api/vehicles/{id}/report", s.handleVehicleReport)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middlewareChain(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// middlewareChain wraps the mux with tracing, security headers, suspicious
// request detection and rate limiting, outermost first.
func (s *Server) middlewareChain(next http.Handler) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, nil)(next)

	detected := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			// Detection is advisory: log and count, but keep serving.
			s.logger.WarnContext(r.Context(), "Suspicious request detected",
				log.FieldPath, r.URL.Path,
				log.FieldMethod, r.Method,
				log.FieldClientIP, s.securityDetector.ExtractClientIP(r))
		}
		limited.ServeHTTP(w, r)
	})

	withLogger := log.Middleware(s.logger)(detected)

	return s.traceMiddleware.Middleware(headers.Middleware(withLogger))
}

// Shutdown stops background cleanup goroutines and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// invalidateReport drops the cached report for a vehicle after a mutation.
func (s *Server) invalidateReport(vehicleID int64) {
	s.reportCache.Delete(reportCacheKey(vehicleID))
}

func (s *Server) cachedReport(ctx context.Context, vehicleID int64) (services.VehicleReport, error) {
	key := reportCacheKey(vehicleID)
	if report, found := s.reportCache.Get(key); found {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		s.logger.DebugContext(ctx, "Report cache hit", log.FieldVehicleID, vehicleID)
		return report, nil
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	report, err := s.backend.Stats.Report(ctx, vehicleID)
	if err != nil {
		return services.VehicleReport{}, err
	}
	s.reportCache.Set(key, report)
	return report, nil
}
