package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"opcalcd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Execute(ctx context.Context, req types.ExecuteRequest) types.ExecuteResponse
	Operations() map[string][]string
	OperationParams() map[string]types.ParamInfo
	QueueStats() types.QueueStats
	DeviceStatus() types.DeviceStatusResponse
	GitInfo(ctx context.Context) types.GitInfo
	MachineInfo() types.MachineInfo
	ResetDevice(ctx context.Context) types.ResetResponse
	Ready() bool
}

// serverBaseCtx is a process-level context that can be canceled on shutdown.
// Defaults to Background if not set.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context that is canceled when either a or b is done.
// The returned cancel func must be called to release the goroutine when the
// handler ends.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		}
	}()
	return ctx, cancel
}

// NewMux builds the HTTP router over svc.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Log-Level"},
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)

	r.Post("/api/execute", func(w http.ResponseWriter, r *http.Request) {
		// Content-Type check
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		// Limit body size (configurable, default 1MiB). Transport-level
		// failures here never touch the broker counters.
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.ExecuteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Operation) == "" {
			writeJSONError(w, http.StatusBadRequest, "operation is required")
			return
		}
		if len(req.Inputs) == 0 {
			writeJSONError(w, http.StatusBadRequest, "at least one input is required")
			return
		}

		lvl := requestLogLevel(r)
		start := time.Now()
		if lvl >= LevelInfo {
			z := logger.Info().Str("path", r.URL.Path).Str("operation", req.Operation)
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("execute start")
		}
		// Join server base context with request context so shutdown
		// abandons queued waiters too.
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp := svc.Execute(joinedCtx, req)
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		if lvl >= LevelInfo {
			z := logger.Info().Bool("success", resp.Success).Dur("dur", time.Since(start))
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("execute end")
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Get("/api/operations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Operations())
	})

	r.Get("/api/operations/params", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.OperationParams())
	})

	r.Get("/api/queue/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.QueueStats())
	})

	r.Get("/api/device/status", func(w http.ResponseWriter, r *http.Request) {
		// Non-blocking probe; never queues behind in-flight work.
		writeJSON(w, http.StatusOK, svc.DeviceStatus())
	})

	r.Get("/api/git/info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.GitInfo(r.Context()))
	})

	r.Get("/api/machine/info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.MachineInfo())
	})

	r.Post("/api/device/reset", func(w http.ResponseWriter, r *http.Request) {
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		writeJSON(w, http.StatusOK, svc.ResetDevice(joinedCtx))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("device unavailable"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("encode response failed")
	}
}
