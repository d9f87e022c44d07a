package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hvxhost/internal/manager"
	"hvxhost/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListImages() []types.Image
	Modules() []types.InstanceStatus
	Load(ctx context.Context, req manager.LoadRequest) (types.InstanceStatus, error)
	Unload(id string) error
	Resolve(id, name string) (bool, error)
	Run(ctx context.Context, id string, req manager.RunRequest) (manager.RunResult, error)
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if mw := corsMiddleware(); mw != nil {
		r.Use(mw)
	}
	r.Use(MetricsMiddleware)

	r.Get("/images", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ImagesResponse{Images: svc.ListImages()})
	})

	r.Route("/modules", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, types.ModulesResponse{Modules: svc.Modules()})
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var req types.LoadRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			start := time.Now()
			lvl := requestLogLevel(r)
			st, err := svc.Load(r.Context(), manager.LoadRequest{
				ImageID: req.ImageID,
				Path:    req.Path,
				Code:    req.Code,
				ID:      req.ID,
			})
			if err != nil {
				status := statusFor(err)
				writeJSONError(w, status, err.Error())
				logEnd(r, lvl, "load", status, start, err)
				return
			}
			writeJSON(w, http.StatusCreated, st)
			logEnd(r, lvl, "load", http.StatusCreated, start, nil)
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lvl := requestLogLevel(r)
			if err := svc.Unload(chi.URLParam(r, "id")); err != nil {
				status := statusFor(err)
				writeJSONError(w, status, err.Error())
				logEnd(r, lvl, "unload", status, start, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			logEnd(r, lvl, "unload", http.StatusNoContent, start, nil)
		})
		r.Get("/{id}/symbols/{name}", func(w http.ResponseWriter, r *http.Request) {
			id, name := chi.URLParam(r, "id"), chi.URLParam(r, "name")
			found, err := svc.Resolve(id, name)
			if err != nil {
				writeJSONError(w, statusFor(err), err.Error())
				return
			}
			writeJSON(w, http.StatusOK, types.SymbolResponse{Module: id, Name: name, Found: found})
		})
		r.Post("/{id}/run", func(w http.ResponseWriter, r *http.Request) {
			runHandler(svc, w, r)
		})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	if MountSwagger(r) {
		zlog.Debug().Msg("swagger ui mounted at /swagger/")
	}
	return r
}

func runHandler(svc Service, w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req types.RunRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		writeJSONError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	scalars := make([][]byte, 0, len(req.Scalars))
	for i, s := range req.Scalars {
		b, err := manager.EncodeScalar(s.Type, s.Value)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "scalars["+itoa(i)+"]: "+err.Error())
			return
		}
		scalars = append(scalars, b)
	}

	start := time.Now()
	lvl := requestLogLevel(r)
	if lvl >= LevelDebug {
		zlog.Debug().Str("module", id).Str("symbol", req.Symbol).
			Int("inputs", len(req.Inputs)).Int("scalars", len(scalars)).Ints("outputs", req.Outputs).
			Msg("run start")
	}

	ctx, cancel := runContext(r.Context())
	defer cancel()
	res, err := svc.Run(ctx, id, manager.RunRequest{
		Symbol:      req.Symbol,
		Inputs:      req.Inputs,
		Scalars:     scalars,
		OutputSizes: req.Outputs,
	})
	if err != nil {
		// Client went away or the server is shutting down.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status := statusFor(err)
		if reason := backpressureReason(err); reason != "" {
			IncrementBackpressure(reason)
		}
		writeJSONError(w, status, err.Error())
		logEnd(r, lvl, "run", status, start, err)
		return
	}
	outputs := res.Outputs
	if outputs == nil {
		outputs = [][]byte{}
	}
	writeJSON(w, http.StatusOK, types.RunResponse{
		Status:     res.Status,
		Outputs:    outputs,
		DurationMS: float64(res.Duration.Microseconds()) / 1000,
	})
	logEnd(r, lvl, "run", http.StatusOK, start, nil)
}

// decodeJSON enforces the content type and body limit and decodes into v.
// It writes the error response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Error().Err(err).Msg("failed to encode response")
	}
}
