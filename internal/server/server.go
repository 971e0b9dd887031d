// Package server exposes the GCIS business item lookups over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gcis-cli/internal/resilience"
	"github.com/sells-group/gcis-cli/internal/store"
	"github.com/sells-group/gcis-cli/pkg/gcis"
)

const shutdownTimeout = 10 * time.Second

// Source serves business item lookups. gcis.Client and store.Lookup both
// satisfy it.
type Source interface {
	ListBusinessItems(ctx context.Context, params gcis.ListParams) ([]gcis.BusinessItem, error)
	GetBusinessItem(ctx context.Context, code string) (*gcis.BusinessItem, error)
}

// filterSource lists items by category and code prefix. Only the stored
// source supports it since the upstream query filters by exact code alone.
type filterSource interface {
	FilterBusinessItems(ctx context.Context, filter store.ItemFilter) ([]gcis.BusinessItem, error)
}

// NewRouter builds the HTTP handler serving business items from src.
func NewRouter(src Source, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &handler{src: src}
	r.Get("/health", h.health)
	r.Get("/business-items", h.listItems)
	r.Get("/business-items/{code}", h.getItem)
	return r
}

// Run serves h on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server: listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}

type handler struct {
	src Source
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := gcis.ListParams{ItemCode: q.Get("code")}

	var err error
	if params.Top, err = intParam(q.Get("top"), gcis.DefaultTop); err != nil {
		writeError(w, http.StatusBadRequest, "top must be an integer")
		return
	}
	if params.Skip, err = intParam(q.Get("skip"), 0); err != nil {
		writeError(w, http.StatusBadRequest, "skip must be an integer")
		return
	}

	var items []gcis.BusinessItem
	category, prefix := q.Get("category"), q.Get("prefix")
	if category != "" || prefix != "" {
		fs, ok := h.src.(filterSource)
		switch {
		case !ok:
			writeError(w, http.StatusBadRequest, "category and prefix filters need the store source")
			return
		case params.ItemCode != "":
			writeError(w, http.StatusBadRequest, "code cannot be combined with category or prefix")
			return
		}
		items, err = fs.FilterBusinessItems(r.Context(), store.ItemFilter{
			Category:   category,
			CodePrefix: prefix,
			Limit:      params.Top,
			Offset:     params.Skip,
		})
	} else {
		items, err = h.src.ListBusinessItems(r.Context(), params)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []gcis.BusinessItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) getItem(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	item, err := h.src.GetBusinessItem(r.Context(), code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// fail maps client errors onto response codes. Upstream failures are
// reported as 502, or 504 when the upstream timed out, since the request
// itself was well formed.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("business item lookup failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	msg := http.StatusText(status)
	if status == http.StatusBadRequest {
		msg = err.Error()
	}
	writeError(w, status, msg)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, gcis.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, gcis.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, resilience.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case gcis.IsTransportError(err), gcis.IsShapeError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
