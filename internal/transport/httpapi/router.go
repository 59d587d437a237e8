package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/domain/event"
	"freestylecal/internal/errs"
	"freestylecal/internal/usecase/catalog"
)

// EventReader is the read side the API serves from.
type EventReader interface {
	List(ctx context.Context, f catalog.Filter) ([]event.Event, error)
	Get(ctx context.Context, id uint64) (event.Event, error)
	Stats(ctx context.Context) (catalog.Stats, error)
	Upcoming(ctx context.Context, limit int) ([]event.Event, error)
	Facets(ctx context.Context) (catalog.Facets, error)
}

type RequestObserver interface {
	ObserveRequest(route string, code string)
}

type Options struct {
	Reader EventReader
	// RateLimit uses the "<limit>-<period>" notation, e.g. "120-M". Empty
	// disables limiting.
	RateLimit string
	Observer  RequestObserver
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the public read API.
func NewRouter(ctx context.Context, opts Options) (http.Handler, error) {
	h := &handler{reader: opts.Reader}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(ctx, opts.Observer))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	limit, err := rateLimit(opts.RateLimit)
	if err != nil {
		return nil, err
	}

	r.Route("/api", func(api chi.Router) {
		if limit != nil {
			api.Use(limit)
		}
		api.Get("/eventos", h.listEvents)
		api.Get("/eventos/{id}", h.getEvent)
		api.Get("/stats", h.stats)
		api.Get("/proximos", h.upcoming)
		api.Get("/filtros", h.facets)
		api.Get("/export", h.export)
	})

	return r, nil
}

func rateLimit(formatted string) (func(http.Handler) http.Handler, error) {
	formatted = strings.TrimSpace(formatted)
	if formatted == "" {
		return nil, nil
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, errs.Wrapf(err, "parse rate limit %q", formatted)
	}
	mw := limiterstdlib.NewMiddleware(limiter.New(memory.NewStore(), rate))
	return mw.Handler, nil
}

func requestLogger(ctx context.Context, observer RequestObserver) func(http.Handler) http.Handler {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "transport.http"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			if observer != nil {
				observer.ObserveRequest(route, strconv.Itoa(status))
			}

			logging.Debug(
				logCtx,
				"http request",
				slog.String("request_id", chimw.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int("status", status),
				slog.Duration("elapsed", time.Since(started)),
			)
		})
	}
}
