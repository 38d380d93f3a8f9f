package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	pfotel "github.com/Strob0t/PlanForge/internal/adapter/otel"
	"github.com/Strob0t/PlanForge/internal/middleware"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	CORSOrigin string
	Limiter    *middleware.RateLimiter // nil disables rate limiting
	Tracing    bool
}

// NewRouter builds the chi router with the standard middleware chain.
// There is no per-request timeout; the planner client bounds its own calls.
func NewRouter(h *Handlers, opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	if opts.Tracing {
		r.Use(pfotel.HTTPMiddleware("planforge"))
	}
	r.Use(AccessLog)
	r.Use(chimw.Recoverer)
	r.Use(CORS(opts.CORSOrigin))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	var limit func(http.Handler) http.Handler
	if opts.Limiter != nil {
		limit = opts.Limiter.Handler
	}
	MountRoutes(r, h, limit)
	return r
}
