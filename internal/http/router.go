package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kinshukkush/smartsplit/internal/auth"
	"github.com/kinshukkush/smartsplit/internal/http/balance"
	"github.com/kinshukkush/smartsplit/internal/http/command"
	"github.com/kinshukkush/smartsplit/internal/http/expense"
	"github.com/kinshukkush/smartsplit/internal/http/export"
	"github.com/kinshukkush/smartsplit/internal/http/settlement"
)

type Options struct {
	// Auth, when set, requires a bearer token on every /api/v1 route.
	Auth           *auth.Manager
	AllowedOrigins []string
	// Metrics is served at /metrics when set.
	Metrics http.Handler
}

func New(
	commandsV1 *command.Handler,
	expensesV1 *expense.Handler,
	settlementsV1 *settlement.Handler,
	balancesV1 *balance.Handler,
	exportV1 *export.Handler,
	opts Options,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics)
	}

	router.Route("/api/v1", func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(auth.Require(opts.Auth))
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			r.Route("/expenses", expensesV1.Routes)
			r.Route("/settlements", settlementsV1.Routes)
		})

		r.Route("/balances", balancesV1.Routes)
		r.Route("/export", exportV1.Routes)

		// Import is multipart, so the command routes stay outside the JSON group.
		commandsV1.Routes(r)
	})

	return router
}
