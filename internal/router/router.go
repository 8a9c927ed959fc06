package router

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel/trace"

	_ "participation-service/docs"
	"participation-service/internal/adapters/idempotency"
	mem "participation-service/internal/adapters/storage/memory"
	pg "participation-service/internal/adapters/storage/postgres"
	"participation-service/internal/domain/requests"
	"participation-service/internal/lookup"
	"participation-service/internal/middleware"
	"participation-service/internal/platform/logger"
	"participation-service/internal/ports/directory"
)

type Options struct {
	Logger logger.Logger
	Tracer trace.Tracer // nil => noop

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	Users            directory.UserDirectory
	Events           directory.EventDirectory
	DirectoryTimeout time.Duration

	// Protege /internal/*. Vacío => abierto (modo dev).
	ServiceAPIKey string

	// nil => cache en proceso.
	Idempotency    idempotency.Store
	IdempotencyTTL time.Duration
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(log))
	r.Use(middleware.Recover(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	var repo requests.Repository
	if opts.DB != nil {
		repo = pg.NewRequestsRepo(opts.DB)
	} else {
		repo = mem.NewRequestRepo()
	}

	lk := lookup.New(lookup.Options{
		Users:   opts.Users,
		Events:  opts.Events,
		Timeout: opts.DirectoryTimeout,
		Logger:  log.With(logger.Fields{"component": "lookup"}),
		Tracer:  opts.Tracer,
	})

	svc := requests.NewService(repo, lk,
		requests.WithLogger(log.With(logger.Fields{"component": "requests"})),
		requests.WithTracer(opts.Tracer),
	)

	store := opts.Idempotency
	if store == nil {
		store = idempotency.NewMemoryStore(opts.IdempotencyTTL)
	}

	// Mutaciones con soporte de Idempotency-Key
	r.Group(func(gr chi.Router) {
		gr.Use(middleware.Idempotency(store, opts.IdempotencyTTL, log))
		requests.RegisterRoutes(gr, svc)
	})

	r.Route("/internal", func(ir chi.Router) {
		ir.Use(middleware.ServiceKey(opts.ServiceAPIKey))
		requests.RegisterInternalRoutes(ir, svc)
	})

	return r
}
