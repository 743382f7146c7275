package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qatalysthq/qatalyst-backend/api/controllers"
	"github.com/qatalysthq/qatalyst-backend/api/middleware"
	"github.com/qatalysthq/qatalyst-backend/internal/agents"
	"github.com/qatalysthq/qatalyst-backend/internal/queue"
	"github.com/qatalysthq/qatalyst-backend/internal/ussd"
	"github.com/qatalysthq/qatalyst-backend/pkg/config"
	"github.com/qatalysthq/qatalyst-backend/pkg/logger"
	"github.com/qatalysthq/qatalyst-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	db controllers.Pinger,
	redisClient *redis.Client,
	queueService queue.Service,
	agentsRepo agents.Repository,
	ussdEngine *ussd.Engine,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	ussdPolicy := middleware.USSDRateLimitPolicy{
		Window: cfg.USSD.RateLimitWindow,
		Limit:  cfg.USSD.RateLimitRequests,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, db, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/queue", func(r chi.Router) {
		r.Post("/join", controllers.JoinQueue(queueService, logg))
		r.Get("/", controllers.GetQueue(queueService, logg))
		r.Get("/position/{phone}", controllers.QueuePosition(queueService, logg))
		r.Get("/status/{ticketNumber}", controllers.TicketStatus(queueService, logg))
	})

	r.Route("/ussd", func(r chi.Router) {
		r.With(middleware.USSDRateLimit(ussdPolicy, redisClient, logg)).
			Post("/callback", controllers.USSDCallback(ussdEngine, logg))
		r.Post("/join", controllers.USSDJoin(queueService, logg))
		r.Post("/call-next", controllers.CallNext(queueService, logg))
		r.Get("/agents", controllers.ListAgents(agentsRepo, logg))
		r.Get("/", controllers.GetQueue(queueService, logg))
	})

	return r
}
