package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"

	swagger "github.com/go-swagno/swagno-fiber/swagger"

	"github.com/curbside-labs/lotwatch/internal/api/docs"
	"github.com/curbside-labs/lotwatch/internal/api/handler"
	"github.com/curbside-labs/lotwatch/internal/api/middleware"
	"github.com/curbside-labs/lotwatch/internal/authorize"
	"github.com/curbside-labs/lotwatch/internal/config"
	"github.com/curbside-labs/lotwatch/internal/ingest"
	"github.com/curbside-labs/lotwatch/internal/lpr"
	"github.com/curbside-labs/lotwatch/internal/notify"
	"github.com/curbside-labs/lotwatch/internal/permits"
	"github.com/curbside-labs/lotwatch/internal/pricing"
	"github.com/curbside-labs/lotwatch/internal/repository"
	"github.com/curbside-labs/lotwatch/internal/session"
	"github.com/curbside-labs/lotwatch/internal/violations"
)

type Dependencies struct {
	DB         *pgxpool.Pool
	Config     *config.Config
	Recognizer lpr.Recognizer
}

type Router struct {
	app                *fiber.App
	logger             *slog.Logger
	deps               *Dependencies
	notifyWorker       *notify.Worker
	cancelNotifyWorker context.CancelFunc
	cancelPermitWorker context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Lotwatch API",
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Lotwatch-Signature",
	}))

	// Swagger documentation (no auth required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints
	var pinger handler.Pinger
	if r.deps != nil && r.deps.DB != nil {
		pinger = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(pinger)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// API v1 group
	v1 := r.app.Group("/v1")

	// Only configure the full surface if dependencies were provided
	if r.deps == nil {
		return
	}

	cfg := r.deps.Config

	// Repositories
	lotRepo := repository.NewLotRepository(r.deps.DB)
	ruleRepo := repository.NewPricingRuleRepository(r.deps.DB)
	permitRepo := repository.NewPermitRepository(r.deps.DB)
	violationRepo := repository.NewViolationRepository(r.deps.DB)
	sessionRepo := repository.NewSessionRepository(r.deps.DB)
	eventRepo := repository.NewEventRepository(r.deps.DB)

	// Notification fan-out and its retry worker
	notifyService := notify.NewService(r.deps.DB, r.logger)
	r.notifyWorker = notify.NewWorker(r.deps.DB, notifyService, r.logger)

	notifyCtx, cancelNotify := context.WithCancel(context.Background())
	r.cancelNotifyWorker = cancelNotify
	go r.notifyWorker.Run(notifyCtx)

	// Core engine
	rateResolver := pricing.NewResolver(ruleRepo, lotRepo, cfg.DefaultHourlyRate)
	authEngine := authorize.NewEngine(permitRepo, sessionRepo, violationRepo, lotRepo, r.logger)
	sessionManager := session.NewManager(
		sessionRepo,
		authEngine,
		rateResolver,
		notifyService,
		cfg.HighOccupancyThreshold,
		r.logger,
	)
	gateway := ingest.NewGateway(eventRepo, lotRepo, sessionManager, r.logger)

	permitService := permits.NewService(permitRepo, lotRepo, r.logger)
	violationService := violations.NewService(violationRepo, lotRepo, notifyService, r.logger)

	// Expired permit sweep worker
	permitWorker := permits.NewWorker(permitService, r.logger, cfg.PermitSweepInterval)
	permitCtx, cancelPermit := context.WithCancel(context.Background())
	r.cancelPermitWorker = cancelPermit
	go permitWorker.Run(permitCtx)

	// Vendor feed, authenticated by HMAC over the raw body
	eventsHandler := handler.NewEventsHandler(gateway, eventRepo, r.logger)
	v1.Post("/events", middleware.VendorSignature(cfg.VendorWebhookSecret, r.logger), eventsHandler.Ingest)
	v1.Get("/events", eventsHandler.List)

	// Authorization
	authorizeHandler := handler.NewAuthorizeHandler(authEngine, lotRepo, r.logger)
	v1.Post("/authorize", authorizeHandler.Authorize)

	// Sessions
	sessionsHandler := handler.NewSessionsHandler(sessionManager, r.logger)
	v1.Post("/sessions", sessionsHandler.Open)
	v1.Post("/sessions/close", sessionsHandler.Close)
	v1.Get("/sessions/active", sessionsHandler.Active)
	v1.Get("/sessions/:id", sessionsHandler.Get)
	v1.Get("/sessions", sessionsHandler.List)

	// Payments
	paymentsHandler := handler.NewPaymentsHandler(sessionManager, r.logger)
	v1.Post("/payments", paymentsHandler.Confirm)

	// Permits
	permitsHandler := handler.NewPermitsHandler(permitService, r.logger)
	v1.Post("/permits", permitsHandler.Create)
	v1.Get("/permits", permitsHandler.List)
	v1.Get("/permits/:id", permitsHandler.Get)
	v1.Post("/permits/:id/deactivate", permitsHandler.Deactivate)
	v1.Delete("/permits/:id", permitsHandler.Delete)

	// Violations
	violationsHandler := handler.NewViolationsHandler(violationService, r.logger)
	v1.Post("/violations", violationsHandler.Issue)
	v1.Get("/violations", violationsHandler.List)
	v1.Get("/violations/:id", violationsHandler.Get)
	v1.Post("/violations/:id/settle", violationsHandler.Settle)
	v1.Post("/violations/:id/dismiss", violationsHandler.Dismiss)

	// Lots
	lotsHandler := handler.NewLotsHandler(lotRepo, rateResolver, r.logger)
	v1.Post("/lots", lotsHandler.Create)
	v1.Get("/lots", lotsHandler.List)
	v1.Get("/lots/:id", lotsHandler.Get)
	v1.Get("/lots/:id/rate", lotsHandler.Rate)

	// Pricing rules
	pricingHandler := handler.NewPricingRulesHandler(ruleRepo, lotRepo, r.logger)
	v1.Post("/pricing-rules", pricingHandler.Create)
	v1.Get("/pricing-rules", pricingHandler.List)
	v1.Get("/pricing-rules/:id", pricingHandler.Get)
	v1.Post("/pricing-rules/:id/activate", pricingHandler.Activate)
	v1.Post("/pricing-rules/:id/deactivate", pricingHandler.Deactivate)

	// Plate recognition (optional, provider may be disabled)
	if r.deps.Recognizer != nil {
		lprHandler := handler.NewLPRHandler(r.deps.Recognizer, r.logger)
		v1.Post("/lpr/recognize", lprHandler.Recognize)
	}

	// Notifications
	notificationsHandler := handler.NewNotificationsHandler(notifyService, r.logger)
	v1.Get("/notifications", notificationsHandler.List)
	v1.Post("/notification-endpoints", notificationsHandler.CreateEndpoint)
	v1.Get("/notification-endpoints", notificationsHandler.ListEndpoints)
	v1.Delete("/notification-endpoints/:id", notificationsHandler.DeleteEndpoint)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop notification retry worker
	if r.cancelNotifyWorker != nil {
		r.cancelNotifyWorker()
	}

	// Stop permit sweep worker
	if r.cancelPermitWorker != nil {
		r.cancelPermitWorker()
	}

	return r.app.Shutdown()
}
