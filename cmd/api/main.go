package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/uatops/uat-router/internal/api/http"
	"github.com/uatops/uat-router/internal/api/http/handlers"
	"github.com/uatops/uat-router/internal/auth"
	"github.com/uatops/uat-router/internal/completion"
	"github.com/uatops/uat-router/internal/config"
	"github.com/uatops/uat-router/internal/events"
	"github.com/uatops/uat-router/internal/identity"
	"github.com/uatops/uat-router/internal/observability"
	"github.com/uatops/uat-router/internal/prompt"
	"github.com/uatops/uat-router/internal/service"
	"github.com/uatops/uat-router/internal/tracker"
	"github.com/uatops/uat-router/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tickets, err := tracker.NewClient(ctx, cfg.Tracker, logger)
	if err != nil {
		logger.Fatal("failed to init tracker client", zap.Error(err))
	}

	prompts, err := prompt.NewBuilder(cfg.Prompt.TemplatePath)
	if err != nil {
		logger.Fatal("failed to load prompt template", zap.Error(err))
	}

	httpClient := &http.Client{}
	completions := completion.NewClient(cfg.Completion, httpClient, logger)

	deps := service.RoutingDependencies{
		Tickets:        tickets,
		Prompts:        prompts,
		Completions:    completions,
		Logger:         logger,
		DefaultProject: cfg.Tracker.DefaultProject,
		BatchWindow:    cfg.Batch.Window(),
	}
	var searcher handlers.UserSearcher
	if cfg.Identity.Enabled() {
		resolver := identity.NewResolver(cfg.Identity, httpClient, logger)
		deps.Identities = resolver
		searcher = resolver
	} else {
		logger.Info("identity resolution disabled")
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	deps.Dispatcher = dispatcher
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	routingService := service.NewRoutingService(deps)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:     cfg.App.RequestTimeout(),
		ExposeTrace: !cfg.App.IsProduction(),
	})

	functionKey := auth.NewFunctionKeyMiddleware(cfg.Auth.FunctionKeyHash)
	if !functionKey.Enabled() {
		logger.Warn("function key not configured; routing endpoints are open")
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, completions),
		Routing:     handlers.NewRoutingHandler(routingService),
		Identities:  handlers.NewIdentityHandler(searcher),
		Metrics:     handlers.NewMetricsHandler(metrics),
		FunctionKey: functionKey,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
