// @title           Trip Settlement API
// @version         1.0
// @description     Balances, debt-minimizing settlement suggestions and the settlement confirmation workflow for shared trips.
// @BasePath        /api/v1
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/fkhayef/tripsettle/docs"
	"github.com/fkhayef/tripsettle/internal/config"
	"github.com/fkhayef/tripsettle/internal/database"
	"github.com/fkhayef/tripsettle/internal/expense"
	expensesplit "github.com/fkhayef/tripsettle/internal/expense/split"
	"github.com/fkhayef/tripsettle/internal/ledger"
	"github.com/fkhayef/tripsettle/internal/ledger/snapshot"
	"github.com/fkhayef/tripsettle/internal/notification"
	"github.com/fkhayef/tripsettle/internal/observability"
	"github.com/fkhayef/tripsettle/internal/payment"
	"github.com/fkhayef/tripsettle/internal/platform/cache"
	"github.com/fkhayef/tripsettle/internal/settlement"
	"github.com/fkhayef/tripsettle/internal/trip"
	"github.com/fkhayef/tripsettle/internal/user"
	"github.com/fkhayef/tripsettle/pkg/logging"
	mw "github.com/fkhayef/tripsettle/pkg/middleware"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	db, err := database.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to database")

	if cfg.MigrateOnStart {
		if err := database.Migrate(db); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	// Balance cache is optional
	var balanceCache ledger.Cache
	if cfg.CacheEnabled() {
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		balanceCache = cache.NewCache(client, cfg.CacheTTL)
		logger.Info("balance cache enabled", slog.String("addr", cfg.RedisAddr))
	}

	metrics := observability.NewMetrics()

	// Trip roster
	tripRepo := trip.NewRepository(db)
	tripHandler := trip.NewHandler(tripRepo)

	// Member payment profiles
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService)

	// Ledger
	ledgerService := ledger.NewService(snapshot.NewLoader(db), balanceCache, logger)
	ledgerHandler := ledger.NewHandler(ledgerService)

	// Notification feature
	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo)
	notificationHandler := notification.NewHandler(notificationService)

	// Expense feature (with split factory injected)
	splitFactory := expensesplit.NewSplitStrategyFactory()
	expenseRepo := expense.NewRepository(db)
	expenseService := expense.NewService(expenseRepo, tripRepo, ledgerService, splitFactory, logger)
	expenseHandler := expense.NewHandler(expenseService)

	// Settlement feature
	settlementRepo := settlement.NewRepository(db)
	settlementService := settlement.NewService(
		settlementRepo,
		tripRepo,
		ledgerService,
		payment.NewResolver(),
		notificationService,
		metrics,
		logger,
	)
	settlementHandler := settlement.NewHandler(settlementService)

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(mw.SecureHeaders(cfg.IsProduction(), logger))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit(cfg.RateLimit))
		r.Use(mw.Identity)

		r.Route("/trips/{tripId}", func(r chi.Router) {
			r.Get("/", tripHandler.GetByID)
			r.Mount("/balances", ledgerHandler.Routes())
			r.Mount("/settlements", settlementHandler.TripRoutes())
		})
		r.Mount("/settlements", settlementHandler.Routes())
		r.Mount("/expenses", expenseHandler.Routes())
		r.Mount("/notifications", notificationHandler.Routes())
		r.Mount("/users", userHandler.Routes())
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
