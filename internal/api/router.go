package api

import (
	"log/slog"
	"net/http"
	"time"

	"debt-ledger/internal/api/handler"
	mw "debt-ledger/internal/api/middleware"
	"debt-ledger/internal/config"
	"debt-ledger/internal/domain/customer"
	"debt-ledger/internal/domain/ledger"
	"debt-ledger/internal/domain/user"

	_ "debt-ledger/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/traceid"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func SetupRouter(
	ledgerService ledger.LedgerService,
	customerService customer.CustomerService,
	authService user.AuthService,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	router.Route("/api", func(r chi.Router) {
		setupAuthRoutes(r, authService, logger)
		setupCustomerRoutes(r, cfg, customerService, ledgerService, logger)
		setupDebtRoutes(r, cfg, ledgerService, logger)
		setupPaymentRoutes(r, cfg, ledgerService, logger)
		setupReportRoutes(r, cfg, ledgerService, logger)
	})

	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupAuthRoutes(r chi.Router, svc user.AuthService, logger *slog.Logger) {
	h := handler.NewAuthHandler(svc, logger)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})
}

func setupCustomerRoutes(r chi.Router, cfg *config.Config, svc customer.CustomerService, ledgerSvc ledger.LedgerService, logger *slog.Logger) {
	h := handler.NewCustomerHandler(svc, ledgerSvc, logger)

	r.Route("/customers", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.CreateCustomer)
		r.Get("/", h.ListCustomers)
		r.Route("/{customerID}", func(r chi.Router) {
			r.Get("/", h.GetCustomer)
			r.Put("/", h.UpdateCustomer)
			r.Delete("/", h.DeleteCustomer)
			r.Delete("/paid-debts", h.DeleteSettledDebts)
		})
	})
}

func setupDebtRoutes(r chi.Router, cfg *config.Config, svc ledger.LedgerService, logger *slog.Logger) {
	h := handler.NewDebtHandler(svc, logger)

	r.Route("/debts", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.CreateDebt)
		r.Get("/", h.ListDebts)
		r.Get("/overdue", h.ListOverdueDebts)
		r.Get("/{debtID}", h.GetDebt)
		r.Delete("/{debtID}", h.DeleteDebt)
	})
}

func setupPaymentRoutes(r chi.Router, cfg *config.Config, svc ledger.LedgerService, logger *slog.Logger) {
	h := handler.NewPaymentHandler(svc, logger)

	r.Route("/payments", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.ApplyPayment)
		r.Get("/", h.ListPayments)
	})
}

func setupReportRoutes(r chi.Router, cfg *config.Config, svc ledger.LedgerService, logger *slog.Logger) {
	h := handler.NewReportHandler(svc, logger)

	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Get("/dashboard/stats", h.DashboardStats)
		r.Get("/reports/export", h.Export)
	})
}
