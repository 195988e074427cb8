package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/erp/ledgerflow/internal/application/event"
	"github.com/erp/ledgerflow/internal/application/finance"
	"github.com/erp/ledgerflow/internal/application/hr"
	appinv "github.com/erp/ledgerflow/internal/application/inventory"
	appledger "github.com/erp/ledgerflow/internal/application/ledger"
	apppartner "github.com/erp/ledgerflow/internal/application/partner"
	"github.com/erp/ledgerflow/internal/application/trade"
	"github.com/erp/ledgerflow/internal/application/uow"
	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/erp/ledgerflow/internal/infrastructure/cache"
	"github.com/erp/ledgerflow/internal/infrastructure/config"
	infraevent "github.com/erp/ledgerflow/internal/infrastructure/event"
	"github.com/erp/ledgerflow/internal/infrastructure/lock"
	"github.com/erp/ledgerflow/internal/infrastructure/logger"
	"github.com/erp/ledgerflow/internal/infrastructure/migration"
	"github.com/erp/ledgerflow/internal/infrastructure/persistence"
	"github.com/erp/ledgerflow/internal/infrastructure/telemetry"
	"github.com/erp/ledgerflow/internal/interfaces/http/handler"
	"github.com/erp/ledgerflow/internal/interfaces/http/middleware"
	"github.com/erp/ledgerflow/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		configPath string
		migrateUp  bool
	)
	flag.StringVar(&configPath, "config", "", "Path to a TOML config file (default: ./config.toml)")
	flag.BoolVar(&migrateUp, "migrate", false, "Apply pending migrations before serving")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, migrateUp); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
	log.Info("Server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, migrateUp bool) error {
	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Telemetry: traces, metrics and the zap to OTLP logs bridge
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer provider: %w", err)
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize meter provider: %w", err)
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger provider: %w", err)
	}
	log = telemetry.Bridge(log, lp, zapcore.InfoLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := errors.Join(tp.Shutdown(shutdownCtx), mp.Shutdown(shutdownCtx), lp.Shutdown(shutdownCtx)); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	ledgerMetrics, err := telemetry.NewLedgerMetrics(mp.Meter("ledgerflow"))
	if err != nil {
		return fmt.Errorf("failed to create ledger metrics: %w", err)
	}

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.DBTraceEnabled {
		tracing := telemetry.DefaultDBTracingConfig()
		tracing.Enabled = true
		tracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
		if cfg.Telemetry.DBSlowQueryThresh > 0 {
			tracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
		}
		if err := db.EnableTracing(tracing, log); err != nil {
			return fmt.Errorf("failed to enable database tracing: %w", err)
		}
	}

	if migrateUp {
		if err := applyMigrations(db, log); err != nil {
			return err
		}
	}

	// Key locks for the stock ledger
	locker, closeLocker, err := lock.NewFactory(cfg.Redis, cfg.Inventory,
		lock.WithLogger(log),
		lock.WithLocalFallback(cfg.App.Env != "production"),
	).Create(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLocker(); err != nil {
			log.Error("Error closing key locker", zap.Error(err))
		}
	}()

	scope := persistence.NewGormTransactionScope(db.DB,
		persistence.WithLockTimeout(cfg.Ledger.LockTimeout),
		persistence.WithRetryPolicy(uow.RetryPolicy{
			MaxAttempts: cfg.Ledger.RetryAttempts,
			Backoff:     cfg.Ledger.RetryBackoff,
		}),
		persistence.WithScopeMetrics(ledgerMetrics),
		persistence.WithScopeLogger(log),
	)

	plan, err := appledger.ResolveAccountPlan(ctx, persistence.NewGormAccountRepository(db.DB), planCodes(cfg))
	if err != nil {
		return fmt.Errorf("failed to resolve account plan: %w", err)
	}

	// Events are handed to the bus after each unit of work commits
	bus := infraevent.NewInMemoryEventBus(log)
	bus.Subscribe(infraevent.NewJournalHandler(log))
	dispatcher := event.NewDispatcher(bus, log)

	engine := appledger.NewEngine(log).WithMetrics(ledgerMetrics)
	stockLedger := appinv.NewStockLedger(locker, appinv.Config{
		FEFOPolicy:        inventory.FEFOPolicy(cfg.Inventory.FEFOPolicy),
		LowStockThreshold: cfg.Inventory.LowStockThreshold,
	}, log).WithMetrics(ledgerMetrics)

	ledgerService := appledger.NewService(scope, engine, log)
	stockService := appinv.NewStockService(scope, stockLedger)
	invoiceService := trade.NewInvoiceService(scope, engine, stockLedger, plan, dispatcher, log)
	returnService := trade.NewReturnService(scope, engine, stockLedger, plan, dispatcher, log)
	settlementService := finance.NewSettlementService(scope, engine, plan, dispatcher, log)
	payrollService := hr.NewPayrollService(scope, engine, plan, dispatcher, log)
	expenseService := finance.NewExpenseService(scope, engine, plan, dispatcher, log)
	counterpartyService := apppartner.NewCounterpartyService(scope, log)

	// Replayable POST responses share the lock backend's Redis
	idemStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cfg.Inventory.LockBackend,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := idemStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// HTTP
	ginEngine, err := router.NewEngine(router.EngineConfig{
		Release:        cfg.App.Env == "production",
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Meter: mp.Meter("ledgerflow.http"),
		Idempotency: middleware.IdempotencyConfig{
			Store: idemStore,
			TTL:   cfg.HTTP.IdempotencyTTL,
		},
	}, log)
	if err != nil {
		return err
	}

	router.NewRouter(ginEngine).
		RegisterRoot(handler.NewHealthHandler(healthChecks(db, locker))).
		Register(
			handler.NewLedgerHandler(ledgerService),
			handler.NewCounterpartyHandler(counterpartyService),
			handler.NewStockHandler(stockService),
			handler.NewSaleInvoiceHandler(invoiceService),
			handler.NewPurchaseInvoiceHandler(invoiceService),
			handler.NewSaleReturnHandler(returnService),
			handler.NewPurchaseReturnHandler(returnService),
			handler.NewSettlementHandler(settlementService),
			handler.NewPayrollHandler(payrollService),
			handler.NewExpenseHandler(expenseService),
		).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func applyMigrations(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	// Closing the migrator would close sqlDB, which gorm still uses.
	return m.Up()
}

func planCodes(cfg *config.Config) appledger.PlanCodes {
	warehouses := make(map[string]appledger.WarehouseCodes, len(cfg.Accounts.Warehouses))
	for id, wa := range cfg.Accounts.Warehouses {
		warehouses[id] = warehouseCodes(wa)
	}
	return appledger.PlanCodes{
		Currency:       cfg.Ledger.Currency,
		Defaults:       warehouseCodes(cfg.Accounts.Defaults),
		Warehouses:     warehouses,
		TaxPayable:     cfg.Accounts.TaxPayable,
		TaxReceivable:  cfg.Accounts.TaxReceivable,
		OpeningEquity:  cfg.Accounts.OpeningEquity,
		PayrollExpense: cfg.Accounts.PayrollExpense,
		PayrollPayable: cfg.Accounts.PayrollPayable,
	}
}

func warehouseCodes(wa config.WarehouseAccounts) appledger.WarehouseCodes {
	return appledger.WarehouseCodes{
		Cash:           wa.Cash,
		Bank:           wa.Bank,
		Sales:          wa.Sales,
		Purchase:       wa.Purchase,
		SalesReturn:    wa.SalesReturn,
		PurchaseReturn: wa.PurchaseReturn,
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func healthChecks(db *persistence.Database, locker inventory.KeyLocker) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"database": func(context.Context) error { return db.Ping() },
	}
	if p, ok := locker.(pinger); ok {
		checks["redis"] = p.Ping
	}
	return checks
}
