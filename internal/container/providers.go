package container

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/dispatcher"
	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/cache"
	"github.com/garyjia/expense-approval/internal/infrastructure/external/exchange"
	"github.com/garyjia/expense-approval/internal/infrastructure/locking"
	"github.com/garyjia/expense-approval/internal/infrastructure/metrics"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlstore"
	"github.com/garyjia/expense-approval/internal/infrastructure/report"
	apihttp "github.com/garyjia/expense-approval/internal/interfaces/http"
	"github.com/garyjia/expense-approval/pkg/database"
	"github.com/garyjia/expense-approval/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB    *database.DB
	Store *sqlstore.DB
}

// ProvideDatabase opens the database, applies pending migrations and wraps
// the connection in the transaction-carrying store.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Driver:          cfg.Driver,
		Path:            cfg.Path,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Up(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:    db,
		Store: sqlstore.NewDB(db, logger),
	}, nil
}

// ProvideRepositories creates all repositories over the store. Rule reads go
// through a ristretto cache; the returned close func releases it.
func ProvideRepositories(store *sqlstore.DB, cfg *CacheConfig, logger *zap.Logger) (*RepositoryBundle, func(), error) {
	if store == nil {
		return nil, nil, fmt.Errorf("database store is required")
	}
	if cfg == nil {
		return nil, nil, fmt.Errorf("cache config is required")
	}
	if logger == nil {
		return nil, nil, fmt.Errorf("logger is required")
	}

	ruleCache, err := cache.New[int64, *entity.Rule](cfg.RuleEntries, cfg.RuleTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create rule cache: %w", err)
	}

	return &RepositoryBundle{
		Company:  repository.NewCompanyRepository(store, logger),
		User:     repository.NewUserRepository(store, logger),
		Rule:     repository.NewCachedRuleRepository(repository.NewRuleRepository(store, logger), ruleCache, logger),
		Claim:    repository.NewClaimRepository(store, logger),
		Decision: repository.NewDecisionRepository(store, logger),
	}, ruleCache.Close, nil
}

// ProvideRateClient creates the HTTP exchange rate client.
func ProvideRateClient(cfg *RatesConfig, logger *zap.Logger) (*exchange.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("rates config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return exchange.NewClient(exchange.Config{
		BaseURL:      cfg.BaseURL,
		Timeout:      cfg.Timeout,
		CacheTTL:     cfg.CacheTTL,
		CacheMaxCost: cfg.CacheMaxCost,
	}, logger)
}

// ProvideDispatcher creates the event dispatcher and subscribes the audit
// log and, when enabled, the metrics handlers.
func ProvideDispatcher(metricsEnabled bool, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	dispatcherLogger := utils.NewKVLogger(logger.Named("dispatcher"))

	d := dispatcher.NewDispatcher(
		dispatcher.WithLogger(dispatcherLogger),
	)
	dispatcher.RegisterAuditLog(d, dispatcherLogger)
	if metricsEnabled {
		metrics.RegisterEventHandlers(d)
	}
	return d, nil
}

// ServiceDeps holds everything the application services need.
type ServiceDeps struct {
	Repos       *RepositoryBundle
	TxManager   port.TransactionManager
	Rates       port.RateProvider
	RateTimeout time.Duration
	Locker      port.ClaimLocker
	Dispatcher  dispatcher.Dispatcher
	Logger      *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Rates == nil {
		return nil, fmt.Errorf("rate provider is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Locker == nil {
		deps.Locker = locking.NewKeyedMutex()
	}

	serviceLogger := utils.NewKVLogger(deps.Logger.Named("service"))
	repos := deps.Repos

	return &ServiceBundle{
		Directory: service.NewDirectoryService(
			repos.Company,
			repos.User,
			repos.Rule,
			deps.TxManager,
			serviceLogger,
		),
		Rules: service.NewRuleService(
			repos.Company,
			repos.User,
			repos.Rule,
			deps.TxManager,
			serviceLogger,
		),
		Claims: service.NewClaimService(
			repos.Company,
			repos.User,
			repos.Rule,
			repos.Claim,
			repos.Decision,
			deps.Rates,
			deps.TxManager,
			deps.Dispatcher,
			deps.RateTimeout,
			serviceLogger,
		),
		Approvals: service.NewApprovalService(
			repos.User,
			repos.Rule,
			repos.Claim,
			repos.Decision,
			deps.TxManager,
			deps.Locker,
			deps.Dispatcher,
			serviceLogger,
		),
		Exports: service.NewExportService(
			repos.Company,
			repos.User,
			repos.Claim,
			report.NewExcelRenderer(deps.Logger),
			serviceLogger,
		),
	}, nil
}

// ProvideHTTPServer creates the API server over the services.
func ProvideHTTPServer(cfg *ServerConfig, metricsCfg *MetricsConfig, services *ServiceBundle, health func(ctx context.Context) error, logger *zap.Logger) (*apihttp.Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if services == nil {
		return nil, fmt.Errorf("services are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	obs := apihttp.Observability{Health: health}
	if metricsCfg != nil && metricsCfg.Enabled {
		obs.Metrics = metrics.Handler()
		obs.RecordRequest = metrics.RecordHTTPRequest
	}

	return apihttp.NewServer(
		apihttp.ServerConfig{
			Host:         cfg.Host,
			Port:         cfg.Port,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		apihttp.Services{
			Directory: services.Directory,
			Rules:     services.Rules,
			Claims:    services.Claims,
			Approvals: services.Approvals,
			Exports:   services.Exports,
		},
		obs,
		utils.NewKVLogger(logger.Named("http")),
	), nil
}
