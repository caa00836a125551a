package app

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/upb/orders-backend/auth"
	"github.com/upb/orders-backend/cognito"
	"github.com/upb/orders-backend/config"
	"github.com/upb/orders-backend/internal/observability"
	"github.com/upb/orders-backend/middleware"
	"github.com/upb/orders-backend/repositories"
	"github.com/upb/orders-backend/repositories/postgres"
	"github.com/upb/orders-backend/services/accounts"
	"github.com/upb/orders-backend/services/orders"
	"github.com/upb/orders-backend/services/ratelimit"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	Logger  *zap.Logger
	Metrics *observability.Registry

	// TrustedProxies may set the client address via forwarding headers
	TrustedProxies []netip.Prefix

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Accounts  repositories.AccountRepository
	Orders    repositories.OrderRepository
	TxManager repositories.TransactionManager

	// Auth
	Tokens         *auth.SelfIssuedTokens
	Authenticator  *auth.Authenticator
	AuthMiddleware *middleware.AuthMiddleware

	// Services
	AccountService *accounts.Service
	OrderService   *orders.Service
	RateLimiter    *ratelimit.Service
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := NewDependenciesWithFactory(ctx, cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesWithFactory wires the application over an existing
// repository factory
func NewDependenciesWithFactory(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		Metrics:     observability.NewRegistry(),
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	trusted, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}
	deps.TrustedProxies = trusted

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initAuth(cfg)

	if err := deps.initServices(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		zap.Any("auth_schemes", deps.Authenticator.Schemes()))
	return deps, nil
}

// initDatabase creates the schema when missing
func (d *Dependencies) initDatabase(ctx context.Context) error {
	if err := d.RepoFactory.InitSchema(ctx); err != nil {
		return err
	}

	d.Logger.Info("database ready",
		zap.String("connection", d.Config.Database.LogString()))
	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Accounts = repos.Accounts
	d.Orders = repos.Orders
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initAuth builds the verifier cascade: self-issued tokens first, then the
// managed provider. Either may be absent.
func (d *Dependencies) initAuth(cfg *config.Config) {
	d.Tokens = auth.NewSelfIssuedTokens(cfg.AuthToken.Secret, cfg.AuthToken.Issuer, cfg.AuthToken.TTL)

	var verifiers []auth.Verifier
	if d.Tokens.Configured() {
		verifiers = append(verifiers, d.Tokens)
	} else {
		d.Logger.Warn("AUTH_TOKEN_SECRET not set, signup and login disabled")
	}

	if cfg.Cognito.Enabled() {
		validator := cognito.NewCognitoValidator(cognito.Config{
			Region:      cfg.Cognito.Region,
			UserPoolID:  cfg.Cognito.UserPoolID,
			ClientID:    cfg.Cognito.ClientID,
			JWKSURL:     cfg.Cognito.JWKSURL,
			CacheTTL:    cfg.Cognito.CacheTTL,
			HTTPTimeout: 10 * time.Second,
		})
		verifiers = append(verifiers, auth.NewProviderVerifier(validator))
		d.Logger.Info("cognito token verification enabled",
			zap.String("region", cfg.Cognito.Region),
			zap.String("user_pool_id", cfg.Cognito.UserPoolID))
	} else {
		d.Logger.Warn("cognito not configured, provider tokens will be rejected")
	}

	d.Authenticator = auth.NewAuthenticator(d.Logger, verifiers...)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Authenticator, d.Metrics, d.Logger)
}

// initServices builds the account and order services
func (d *Dependencies) initServices(cfg *config.Config) error {
	accountService, err := accounts.NewService(d.Accounts, d.TxManager, d.Tokens, 0, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create account service: %w", err)
	}
	d.AccountService = accountService

	var catalog orders.PriceCatalog
	if cfg.Orders.CatalogFile != "" {
		loaded, err := orders.LoadCatalogFile(cfg.Orders.CatalogFile)
		if err != nil {
			return fmt.Errorf("failed to load price catalog: %w", err)
		}
		catalog = loaded
		d.Logger.Info("price catalog loaded",
			zap.String("path", cfg.Orders.CatalogFile),
			zap.Int("items", loaded.Len()))
	} else {
		d.Logger.Warn("no price catalog configured, client prices are trusted")
	}

	d.OrderService = orders.NewService(d.Orders, orders.NewNormalizer(catalog), d.Metrics, cfg.Orders, d.Logger)

	limits := ratelimit.Limits{PerMinute: cfg.RateLimit.AuthPerMinute, PerHour: cfg.RateLimit.AuthPerHour}
	d.RateLimiter = ratelimit.NewService(d.DB.DB, limits, d.Logger)
	if !limits.Enabled() {
		d.Logger.Warn("credential rate limiting disabled")
	}
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
