package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/upb/newsroom-api/authctx"
	"github.com/upb/newsroom-api/config"
	"github.com/upb/newsroom-api/graph"
	"github.com/upb/newsroom-api/handlers"
	"github.com/upb/newsroom-api/identity"
	"github.com/upb/newsroom-api/middleware"
	"github.com/upb/newsroom-api/permission"
	"github.com/upb/newsroom-api/repositories"
	"github.com/upb/newsroom-api/repositories/postgres"
	"github.com/upb/newsroom-api/services/issue"
	"github.com/upb/newsroom-api/session"
	"go.uber.org/zap"
)

// Infrastructure holds the external resources the application is wired around.
// NewDependencies opens them from configuration; tests build them directly.
type Infrastructure struct {
	DB       *postgres.DB
	Sessions session.Store
	Verifier identity.Verifier
}

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	RepoFactory  *postgres.RepositoryFactory
	Repositories *repositories.Repositories
	TxManager    repositories.TransactionManager

	// Auth
	Sessions      session.Store
	Verifier      identity.Verifier
	Authenticator *identity.Authenticator
	Permissions   *permission.RoleTable
	Resolver      *authctx.Resolver

	IssueService *issue.Service
	Schema       *graph.Schema

	SessionMiddleware *middleware.SessionMiddleware
	AuthMiddleware    *middleware.AuthMiddleware

	HealthHandler  *handlers.HealthHandler
	AuthHandler    *handlers.AuthHandler
	GraphQLHandler *handlers.GraphQLHandler

	redis  *redis.Client
	closed bool
}

// NewDependencies opens the database, session store and identity provider
// named by cfg and wires the application around them.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	db, err := postgres.NewDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.Database.InitSchema {
		if err := db.InitSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		logger.Info("database schema initialized")
	}

	sessions, redisClient, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	verifier, err := newVerifier(ctx, cfg, logger)
	if err != nil {
		_ = db.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, fmt.Errorf("failed to initialize identity provider: %w", err)
	}

	deps, err := Assemble(cfg, Infrastructure{DB: db, Sessions: sessions, Verifier: verifier}, logger)
	if err != nil {
		_ = db.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}
	deps.redis = redisClient

	logger.Info("all dependencies initialized successfully",
		zap.String("session_store", cfg.Session.Store),
		zap.String("identity_provider", cfg.Identity.Provider),
	)

	return deps, nil
}

// Assemble wires repositories, services, middleware and handlers around infra
func Assemble(cfg *config.Config, infra Infrastructure, logger *zap.Logger) (*Dependencies, error) {
	if infra.DB == nil {
		return nil, errors.New("database is required")
	}
	if infra.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if infra.Verifier == nil {
		return nil, errors.New("identity verifier is required")
	}

	perms, err := permission.LoadRoleTable(cfg.Permissions.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}

	d := &Dependencies{
		Config:      cfg,
		DB:          infra.DB,
		Logger:      logger,
		Sessions:    infra.Sessions,
		Verifier:    infra.Verifier,
		Permissions: perms,
	}

	d.RepoFactory = postgres.NewRepositoryFactoryWithDB(infra.DB, logger)
	d.Repositories = d.RepoFactory.NewRepositories()
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Authenticator = identity.NewAuthenticator(infra.Verifier, identity.AuthenticatorConfig{
		Development: cfg.IsDevelopment(),
		TestAuthKey: cfg.Identity.TestAuthKey,
		MID:         cfg.MID,
	}, logger)
	d.Resolver = authctx.NewResolver(d.Authenticator, authctx.ResolverConfig{
		SessionTTL: cfg.Session.TTL,
	}, logger)

	d.IssueService = issue.NewService(d.Repositories.Issues, d.TxManager, perms, logger)

	schema, err := graph.NewSchema(d.IssueService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build graphql schema: %w", err)
	}
	d.Schema = schema

	cookie := session.CookieOptions{
		Secure:   cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	d.SessionMiddleware = middleware.NewSessionMiddleware(infra.Sessions, cfg.Session.TTL, cookie, logger)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Resolver, logger)

	d.HealthHandler = handlers.NewHealthHandler(infra.DB, infra.Sessions, logger)
	d.AuthHandler = handlers.NewAuthHandler(cookie, logger)
	d.GraphQLHandler = handlers.NewGraphQLHandler(schema, logger)

	return d, nil
}

func newSessionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Store, *redis.Client, error) {
	switch cfg.Session.Store {
	case config.SessionStoreMemory:
		logger.Warn("using in-memory session store, sessions are lost on restart")
		return session.NewMemoryStore(), nil, nil
	case config.SessionStoreRedis:
		client, err := session.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("redis session store connected", zap.String("addr", cfg.Redis.Addr))
		return session.NewRedisStore(client), client, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store: %q", cfg.Session.Store)
	}
}

func newVerifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (identity.Verifier, error) {
	switch cfg.Identity.Provider {
	case config.IdentityProviderFirebase:
		return identity.NewFirebaseVerifier(ctx, identity.FirebaseConfig{
			ProjectID:       cfg.Identity.ProjectID,
			CredentialsFile: cfg.Identity.CredentialsFile,
		}, logger)
	case config.IdentityProviderJWKS:
		return identity.NewJWKSVerifier(identity.JWKSConfig{
			ProjectID: cfg.Identity.ProjectID,
			JWKSURL:   cfg.Identity.JWKSURL,
			CacheTTL:  cfg.Identity.JWKSCacheTTL,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown identity provider: %q", cfg.Identity.Provider)
	}
}

// Close gracefully shuts down all dependencies. It is safe to call twice.
func (d *Dependencies) Close(ctx context.Context) error {
	if d.closed {
		return nil
	}
	d.closed = true

	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		} else {
			d.Logger.Info("redis connection closed")
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
