package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ChetanXpro/yesbroker/internal/cache"
	"github.com/ChetanXpro/yesbroker/internal/config"
	httptransport "github.com/ChetanXpro/yesbroker/internal/http"
	"github.com/ChetanXpro/yesbroker/internal/http/handler"
	httpmiddleware "github.com/ChetanXpro/yesbroker/internal/http/middleware"
	"github.com/ChetanXpro/yesbroker/internal/identity"
	"github.com/ChetanXpro/yesbroker/internal/jwt"
	apimiddleware "github.com/ChetanXpro/yesbroker/internal/middleware"
	"github.com/ChetanXpro/yesbroker/internal/migrate"
	"github.com/ChetanXpro/yesbroker/internal/proofstore"
	"github.com/ChetanXpro/yesbroker/internal/prover"
	"github.com/ChetanXpro/yesbroker/internal/repository"
	"github.com/ChetanXpro/yesbroker/internal/server"
	"github.com/ChetanXpro/yesbroker/internal/service"
	"github.com/ChetanXpro/yesbroker/internal/storage"
	"github.com/ChetanXpro/yesbroker/internal/telemetry"
)

func main() {
	root := &cobra.Command{
		Use:           "yesbroker",
		Short:         "Peer-to-peer property rental marketplace API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(*cobra.Command, []string) error {
			app := fx.New(
				fx.Provide(
					newConfig,
					newLogger,
					newTelemetry,
					newPGXPool,
					newRedis,
					newMongo,
					newObjectStore,
					newListingCache,
					newProofArchive,
					newRateLimiter,
					newUserRepository,
					newPropertyRepository,
					newInterestRepository,
					newSessionManager,
					newIdentityVerifier,
					newProver,
					service.NewSessionService,
					service.NewPropertyService,
					service.NewInterestService,
					service.NewWebhookService,
					service.NewDocumentService,
					newAuthMiddleware,
					handler.NewSessionHandler,
					handler.NewPropertyHandler,
					handler.NewInterestHandler,
					handler.NewWebhookHandler,
					handler.NewDocumentHandler,
					newHealthHandler,
					newHandlers,
					httptransport.NewRouter,
					server.NewHTTPServer,
				),
				fx.Invoke(useTelemetry, autoMigrate, startHTTPServer),
			)
			app.Run()
			return app.Err()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := newConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			return migrate.RunDSN(ctx, cfg.DatabaseURL, logger)
		},
	}
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

// newRedis returns a nil client when REDIS_ADDR is unset; caching and rate
// limiting are then disabled.
func newRedis(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		logger.Info("redis not configured; list cache and rate limiting disabled")
		return nil, nil
	}

	client, err := cache.NewRedisClient(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newMongo(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*mongo.Client, error) {
	if cfg.MongoURI == "" {
		logger.Info("mongo not configured; proofs will not be archived")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := proofstore.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})
	return client, nil
}

func newObjectStore(cfg config.Config, logger *zap.Logger) (storage.ObjectStore, error) {
	if cfg.S3Bucket == "" {
		logger.Warn("S3_BUCKET_NAME not set; image uploads are disabled")
		return nil, nil
	}
	store, err := storage.NewS3Store(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newListingCache(client *redis.Client, cfg config.Config) service.ListingCache {
	if client == nil {
		return nil
	}
	return cache.NewListingCache(client, cfg.ListCacheTTL)
}

func newProofArchive(client *mongo.Client, cfg config.Config) (proofstore.Archive, error) {
	if client == nil {
		return nil, nil
	}
	archive := proofstore.NewMongoArchive(client, cfg.MongoDatabase)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return archive, nil
}

func newRateLimiter(client *redis.Client, cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(client, cfg.RateLimitRPM)
}

func newUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return repository.NewPostgresUserRepo(pool)
}

func newPropertyRepository(pool *pgxpool.Pool) repository.PropertyRepository {
	return repository.NewPostgresPropertyRepo(pool)
}

func newInterestRepository(pool *pgxpool.Pool) repository.InterestRepository {
	return repository.NewPostgresInterestRepo(pool)
}

func newSessionManager(cfg config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWTSecret, cfg.SessionTTL)
}

func newIdentityVerifier(cfg config.Config) identity.Verifier {
	return identity.NewHTTPVerifier(cfg.IdentityVerifierURL, cfg.IdentityVerifierTimeout, nil)
}

func newProver(cfg config.Config) prover.Prover {
	return prover.NewClient(cfg.ProverURL, cfg.ProverTimeout, nil)
}

func newAuthMiddleware(sessions *service.SessionService, cfg config.Config) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{Sessions: sessions, CookieName: cfg.CookieName}
}

func newHealthHandler(pool *pgxpool.Pool) *handler.HealthHandler {
	return handler.NewHealthHandler(pool)
}

func newHandlers(
	session *handler.SessionHandler,
	property *handler.PropertyHandler,
	interest *handler.InterestHandler,
	webhook *handler.WebhookHandler,
	document *handler.DocumentHandler,
	health *handler.HealthHandler,
) httptransport.Handlers {
	return httptransport.Handlers{
		Session:  session,
		Property: property,
		Interest: interest,
		Webhook:  webhook,
		Document: document,
		Health:   health,
	}
}

func autoMigrate(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) {
	if !cfg.AutoMigrate {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return migrate.RunDSN(ctx, cfg.DatabaseURL, logger)
		},
	})
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
