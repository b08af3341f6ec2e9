package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/adapter/cache"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/adapter/verify"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/adminauth"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/bootstrap"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/compound"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/config"
	httptransport "github.com/HamzaElshennawy/qrsystem-sub000/internal/http"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/http/handler"
	httpmiddleware "github.com/HamzaElshennawy/qrsystem-sub000/internal/http/middleware"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/identity"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/otp"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/repository"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/server"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/service"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/store"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newStore,
			newUserRepository,
			newDeviceSessionRepository,
			newInviteRepository,
			newCompoundRepository,
			newRedisClient,
			newHandleStore,
			newOTPChannel,
			newIdentityResolver,
			newRateLimiter,
			compound.NewResolver,
			service.NewDeviceService,
			service.NewAuthService,
			service.NewInviteService,
			handler.NewAuthHandler,
			handler.NewInviteHandler,
			newAdminVerifier,
			newAuthMiddleware,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, ensureSchema, bootstrap.EnsureCompound, startHTTPServer),
	)

	app.Run()
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

func newSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	return node, err
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

func newStore(pool *pgxpool.Pool) store.Store {
	return store.NewPostgresStore(pool)
}

func newUserRepository(s store.Store) repository.UserRepository {
	return repository.NewStoreUserRepo(s)
}

func newDeviceSessionRepository(s store.Store) repository.DeviceSessionRepository {
	return repository.NewStoreDeviceSessionRepo(s)
}

func newInviteRepository(s store.Store) repository.InviteRepository {
	return repository.NewStoreInviteRepo(s)
}

func newCompoundRepository(s store.Store) repository.CompoundRepository {
	return repository.NewStoreCompoundRepo(s)
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newHandleStore(client redis.UniversalClient) otp.HandleStore {
	return cache.NewRedisHandleStore(client)
}

func newOTPChannel(cfg config.Config, handles otp.HandleStore, logger *zap.Logger) otp.Channel {
	if cfg.VerifyBaseURL == "" {
		logger.Warn("no verification provider configured, using in-memory otp channel")
		return otp.NewMemoryChannel()
	}
	provider := verify.NewHTTPProviderClient(cfg.VerifyBaseURL, cfg.VerifyAPIKey, &http.Client{Timeout: 10 * time.Second})
	return otp.NewProviderChannel(provider, handles, cfg.OTPTTL, logger)
}

func newIdentityResolver(users repository.UserRepository, logger *zap.Logger) *identity.Resolver {
	return identity.NewResolver(users, logger)
}

func newRateLimiter(cfg config.Config) *httpmiddleware.RateLimiter {
	return httpmiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newAdminVerifier(cfg config.Config) *adminauth.Verifier {
	return adminauth.NewVerifier(cfg.AdminJWTSecret, cfg.AdminJWTIssuer)
}

func newAuthMiddleware(verifier *adminauth.Verifier) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{Verifier: verifier}
}

func ensureSchema(lc fx.Lifecycle, pool *pgxpool.Pool) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return store.EnsureSchema(ctx, pool)
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
