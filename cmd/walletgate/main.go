package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletgate/adapters/events"
	"github.com/layer-3/walletgate/adapters/identity"
	"github.com/layer-3/walletgate/adapters/store"
	"github.com/layer-3/walletgate/adapters/store/postgres"
	"github.com/layer-3/walletgate/adapters/tokenizer"
	"github.com/layer-3/walletgate/adapters/verifier"
	"github.com/layer-3/walletgate/config"
	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
	"github.com/layer-3/walletgate/service"
	transport "github.com/layer-3/walletgate/transport/http"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", os.Getenv("WALLETGATE_CONFIG"), "path to a YAML config file")
	flag.Parse()

	v, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg, err := config.ParseConfig(v)
	if err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}
	setupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signKey, err := loadSigningKey(cfg.Auth.SigningKeyFile)
	if err != nil {
		log.Fatalf("Failed to load signing key: %v", err)
	}

	var (
		tokenStore     = store.NewMemoryStore()
		challengeStore = store.NewMemoryChallengeStore()
		identityStore  = store.NewMemoryIdentityStore()
		eventPub       ports.EventPublisher = events.NopPublisher{}
	)

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			log.Fatalf("Failed to create Redis publisher: %v", err)
		}
		defer publisher.Close()

		tokenStore = store.NewRedisStore(redisClient)
		challengeStore = store.NewRedisChallengeStore(redisClient)
		eventPub = events.NewWatermillPublisher(publisher)
	} else {
		log.Warn("redis.url not set; using in-memory token and challenge stores")
	}

	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer db.Close()

		if cfg.Postgres.AutoMigrate {
			if err := postgres.CreateSchema(ctx, db); err != nil {
				log.Fatalf("Failed to create schema: %v", err)
			}
		}
		challengeStore = postgres.NewChallengeRepository(db)
		identityStore = postgres.NewIdentityRepository(db)
	} else {
		log.Warn("postgres.dsn not set; accounts and wallet bindings are kept in memory")
	}

	tk := tokenizer.NewJWTTokenizer(signKey, cfg.Auth.Issuer)
	provider := identity.NewLocalProvider(identityStore, tk, identity.WithGrantTTL(cfg.Auth.LoginTTL))

	nonces := service.NewNonceService(challengeStore, core.MessageParams{
		Domain:    cfg.Auth.Domain,
		URI:       cfg.Auth.URI,
		Statement: cfg.Auth.Statement,
	}, cfg.Auth.ChallengeTTL)
	wallets := service.NewWalletAuthService(
		nonces,
		verifier.New(),
		service.NewResolver(identityStore),
		service.NewSessionBridge(identityStore, provider),
		eventPub,
	)
	authService := service.NewAuthService(tk, tokenStore, identityStore, eventPub, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)

	if cfg.Jobs.Enabled {
		stopJobs, err := startJobs(ctx, cfg, nonces)
		if err != nil {
			log.Fatalf("Failed to start background jobs: %v", err)
		}
		defer stopJobs()
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := transport.SetupRouter(wallets, authService, transport.RouterOptions{
		NonceLimiter:  transport.NewMapLimiter(cfg.RateLimit.NonceRPS, cfg.RateLimit.NonceBurst, 0),
		VerifyLimiter: transport.NewMapLimiter(cfg.RateLimit.VerifyRPS, cfg.RateLimit.VerifyBurst, 0),
		Metrics:       transport.NewMetrics(),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("walletgate listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func setupLogging(cfg config.Log) {
	if cfg.JSON {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.WithError(err).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
