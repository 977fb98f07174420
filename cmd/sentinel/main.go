package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/layer-3/sentinel/adapters/events"
	"github.com/layer-3/sentinel/adapters/identity"
	"github.com/layer-3/sentinel/adapters/ledger"
	"github.com/layer-3/sentinel/adapters/signer"
	"github.com/layer-3/sentinel/adapters/store"
	"github.com/layer-3/sentinel/adapters/tokenizer"
	"github.com/layer-3/sentinel/internal/metrics"
	"github.com/layer-3/sentinel/ports"
	"github.com/layer-3/sentinel/service"
	transport "github.com/layer-3/sentinel/transport/http"
)

var flags = []cli.Flag{
	&cli.StringFlag{
		Name:    "listen-addr",
		Value:   "127.0.0.1:9000",
		Usage:   "address to listen on for API",
		EnvVars: []string{"SENTINEL_LISTEN_ADDR"},
	},
	&cli.StringSliceFlag{
		Name:     "token-secret",
		Usage:    "HMAC secret for session tokens, at least 32 bytes. Repeat to rotate: the first one signs, all verify",
		EnvVars:  []string{"SENTINEL_TOKEN_SECRET"},
		Required: true,
	},
	&cli.DurationFlag{
		Name:    "session-ttl",
		Value:   service.DefaultSessionTTL,
		Usage:   "lifetime of session tokens",
		EnvVars: []string{"SENTINEL_SESSION_TTL"},
	},
	&cli.DurationFlag{
		Name:    "nonce-ttl",
		Value:   store.DefaultNonceTTL,
		Usage:   "lifetime of authentication challenges",
		EnvVars: []string{"SENTINEL_NONCE_TTL"},
	},
	&cli.StringFlag{
		Name:    "rpc-url",
		Value:   "https://api.devnet.solana.com",
		Usage:   "Solana JSON-RPC endpoint used for simulation",
		EnvVars: []string{"SENTINEL_RPC_URL"},
	},
	&cli.DurationFlag{
		Name:    "rpc-timeout",
		Value:   service.DefaultSimulationTimeout,
		Usage:   "timeout for a single simulation",
		EnvVars: []string{"SENTINEL_RPC_TIMEOUT"},
	},
	&cli.DurationFlag{
		Name:    "sign-timeout",
		Value:   service.DefaultSignTimeout,
		Usage:   "timeout for a single custodial signer call",
		EnvVars: []string{"SENTINEL_SIGN_TIMEOUT"},
	},
	&cli.StringFlag{
		Name:    "vault-addr",
		Value:   "http://127.0.0.1:8200",
		Usage:   "Vault server address",
		EnvVars: []string{"VAULT_ADDR"},
	},
	&cli.StringFlag{
		Name:    "vault-token",
		Usage:   "Vault token with access to the transit mount",
		EnvVars: []string{"VAULT_TOKEN"},
	},
	&cli.StringFlag{
		Name:    "vault-transit-mount",
		Value:   "transit",
		Usage:   "Vault transit engine mount path",
		EnvVars: []string{"SENTINEL_VAULT_TRANSIT_MOUNT"},
	},
	&cli.StringFlag{
		Name:    "redis-url",
		Usage:   "Redis URL for nonces, ownership and events. In-memory when empty",
		EnvVars: []string{"REDIS_URL"},
	},
	&cli.StringSliceFlag{
		Name:    "allowed-programs",
		Value:   cli.NewStringSlice(service.DefaultAllowedPrograms()...),
		Usage:   "program addresses a signed transaction may invoke",
		EnvVars: []string{"SENTINEL_ALLOWED_PROGRAMS"},
	},
	&cli.Float64Flag{
		Name:    "auth-rate-limit",
		Value:   5,
		Usage:   "requests per second per client IP on /auth, 0 disables",
		EnvVars: []string{"SENTINEL_AUTH_RATE_LIMIT"},
	},
	&cli.IntFlag{
		Name:    "auth-rate-burst",
		Value:   10,
		Usage:   "burst size for /auth rate limiting",
		EnvVars: []string{"SENTINEL_AUTH_RATE_BURST"},
	},
	&cli.BoolFlag{
		Name:  "log-json",
		Value: false,
		Usage: "log in JSON format",
	},
	&cli.BoolFlag{
		Name:  "log-debug",
		Value: false,
		Usage: "log debug messages",
	},
	&cli.StringFlag{
		Name:  "log-service",
		Value: "sentinel",
		Usage: "add 'service' tag to logs",
	},
}

func main() {
	app := &cli.App{
		Name:   "sentinel",
		Usage:  "Wallet authentication and custodial signing gateway",
		Flags:  flags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	logger := setupLogger(cCtx.Bool("log-json"), cCtx.Bool("log-debug"), cCtx.String("log-service"))

	tok, err := tokenizer.NewHMACTokenizer(cCtx.StringSlice("token-secret")...)
	if err != nil {
		logger.Error("Invalid token secret", "err", err)
		return err
	}

	var (
		nonces    ports.NonceStore
		registry  ports.OwnershipRegistry
		publisher message.Publisher
		pruner    *store.MemoryNonceStore
	)

	wmLogger := watermill.NewSlogLogger(logger)
	nonceTTL := cCtx.Duration("nonce-ttl")

	if redisURL := cCtx.String("redis-url"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Error("Failed to parse Redis URL", "err", err)
			return err
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		nonces = store.NewRedisNonceStore(redisClient, nonceTTL)
		registry = store.NewRedisOwnershipRegistry(redisClient)
		publisher, err = redisstream.NewPublisher(redisstream.PublisherConfig{Client: redisClient}, wmLogger)
		if err != nil {
			logger.Error("Failed to create Redis stream publisher", "err", err)
			return err
		}
		logger.Info("Using Redis stores")
	} else {
		pruner = store.NewMemoryNonceStore(nonceTTL)
		nonces = pruner
		registry = store.NewMemoryOwnershipRegistry()
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		logger.Warn("No Redis URL configured, state is kept in memory")
	}
	defer publisher.Close()

	custodialSigner, err := signer.NewVaultSigner(signer.VaultConfig{
		Address:     cCtx.String("vault-addr"),
		Token:       cCtx.String("vault-token"),
		TransitPath: cCtx.String("vault-transit-mount"),
		Timeout:     cCtx.Duration("sign-timeout"),
	}, logger)
	if err != nil {
		logger.Error("Failed to create Vault signer", "err", err)
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	solanaLedger := ledger.NewSolanaLedger(cCtx.String("rpc-url"))
	gateway := service.NewTransactionGateway(solanaLedger, service.GatewayConfig{
		AllowedPrograms:   cCtx.StringSlice("allowed-programs"),
		SimulationTimeout: cCtx.Duration("rpc-timeout"),
	}, logger, m)

	authService := service.NewAuthService(nonces, tok, identity.NewEd25519Verifier(), logger, m, cCtx.Duration("session-ttl"))
	custodyService := service.NewCustodyService(registry, custodialSigner, gateway, events.NewWatermillPublisher(publisher),
		logger, m, cCtx.Duration("sign-timeout"))

	var limiter *transport.IPRateLimiter
	if perSecond := cCtx.Float64("auth-rate-limit"); perSecond > 0 {
		limiter = transport.NewIPRateLimiter(perSecond, cCtx.Int("auth-rate-burst"))
	}

	if !cCtx.Bool("log-debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transport.SetupRouter(transport.RouterConfig{
		Auth:        authService,
		Custody:     custodyService,
		Log:         logger,
		AuthLimiter: limiter,
		Gatherer:    reg,
	})

	server := &http.Server{
		Addr:              cCtx.String("listen-addr"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cCtx.Duration("sign-timeout") + cCtx.Duration("rpc-timeout") + 10*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go housekeeping(ctx, logger, pruner, limiter)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", "err", err)
			return err
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	logger.Info("Server shutdown complete")
	return nil
}

// housekeeping drops expired in-memory challenges and idle rate limiters
func housekeeping(ctx context.Context, logger *slog.Logger, nonces *store.MemoryNonceStore, limiter *transport.IPRateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if nonces != nil {
				if n := nonces.Prune(); n > 0 {
					logger.Debug("Pruned expired challenges", "count", n)
				}
			}
			if limiter != nil {
				limiter.Prune(10 * time.Minute)
			}
		}
	}
}

func setupLogger(json, debug bool, service string) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if json {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	if service != "" {
		logger = logger.With("service", service)
	}
	return logger
}
