// Command server is FerrisKey's HTTP entrypoint: it loads configuration,
// wires every component (spec §9 "Design Notes" dependency graph) over
// postgres/redis-backed repositories, seeds the master realm, and serves
// spec §6's OAuth 2.0 / OIDC surface until an interrupt or SIGTERM.
package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"os/signal"
	"syscall"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ferriskey/ferriskey/internal/audit"
	"github.com/ferriskey/ferriskey/internal/authsession"
	"github.com/ferriskey/ferriskey/internal/bootstrap"
	"github.com/ferriskey/ferriskey/internal/broker"
	"github.com/ferriskey/ferriskey/internal/config"
	"github.com/ferriskey/ferriskey/internal/credential"
	"github.com/ferriskey/ferriskey/internal/gate"
	"github.com/ferriskey/ferriskey/internal/grant"
	"github.com/ferriskey/ferriskey/internal/httpapi"
	"github.com/ferriskey/ferriskey/internal/keystore"
	repopostgres "github.com/ferriskey/ferriskey/internal/repository/postgres"
	reporedis "github.com/ferriskey/ferriskey/internal/repository/redis"
	"github.com/ferriskey/ferriskey/internal/ports"
	"github.com/ferriskey/ferriskey/internal/scope"
	"github.com/ferriskey/ferriskey/internal/tokenservice"
	"github.com/ferriskey/ferriskey/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.Setup(cfg.Env, cfg.LogFilter)
	log.Info("application_startup", "env", cfg.Env)

	if err := config.ValidateCORSOrigins(cfg.AllowedCORSOrigins); err != nil {
		log.Error("cors_config_invalid", "error", err)
		os.Exit(1)
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, TracesSampleRate: 1.0, Environment: cfg.Env}); err != nil {
			log.Error("sentry_init_failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
			log.Info("sentry_initialized")
		}
	} else {
		log.Warn("sentry_dsn_missing", "details", "skipping_init")
	}

	ctx := context.Background()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Error("database_url_parse_failed", "error", err)
		os.Exit(1)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error("database_pool_create_failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Error("database_ping_failed", "error", err)
		os.Exit(1)
	}
	log.Info("database_connected")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("redis_ping_failed", "error", err)
		os.Exit(1)
	}
	log.Info("redis_connected")

	db := repopostgres.NewViews(pool)
	cache := reporedis.NewViews(redisClient, "ferriskey:", ports.SystemClock)

	hasher := credential.NewBcryptHasher()
	ldapClient := credential.NewLDAPClient()
	verifier := credential.New(db.Credentials, db.Federation, hasher, ldapClient)

	scopes := scope.DefaultManager()
	keys := keystore.New(db.KeyPairs)
	tokens := tokenservice.New(keys, ports.SystemClock, db.AccessTokens, db.RefreshTokens, cfg.IssuerBaseURL)
	tokens.AccessTokenTTL = cfg.AccessTokenTTL
	tokens.RefreshTokenTTL = cfg.RefreshTokenTTL

	sessions := authsession.New(cache.AuthSessions, db.Clients, db.RedirectURIs, db.Users, verifier, tokens, scopes, ports.SystemClock)
	grants := grant.New(db.Clients, db.Users, sessions, verifier, tokens, scopes)
	g := gate.New(tokens, db.Users, db.Clients)

	brokers := broker.New(cache.BrokerAuthSessions, db.IdentityProviders, db.IdentityProviderLinks, db.Users, db.Clients, db.RedirectURIs, sessions, ports.SystemClock,
		func(realmName, alias string) string {
			return cfg.IssuerBaseURL + "/realms/" + realmName + "/broker/" + alias + "/endpoint"
		})

	seed := bootstrap.New(db.Realms, db.Clients, db.RedirectURIs, db.Users, db.Credentials, db.Roles, keys, hasher)
	bootstrapCfg := bootstrap.DefaultConfig()
	bootstrapCfg.MasterRealmName = cfg.MasterRealmName
	bootstrapCfg.AdminUsername = cfg.AdminUsername
	bootstrapCfg.AdminPassword = cfg.AdminPassword
	bootstrapCfg.AdminEmail = cfg.AdminEmail
	if err := seed.Run(ctx, bootstrapCfg); err != nil {
		log.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	log.Info("bootstrap_complete", "realm", bootstrapCfg.MasterRealmName)

	server := httpapi.NewServer(httpapi.Options{
		Realms:             db.Realms,
		Clients:            db.Clients,
		Users:              db.Users,
		Roles:              db.Roles,
		Keys:               keys,
		Tokens:             tokens,
		Sessions:           sessions,
		Grants:             grants,
		Brokers:            brokers,
		Gate:               g,
		Audit:              audit.NewJSONAuditLogger(),
		AllowedCORSOrigins: cfg.AllowedCORSOrigins,
		SessionCookieName:  cfg.SessionCookieName,
		IdentityCookieName: cfg.IdentityCookieName,
		RateLimitRPS:       20,
		RateLimitBurst:     40,
	})

	srv := &http.Server{
		Addr:         cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Handler:      server.Router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server_listening", "addr", srv.Addr)
		var err error
		if cfg.UsesTLS() {
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("server_startup_failed", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		log.Info("shutdown_signal_received", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful_shutdown_failed", "error", err)
			if err := srv.Close(); err != nil {
				log.Error("server_force_close_failed", "error", err)
			}
		}
		log.Info("server_shutdown_complete")
	}
}
