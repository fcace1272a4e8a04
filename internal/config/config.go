// Package config loads the server's configuration envelope from
// environment variables, an optional .env file, and built-in defaults,
// via viper (the teacher's convention, extended per the toolhive-style
// config loader).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full configuration envelope.
type Config struct {
	Env      string
	Host     string
	Port     int
	RootPath string

	TLSCertPath string
	TLSKeyPath  string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MasterRealmName string
	AdminUsername   string
	AdminPassword   string
	AdminEmail      string

	AllowedCORSOrigins []string

	LogFilter string // slog level name, or an env-filter-like string

	OTLPEndpoint string

	IssuerBaseURL string // e.g. "https://auth.example.com"; combined with realm name for the "iss" claim

	SessionCookieName  string
	IdentityCookieName string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// Load reads configuration from (in ascending priority) built-in
// defaults, an optional .env file, and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is not an error outside containers

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "development")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("root_path", "")
	v.SetDefault("tls_cert_path", "")
	v.SetDefault("tls_key_path", "")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("master_realm_name", "master")
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_password", "")
	v.SetDefault("admin_email", "admin@localhost")
	v.SetDefault("allowed_cors_origins", []string{})
	v.SetDefault("log_filter", "info")
	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("issuer_base_url", "http://localhost:8080")
	v.SetDefault("session_cookie_name", "FERRISKEY_SESSION")
	v.SetDefault("identity_cookie_name", "FERRISKEY_IDENTITY")
	v.SetDefault("access_token_ttl", "5m")
	v.SetDefault("refresh_token_ttl", "24h")

	accessTTL, err := time.ParseDuration(v.GetString("access_token_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("parse access_token_ttl: %w", err)
	}
	refreshTTL, err := time.ParseDuration(v.GetString("refresh_token_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("parse refresh_token_ttl: %w", err)
	}

	return Config{
		Env:                 v.GetString("env"),
		Host:                v.GetString("host"),
		Port:                v.GetInt("port"),
		RootPath:            v.GetString("root_path"),
		TLSCertPath:         v.GetString("tls_cert_path"),
		TLSKeyPath:          v.GetString("tls_key_path"),
		DatabaseURL:         v.GetString("database_url"),
		RedisAddr:           v.GetString("redis_addr"),
		RedisPassword:       v.GetString("redis_password"),
		RedisDB:             v.GetInt("redis_db"),
		MasterRealmName:     v.GetString("master_realm_name"),
		AdminUsername:       v.GetString("admin_username"),
		AdminPassword:       v.GetString("admin_password"),
		AdminEmail:          v.GetString("admin_email"),
		AllowedCORSOrigins:  v.GetStringSlice("allowed_cors_origins"),
		LogFilter:           v.GetString("log_filter"),
		OTLPEndpoint:        v.GetString("otlp_endpoint"),
		IssuerBaseURL:       v.GetString("issuer_base_url"),
		SessionCookieName:   v.GetString("session_cookie_name"),
		IdentityCookieName:  v.GetString("identity_cookie_name"),
		AccessTokenTTL:      accessTTL,
		RefreshTokenTTL:     refreshTTL,
	}, nil
}

// UsesTLS reports whether both TLS cert and key paths are configured.
func (c Config) UsesTLS() bool { return c.TLSCertPath != "" && c.TLSKeyPath != "" }
