// Package httpapi exposes spec §6's OAuth 2.0 / OIDC surface over chi: the
// token endpoint, introspection, JWKS, userinfo, the interactive
// authorize/login-actions flow, and the broker initiate/callback routes.
package httpapi

import (
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/ferriskey/ferriskey/internal/audit"
	"github.com/ferriskey/ferriskey/internal/authsession"
	"github.com/ferriskey/ferriskey/internal/broker"
	"github.com/ferriskey/ferriskey/internal/gate"
	"github.com/ferriskey/ferriskey/internal/grant"
	httpmw "github.com/ferriskey/ferriskey/internal/httpapi/middleware"
	"github.com/ferriskey/ferriskey/internal/keystore"
	"github.com/ferriskey/ferriskey/internal/ports"
	"github.com/ferriskey/ferriskey/internal/tokenservice"
)

// Server bundles the chi router together with every component it dispatches
// to (mirrors the teacher's api.Server: a thin struct threaded through
// handler constructors, not a global).
type Server struct {
	Router *chi.Mux

	realms  ports.RealmRepository
	clients ports.ClientRepository
	users   ports.UserRepository
	roles   ports.RoleRepository

	keys       *keystore.KeyStore
	tokens     *tokenservice.Service
	sessions   *authsession.Engine
	grants     *grant.Dispatcher
	brokers    *broker.Engine
	gate       *gate.Gate
	audit      audit.AuditLogger
	sessionCookieName  string
	identityCookieName string
}

// Options configures NewServer.
type Options struct {
	Realms  ports.RealmRepository
	Clients ports.ClientRepository
	Users   ports.UserRepository
	Roles   ports.RoleRepository

	Keys     *keystore.KeyStore
	Tokens   *tokenservice.Service
	Sessions *authsession.Engine
	Grants   *grant.Dispatcher
	Brokers  *broker.Engine
	Gate     *gate.Gate
	Audit    audit.AuditLogger

	AllowedCORSOrigins []string
	SessionCookieName  string
	IdentityCookieName string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// NewServer builds the router and mounts spec §6's full endpoint set.
func NewServer(opts Options) *Server {
	auditLogger := opts.Audit
	if auditLogger == nil {
		auditLogger = audit.NewJSONAuditLogger()
	}

	s := &Server{
		realms:             opts.Realms,
		clients:            opts.Clients,
		users:              opts.Users,
		roles:              opts.Roles,
		keys:               opts.Keys,
		tokens:             opts.Tokens,
		sessions:           opts.Sessions,
		grants:             opts.Grants,
		brokers:            opts.Brokers,
		gate:               opts.Gate,
		audit:              auditLogger,
		sessionCookieName:  opts.SessionCookieName,
		identityCookieName: opts.IdentityCookieName,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: true})
	r.Use(sentryHandler.Handle)

	r.Use(httpmw.RequestLogger)
	r.Use(httpmw.PanicRecovery)

	limiter := httpmw.NewIPRateLimiter(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst)
	r.Use(limiter.Middleware)
	r.Use(httpmw.CORS(opts.AllowedCORSOrigins))

	r.Get("/health", s.handleHealth)

	r.Route("/realms/{realm}", func(r chi.Router) {
		r.Use(httpmw.RealmContext(opts.Realms))

		r.Route("/protocol/openid-connect", func(r chi.Router) {
			r.Post("/token", s.handleToken)
			r.Post("/token/introspect", s.handleIntrospect)
			r.Get("/certs", s.handleCerts)
			r.Get("/userinfo", s.handleUserinfo)
			r.Get("/auth", s.handleAuthorize)
		})

		r.Post("/login-actions/authenticate", s.handleLoginActionsAuthenticate)

		r.Route("/broker/{alias}", func(r chi.Router) {
			r.Get("/login", s.handleBrokerLogin)
			r.Get("/endpoint", s.handleBrokerCallback)
		})
	})

	s.Router = r
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
