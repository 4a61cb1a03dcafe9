package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/account"
	"github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/middleware"
)

// Engine is the part of *sessionauth.Engine the handlers call.
type Engine interface {
	Register(ctx context.Context, req sessionauth.RegisterRequest) (*account.PublicUser, error)
	Login(ctx context.Context, email, password string) (*sessionauth.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*sessionauth.LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error

	ListSessions(ctx context.Context, userID, currentRefreshToken string) ([]sessionauth.SessionView, error)
	RevokeSession(ctx context.Context, userID, tokenID string) error
	RevokeOtherSessions(ctx context.Context, userID, currentRefreshToken string) (int, error)

	Profile(ctx context.Context, userID string) (*account.PublicUser, error)
	UpdateProfile(ctx context.Context, userID string, req sessionauth.UpdateProfileRequest) (*account.PublicUser, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword, currentRefreshToken string) (int, error)

	ListUsers(ctx context.Context, actor jwt.AccessClaims) ([]account.PublicUser, error)
	GetUser(ctx context.Context, actor jwt.AccessClaims, userID string) (*account.PublicUser, error)
	UnlockAccount(ctx context.Context, actor jwt.AccessClaims, targetUserID string) error

	AuditLogs(ctx context.Context, actor jwt.AccessClaims, filter audit.Filter) (audit.Page, error)
	AuditStats(ctx context.Context, actor jwt.AccessClaims) (sessionauth.AuditStats, error)
	SweepExpiredSessions(ctx context.Context) (sessionauth.SweepReport, error)
	Health(ctx context.Context) sessionauth.HealthReport

	VerifyAccess(token string) (*jwt.AccessClaims, error)
	RecordUnauthorizedAccess(ctx context.Context, claims *jwt.AccessClaims, resource string)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// Deps wires the handler. Engine is required; Metrics, when set, is
// mounted at /metrics.
type Deps struct {
	Engine       Engine
	Logger       *slog.Logger
	Metrics      http.Handler
	Cookies      CookieConfig
	ClientOrigin string
	TrustProxy   bool
	Clock        func() time.Time
}

// Config holds listener settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server owns the http.Server for the API.
type Server struct {
	httpServer *http.Server
}

func New(cfg Config, deps Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewHandler(deps),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type handler struct {
	engine  Engine
	logger  *slog.Logger
	cookies CookieConfig
	errors  errorWriter
}

// NewHandler builds the routed handler with the CORS, logging and client
// metadata middleware applied.
func NewHandler(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	h := &handler{
		engine:  deps.Engine,
		logger:  logger,
		cookies: deps.Cookies,
		errors:  errorWriter{logger: logger, now: clock},
	}

	access := middleware.RequireAccess(deps.Engine, h.errors.write)
	admin := func(next http.HandlerFunc) http.Handler {
		return middleware.Chain(next, access, middleware.RequireRole(deps.Engine, h.errors.write, account.RoleAdmin))
	}
	authed := func(next http.HandlerFunc) http.Handler {
		return access(next)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeOK(w, http.StatusOK, "", map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /health/detailed", h.healthDetailed)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("POST /api/auth/logout", h.logout)
	mux.HandleFunc("POST /api/auth/refresh", h.refresh)

	mux.Handle("GET /api/sessions", authed(h.listSessions))
	mux.Handle("DELETE /api/sessions/{tokenId}", authed(h.revokeSession))
	mux.Handle("POST /api/sessions/revoke-all", authed(h.revokeOtherSessions))

	mux.Handle("GET /api/user/profile", authed(h.profile))
	mux.Handle("PUT /api/user/profile", authed(h.updateProfile))
	mux.Handle("POST /api/user/password", authed(h.changePassword))
	mux.Handle("GET /api/user/all", admin(h.listUsers))
	mux.Handle("GET /api/user/{userId}", admin(h.getUser))
	mux.Handle("POST /api/user/unlock/{userId}", admin(h.unlockUser))

	mux.Handle("GET /api/audit/logs", admin(h.auditLogs))
	mux.Handle("GET /api/audit/user/{userId}", admin(h.auditLogsForUser))
	mux.Handle("GET /api/audit/stats", admin(h.auditStats))

	mux.Handle("POST /api/admin/sessions/sweep", admin(h.sweepSessions))

	return middleware.Chain(mux,
		middleware.CORS(deps.ClientOrigin),
		middleware.Logging(logger),
		middleware.ClientMeta(deps.TrustProxy),
	)
}

// claims returns the verified caller. Routes behind RequireAccess always
// have them.
func claims(r *http.Request) jwt.AccessClaims {
	c, _ := middleware.ClaimsFromContext(r.Context())
	if c == nil {
		return jwt.AccessClaims{}
	}
	return *c
}
