// Package server wires the four core subsystems (context engine,
// mempool, audit log, wallet auth/registry) to the HTTP surface of
// spec.md §6. Routing is github.com/dimfeld/httptreemux/v5, the same
// router ardanlabs-blockchain's go.mod carries; the teacher's own
// api/server/server.go instead registers everything on
// http.DefaultServeMux (fine for a handful of blockchain/P2P routes,
// awkward for the read/write/admin surface this process exposes), so
// the routing itself is reconstructed from httptreemux's own
// documented API rather than copied from either source.
//
// Auth middleware is grounded on the teacher's requireAPIKey/requireJWT
// pair (api/server/server.go): same Authorization: Bearer + jwt.Parse
// shape, but actually enforcing rather than the teacher's log-only
// "TODO: enforce in prod" scaffolding.
package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/dimfeld/httptreemux/v5"
	"go.uber.org/zap"

	"uniledger/internal/audit"
	"uniledger/internal/contextengine"
	"uniledger/internal/mempool"
	"uniledger/internal/storage"
	"uniledger/internal/wallet"
)

// Deps bundles every collaborator a handler needs. Built once at
// startup and passed by value into Server; subsystems hold no
// references back to Server (spec.md §9's cyclic-reference guidance).
type Deps struct {
	Log         *zap.SugaredLogger
	Engine      *contextengine.Engine
	Mempool     *mempool.Mempool
	Audit       *audit.Log
	Auth        *wallet.Auth
	Backend     storage.Backend
	NetworkID   string
	Version     string
	AdminSecret string // empty disables JWT enforcement on admin routes
	StartedAt   time.Time
}

// Server is the HTTP entrypoint: one httptreemux router plus the
// shared Deps every handler closes over.
type Server struct {
	deps   Deps
	router *httptreemux.TreeMux
}

// New builds a Server with every route of spec.md §6 registered under
// prefix (e.g. "/api").
func New(deps Deps, prefix string) *Server {
	s := &Server{deps: deps, router: httptreemux.New()}
	prefix = normalizePrefix(prefix)

	s.router.GET(prefix+"/health", s.handleHealth)
	s.router.GET(prefix+"/metrics", s.handleMetrics)
	s.router.GET(prefix+"/reference/providers", s.handleReferenceProviders)
	s.router.GET(prefix+"/reference/patients", s.handleReferencePatients)
	s.router.GET(prefix+"/reference/validators", s.handleReferenceValidators)
	s.router.GET(prefix+"/transactions", s.handleListTransactions)
	s.router.POST(prefix+"/transactions", s.handleSubmitTransaction)
	s.router.GET(prefix+"/audit", s.handleQueryAudit)
	s.router.GET(prefix+"/audit/export", s.requireAdmin(s.handleExportAudit))
	s.router.POST(prefix+"/wallet/challenge", s.handleWalletChallenge)
	s.router.POST(prefix+"/wallet/verify", s.handleWalletVerify)

	return s
}

// Handler returns the http.Handler to pass to http.Server, wrapped
// with recovery and access logging.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = s.loggingMiddleware(h)
	h = s.recoverMiddleware(h)
	return h
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}

// recoverMiddleware turns a handler panic into a 500 instead of
// killing the request goroutine silently.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.deps.Log.Errorw("panic handling request", "path", r.URL.Path, "recover", rec)
				respondError(w, http.StatusInternalServerError, "internal error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.deps.Log.Infow("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// requireAdmin enforces a bearer JWT signed with deps.AdminSecret. When
// AdminSecret is empty the route is left open, matching a deployment
// that hasn't opted into admin-gated endpoints yet.
func (s *Server) requireAdmin(next httptreemux.HandlerFunc) httptreemux.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		if s.deps.AdminSecret == "" {
			next(w, r, params)
			return
		}
		if !validateBearer(r.Header.Get("Authorization"), s.deps.AdminSecret) {
			respondError(w, http.StatusUnauthorized, "missing or invalid admin token", nil)
			return
		}
		next(w, r, params)
	}
}
