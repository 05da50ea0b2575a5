package httpapi

import (
	"context"
	"net/http"

	fitAuth "github.com/fitgoal/fitAuth"
	"github.com/fitgoal/fitAuth/internal/logging"
	"github.com/fitgoal/fitAuth/middleware"
	"github.com/gorilla/mux"
)

// Service is the authentication workflow served by the API. *fitAuth.Engine
// satisfies it.
type Service interface {
	middleware.Authenticator

	Register(ctx context.Context, req fitAuth.RegisterRequest) (*fitAuth.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*fitAuth.LoginResult, error)
	Logout(ctx context.Context, p *fitAuth.Principal) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword, confirmPassword string) error
}

type options struct {
	log          logging.Logger
	guardOptions []middleware.Option
	trustProxy   bool
}

type Option func(*options)

func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithUniformAuthFailures hides the rejection reason on protected routes.
func WithUniformAuthFailures() Option {
	return func(o *options) {
		o.guardOptions = append(o.guardOptions, middleware.WithUniformResponse())
	}
}

// WithTrustedProxy takes the client IP from the first X-Forwarded-For entry
// instead of the connection address. Enable it only behind a proxy that
// overwrites the header.
func WithTrustedProxy() Option {
	return func(o *options) { o.trustProxy = true }
}

// Server routes HTTP requests to a Service.
type Server struct {
	svc    Service
	log    logging.Logger
	router *mux.Router
}

// New builds the router. Mount the returned Server as an http.Handler, or
// call Router to attach more routes.
func New(svc Service, opts ...Option) *Server {
	o := options{log: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		svc:    svc,
		log:    o.log,
		router: mux.NewRouter(),
	}

	s.router.Use(requestID, clientIP(o.trustProxy), accessLog(o.log))
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
	})

	guardOpts := append([]middleware.Option{middleware.WithLogger(o.log)}, o.guardOptions...)
	guard := middleware.Guard(svc, guardOpts...)

	auth := s.router.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", s.register).Methods(http.MethodPost)
	auth.HandleFunc("/login", s.login).Methods(http.MethodPost)
	auth.HandleFunc("/reset-password", s.requestPasswordReset).Methods(http.MethodPost)
	auth.HandleFunc("/reset-password/confirm", s.confirmPasswordReset).Methods(http.MethodPost)
	auth.Handle("/logout", guard(http.HandlerFunc(s.logout))).Methods(http.MethodGet, http.MethodPost)
	auth.Handle("/me", guard(http.HandlerFunc(s.me))).Methods(http.MethodGet)

	return s
}

// Router returns the underlying router so callers can mount extra routes,
// such as /metrics, behind the same middleware.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
