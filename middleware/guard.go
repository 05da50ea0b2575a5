package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	fitAuth "github.com/fitgoal/fitAuth"
	"github.com/fitgoal/fitAuth/internal/logging"
)

// Authenticator resolves a bearer token to a principal. *fitAuth.Engine
// satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*fitAuth.Principal, error)
}

type principalContextKey struct{}

// PrincipalFromContext returns the principal attached by Guard.
func PrincipalFromContext(ctx context.Context) (*fitAuth.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*fitAuth.Principal)
	return p, ok && p != nil
}

// ContextWithPrincipal attaches p to ctx the way Guard does.
func ContextWithPrincipal(ctx context.Context, p *fitAuth.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

type options struct {
	uniform bool
	log     logging.Logger
}

// Option configures Guard.
type Option func(*options)

// WithUniformResponse makes every rejection carry the same body,
// {"error":"Unauthorized"}, hiding the failure reason from clients. The
// reason is still logged.
func WithUniformResponse() Option {
	return func(o *options) { o.uniform = true }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Guard rejects requests without a valid bearer token and passes the rest
// to next with the principal in the request context.
//
// Rejections are 401 with a JSON body naming the reason:
//
//	{"error":"Token expired","reason":"expired_credential"}
//
// Failures that are not authentication outcomes are 500.
func Guard(authn Authenticator, opts ...Option) func(http.Handler) http.Handler {
	o := options{log: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authn == nil {
				writeError(w, http.StatusInternalServerError, "Internal server error", "")
				return
			}

			token := bearerToken(r.Header.Get("Authorization"))
			p, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				reject(w, r, o, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, o options, err error) {
	if fitAuth.KindOf(err) != fitAuth.KindUnauthenticated {
		o.log.Error(r.Context(), "authenticate request", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	reason := fitAuth.ReasonOf(err).String()
	o.log.Info(r.Context(), "request rejected", "path", r.URL.Path, "reason", reason)

	if o.uniform {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	msg := "Unauthorized"
	var e *fitAuth.Error
	if errors.As(err, &e) {
		msg = e.Message()
	}
	writeError(w, http.StatusUnauthorized, msg, reason)
}

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg, reason string) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="fitgoal"`)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg, Reason: reason})
}

// bearerToken extracts the token from an Authorization header. The scheme
// is matched case-insensitively; anything else yields "".
func bearerToken(value string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
