package fitAuth

import (
	"errors"
	"maps"
)

// ErrorKind classifies every error the Engine returns. Callers branch on
// the kind, never on the message.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	// KindValidation means the input was malformed; Fields says which parts.
	KindValidation
	// KindDuplicateAccount means the email is already registered.
	KindDuplicateAccount
	// KindNotFound means no account matched the given email.
	KindNotFound
	// KindInvalidCredential means the password did not match.
	KindInvalidCredential
	// KindUnauthenticated means a bearer token was missing or unacceptable;
	// Reason says why.
	KindUnauthenticated
	// KindRateLimited means the caller exceeded an attempt budget.
	KindRateLimited
	// KindInternal covers storage, hashing and other unexpected failures.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicateAccount:
		return "duplicate_account"
	case KindNotFound:
		return "not_found"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindRateLimited:
		return "rate_limited"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Reason refines KindUnauthenticated. Verification checks run in the order
// the reasons are declared and the first failing check wins.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonNoCredential
	ReasonInvalidCredential
	ReasonExpiredCredential
	ReasonRevokedCredential
	ReasonUnknownPrincipal
)

func (r Reason) String() string {
	switch r {
	case ReasonNoCredential:
		return "no_credential"
	case ReasonInvalidCredential:
		return "invalid_credential"
	case ReasonExpiredCredential:
		return "expired_credential"
	case ReasonRevokedCredential:
		return "revoked_credential"
	case ReasonUnknownPrincipal:
		return "unknown_principal"
	default:
		return ""
	}
}

// Error is the tagged error type returned by the Engine. Its message is safe
// to show to clients; the wrapped cause is for logs only.
type Error struct {
	Kind   ErrorKind
	Reason Reason
	Fields map[string]string

	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

// Message returns the client-facing message without the cause.
func (e *Error) Message() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same Kind and Reason, so
// errors.Is(err, ErrExpiredToken) works on wrapped copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

func (e *Error) wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

var (
	// ErrValidation matches every validation failure.
	ErrValidation = &Error{Kind: KindValidation, msg: "Validation failed"}
	// ErrDuplicateAccount is returned by Register for an email already in use.
	ErrDuplicateAccount = &Error{Kind: KindDuplicateAccount, msg: "Email already exists"}
	// ErrAccountNotFound is returned by Login when no account has the email.
	ErrAccountNotFound = &Error{Kind: KindNotFound, msg: "User not found"}
	// ErrInvalidCredential is returned by Login when the password is wrong.
	ErrInvalidCredential = &Error{Kind: KindInvalidCredential, msg: "Incorrect password"}
	// ErrRateLimited is returned when an attempt budget is exhausted.
	ErrRateLimited = &Error{Kind: KindRateLimited, msg: "Too many attempts, try again later"}
	// ErrInternal wraps unexpected failures.
	ErrInternal = &Error{Kind: KindInternal, msg: "Internal server error"}

	// ErrNoCredential: no bearer token was presented.
	ErrNoCredential = &Error{Kind: KindUnauthenticated, Reason: ReasonNoCredential, msg: "Authorization token missing"}
	// ErrInvalidToken: the token is malformed or its signature does not verify.
	ErrInvalidToken = &Error{Kind: KindUnauthenticated, Reason: ReasonInvalidCredential, msg: "Invalid token"}
	// ErrExpiredToken: the token is authentic but past its expiry.
	ErrExpiredToken = &Error{Kind: KindUnauthenticated, Reason: ReasonExpiredCredential, msg: "Token expired"}
	// ErrRevokedToken: the token was revoked by logout or a password reset.
	ErrRevokedToken = &Error{Kind: KindUnauthenticated, Reason: ReasonRevokedCredential, msg: "Token revoked"}
	// ErrUnknownPrincipal: the token's account no longer exists.
	ErrUnknownPrincipal = &Error{Kind: KindUnauthenticated, Reason: ReasonUnknownPrincipal, msg: "Unknown principal"}

	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// NewValidationError returns a KindValidation error carrying fields, a map
// of input field name to message.
func NewValidationError(fields map[string]string) *Error {
	e := *ErrValidation
	e.Fields = maps.Clone(fields)
	return &e
}

// KindOf returns the kind of err. Errors that are not *Error report
// KindInternal; nil reports KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf returns the Unauthenticated reason carried by err, if any.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ReasonNone
}

func internalError(cause error) *Error {
	return ErrInternal.wrap(cause)
}
