package fitAuth

import (
	"context"
	"errors"
	"time"
)

// Account is the public view of a registered user. It never carries the
// password hash and is safe to serialize to clients.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	CreatedAt time.Time `json:"createdAt"`
}

// AccountRecord is an Account together with its stored password hash. Only
// stores and the Engine handle it.
type AccountRecord struct {
	Account
	PasswordHash string
}

// NewAccount is the input to [AccountStore.CreateAccount]. Email is already
// normalized and PasswordHash already computed.
type NewAccount struct {
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
}

var (
	// ErrStoreNotFound is returned by an AccountStore when no account matches.
	ErrStoreNotFound = errors.New("account not found")
	// ErrStoreDuplicate is returned by CreateAccount on an email collision.
	ErrStoreDuplicate = errors.New("account email already exists")
)

// AccountStore persists accounts. Email lookups are case-insensitive and
// CreateAccount must be a single atomic insert that enforces email
// uniqueness. Implementations must be safe for concurrent use.
type AccountStore interface {
	CreateAccount(ctx context.Context, account NewAccount) (AccountRecord, error)
	GetAccountByEmail(ctx context.Context, email string) (AccountRecord, error)
	GetAccountByID(ctx context.Context, id string) (AccountRecord, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}

// ResetNotifier delivers password reset tokens, typically by email. The
// token is a bearer secret and must only be sent to the account's address.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, account Account, token string, expiresAt time.Time) error
}

// RegisterRequest is the input to [Engine.Register]. ConfirmPassword is
// optional; when set it must equal Password.
type RegisterRequest struct {
	FirstName       string `json:"firstName" validate:"required"`
	LastName        string `json:"lastName" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=50,strongpassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"omitempty,eqfield=Password"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=50"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetConfirmRequest struct {
	Password        string `json:"password" validate:"required,min=8,max=50,strongpassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"omitempty,eqfield=Password"`
}

// RegisterResult is returned by [Engine.Register]. Token is set only when
// Config.Account.IssueTokenOnRegister is enabled.
type RegisterResult struct {
	Account   Account
	Token     string
	ExpiresAt time.Time
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   Account
}

// Principal is the authenticated caller of a request. Account fields are
// read from the store on every authentication, never from the token.
type Principal struct {
	Account
	TokenID   string
	ExpiresAt time.Time
}
