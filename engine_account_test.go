package fitAuth

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRegisterStoresHashNotPassword(t *testing.T) {
	env := newTestEnv(t, nil)

	res, err := env.engine.Register(context.Background(), RegisterRequest{
		FirstName: "  Ada ",
		LastName:  "Lovelace",
		Email:     "  Ada@Example.COM ",
		Password:  testPassword,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Account.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", res.Account.Email)
	}
	if res.Account.FirstName != "Ada" {
		t.Fatalf("expected trimmed first name, got %q", res.Account.FirstName)
	}
	if res.Token != "" {
		t.Fatal("token must not be issued on register by default")
	}

	rec := env.store.record(res.Account.ID)
	if !strings.HasPrefix(rec.PasswordHash, "$argon2id$") {
		t.Fatalf("expected argon2id hash, got %q", rec.PasswordHash)
	}
	if strings.Contains(rec.PasswordHash, testPassword) {
		t.Fatal("stored hash contains the plaintext password")
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricRegisterSuccess]; got != 1 {
		t.Fatalf("expected register success metric 1, got %d", got)
	}
}

func TestRegisterDuplicateEmailIsConflict(t *testing.T) {
	env := newTestEnv(t, nil)
	first := env.register(t, "ada@example.com")

	_, err := env.engine.Register(context.Background(), RegisterRequest{
		FirstName: "Someone",
		LastName:  "Else",
		Email:     "ADA@example.com",
		Password:  "An0ther!Pass",
	})
	if !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
	if KindOf(err) != KindDuplicateAccount {
		t.Fatalf("expected duplicate kind, got %v", KindOf(err))
	}

	if env.store.createCalls != 1 {
		t.Fatalf("expected a single insert, got %d", env.store.createCalls)
	}
	if rec := env.store.record(first.ID); rec.FirstName != "Ada" {
		t.Fatalf("existing account was overwritten: %+v", rec.Account)
	}
}

func TestRegisterLosingInsertRaceIsConflict(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.createErr = ErrStoreDuplicate

	_, err := env.engine.Register(context.Background(), RegisterRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password:  testPassword,
	})
	if !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricRegisterDuplicate]; got != 1 {
		t.Fatalf("expected duplicate metric 1, got %d", got)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	valid := RegisterRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password:  testPassword,
	}

	tests := []struct {
		name    string
		mutate  func(*RegisterRequest)
		field   string
		message string
	}{
		{"missing first name", func(r *RegisterRequest) { r.FirstName = " " }, "firstName", "First name is required"},
		{"missing last name", func(r *RegisterRequest) { r.LastName = "" }, "lastName", "Last name is required"},
		{"missing email", func(r *RegisterRequest) { r.Email = "" }, "email", "Email is required"},
		{"bad email", func(r *RegisterRequest) { r.Email = "not-an-email" }, "email", "Invalid email"},
		{"missing password", func(r *RegisterRequest) { r.Password = "" }, "password", "Password is required"},
		{"short password", func(r *RegisterRequest) { r.Password = "Ab1!" }, "password", "Password must be at least 8 characters"},
		{"long password", func(r *RegisterRequest) { r.Password = "Ab1!" + strings.Repeat("a", 50) }, "password", "Password must be less than 50 characters"},
		{"weak password", func(r *RegisterRequest) { r.Password = "alllowercase1!" }, "password", "Password must contain at least one uppercase, one lowercase, one number and one special character"},
		{"mismatched confirm", func(r *RegisterRequest) { r.ConfirmPassword = "Different1!" }, "confirmPassword", "Passwords must match"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)

			_, err := env.engine.Register(context.Background(), req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if got := e.Fields[tc.field]; got != tc.message {
				t.Fatalf("field %s: expected %q, got %q (all: %v)", tc.field, tc.message, got, e.Fields)
			}
		})
	}

	if env.store.createCalls != 0 {
		t.Fatalf("invalid requests must not reach the store, got %d inserts", env.store.createCalls)
	}
}

func TestRegisterMatchingConfirmPassword(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.engine.Register(context.Background(), RegisterRequest{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
}

func TestRegisterIssuesTokenWhenConfigured(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Account.IssueTokenOnRegister = true
	})

	res, err := env.engine.Register(context.Background(), RegisterRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password:  testPassword,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected a token")
	}

	p, err := env.engine.Authenticate(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.ID != res.Account.ID {
		t.Fatalf("expected principal %s, got %s", res.Account.ID, p.ID)
	}
}

func TestRegisterStoreFailureIsInternal(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.getErr = errors.New("connection refused")

	_, err := env.engine.Register(context.Background(), RegisterRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password:  testPassword,
	})
	if KindOf(err) != KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if strings.Contains(err.(*Error).Message(), "connection refused") {
		t.Fatal("client message must not include the cause")
	}
}
