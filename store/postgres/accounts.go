// Package postgres implements fitAuth.AccountStore on PostgreSQL through
// pgx. Email uniqueness is enforced by a unique index on lower(email), so
// concurrent registrations of the same address cannot both succeed.
package postgres

import (
	"context"
	"errors"
	"time"

	fitAuth "github.com/fitgoal/fitAuth"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DB is the subset of *pgxpool.Pool used by Store. pgxmock pools satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL-backed account store.
type Store struct {
	db DB
}

var _ fitAuth.AccountStore = (*Store)(nil)

func New(db DB) *Store {
	return &Store{db: db}
}

// Connect opens a pgx pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "open pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return pool, nil
}

const insertAccount = `INSERT INTO accounts (id, email, first_name, last_name, password_hash)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`

func (s *Store) CreateAccount(ctx context.Context, a fitAuth.NewAccount) (fitAuth.AccountRecord, error) {
	rec := fitAuth.AccountRecord{
		Account: fitAuth.Account{
			ID:        ulid.Make().String(),
			Email:     a.Email,
			FirstName: a.FirstName,
			LastName:  a.LastName,
		},
		PasswordHash: a.PasswordHash,
	}

	var createdAt time.Time
	err := s.db.QueryRow(ctx, insertAccount,
		rec.ID, rec.Email, rec.FirstName, rec.LastName, rec.PasswordHash,
	).Scan(&createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fitAuth.AccountRecord{}, fitAuth.ErrStoreDuplicate
		}
		return fitAuth.AccountRecord{}, oops.Code("ACCOUNT_INSERT_FAILED").With("operation", "create account").Wrap(err)
	}
	rec.CreatedAt = createdAt.UTC()
	return rec, nil
}

const selectAccountByEmail = `SELECT id, email, first_name, last_name, password_hash, created_at
FROM accounts
WHERE lower(email) = lower($1)`

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (fitAuth.AccountRecord, error) {
	rec, err := scanAccount(s.db.QueryRow(ctx, selectAccountByEmail, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fitAuth.AccountRecord{}, fitAuth.ErrStoreNotFound
		}
		return fitAuth.AccountRecord{}, oops.Code("ACCOUNT_QUERY_FAILED").With("operation", "get account by email").Wrap(err)
	}
	return rec, nil
}

const selectAccountByID = `SELECT id, email, first_name, last_name, password_hash, created_at
FROM accounts
WHERE id = $1`

func (s *Store) GetAccountByID(ctx context.Context, id string) (fitAuth.AccountRecord, error) {
	rec, err := scanAccount(s.db.QueryRow(ctx, selectAccountByID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fitAuth.AccountRecord{}, fitAuth.ErrStoreNotFound
		}
		return fitAuth.AccountRecord{}, oops.Code("ACCOUNT_QUERY_FAILED").With("operation", "get account by id").With("account_id", id).Wrap(err)
	}
	return rec, nil
}

const updatePasswordHash = `UPDATE accounts
SET password_hash = $2, updated_at = now()
WHERE id = $1`

func (s *Store) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	tag, err := s.db.Exec(ctx, updatePasswordHash, id, passwordHash)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("operation", "update password hash").With("account_id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return fitAuth.ErrStoreNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (fitAuth.AccountRecord, error) {
	var rec fitAuth.AccountRecord
	err := row.Scan(
		&rec.ID,
		&rec.Email,
		&rec.FirstName,
		&rec.LastName,
		&rec.PasswordHash,
		&rec.CreatedAt,
	)
	if err != nil {
		return fitAuth.AccountRecord{}, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
