// Package pgstore is the Postgres-backed [snapzy.AccountStore]. It maps the
// accounts table's unique indexes onto the package sentinel errors so the
// engine can treat insert races uniformly across store implementations.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/snapzy-app/snapzy"
	"github.com/snapzy-app/snapzy/store/pgstore/migrations"
)

const uniqueViolation = "23505"

// Store wraps a pgx-driven *sql.DB.
type Store struct {
	db *sql.DB
}

// Open connects to dsn, runs the embedded goose migrations and returns a
// ready Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.UpContext(ctx, db, "."); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `id, email, username, full_name, password_hash,
        otp_code, otp_expires_at, verified, followers, following,
        profile_img, cover_img, bio, link, created_at, updated_at`

// FindByEmail looks up the record owning email.
func (s *Store) FindByEmail(ctx context.Context, email string) (*snapzy.AccountRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts WHERE email = $1`
	return s.queryOne(ctx, query, email)
}

// FindByUsername looks up the record owning username.
func (s *Store) FindByUsername(ctx context.Context, username string) (*snapzy.AccountRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts WHERE username = $1`
	return s.queryOne(ctx, query, username)
}

// CreatePending inserts a new email-only row. A concurrent insert of the
// same address surfaces as [snapzy.ErrDuplicateEmail].
func (s *Store) CreatePending(ctx context.Context, email string) (*snapzy.AccountRecord, error) {
	query := `INSERT INTO accounts (id, email)
	          VALUES ($1, $2)
	          RETURNING created_at, updated_at`

	record := &snapzy.AccountRecord{
		ID:    uuid.NewString(),
		Email: email,
	}
	err := s.db.QueryRowContext(ctx, query, record.ID, email).
		Scan(&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return record, nil
}

// Save writes the full record back by ID.
func (s *Store) Save(ctx context.Context, account *snapzy.AccountRecord) error {
	query := `UPDATE accounts
	          SET email = $2, username = $3, full_name = $4, password_hash = $5,
	              otp_code = $6, otp_expires_at = $7, verified = $8,
	              followers = $9, following = $10, profile_img = $11,
	              cover_img = $12, bio = $13, link = $14, updated_at = now()
	          WHERE id = $1`

	followers, err := encodeList(account.Followers)
	if err != nil {
		return err
	}
	following, err := encodeList(account.Following)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, query,
		account.ID,
		account.Email,
		nullIfEmpty(account.Username),
		account.FullName,
		account.PasswordHash,
		account.OTPCode,
		nullIfZero(account.OTPExpiresAt),
		account.Verified,
		followers,
		following,
		account.ProfileImg,
		account.CoverImg,
		account.Bio,
		account.Link,
	)
	if err != nil {
		return mapDBError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return snapzy.ErrAccountNotFound
	}
	return nil
}

func (s *Store) queryOne(ctx context.Context, query string, arg any) (*snapzy.AccountRecord, error) {
	var (
		record    snapzy.AccountRecord
		username  sql.NullString
		expiresAt sql.NullTime
		followers []byte
		following []byte
	)

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&record.ID,
		&record.Email,
		&username,
		&record.FullName,
		&record.PasswordHash,
		&record.OTPCode,
		&expiresAt,
		&record.Verified,
		&followers,
		&following,
		&record.ProfileImg,
		&record.CoverImg,
		&record.Bio,
		&record.Link,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, snapzy.ErrAccountNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	record.Username = username.String
	if expiresAt.Valid {
		record.OTPExpiresAt = expiresAt.Time
	}
	if err := json.Unmarshal(followers, &record.Followers); err != nil {
		return nil, fmt.Errorf("decode followers: %w", err)
	}
	if err := json.Unmarshal(following, &record.Following); err != nil {
		return nil, fmt.Errorf("decode following: %w", err)
	}
	return &record, nil
}

// mapDBError converts unique-index violations into the sentinels the engine
// branches on.
func mapDBError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "accounts_email_key":
			return snapzy.ErrDuplicateEmail
		case "accounts_username_key":
			return snapzy.ErrDuplicateUsername
		}
	}
	return fmt.Errorf("db error: %w", err)
}

func encodeList(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}
	return b, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullIfZero(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
