package account

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Store persists account records in Postgres. Passwords are bcrypt-hashed;
// the hash never leaves this package.
type Store struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

func NewStore(db *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, log: logger}
}

// EnsureSchema creates the tables on first run. Balance lives on the user
// row; holdings are one row per (username, ticker).
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			username      TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			balance_cents BIGINT NOT NULL DEFAULT 1000000,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS positions (
			username   TEXT NOT NULL REFERENCES users(username) ON DELETE CASCADE,
			ticker     TEXT NOT NULL,
			quantity   BIGINT NOT NULL CHECK (quantity >= 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (username, ticker)
		);
	`)
	return err
}

// Create inserts a new account with a hashed password. The starting balance
// defaults to $10,000.00 when the caller passes a non-positive value.
func (s *Store) Create(ctx context.Context, username, password string, balanceCents int64, portfolio map[string]int64) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if err := ValidatePortfolio(portfolio); err != nil {
		return err
	}
	if balanceCents <= 0 {
		balanceCents = StarterBalanceCents
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO users (username, password_hash, balance_cents)
		VALUES ($1, $2, $3)
	`, username, string(hash), balanceCents)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return err
	}
	for ticker, qty := range portfolio {
		if qty == 0 {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO positions (username, ticker, quantity)
			VALUES ($1, $2, $3)
		`, username, ticker, qty); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Authenticate checks the password against the stored hash. Unknown user and
// wrong password are deliberately indistinguishable to the caller.
func (s *Store) Authenticate(ctx context.Context, username, password string) (int64, error) {
	var hash string
	var balance int64
	err := s.db.QueryRow(ctx, `
		SELECT password_hash, balance_cents
		FROM users
		WHERE username = $1
	`, username).Scan(&hash, &balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrInvalidCredentials
		}
		return 0, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return 0, ErrInvalidCredentials
	}
	return balance, nil
}

func (s *Store) FetchBalance(ctx context.Context, username string) (int64, error) {
	var balance int64
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(balance_cents, $2)
		FROM users
		WHERE username = $1
	`, username, StarterBalanceCents).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, ErrUserNotFound
	}
	return balance, err
}

// UpdateBalance overwrites the numeric field only. Last write wins; there is
// no optimistic-concurrency check on balance pushes.
func (s *Store) UpdateBalance(ctx context.Context, username string, balanceCents int64) error {
	cmd, err := s.db.Exec(ctx, `
		UPDATE users
		SET balance_cents = $1, updated_at = now()
		WHERE username = $2
	`, balanceCents, username)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) FetchPortfolio(ctx context.Context, username string) (map[string]int64, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)
	`, username).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}
	rows, err := s.db.Query(ctx, `
		SELECT ticker, quantity
		FROM positions
		WHERE username = $1 AND quantity > 0
		ORDER BY ticker
	`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var ticker string
		var qty int64
		if err := rows.Scan(&ticker, &qty); err != nil {
			return nil, err
		}
		out[ticker] = qty
	}
	return out, rows.Err()
}

// ReplacePortfolio overwrites the stored holdings with the client's view.
// The session is authoritative, so this is a plain replace, not a merge.
func (s *Store) ReplacePortfolio(ctx context.Context, username string, portfolio map[string]int64) error {
	if err := ValidatePortfolio(portfolio); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
		UPDATE users SET updated_at = now() WHERE username = $1
	`, username)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM positions WHERE username = $1`, username); err != nil {
		return err
	}
	for ticker, qty := range portfolio {
		if qty == 0 {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO positions (username, ticker, quantity)
			VALUES ($1, $2, $3)
		`, username, ticker, qty); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) ListLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT username, balance_cents
		FROM users
		ORDER BY balance_cents DESC, username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardEntry
	for rows.Next() {
		var username string
		var cents int64
		if err := rows.Scan(&username, &cents); err != nil {
			return nil, err
		}
		out = append(out, LeaderboardEntry{Username: username, Balance: CentsToDollars(cents)})
	}
	return RankLeaderboard(out), rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
