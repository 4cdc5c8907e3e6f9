package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-service/internal/domain"
)

const uniqueViolation = "23505"

// CredentialStore keeps user records in the users table.
type CredentialStore struct {
	pool *pgxpool.Pool
}

func NewCredentialStore(pool *pgxpool.Pool) *CredentialStore {
	return &CredentialStore{pool: pool}
}

// CreateUser relies on the UNIQUE(email) constraint; a violation maps to domain.ErrEmailTaken.
func (s *CredentialStore) CreateUser(ctx context.Context, user domain.User) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (fullname, email, password)
		VALUES ($1, $2, $3)
		RETURNING id`, user.Fullname, user.Email, user.PasswordHash).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, domain.ErrEmailTaken
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (s *CredentialStore) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var (
		user domain.User
		hash *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, fullname, email, password
		FROM users
		WHERE email = $1
		LIMIT 1`, email).Scan(&user.ID, &user.Fullname, &user.Email, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	if hash != nil {
		user.PasswordHash = *hash
	}
	return user, nil
}
