package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"quiz-service/internal/domain"
)

// CredentialStore persists user records keyed by a unique email.
type CredentialStore interface {
	// CreateUser inserts the user and returns its id, or domain.ErrEmailTaken.
	CreateUser(ctx context.Context, user domain.User) (int64, error)
	// FindUserByEmail returns domain.ErrUserNotFound when no record matches.
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
}

// DefaultBcryptCost is the fixed work factor for password hashes.
const DefaultBcryptCost = 10

// AuthService handles signup and login against a CredentialStore.
type AuthService struct {
	users     CredentialStore
	cost      int
	dummyHash []byte
}

func NewAuthService(users CredentialStore, cost int) (*AuthService, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	// Compared against on unknown emails so both login failures cost one bcrypt round.
	dummy, err := bcrypt.GenerateFromPassword([]byte("quiz-service-dummy"), cost)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	return &AuthService{users: users, cost: cost, dummyHash: dummy}, nil
}

// Signup hashes the password and stores a new user. Uniqueness is enforced by the store.
func (s *AuthService) Signup(ctx context.Context, fullname, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.users.CreateUser(ctx, domain.User{
		Fullname:     fullname,
		Email:        email,
		PasswordHash: string(hash),
	})
	return err
}

// Login verifies the credentials and returns the user's public projection.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.UserView, error) {
	if email == "" || password == "" {
		return domain.UserView{}, domain.ErrMissingCredentials
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return domain.UserView{}, err
	}
	if err != nil {
		return domain.UserView{}, err
	}

	if user.PasswordHash == "" {
		return domain.UserView{}, domain.ErrMissingPasswordHash
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return domain.UserView{}, domain.ErrIncorrectPassword
	}
	if err != nil {
		return domain.UserView{}, fmt.Errorf("compare password: %w", err)
	}
	return user.View(), nil
}
