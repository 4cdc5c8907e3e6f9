package memory

import (
	"context"
	"sync"

	"quiz-service/internal/domain"
)

// CredentialStore is an in-memory implementation of app.CredentialStore.
type CredentialStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[string]domain.User
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		users: make(map[string]domain.User),
	}
}

// CreateUser checks and inserts under one lock, so concurrent signups cannot both succeed.
func (s *CredentialStore) CreateUser(_ context.Context, user domain.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return 0, domain.ErrEmailTaken
	}
	s.nextID++
	user.ID = s.nextID
	s.users[user.Email] = user
	return user.ID, nil
}

func (s *CredentialStore) FindUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// Len reports how many users are stored.
func (s *CredentialStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
