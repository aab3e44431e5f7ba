package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"user-directory-server/internal/models"
)

// MemoryUserRepo keeps users in process memory. It backs STORE_DRIVER=memory
// and the service/handler tests.
type MemoryUserRepo struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]models.User
	now    func() time.Time
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		users: make(map[int64]models.User),
		now:   time.Now,
	}
}

func (r *MemoryUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", ErrNotFound)
}

func (r *MemoryUserRepo) FindByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("get user by id: %w", ErrNotFound)
	}
	return &u, nil
}

func (r *MemoryUserRepo) List(_ context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *MemoryUserRepo) EmailTaken(_ context.Context, email string, excludeID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, u := range r.users {
		if id != excludeID && u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryUserRepo) Insert(_ context.Context, username, email, passwordHash string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUniqueLocked(0, username, email); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	r.nextID++
	now := r.now().UTC()
	user := models.User{
		ID:           r.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[user.ID] = user
	return &user, nil
}

func (r *MemoryUserRepo) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return fmt.Errorf("update user: %w", ErrNotFound)
	}
	if err := r.checkUniqueLocked(user.ID, user.Username, user.Email); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	existing.Username = user.Username
	existing.Email = user.Email
	existing.PasswordHash = user.PasswordHash
	existing.UpdatedAt = r.now().UTC()
	r.users[user.ID] = existing
	user.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *MemoryUserRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("delete user: %w", ErrNotFound)
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepo) checkUniqueLocked(selfID int64, username, email string) error {
	for id, u := range r.users {
		if id == selfID {
			continue
		}
		if u.Username == username {
			return fmt.Errorf("%w: users_username_key", ErrConflict)
		}
		if u.Email == email {
			return fmt.Errorf("%w: users_email_key", ErrConflict)
		}
	}
	return nil
}
