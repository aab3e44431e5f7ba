package repo

import (
	"context"
	"errors"

	"user-directory-server/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// UserStore persists user identities and password hashes. Implementations
// must reject duplicate usernames and emails with ErrConflict at write time.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	Insert(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
}

var (
	_ UserStore = (*UserRepo)(nil)
	_ UserStore = (*GormUserRepo)(nil)
	_ UserStore = (*MemoryUserRepo)(nil)
)
