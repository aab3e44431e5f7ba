package db

import (
	"context"
	"errors"
	"fmt"

	"user-directory-server/internal/config"
	"user-directory-server/internal/repo"
)

// PasswordHasher is the subset of auth.Hasher needed for seeding.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// EnsureSeedUsers inserts each configured seed account whose email is not
// registered yet. It returns how many accounts were created.
func EnsureSeedUsers(ctx context.Context, store repo.UserStore, hasher PasswordHasher, seeds []config.SeedUser) (int, error) {
	created := 0
	for _, seed := range seeds {
		_, err := store.FindByEmail(ctx, seed.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return created, fmt.Errorf("check seed user %s: %w", seed.Username, err)
		}

		hash, err := hasher.Hash(seed.Password)
		if err != nil {
			return created, fmt.Errorf("hash seed password: %w", err)
		}

		if _, err := store.Insert(ctx, seed.Username, seed.Email, hash); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				continue
			}
			return created, fmt.Errorf("insert seed user %s: %w", seed.Username, err)
		}
		created++
	}

	return created, nil
}
