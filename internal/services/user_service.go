package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"user-directory-server/internal/auth"
	"user-directory-server/internal/config"
	"user-directory-server/internal/models"
	"user-directory-server/internal/repo"
	"user-directory-server/internal/utils"
)

// UserService owns the user-record lifecycle and the login/recovery flows.
//
// Ownership policy: every mutation (Update, PartialUpdate, Delete) requires the
// authenticated caller to be the target user. Reads only need a valid token.
// Existence is checked first, so an unknown id is a 404 even for strangers.
type UserService struct {
	users    repo.UserStore
	hasher   auth.Hasher
	tokens   *auth.TokenService
	notifier RecoveryNotifier
	cfg      *config.Config
	log      *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UpdateInput carries optional replacements; nil means "not supplied".
type UpdateInput struct {
	Username *string
	Email    *string
	Password *string
}

type LoginResult struct {
	Token     string
	TokenType string
	ExpiresIn int64
	User      *models.User
}

func NewUserService(
	users repo.UserStore,
	hasher auth.Hasher,
	tokens *auth.TokenService,
	notifier RecoveryNotifier,
	cfg *config.Config,
	log *slog.Logger,
) *UserService {
	if log == nil {
		log = slog.Default()
	}
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}
	return &UserService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
	}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, utils.NewValidationError("username, email and password are required")
	}
	if err := s.checkPassword(in.Password); err != nil {
		return nil, err
	}

	taken, err := s.users.EmailTaken(ctx, in.Email, 0)
	if err != nil {
		return nil, s.internal(ctx, "could not check existing users", err)
	}
	if taken {
		return nil, utils.NewConflictError("email already registered")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.internal(ctx, "could not secure password", err)
	}

	user, err := s.users.Insert(ctx, in.Username, in.Email, hash)
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, utils.NewConflictError("username or email already registered")
		}
		return nil, s.internal(ctx, "could not create user", err)
	}

	s.log.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// List returns every user. An empty directory is reported as not found.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, s.internal(ctx, "could not list users", err)
	}
	if len(users) == 0 {
		return nil, utils.NewNotFoundError("no users registered")
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.find(ctx, id)
}

// Update replaces the user's fields; omitted or empty fields keep their
// current value.
func (s *UserService) Update(ctx context.Context, callerID, id int64, in UpdateInput) (*models.User, error) {
	return s.update(ctx, callerID, id, in, false)
}

// PartialUpdate changes only the supplied fields. Supplying an empty value is
// a validation error.
func (s *UserService) PartialUpdate(ctx context.Context, callerID, id int64, in UpdateInput) (*models.User, error) {
	return s.update(ctx, callerID, id, in, true)
}

func (s *UserService) Delete(ctx context.Context, callerID, id int64) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if callerID != id {
		return utils.NewForbiddenError("you are not allowed to delete this user")
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return utils.NewNotFoundError("user not found")
		}
		return s.internal(ctx, "could not delete user", err)
	}

	s.log.InfoContext(ctx, "user deleted", "user_id", id)
	return nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, utils.NewValidationError("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Spend the same hashing time as a real check.
			_, _ = s.hasher.Verify(password, s.dummyPasswordHash())
			return nil, utils.NewUnauthorizedError("invalid credentials")
		}
		return nil, s.internal(ctx, "could not look up user", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, s.internal(ctx, "could not verify password", err)
	}
	if !ok {
		s.log.DebugContext(ctx, "login rejected", "user_id", user.ID)
		return nil, utils.NewUnauthorizedError("invalid credentials")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, s.internal(ctx, "could not generate token", err)
	}

	return &LoginResult{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
		User:      user,
	}, nil
}

// RecoverPassword acknowledges a recovery request for a registered email.
// No reset token is issued; the notifier only tells the owner the request
// was received.
func (s *UserService) RecoverPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", utils.NewValidationError("email is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", utils.NewNotFoundError("email not registered")
		}
		return "", s.internal(ctx, "could not look up user", err)
	}

	if err := s.notifier.NotifyRecovery(ctx, *user); err != nil {
		s.log.WarnContext(ctx, "recovery notification failed", "user_id", user.ID, "error", err)
	}

	return fmt.Sprintf("password recovery instructions sent to %s", user.Email), nil
}

func (s *UserService) update(ctx context.Context, callerID, id int64, in UpdateInput, partial bool) (*models.User, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerID != id {
		return nil, utils.NewForbiddenError("you are not allowed to modify this user")
	}

	username, err := pick(in.Username, user.Username, partial, "username")
	if err != nil {
		return nil, err
	}
	email, err := pick(in.Email, user.Email, partial, "email")
	if err != nil {
		return nil, err
	}

	if email != user.Email {
		taken, err := s.users.EmailTaken(ctx, email, id)
		if err != nil {
			return nil, s.internal(ctx, "could not check existing users", err)
		}
		if taken {
			return nil, utils.NewConflictError("email already registered")
		}
	}

	if in.Password != nil && *in.Password == "" && partial {
		return nil, utils.NewValidationError("password must not be empty")
	}
	if in.Password != nil && *in.Password != "" {
		if err := s.checkPassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, s.internal(ctx, "could not secure password", err)
		}
		user.PasswordHash = hash
	}

	user.Username = username
	user.Email = email
	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, utils.NewNotFoundError("user not found")
		case errors.Is(err, repo.ErrConflict):
			return nil, utils.NewConflictError("username or email already registered")
		}
		return nil, s.internal(ctx, "could not update user", err)
	}

	s.log.InfoContext(ctx, "user updated", "user_id", id, "partial", partial)
	return user, nil
}

func (s *UserService) find(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, utils.NewNotFoundError("user not found")
		}
		return nil, s.internal(ctx, "could not load user", err)
	}
	return user, nil
}

func (s *UserService) checkPassword(password string) error {
	if len(password) < s.cfg.PasswordMinLen {
		return utils.NewValidationError(fmt.Sprintf("password must be at least %d characters", s.cfg.PasswordMinLen))
	}
	if len(password) > auth.MaxPasswordBytes {
		return utils.NewValidationError(fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes))
	}
	return nil
}

func (s *UserService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("dummy-password-for-timing")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func (s *UserService) internal(ctx context.Context, message string, err error) error {
	s.log.ErrorContext(ctx, message, "error", err)
	return utils.NewInternalError(message)
}

// pick resolves an optional field against its current value.
func pick(supplied *string, current string, partial bool, field string) (string, error) {
	if supplied == nil {
		return current, nil
	}
	value := strings.TrimSpace(*supplied)
	if value == "" {
		if partial {
			return "", utils.NewValidationError(field + " must not be empty")
		}
		return current, nil
	}
	return value, nil
}
