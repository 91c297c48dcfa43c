package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	authcontext "github.com/inkpress/inkpress/auth/context"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	userRepo          UserRepository
	sessionRepo       SessionRepository
	minPasswordLength int
	bloomFilter       *BloomFilter
}

func NewService(userRepo UserRepository, sessionRepo SessionRepository, minPasswordLength int) *Service {
	return &Service{
		userRepo:          userRepo,
		sessionRepo:       sessionRepo,
		minPasswordLength: minPasswordLength,
	}
}

func (svc *Service) LoadBloomFilter(ctx context.Context, minCapacity uint, falsePositiveRate float64) error {
	usernames, err := svc.userRepo.ListUsernames(ctx)
	if err != nil {
		return fmt.Errorf("failed to list usernames for bloom filter: %w", err)
	}

	capacity := uint(len(usernames))
	if capacity < minCapacity {
		capacity = minCapacity
	}

	bf := NewBloomFilter(capacity, falsePositiveRate)
	for _, u := range usernames {
		bf.Add(u)
	}

	svc.bloomFilter = bf

	return nil
}

func HashPassword(password string) (string, error) {
	bcryptHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(bcryptHash), nil
}

// Register creates the account and immediately opens a session for it, so a
// successful signup does not need a separate login step. The username
// uniqueness decision belongs to the store; the bloom filter only skips the
// lookup for usernames it has definitely never seen.
func (svc *Service) Register(ctx context.Context, username, email, password string) (*Session, error) {
	if username == "" {
		return nil, &ValidationError{Field: "username", Reason: "must not be empty"}
	}

	if len(password) < svc.minPasswordLength {
		return nil, &ValidationError{
			Field:  "password",
			Reason: fmt.Sprintf("must be at least %d characters", svc.minPasswordLength),
		}
	}

	if svc.bloomFilter == nil || svc.bloomFilter.Test(username) {
		_, err := svc.userRepo.FindByUsername(ctx, username)
		if err != nil {
			var userByUsernameNotFoundErr *UserByUsernameNotFoundError
			if !errors.As(err, &userByUsernameNotFoundErr) {
				return nil, fmt.Errorf("failed to check if username already exists: %w", err)
			}
		} else {
			return nil, &UserAlreadyExistsError{Username: username}
		}
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		RegisteredAt: time.Now(),
	}

	err = svc.userRepo.Insert(ctx, user)
	if err != nil {
		var alreadyExistsErr *UserAlreadyExistsError
		if errors.As(err, &alreadyExistsErr) {
			if svc.bloomFilter != nil {
				svc.bloomFilter.Add(username)
			}

			return nil, alreadyExistsErr
		}

		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	if svc.bloomFilter != nil {
		svc.bloomFilter.Add(username)
	}

	session, err := svc.startSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to start session for new user: %w", err)
	}

	return session, nil
}

var ErrInvalidCredentials = errors.New("invalid credentials")

const defaultSessionDuration = 30 * 24 * time.Hour

// unknownUserPasswordHash is compared against when the username does not
// resolve, so both failure branches of Login cost one bcrypt comparison.
const unknownUserPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

func (svc *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := svc.userRepo.FindByUsername(ctx, username)
	if err != nil {
		var userByUsernameNotFoundErr *UserByUsernameNotFoundError
		if errors.As(err, &userByUsernameNotFoundErr) {
			_ = bcrypt.CompareHashAndPassword([]byte(unknownUserPasswordHash), []byte(password))

			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	session, err := svc.startSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (svc *Service) startSession(ctx context.Context, userID int64) (*Session, error) {
	timeNow := time.Now()

	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: timeNow,
		ExpiresAt: timeNow.Add(defaultSessionDuration),
	}

	err := svc.sessionRepo.Insert(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

func (svc *Service) Logout(ctx context.Context, sessionID string) error {
	err := svc.sessionRepo.Delete(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func (svc *Service) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	session, err := svc.sessionRepo.Find(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	now := time.Now()
	if session.ExpiresAt.Before(now) {
		// prune every expired session while we are here, not just this one
		_ = svc.sessionRepo.DeleteExpiredBefore(ctx, now)

		return nil, &SessionExpiredError{ID: sessionID}
	}

	return session, nil
}

func (svc *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	user, err := svc.userRepo.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}

	user.PasswordHash = "" // clear password hash before returning user

	return user, nil
}

func (svc *Service) GetCurrentUser(ctx context.Context) (*User, error) {
	userID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return nil, ErrCurrentUserNotFound
	}

	user, err := svc.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	return user, nil
}

// DeleteAccount removes the account. Sessions and comments referencing it are
// removed by the store in the same cascade.
func (svc *Service) DeleteAccount(ctx context.Context, userID int64) error {
	err := svc.userRepo.Delete(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}
