package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"auth-portal/internal/auth"
	"auth-portal/internal/domain"
	"auth-portal/internal/repository"
)

var (
	// ErrMissingCredentials indicates the login request lacked an email or
	// a password.
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrIncorrectPassword indicates the supplied password did not match
	// the stored hash.
	ErrIncorrectPassword = errors.New("incorrect password")
	// ErrNoPasswordSet indicates the account exists but was created
	// through an external provider and has no password to check.
	ErrNoPasswordSet = errors.New("user does not have a password set")
	// ErrEmailTaken is returned when registering an address that already
	// has an account.
	ErrEmailTaken = errors.New("email already exists")
	// ErrInvalidCredentials is the generic login failure used when the
	// account is unknown and auto-registration is disabled.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserService describes user lifecycle and credential operations.
type UserService interface {
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	EnsureOAuthUser(ctx context.Context, email, name, username, image string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	SetImage(ctx context.Context, id int64, image string) (*domain.User, error)
}

type userService struct {
	users repository.UserRepository
	// autoRegister keeps the upstream behavior of creating an account the
	// first time an unknown email logs in. Off, unknown emails fail with
	// ErrInvalidCredentials like any other bad login.
	autoRegister bool
}

func NewUserService(users repository.UserRepository, autoRegister bool) UserService {
	return &userService{users: users, autoRegister: autoRegister}
}

// Authenticate validates an email/password pair against the store.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		if !s.autoRegister {
			return nil, ErrInvalidCredentials
		}
		return s.autoRegisterUser(ctx, email, password)
	}
	if err != nil {
		return nil, err
	}

	if !user.HasPassword() {
		return nil, ErrNoPasswordSet
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrIncorrectPassword
	}

	return sanitizeUser(user), nil
}

func (s *userService) autoRegisterUser(ctx context.Context, email, password string) (*domain.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		// lost the race against a concurrent first login
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

// Register creates a credentialed account. The duplicate-email failure is
// surfaced verbatim to the client, matching the product's current
// registration flow.
func (s *userService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

// EnsureOAuthUser resolves a verified external identity to a local user,
// creating the record on first sign-in and backfilling profile fields on
// later ones.
func (s *userService) EnsureOAuthUser(ctx context.Context, email, name, username, image string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("external identity has no email")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		user = &domain.User{
			Email:    email,
			Name:     name,
			Username: username,
			Image:    image,
			Role:     domain.RoleUser,
		}
		if _, err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		return sanitizeUser(user), nil
	}
	if err != nil {
		return nil, err
	}

	changed := false
	if user.Name == "" && name != "" {
		user.Name = name
		changed = true
	}
	if user.Username == "" && username != "" {
		user.Username = username
		changed = true
	}
	if user.Image == "" && image != "" {
		user.Image = image
		changed = true
	}
	if changed {
		if err := s.users.UpdateProfile(ctx, user); err != nil {
			return nil, err
		}
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

// SetImage replaces the user's profile image reference.
func (s *userService) SetImage(ctx context.Context, id int64, image string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Image = image
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// sanitizeUser strips the password hash before the user leaves the
// service layer.
func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clean := *user
	clean.PasswordHash = ""
	return &clean
}
