package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"auth-portal/internal/domain"
	"auth-portal/internal/repository"
)

// fakeUserRepo is an in-memory repository.UserRepository keyed by email.
type fakeUserRepo struct {
	byEmail map[string]*domain.User
	nextID  int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Init(context.Context) error { return nil }

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (int64, error) {
	if _, exists := r.byEmail[user.Email]; exists {
		return 0, repository.ErrDuplicateEmail
	}
	r.nextID++
	user.ID = r.nextID
	clone := *user
	r.byEmail[user.Email] = &clone
	return user.ID, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	for _, user := range r.byEmail {
		if user.ID == id {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, user *domain.User) error {
	for email, existing := range r.byEmail {
		if existing.ID == user.ID {
			clone := *user
			clone.Email = email
			clone.PasswordHash = existing.PasswordHash
			r.byEmail[email] = &clone
			return nil
		}
	}
	return repository.ErrNotFound
}

func TestRegisterThenAuthenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewUserService(newFakeUserRepo(), false)

	user, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", user.Email)
	require.Empty(t, user.PasswordHash, "hash must not leave the service layer")

	authed, err := svc.Authenticate(ctx, "ada@example.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, user.ID, authed.ID)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewUserService(newFakeUserRepo(), false)

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "ada@example.com", "nope")
	require.ErrorIs(t, err, ErrIncorrectPassword)
}

func TestAuthenticate_MissingCredentials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewUserService(newFakeUserRepo(), true)

	_, err := svc.Authenticate(ctx, "", "pass")
	require.ErrorIs(t, err, ErrMissingCredentials)

	_, err = svc.Authenticate(ctx, "ada@example.com", "")
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestAuthenticate_UnknownEmailAutoRegisters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := NewUserService(repo, true)

	user, err := svc.Authenticate(ctx, "new@example.com", "first-login")
	require.NoError(t, err)
	require.NotZero(t, user.ID)

	// the created account is a real one: same pair logs in again
	again, err := svc.Authenticate(ctx, "new@example.com", "first-login")
	require.NoError(t, err)
	require.Equal(t, user.ID, again.ID)

	_, err = svc.Authenticate(ctx, "new@example.com", "other-pass")
	require.ErrorIs(t, err, ErrIncorrectPassword)
}

func TestAuthenticate_UnknownEmailWithoutAutoRegister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewUserService(newFakeUserRepo(), false)

	_, err := svc.Authenticate(ctx, "ghost@example.com", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_NoPasswordSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewUserService(newFakeUserRepo(), true)

	_, err := svc.EnsureOAuthUser(ctx, "oauth@example.com", "OAuth User", "oauthy", "")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "oauth@example.com", "any-pass")
	require.ErrorIs(t, err, ErrNoPasswordSet)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewUserService(newFakeUserRepo(), false)

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Imposter", "ada@example.com", "other-pass")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_WhitespacePasswordIsAccepted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewUserService(newFakeUserRepo(), false)

	// a 4-space password satisfies the form length rules and must hash
	// like any other
	_, err := svc.Register(ctx, "Ada", "ada@example.com", "    ")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "ada@example.com", "    ")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "ada@example.com", "   ")
	require.ErrorIs(t, err, ErrIncorrectPassword)
}

func TestRegister_NormalizesEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewUserService(newFakeUserRepo(), false)

	_, err := svc.Register(ctx, "Ada", "  Ada@Example.COM ", "hunter22")
	require.NoError(t, err)

	authed, err := svc.Authenticate(ctx, "ada@example.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", authed.Email)
}

func TestEnsureOAuthUser_BackfillsProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewUserService(newFakeUserRepo(), false)

	first, err := svc.EnsureOAuthUser(ctx, "dev@example.com", "", "", "")
	require.NoError(t, err)

	second, err := svc.EnsureOAuthUser(ctx, "dev@example.com", "Dev User", "devuser", "https://example.com/pic.png")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Dev User", second.Name)
	require.Equal(t, "devuser", second.Username)
	require.Equal(t, "https://example.com/pic.png", second.Image)
}

func TestGetByEmail_AbsentIsNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewUserService(newFakeUserRepo(), false)

	_, err := svc.GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
