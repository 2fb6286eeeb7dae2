package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"auth-portal/internal/domain"
)

type fakeAuthenticator struct {
	user *domain.User
	err  error

	gotEmail    string
	gotPassword string
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, email, password string) (*domain.User, error) {
	f.gotEmail = email
	f.gotPassword = password
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type fakeRegistrar struct {
	user *domain.User
}

func (f *fakeRegistrar) EnsureOAuthUser(_ context.Context, email, name, username, image string) (*domain.User, error) {
	return f.user, nil
}

func newTestGateway(creds CredentialAuthenticator) *Gateway {
	return NewGateway("test-secret", time.Hour, "", creds, &fakeRegistrar{})
}

func testUser() *domain.User {
	return &domain.User{ID: 42, Email: "a@b.c", Role: domain.RoleUser}
}

func TestIssueAndParseSession(t *testing.T) {
	t.Parallel()

	g := newTestGateway(nil)
	token, err := g.IssueSession(testUser())
	require.NoError(t, err)

	session, err := g.ParseSession(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), session.UserID)
	require.Equal(t, "a@b.c", session.Email)
	require.Equal(t, domain.RoleUser, session.Role)
	require.True(t, session.ExpiresAt.After(time.Now()))
}

func TestParseSession_Expired(t *testing.T) {
	t.Parallel()

	g := NewGateway("test-secret", -time.Minute, "", nil, nil)
	token, err := g.IssueSession(testUser())
	require.NoError(t, err)

	_, err = g.ParseSession(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseSession_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer := newTestGateway(nil)
	token, err := issuer.IssueSession(testUser())
	require.NoError(t, err)

	verifier := NewGateway("other-secret", time.Hour, "", nil, nil)
	_, err = verifier.ParseSession(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseSession_Garbage(t *testing.T) {
	t.Parallel()

	g := newTestGateway(nil)
	_, err := g.ParseSession("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignIn_CredentialsDispatch(t *testing.T) {
	t.Parallel()

	authn := &fakeAuthenticator{user: testUser()}
	g := newTestGateway(authn)

	result, err := g.SignIn(context.Background(), SignInRequest{
		Kind:     ProviderCredentials,
		Email:    "a@b.c",
		Password: "pass",
	})
	require.NoError(t, err)
	require.Equal(t, "a@b.c", authn.gotEmail)
	require.Equal(t, "pass", authn.gotPassword)
	require.NotEmpty(t, result.Token)
	require.Empty(t, result.RedirectURL)

	session, err := g.ParseSession(result.Token)
	require.NoError(t, err)
	require.Equal(t, int64(42), session.UserID)
}

func TestSignIn_OAuthDispatch(t *testing.T) {
	t.Parallel()

	g := newTestGateway(nil)
	g.RegisterProvider(NewGoogleProvider("client-id", "client-secret", "http://localhost/cb"))

	result, err := g.SignIn(context.Background(), SignInRequest{
		Kind:       ProviderOAuth,
		Provider:   "google",
		ReturnPath: "/admin",
	})
	require.NoError(t, err)
	require.Empty(t, result.Token)
	require.NotEmpty(t, result.State)
	require.Equal(t, "/admin", result.ReturnPath)
	require.True(t, strings.Contains(result.RedirectURL, "client_id=client-id"))
	require.True(t, strings.Contains(result.RedirectURL, "state="+result.State))
}

func TestBeginOAuthLogin_UnknownProvider(t *testing.T) {
	t.Parallel()

	g := newTestGateway(nil)
	_, err := g.BeginOAuthLogin("gitlab", "/")
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestCurrentSession_CookieCycle(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	g := newTestGateway(nil)
	token, err := g.IssueSession(testUser())
	require.NoError(t, err)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})

	session, ok := g.CurrentSession(c)
	require.True(t, ok)
	require.Equal(t, int64(42), session.UserID)

	// second read hits the per-request cache
	cached, ok := g.CurrentSession(c)
	require.True(t, ok)
	require.Same(t, session, cached)
}

func TestCurrentSession_Absent(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	g := newTestGateway(nil)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	session, ok := g.CurrentSession(c)
	require.False(t, ok)
	require.Nil(t, session)
}

func TestEndSession_Idempotent(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	g := newTestGateway(nil)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/logout", nil)

	g.EndSession(c)
	g.EndSession(c)

	_, ok := g.CurrentSession(c)
	require.False(t, ok)
}
