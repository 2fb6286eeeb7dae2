package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"auth-portal/internal/domain"
)

// DefaultCookieName is the cookie carrying the session token unless
// configuration overrides it.
const DefaultCookieName = "authportal_session"

const sessionContextKey = "auth.session"

// CredentialAuthenticator verifies an email/password pair against the
// user store.
type CredentialAuthenticator interface {
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
}

// IdentityRegistrar creates or links a local user for a verified external
// identity.
type IdentityRegistrar interface {
	EnsureOAuthUser(ctx context.Context, email, name, username, image string) (*domain.User, error)
}

// ProviderKind tags the sign-in dispatch variant.
type ProviderKind int

const (
	ProviderCredentials ProviderKind = iota
	ProviderOAuth
)

// SignInRequest selects an identity provider and carries its inputs.
// Email/Password apply to ProviderCredentials; Provider and ReturnPath
// apply to ProviderOAuth.
type SignInRequest struct {
	Kind       ProviderKind
	Provider   string
	Email      string
	Password   string
	ReturnPath string
}

// SignInResult is either an issued session (credentials) or an external
// redirect to follow (OAuth).
type SignInResult struct {
	Token       string
	User        *domain.User
	RedirectURL string
	State       string
	ReturnPath  string
}

// Gateway owns session issuance and validation and dispatches sign-ins to
// the registered identity providers.
type Gateway struct {
	secret      []byte
	tokenTTL    time.Duration
	cookieName  string
	credentials CredentialAuthenticator
	registrar   IdentityRegistrar
	providers   map[string]*OAuthProvider
}

func NewGateway(secret string, tokenTTL time.Duration, cookieName string, credentials CredentialAuthenticator, registrar IdentityRegistrar) *Gateway {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Gateway{
		secret:      []byte(secret),
		tokenTTL:    tokenTTL,
		cookieName:  cookieName,
		credentials: credentials,
		registrar:   registrar,
		providers:   make(map[string]*OAuthProvider),
	}
}

// RegisterProvider makes an external provider available for dispatch.
func (g *Gateway) RegisterProvider(p *OAuthProvider) {
	g.providers[p.Name] = p
}

// Providers lists the names of the registered external providers.
func (g *Gateway) Providers() []string {
	names := make([]string, 0, len(g.providers))
	for name := range g.providers {
		names = append(names, name)
	}
	return names
}

// SignIn dispatches to the provider selected by the request kind.
func (g *Gateway) SignIn(ctx context.Context, req SignInRequest) (*SignInResult, error) {
	switch req.Kind {
	case ProviderCredentials:
		user, err := g.credentials.Authenticate(ctx, req.Email, req.Password)
		if err != nil {
			return nil, err
		}
		token, err := g.IssueSession(user)
		if err != nil {
			return nil, err
		}
		return &SignInResult{Token: token, User: user}, nil
	case ProviderOAuth:
		return g.BeginOAuthLogin(req.Provider, req.ReturnPath)
	default:
		return nil, fmt.Errorf("unsupported provider kind %d", req.Kind)
	}
}

// BeginOAuthLogin starts the redirect flow for a named provider. No local
// validation happens here; the provider callback completes the login.
func (g *Gateway) BeginOAuthLogin(providerName, returnPath string) (*SignInResult, error) {
	provider, ok := g.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerName)
	}

	state := uuid.NewString()
	return &SignInResult{
		RedirectURL: provider.AuthCodeURL(state),
		State:       state,
		ReturnPath:  returnPath,
	}, nil
}

// CompleteOAuthLogin exchanges the callback code, resolves the external
// identity to a local user and issues a session for it.
func (g *Gateway) CompleteOAuthLogin(ctx context.Context, providerName, code string) (*domain.User, string, error) {
	provider, ok := g.providers[providerName]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownProvider, providerName)
	}

	token, err := provider.Exchange(ctx, code)
	if err != nil {
		return nil, "", err
	}

	profile, err := provider.FetchProfile(ctx, token)
	if err != nil {
		return nil, "", err
	}

	user, err := g.registrar.EnsureOAuthUser(ctx, profile.Email, profile.Name, profile.Username, profile.Image)
	if err != nil {
		return nil, "", err
	}

	session, err := g.IssueSession(user)
	if err != nil {
		return nil, "", err
	}
	return user, session, nil
}

// WriteSession delivers a session token to the client as an http-only
// cookie scoped to the whole site.
func (g *Gateway) WriteSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(g.cookieName, token, int(g.tokenTTL/time.Second), "/", "", false, true)
}

// CurrentSession reads the session for this request, parsing the cookie at
// most once and caching the result in the request context. Absence is a
// normal outcome, not an error.
func (g *Gateway) CurrentSession(c *gin.Context) (*Session, bool) {
	if cached, exists := c.Get(sessionContextKey); exists {
		session, _ := cached.(*Session)
		return session, session != nil
	}

	var session *Session
	if token, err := c.Cookie(g.cookieName); err == nil && token != "" {
		if parsed, err := g.ParseSession(token); err == nil {
			session = parsed
		}
	}
	c.Set(sessionContextKey, session)
	return session, session != nil
}

// EndSession invalidates the session cookie. Ending an already-ended
// session is a no-op.
func (g *Gateway) EndSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(g.cookieName, "", -1, "/", "", false, true)
	c.Set(sessionContextKey, (*Session)(nil))
}

// IsProviderError reports whether err originated in the external provider
// flow (unknown provider or a failed provider request).
func IsProviderError(err error) bool {
	return errors.Is(err, ErrProvider) || errors.Is(err, ErrUnknownProvider)
}
