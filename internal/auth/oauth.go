package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

var (
	// ErrUnknownProvider is returned when a sign-in names a provider that
	// was never registered with the gateway.
	ErrUnknownProvider = errors.New("unknown identity provider")
	// ErrProvider wraps failures coming back from an external identity
	// service. Opaque to callers; details stay in the wrapped error.
	ErrProvider = errors.New("identity provider request failed")
)

// Profile is the identity an external provider vouches for.
type Profile struct {
	Email    string
	Name     string
	Username string
	Image    string
}

// OAuthProvider holds the code-exchange configuration for one external
// identity service.
type OAuthProvider struct {
	Name        string
	config      *oauth2.Config
	userInfoURL string
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return &OAuthProvider{
		Name: "google",
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}
}

func NewGitHubProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	return &OAuthProvider{
		Name: "github",
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		userInfoURL: "https://api.github.com/user",
	}
}

// AuthCodeURL builds the external redirect that starts the provider flow.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for a provider access token.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange code with %s: %w", ErrProvider, p.Name, err)
	}
	return token, nil
}

// FetchProfile retrieves the verified identity behind a provider token.
func (p *OAuthProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	client := p.config.Client(ctx, token)
	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s profile: %w", ErrProvider, p.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s userinfo returned %d", ErrProvider, p.Name, resp.StatusCode)
	}

	var raw struct {
		Email     string `json:"email"`
		Name      string `json:"name"`
		Login     string `json:"login"`
		Picture   string `json:"picture"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode %s profile: %w", ErrProvider, p.Name, err)
	}
	if raw.Email == "" {
		return nil, fmt.Errorf("%w: %s profile has no email", ErrProvider, p.Name)
	}

	profile := &Profile{
		Email:    raw.Email,
		Name:     raw.Name,
		Username: raw.Login,
		Image:    raw.Picture,
	}
	if profile.Image == "" {
		profile.Image = raw.AvatarURL
	}
	return profile, nil
}
