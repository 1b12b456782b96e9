package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/harbordocs/harbor/internal/domain"
)

const userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleScopes are requested at consent: profile and email for identity,
// drive.readonly for library sync.
var GoogleScopes = []string{
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/drive.readonly",
}

// GoogleProfile is the subset of the userinfo response we keep.
type GoogleProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleClient wraps the Google OAuth code exchange and userinfo lookup.
type GoogleClient struct {
	oauth *oauth2.Config
	http  *resty.Client
}

// NewGoogleClient creates a GoogleClient.
func NewGoogleClient(clientID, clientSecret, redirectURL string) *GoogleClient {
	return &GoogleClient{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       GoogleScopes,
			Endpoint:     google.Endpoint,
		},
		http: resty.New().SetTimeout(10 * time.Second),
	}
}

// ConsentURL builds the Google consent page URL. Offline access is requested
// so a refresh token is returned on first consent.
func (g *GoogleClient) ConsentURL(state string) string {
	return g.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for OAuth tokens.
func (g *GoogleClient) Exchange(ctx context.Context, code string) (*domain.OAuthTokens, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return &domain.OAuthTokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}, nil
}

// FetchProfile retrieves the authenticated user's Google profile.
func (g *GoogleClient) FetchProfile(ctx context.Context, accessToken string) (*GoogleProfile, error) {
	var profile GoogleProfile

	resp, err := g.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&profile).
		Get(userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("userinfo request failed with status %d", resp.StatusCode())
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("userinfo response missing id")
	}

	return &profile, nil
}

// TokenSource returns an auto-refreshing token source backed by the stored
// tokens. Refreshed tokens are visible through the source, not persisted here.
func (g *GoogleClient) TokenSource(ctx context.Context, tokens *domain.OAuthTokens) oauth2.TokenSource {
	return g.oauth.TokenSource(ctx, &oauth2.Token{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		Expiry:       tokens.Expiry,
	})
}
