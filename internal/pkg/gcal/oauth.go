package gcal

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
)

// Refresher trades a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Exchanger completes the authorization code flow.
type Exchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// OAuthClient is the oauth2 backed Refresher and Exchanger.
type OAuthClient struct {
	cfg *oauth2.Config
}

func NewOAuthClient(cfg config.GoogleConfig) *OAuthClient {
	return &OAuthClient{cfg: &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarScope},
	}}
}

// AuthCodeURL asks for offline access and forces the consent screen so
// Google hands out a refresh token every time.
func (c *OAuthClient) AuthCodeURL(state string) string {
	return c.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (c *OAuthClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.cfg.Exchange(ctx, code)
}

func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return c.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}
