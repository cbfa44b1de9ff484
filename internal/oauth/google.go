// Package oauth drives the Google authorization-code flow. The gateway only
// relays the raw token payload and profile; it does not persist identities
// or establish sessions.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"
)

type Config struct {
	ClientID     string
	ClientSecret string
	AuthURI      string
	TokenURI     string
	UserInfoURI  string
	RedirectURI  string
}

func (c Config) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURI != ""
}

type GoogleClient struct {
	cfg    Config
	client *resty.Client
}

func NewGoogleClient(cfg Config) *GoogleClient {
	return &GoogleClient{cfg: cfg, client: resty.New()}
}

func (g *GoogleClient) Configured() bool {
	return g.cfg.Configured()
}

// AuthURL builds the provider authorization URL the client is redirected to.
func (g *GoogleClient) AuthURL() string {
	params := url.Values{
		"client_id":     {g.cfg.ClientID},
		"redirect_uri":  {g.cfg.RedirectURI},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
	}
	return g.cfg.AuthURI + "?" + params.Encode()
}

// ExchangeCode trades an authorization code for the provider's token payload.
func (g *GoogleClient) ExchangeCode(ctx context.Context, code string) (json.RawMessage, error) {
	res, err := g.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"code":          code,
			"client_id":     g.cfg.ClientID,
			"client_secret": g.cfg.ClientSecret,
			"redirect_uri":  g.cfg.RedirectURI,
			"grant_type":    "authorization_code",
		}).
		Post(g.cfg.TokenURI)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("token endpoint returned status %d: %s", res.StatusCode(), res.String())
	}

	return json.RawMessage(res.Body()), nil
}

// UserInfo fetches the provider profile for an access token.
func (g *GoogleClient) UserInfo(ctx context.Context, accessToken string) (json.RawMessage, error) {
	res, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Get(g.cfg.UserInfoURI)
	if err != nil {
		return nil, fmt.Errorf("fetching user info: %w", err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("userinfo endpoint returned status %d: %s", res.StatusCode(), res.String())
	}

	return json.RawMessage(res.Body()), nil
}
