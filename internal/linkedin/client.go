// Package linkedin implements the OAuth2 / OpenID Connect flow against
// LinkedIn and normalizes the userinfo payload.
package linkedin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

const userinfoURL = "https://api.linkedin.com/v2/userinfo"

// Profile is the normalized identity returned by the provider.
type Profile struct {
	Subject string
	Name    string
	Email   string
	Picture string
}

// CanonicalProfileURL derives the stable profile URL from the provider's
// subject identifier. This is the key the directory matches unclaimed
// records against, so the derivation must never change shape.
func CanonicalProfileURL(subject string) string {
	if subject == "" {
		return ""
	}
	return "https://www.linkedin.com/in/" + subject
}

// Client wraps the OAuth2 authorization-code flow.
type Client struct {
	oauth      *oauth2.Config
	httpClient *http.Client
}

func New(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://www.linkedin.com/oauth/v2/authorization",
				TokenURL: "https://www.linkedin.com/oauth/v2/accessToken",
			},
		},
		httpClient: http.DefaultClient,
	}
}

// Configured reports whether provider credentials are present.
func (c *Client) Configured() bool {
	return c.oauth.ClientID != "" && c.oauth.ClientSecret != ""
}

// AuthURL builds the provider redirect for the given anti-CSRF state.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades the callback code for a token and fetches userinfo.
func (c *Client) Exchange(ctx context.Context, code string) (Profile, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("exchange code: %w", err)
	}
	return c.userinfo(ctx, token)
}

func (c *Client) userinfo(ctx context.Context, token *oauth2.Token) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userinfoURL, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Profile{}, fmt.Errorf("userinfo status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Profile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if payload.Sub == "" {
		return Profile{}, fmt.Errorf("userinfo missing subject")
	}

	return Profile{
		Subject: payload.Sub,
		Name:    payload.Name,
		Email:   payload.Email,
		Picture: payload.Picture,
	}, nil
}
