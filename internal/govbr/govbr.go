// Package govbr completes the Gov.br authorization-code flow and extracts
// the identity attributes the registry links accounts on: the stable
// subject id, e-mail and display name.
package govbr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/epessoa/epessoa/internal/config"
)

// ErrMissingSubject means the userinfo response carried no stable subject
// id. No local account may be created or linked from such an assertion.
var ErrMissingSubject = errors.New("govbr: userinfo sem sub")

type UserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Client struct {
	oauth       *oauth2.Config
	userInfoURL string
}

func New(cfg config.GovbrConfig) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

// Enabled reports whether the provider has been configured at all.
func (c *Client) Enabled() bool {
	return c != nil && c.oauth.ClientID != ""
}

func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("govbr: troca do código: %w", err)
	}
	return tok, nil
}

// UserInfo fetches the provider userinfo document with the exchanged token.
func (c *Client) UserInfo(ctx context.Context, tok *oauth2.Token) (*UserInfo, error) {
	httpClient := c.oauth.Client(ctx, tok)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("govbr: userinfo request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("govbr: userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("govbr: userinfo respondeu %d: %s", resp.StatusCode, body)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("govbr: userinfo decode: %w", err)
	}

	if info.Sub == "" {
		return nil, ErrMissingSubject
	}
	return &info, nil
}
