package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"prism-connector/domain/model"
	"prism-connector/domain/repository"
	"prism-connector/infrastructure/logger"
)

const (
	defaultFacebookBase  = "https://graph.facebook.com/v19.0"
	defaultInstagramBase = "https://graph.instagram.com"
	defaultOAuthBase     = "https://api.instagram.com"
)

// Platform error subcodes that mean "slow down" rather than "broken".
var rateLimitCodes = map[int]bool{4: true, 17: true, 32: true, 613: true}

type Config struct {
	AppID       string
	AppSecret   string
	RedirectURI string

	// Base URL overrides for tests; empty means production hosts.
	FacebookBase  string
	InstagramBase string
	OAuthBase     string
}

// Client talks to the Graph API over HTTP and implements
// repository.IGraphClient. Credential kind picks the host per call.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.FacebookBase == "" {
		cfg.FacebookBase = defaultFacebookBase
	}
	if cfg.InstagramBase == "" {
		cfg.InstagramBase = defaultInstagramBase
	}
	if cfg.OAuthBase == "" {
		cfg.OAuthBase = defaultOAuthBase
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: 30 * time.Second}}
}

func (c *Client) host(kind model.CredentialKind) string {
	if kind == model.CredentialCreator {
		return c.cfg.InstagramBase
	}
	return c.cfg.FacebookBase
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type exchangeParams struct {
	ClientID     string `url:"client_id"`
	ClientSecret string `url:"client_secret"`
	GrantType    string `url:"grant_type"`
	RedirectURI  string `url:"redirect_uri,omitempty"`
	Code         string `url:"code,omitempty"`
}

// ExchangeCode turns an OAuth authorization code into a short-lived token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*repository.TokenInfo, error) {
	params, err := query.Values(exchangeParams{
		ClientID:     c.cfg.AppID,
		ClientSecret: c.cfg.AppSecret,
		GrantType:    "authorization_code",
		RedirectURI:  c.cfg.RedirectURI,
		Code:         code,
	})
	if err != nil {
		return nil, err
	}
	var tok tokenResponse
	if err := c.postForm(ctx, c.cfg.OAuthBase+"/oauth/access_token", params, &tok); err != nil {
		return nil, err
	}
	return &repository.TokenInfo{AccessToken: tok.AccessToken, ExpiresIn: tok.ExpiresIn}, nil
}

type extendParams struct {
	GrantType    string `url:"grant_type"`
	ClientSecret string `url:"client_secret"`
	AccessToken  string `url:"access_token"`
}

// ExtendToken upgrades a short-lived token to a long-lived one.
func (c *Client) ExtendToken(ctx context.Context, shortToken string) (*repository.TokenInfo, error) {
	params, err := query.Values(extendParams{
		GrantType:    "ig_exchange_token",
		ClientSecret: c.cfg.AppSecret,
		AccessToken:  shortToken,
	})
	if err != nil {
		return nil, err
	}
	var tok tokenResponse
	if err := c.get(ctx, c.cfg.InstagramBase+"/access_token", params, &tok); err != nil {
		return nil, err
	}
	return &repository.TokenInfo{AccessToken: tok.AccessToken, ExpiresIn: tok.ExpiresIn}, nil
}

// RefreshToken extends the lifetime of an existing long-lived token.
func (c *Client) RefreshToken(ctx context.Context, kind model.CredentialKind, accessToken string) (*repository.TokenInfo, error) {
	var endpoint string
	params := url.Values{}
	if kind == model.CredentialCreator {
		endpoint = c.cfg.InstagramBase + "/refresh_access_token"
		params.Set("grant_type", "ig_refresh_token")
		params.Set("access_token", accessToken)
	} else {
		endpoint = c.cfg.FacebookBase + "/oauth/access_token"
		params.Set("grant_type", "fb_exchange_token")
		params.Set("client_id", c.cfg.AppID)
		params.Set("client_secret", c.cfg.AppSecret)
		params.Set("fb_exchange_token", accessToken)
	}
	var tok tokenResponse
	if err := c.get(ctx, endpoint, params, &tok); err != nil {
		return nil, err
	}
	return &repository.TokenInfo{AccessToken: tok.AccessToken, ExpiresIn: tok.ExpiresIn}, nil
}

// ResolveViaPages walks the linked business pages looking for an attached
// professional account.
func (c *Client) ResolveViaPages(ctx context.Context, accessToken string) (string, string, error) {
	params := url.Values{}
	params.Set("fields", "name,instagram_business_account{id,username}")
	params.Set("access_token", accessToken)

	var out struct {
		Data []struct {
			Name string `json:"name"`
			IG   *struct {
				ID       string `json:"id"`
				Username string `json:"username"`
			} `json:"instagram_business_account"`
		} `json:"data"`
	}
	if err := c.get(ctx, c.cfg.FacebookBase+"/me/accounts", params, &out); err != nil {
		return "", "", err
	}
	for _, page := range out.Data {
		if page.IG != nil && page.IG.ID != "" {
			handle := page.IG.Username
			if handle == "" {
				handle = page.Name
			}
			return page.IG.ID, handle, nil
		}
	}
	return "", "", fmt.Errorf("no professional account attached to any page")
}

// ResolveViaMe reads the account's own metadata.
func (c *Client) ResolveViaMe(ctx context.Context, kind model.CredentialKind, accessToken string) (string, string, error) {
	params := url.Values{}
	params.Set("access_token", accessToken)
	var out struct {
		ID       string `json:"id"`
		UserID   string `json:"user_id"`
		Username string `json:"username"`
		Name     string `json:"name"`
	}
	if kind == model.CredentialCreator {
		params.Set("fields", "user_id,username")
	} else {
		params.Set("fields", "id,name")
	}
	if err := c.get(ctx, c.host(kind)+"/me", params, &out); err != nil {
		return "", "", err
	}
	accountID := out.ID
	if out.UserID != "" {
		accountID = out.UserID
	}
	handle := out.Username
	if handle == "" {
		handle = out.Name
	}
	if accountID == "" {
		return "", "", fmt.Errorf("me endpoint returned no account id")
	}
	return accountID, handle, nil
}

// CreateMediaContainer registers an image for publishing and returns the
// container creation id.
func (c *Client) CreateMediaContainer(ctx context.Context, kind model.CredentialKind, accountID, imageURL, caption, accessToken string) (string, error) {
	params := url.Values{}
	params.Set("image_url", imageURL)
	params.Set("caption", caption)
	params.Set("access_token", accessToken)

	var out struct {
		ID string `json:"id"`
	}
	endpoint := fmt.Sprintf("%s/%s/media", c.host(kind), accountID)
	if err := c.postForm(ctx, endpoint, params, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// ContainerStatus reports the processing state of a container:
// IN_PROGRESS, FINISHED, or ERROR.
func (c *Client) ContainerStatus(ctx context.Context, kind model.CredentialKind, creationID, accessToken string) (string, error) {
	params := url.Values{}
	params.Set("fields", "status_code")
	params.Set("access_token", accessToken)

	var out struct {
		StatusCode string `json:"status_code"`
	}
	endpoint := fmt.Sprintf("%s/%s", c.host(kind), creationID)
	if err := c.get(ctx, endpoint, params, &out); err != nil {
		return "", err
	}
	return out.StatusCode, nil
}

// PublishContainer commits a FINISHED container to the timeline.
func (c *Client) PublishContainer(ctx context.Context, kind model.CredentialKind, accountID, creationID, accessToken string) (string, error) {
	params := url.Values{}
	params.Set("creation_id", creationID)
	params.Set("access_token", accessToken)

	var out struct {
		ID string `json:"id"`
	}
	endpoint := fmt.Sprintf("%s/%s/media_publish", c.host(kind), accountID)
	if err := c.postForm(ctx, endpoint, params, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// PostCommentReply posts a reply under an existing comment.
func (c *Client) PostCommentReply(ctx context.Context, kind model.CredentialKind, commentID, message, accessToken string) error {
	params := url.Values{}
	params.Set("message", message)
	params.Set("access_token", accessToken)
	endpoint := fmt.Sprintf("%s/%s/replies", c.host(kind), commentID)
	var out struct {
		ID string `json:"id"`
	}
	return c.postForm(ctx, endpoint, params, &out)
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postForm(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

type platformError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var pe platformError
		_ = json.Unmarshal(body, &pe)
		if resp.StatusCode == http.StatusTooManyRequests || rateLimitCodes[pe.Error.Code] {
			return fmt.Errorf("%w: %s", repository.ErrPlatformRateLimited, pe.Error.Message)
		}
		msg := pe.Error.Message
		if msg == "" {
			msg = string(body)
		}
		logger.GetLogger().
			WithField("status", resp.StatusCode).
			WithField("path", req.URL.Path).
			Error("Graph API call failed")
		return fmt.Errorf("graph api %s: %s (code %d)", resp.Status, msg, pe.Error.Code)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("graph api response parse: %w", err)
	}
	return nil
}
