// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package wechat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/readmark/internal/config"
	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/metrics"
)

const (
	tokenPath      = "/cgi-bin/token"
	oauthPath      = "/sns/oauth2/access_token"
	customSendPath = "/cgi-bin/message/custom/send"
	menuCreatePath = "/cgi-bin/menu/create"
	authorizePath  = "/connect/oauth2/authorize"

	// tokenMargin is subtracted from expires_in so a cached token is never
	// used in its final minutes.
	tokenMargin = 5 * time.Minute
)

var (
	// ErrPlatform reports a non-zero errcode from the platform API.
	ErrPlatform = errors.New("wechat api error")

	// ErrNoCredentials is returned when app id or app secret is unset.
	ErrNoCredentials = errors.New("wechat credentials not configured")
)

// APIError carries the platform's errcode and errmsg.
type APIError struct {
	Code    int    `json:"errcode"`
	Message string `json:"errmsg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wechat api errcode %d: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return ErrPlatform }

// tokenExpired reports the errcodes for an invalid or expired access token.
func (e *APIError) tokenExpired() bool {
	return e.Code == 40001 || e.Code == 42001
}

// Pusher sends a text message to a follower outside the reply window.
type Pusher interface {
	SendText(ctx context.Context, openid, content string) error
}

var _ Pusher = (*Client)(nil)

// Client talks to the WeChat official account API.
type Client struct {
	appID     string
	appSecret string
	apiBase   string
	openBase  string

	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewClient creates a platform client. A non-positive push rate disables pacing.
func NewClient(cfg *config.WeChatConfig) *Client {
	limit := rate.Inf
	burst := 1
	if cfg.PushRatePerSecond > 0 {
		limit = rate.Limit(cfg.PushRatePerSecond)
		burst = max(1, int(cfg.PushRatePerSecond))
	}
	return &Client{
		appID:      cfg.AppID,
		appSecret:  cfg.AppSecret,
		apiBase:    strings.TrimRight(cfg.APIBaseURL, "/"),
		openBase:   strings.TrimRight(cfg.OpenBaseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(limit, burst),
		now:        time.Now,
	}
}

type tokenResponse struct {
	APIError
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// AccessToken returns a cached token or fetches a new one. Callers that
// arrive during a refresh wait for it instead of issuing their own.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.appID == "" || c.appSecret == "" {
		return "", ErrNoCredentials
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	q := url.Values{}
	q.Set("grant_type", "client_credential")
	q.Set("appid", c.appID)
	q.Set("secret", c.appSecret)

	var out tokenResponse
	err := c.getJSON(ctx, c.apiBase+tokenPath+"?"+q.Encode(), &out)
	if err == nil && out.AccessToken == "" {
		err = &out.APIError
	}
	metrics.RecordTokenRefresh(err)
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}

	c.token = out.AccessToken
	c.expires = c.now().Add(time.Duration(out.ExpiresIn)*time.Second - tokenMargin)
	return c.token, nil
}

// InvalidateToken drops the cached token.
func (c *Client) InvalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.expires = time.Time{}
	c.mu.Unlock()
}

type oauthResponse struct {
	APIError
	OpenID string `json:"openid"`
}

// ExchangeCode trades a web OAuth code for the follower's openid.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	q := url.Values{}
	q.Set("appid", c.appID)
	q.Set("secret", c.appSecret)
	q.Set("code", code)
	q.Set("grant_type", "authorization_code")

	var out oauthResponse
	if err := c.getJSON(ctx, c.apiBase+oauthPath+"?"+q.Encode(), &out); err != nil {
		return "", fmt.Errorf("exchange oauth code: %w", err)
	}
	if out.Code != 0 {
		return "", fmt.Errorf("exchange oauth code: %w", &out.APIError)
	}
	return out.OpenID, nil
}

// AuthorizeURL builds the snsapi_base authorize URL for the in-app browser.
func (c *Client) AuthorizeURL(redirectURI, state string) string {
	q := url.Values{}
	q.Set("appid", c.appID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "snsapi_base")
	q.Set("state", state)
	return c.openBase + authorizePath + "?" + q.Encode() + "#wechat_redirect"
}

type customMessage struct {
	ToUser  string      `json:"touser"`
	MsgType string      `json:"msgtype"`
	Text    textContent `json:"text"`
}

type textContent struct {
	Content string `json:"content"`
}

// SendText pushes a customer-service text message, waiting on the push
// limiter first. An expired token is refreshed and the send retried once.
func (c *Client) SendText(ctx context.Context, openid, content string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := customMessage{ToUser: openid, MsgType: "text", Text: textContent{Content: content}}
	err := c.postWithToken(ctx, customSendPath, msg)
	metrics.RecordWeChatPush(err)
	return err
}

// Menu is the custom menu definition.
type Menu struct {
	Buttons []MenuButton `json:"button"`
}

// MenuButton is a top-level or nested menu entry.
type MenuButton struct {
	Type       string       `json:"type,omitempty"`
	Name       string       `json:"name"`
	Key        string       `json:"key,omitempty"`
	URL        string       `json:"url,omitempty"`
	SubButtons []MenuButton `json:"sub_button,omitempty"`
}

// DefaultMenu is the account menu: the site entry plus reader services.
func DefaultMenu(loginURL string) Menu {
	return Menu{Buttons: []MenuButton{
		{Type: "view", Name: "图书首页", URL: loginURL},
		{Name: "读者服务", SubButtons: []MenuButton{
			{Type: "click", Name: "账号绑定", Key: KeyBind},
			{Type: "click", Name: "图书推荐", Key: KeyRecommend},
			{Type: "click", Name: "解除绑定", Key: KeyUnbind},
		}},
	}}
}

// CreateMenu replaces the account's custom menu.
func (c *Client) CreateMenu(ctx context.Context, menu Menu) error {
	if err := c.postWithToken(ctx, menuCreatePath, menu); err != nil {
		return fmt.Errorf("create menu: %w", err)
	}
	logging.Ctx(ctx).Info().Int("buttons", len(menu.Buttons)).Msg("wechat menu created")
	return nil
}

func (c *Client) postWithToken(ctx context.Context, path string, payload interface{}) error {
	body, err := marshalUnescaped(payload)
	if err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		token, err := c.AccessToken(ctx)
		if err != nil {
			return err
		}

		var out APIError
		endpoint := c.apiBase + path + "?access_token=" + url.QueryEscape(token)
		if err := c.postJSON(ctx, endpoint, body, &out); err != nil {
			return err
		}
		if out.Code == 0 {
			return nil
		}
		if out.tokenExpired() && attempt == 0 {
			c.InvalidateToken()
			continue
		}
		return &out
	}
}

// marshalUnescaped keeps <, > and & literal in message content.
func marshalUnescaped(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wechat request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wechat request %s: status %d", req.URL.Path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode wechat response: %w", err)
	}
	return nil
}
