package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

// The unofficial web API surface: the same endpoints the browser client
// talks to, authenticated by cookies rather than OAuth app credentials.
const (
	defaultAPIBase     = "https://api.twitter.com/1.1"
	defaultUploadBase  = "https://upload.twitter.com/1.1"
	defaultGraphQLBase = "https://twitter.com/i/api/graphql"

	// Public bearer token of the twitter.com web client.
	bearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

	defaultTimeout = 30 * time.Second
)

type Config struct {
	Username string
	Email    string
	Password string
	// Timeout bounds each remote call attempt.
	Timeout time.Duration
}

// Client is a cookie-based client for one remote account. It is not safe
// for concurrent use; callers serialize access through the publish path.
type Client struct {
	cfg  Config
	http *http.Client

	apiBase     string
	uploadBase  string
	graphqlBase string

	guestToken string
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Jar:     jar,
			Timeout: cfg.Timeout,
		},
		apiBase:     defaultAPIBase,
		uploadBase:  defaultUploadBase,
		graphqlBase: defaultGraphQLBase,
	}
}

var cookieOrigin = &url.URL{Scheme: "https", Host: "twitter.com"}

// LoadCookies replaces the client's cookie jar with a previously exported
// session blob.
func (c *Client) LoadCookies(blob []byte) error {
	var values map[string]string
	if err := json.Unmarshal(blob, &values); err != nil {
		return fmt.Errorf("decoding session blob: %w", err)
	}
	if len(values) == 0 {
		return fmt.Errorf("session blob holds no cookies")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("creating cookie jar: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(values))
	for name, value := range values {
		cookies = append(cookies, &http.Cookie{
			Name:   name,
			Value:  value,
			Domain: ".twitter.com",
			Path:   "/",
			Secure: true,
		})
	}
	jar.SetCookies(cookieOrigin, cookies)
	c.http.Jar = jar
	c.guestToken = ""
	return nil
}

// ExportCookies serializes the current cookie jar as the session blob the
// credential store persists (name to value, same shape the cookies file
// has always had).
func (c *Client) ExportCookies() ([]byte, error) {
	values := map[string]string{}
	for _, cookie := range c.http.Jar.Cookies(cookieOrigin) {
		values[cookie.Name] = cookie.Value
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no session cookies to export")
	}
	return json.Marshal(values)
}

// Verify probes the session with a cheap authenticated call.
func (c *Client) Verify(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, c.apiBase+"/account/verify_credentials.json", nil, "", nil, nil)
}

func (c *Client) cookieValue(name string) string {
	for _, cookie := range c.http.Jar.Cookies(cookieOrigin) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-twitter-active-user", "yes")
	req.Header.Set("x-twitter-client-language", "en")
	if token := c.cookieValue("ct0"); token != "" {
		req.Header.Set("x-csrf-token", token)
	}
	if c.cookieValue("auth_token") != "" {
		req.Header.Set("x-twitter-auth-type", "OAuth2Session")
	} else if c.guestToken != "" {
		req.Header.Set("x-guest-token", c.guestToken)
	}
}

// call issues one request and decodes the JSON response into out when
// non-nil. Remote failures come back as *APIError; transport failures are
// wrapped as-is so the classifier can see them.
func (c *Client) call(ctx context.Context, method, rawURL string, body []byte, contentType string, headers map[string]string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.decorate(req)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling twitter: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return apiErrorFrom(resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
