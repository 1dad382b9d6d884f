// Package websession holds the explicit session context shared by the
// data-entry components: the metadata service base URL, an HTTP client
// with a cookie jar, and optional cookie persistence between runs.
package websession

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"hypda/entry/internal/kv"
)

const (
	// CSRFCookieName is the cookie carrying the anti-forgery token.
	CSRFCookieName = "csrf_access_token"
	// CSRFHeader is the request header the token is echoed in.
	CSRFHeader = "X-CSRF-TOKEN"

	cookiesKey = "cookies"
)

type Session struct {
	base    *url.URL
	jar     *cookiejar.Jar
	client  *http.Client
	storage kv.Store
}

// Option configures the session.
type Option func(*Session)

// WithTimeout sets an overall per-request timeout. The default is none.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.client.Timeout = d }
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Session) { s.client.Transport = rt }
}

// WithStorage enables SaveCookies/RestoreCookies against store.
func WithStorage(store kv.Store) Option {
	return func(s *Session) { s.storage = store }
}

func New(baseURL string, opts ...Option) (*Session, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	s := &Session{
		base:   base,
		jar:    jar,
		client: &http.Client{Jar: jar},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Client returns the credential-carrying HTTP client.
func (s *Session) Client() *http.Client {
	return s.client
}

// URL resolves an endpoint path against the base URL.
func (s *Session) URL(path string) string {
	return s.base.String() + "/" + strings.TrimLeft(path, "/")
}

// Cookie returns the value of the cookie named exactly name.
func (s *Session) Cookie(name string) (string, bool) {
	for _, c := range s.jar.Cookies(s.cookieURL()) {
		if c.Name == name {
			return c.Value, c.Value != ""
		}
	}
	return "", false
}

func (s *Session) CSRFToken() (string, bool) {
	return s.Cookie(CSRFCookieName)
}

// SetCookie places a cookie for the base URL in the jar.
func (s *Session) SetCookie(name, value string) {
	s.jar.SetCookies(s.cookieURL(), []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SaveCookies writes the jar's cookies for the base URL to storage.
func (s *Session) SaveCookies(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	cookies := s.jar.Cookies(s.cookieURL())
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}
	if err := s.storage.Set(ctx, cookiesKey, string(data)); err != nil {
		return fmt.Errorf("save cookies: %w", err)
	}
	return nil
}

// RestoreCookies loads cookies saved by SaveCookies back into the jar.
func (s *Session) RestoreCookies(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	raw, ok, err := s.storage.Get(ctx, cookiesKey)
	if err != nil {
		return fmt.Errorf("load cookies: %w", err)
	}
	if !ok {
		return nil
	}
	var stored []storedCookie
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return fmt.Errorf("decode cookies: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	s.jar.SetCookies(s.cookieURL(), cookies)
	return nil
}

func (s *Session) cookieURL() *url.URL {
	u := *s.base
	u.Path = "/"
	return &u
}
