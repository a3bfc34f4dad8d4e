package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Emperor-Koala/ekreader/internal/client/credstore"
	"github.com/Emperor-Koala/ekreader/internal/models"
)

const (
	identityPath = "/api/v2/users/me"
	logoutPath   = "/api/logout"
)

// Config carries the dependencies and knobs for a Manager.
type Config struct {
	// Store is the credential store; required.
	Store credstore.Store
	// Log is the structured logger; required.
	Log *zap.Logger
	// LoginTimeout bounds the login credential probe. Default 5s.
	LoginTimeout time.Duration
	// RequestTimeout bounds every request made through Client(). Default 30s.
	RequestTimeout time.Duration
	// Transport is the base transport under the hook pipeline.
	// Default http.DefaultTransport.
	Transport http.RoundTripper
	// Now is the clock used for remember-token expiry. Default time.Now.
	Now func() time.Time
}

// Manager owns the authentication session: it builds the hooked HTTP client
// every other component uses, and implements login, logout, and the
// current-user snapshot.
type Manager struct {
	store        credstore.Store
	client       *http.Client
	log          *zap.Logger
	now          func() time.Time
	loginTimeout time.Duration

	mu      sync.Mutex
	pending bool
	user    *models.AuthUser
}

// NewManager builds a Manager and its credential-hooked HTTP client.
func NewManager(cfg Config) *Manager {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	loginTimeout := cfg.LoginTimeout
	if loginTimeout <= 0 {
		loginTimeout = 5 * time.Second
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	m := &Manager{
		store:        cfg.Store,
		log:          cfg.Log,
		now:          now,
		loginTimeout: loginTimeout,
	}

	pipeline := NewPipeline(cfg.Transport)
	pipeline.OnRequest(func(req *http.Request) error {
		if cookie := BuildCookieHeader(req.Context(), m.store, m.now()); cookie != "" {
			req.Header.Set("Cookie", cookie)
		}
		return nil
	})
	pipeline.OnResponse(func(resp *http.Response) error {
		if headers := resp.Header.Values("Set-Cookie"); len(headers) > 0 {
			ctx := context.Background()
			if resp.Request != nil {
				ctx = resp.Request.Context()
			}
			CaptureSetCookies(ctx, m.store, headers, m.log)
		}
		return nil
	})

	m.client = &http.Client{
		Transport: pipeline,
		Timeout:   requestTimeout,
	}
	return m
}

// Client returns the HTTP client whose transport injects and captures
// credentials. All authenticated traffic must go through it.
func (m *Manager) Client() *http.Client {
	return m.client
}

// Login probes the identity endpoint with basic credentials. On success the
// server URL is persisted as the base URL for subsequent requests and the
// returned user is cached. Failures are typed: ErrMissingCredentials for
// empty inputs (no network call), ErrLoginInFlight when another attempt is
// pending, ErrTimeout when the probe deadline passes, *StatusError for an
// HTTP error response, and a generic error otherwise. The session cookies
// themselves arrive via Set-Cookie and are captured by the pipeline.
func (m *Manager) Login(ctx context.Context, server, email, password string) (*models.AuthUser, error) {
	if server == "" || email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	m.mu.Lock()
	if m.pending {
		m.mu.Unlock()
		return nil, ErrLoginInFlight
	}
	m.pending = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.pending = false
		m.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, m.loginTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server+identityPath, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	req.URL.RawQuery = url.Values{"remember-me": {"true"}}.Encode()
	req.SetBasicAuth(email, password)

	resp, err := m.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("no response from server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var user models.AuthUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user payload: %w", err)
	}

	if err := m.store.Set(ctx, credstore.ServerKey, server); err != nil {
		return nil, fmt.Errorf("persist server URL: %w", err)
	}

	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()

	m.log.Info("logged in", zap.String("user", user.Email))
	return &user, nil
}

// Logout posts to the server logout endpoint (best effort), deletes both
// credential tokens, and clears the cached user snapshot. Logging out twice
// is not an error.
func (m *Manager) Logout(ctx context.Context) error {
	if server, err := m.store.Get(ctx, credstore.ServerKey); err == nil && server != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+logoutPath, nil)
		if err == nil {
			if resp, err := m.client.Do(req); err == nil {
				resp.Body.Close()
			} else {
				m.log.Debug("server logout failed", zap.Error(err))
			}
		}
	}

	if err := m.store.Delete(ctx, credstore.SessionKey); err != nil {
		return fmt.Errorf("delete session token: %w", err)
	}
	if err := m.store.Delete(ctx, credstore.RememberKey); err != nil {
		return fmt.Errorf("delete remember token: %w", err)
	}

	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()
	return nil
}

// CurrentUser re-derives the authenticated-user snapshot through the normal
// credential pipeline. It returns (nil, nil) when no server URL is stored,
// when no session token is present (no network call is made), and on any
// transport or HTTP failure: an expired credential is an expected
// steady-state condition, not an error to surface.
func (m *Manager) CurrentUser(ctx context.Context) (*models.AuthUser, error) {
	server, err := m.store.Get(ctx, credstore.ServerKey)
	if err != nil || server == "" {
		return nil, nil
	}
	if _, err := m.store.Get(ctx, credstore.SessionKey); err != nil {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server+identityPath, nil)
	if err != nil {
		return nil, nil
	}
	req.URL.RawQuery = url.Values{"remember-me": {"true"}}.Encode()

	resp, err := m.client.Do(req)
	if err != nil {
		m.log.Debug("current-user refresh failed", zap.Error(err))
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		m.log.Debug("current-user refresh rejected", zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	var user models.AuthUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		m.log.Debug("current-user payload unreadable", zap.Error(err))
		return nil, nil
	}

	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()
	return &user, nil
}

// CachedUser returns the last known user snapshot without a network call.
func (m *Manager) CachedUser() *models.AuthUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// Invalidate drops the cached user snapshot; the next CurrentUser call
// re-fetches it.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
