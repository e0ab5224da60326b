package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/KayTeo/mimir-extension/internal/errs"
	"github.com/KayTeo/mimir-extension/pkg/identity"
)

// Client talks to the hosted GoTrue auth endpoint. It keeps the single
// authoritative session for the process and notifies registered state
// listeners on every sign-in and sign-out.
type Client struct {
	baseURL string
	anonKey string
	client  *http.Client

	mu        sync.Mutex
	session   *identity.Session
	listeners []identity.StateListener
}

var _ identity.Provider = &Client{}

func NewClient(baseURL, anonKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Wire structs ---

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		Id    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e errorResponse) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return "unknown auth error"
}

func (c *Client) post(ctx context.Context, path string, body interface{}, bearer string) ([]byte, int, error) {
	var buf io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		buf = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, buf)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return bodyBytes, resp.StatusCode, nil
}

func (c *Client) tokenCall(ctx context.Context, path string, body interface{}) (*identity.Session, error) {
	bodyBytes, status, err := c.post(ctx, path, body, "")
	if err != nil {
		return nil, &errs.AuthError{Message: "token request failed", Cause: err}
	}

	if status != http.StatusOK {
		var errResp errorResponse
		_ = json.Unmarshal(bodyBytes, &errResp)
		text := errResp.text()
		return nil, &errs.AuthError{
			Message:        text,
			InvalidRefresh: isInvalidRefresh(text),
		}
	}

	var tok tokenResponse
	if err := json.Unmarshal(bodyBytes, &tok); err != nil {
		return nil, &errs.AuthError{Message: "unparsable token response", Cause: err}
	}

	session := &identity.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
		User:         identity.User{Id: tok.User.Id, Email: tok.User.Email},
	}

	c.setCurrent(session)
	c.notify(identity.EventSignedIn, session)
	return session, nil
}

func isInvalidRefresh(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "invalid refresh token") ||
		strings.Contains(lower, "refresh token not found") ||
		strings.Contains(lower, "refresh_token_not_found")
}

// --- Provider implementation ---

func (c *Client) SignUpWithEmail(ctx context.Context, email, password string) (*identity.Session, error) {
	return c.tokenCall(ctx, "/auth/v1/signup", map[string]string{
		"email":    email,
		"password": password,
	})
}

// VerifyEmail confirms a signup OTP; GoTrue answers with a fresh session.
func (c *Client) VerifyEmail(ctx context.Context, email, token string) (*identity.Session, error) {
	return c.tokenCall(ctx, "/auth/v1/verify", map[string]string{
		"type":  "signup",
		"email": email,
		"token": token,
	})
}

func (c *Client) SignInWithEmail(ctx context.Context, email, password string) (*identity.Session, error) {
	return c.tokenCall(ctx, "/auth/v1/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (c *Client) SignInWithIDToken(ctx context.Context, provider, idToken string) (*identity.Session, error) {
	return c.tokenCall(ctx, "/auth/v1/token?grant_type=id_token", map[string]string{
		"provider": provider,
		"id_token": idToken,
	})
}

func (c *Client) SetSession(ctx context.Context, session *identity.Session) (*identity.Session, error) {
	if session == nil {
		return nil, &errs.AuthError{Message: "no session to establish"}
	}

	// Still valid: adopt as-is without a network round-trip.
	if session.AccessToken != "" && time.Until(session.ExpiresAt) > time.Minute {
		c.setCurrent(session)
		return session, nil
	}

	return c.tokenCall(ctx, "/auth/v1/token?grant_type=refresh_token", map[string]string{
		"refresh_token": session.RefreshToken,
	})
}

func (c *Client) SignOut(ctx context.Context) error {
	current := c.current()
	if current != nil {
		// Best effort server-side revocation; local state is cleared
		// regardless.
		if _, _, err := c.post(ctx, "/auth/v1/logout", nil, current.AccessToken); err != nil {
			c.setCurrent(nil)
			c.notify(identity.EventSignedOut, nil)
			return &errs.AuthError{Message: "logout request failed", Cause: err}
		}
	}
	c.setCurrent(nil)
	c.notify(identity.EventSignedOut, nil)
	return nil
}

func (c *Client) GetUser(ctx context.Context) (*identity.User, error) {
	current := c.current()
	if current == nil {
		return nil, &errs.AuthError{Message: "not signed in"}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, &errs.AuthError{Message: "create request", Cause: err}
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+current.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &errs.AuthError{Message: "user request failed", Cause: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.AuthError{Message: "read response", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		_ = json.Unmarshal(bodyBytes, &errResp)
		return nil, &errs.AuthError{Message: errResp.text()}
	}

	var user identity.User
	if err := json.Unmarshal(bodyBytes, &user); err != nil {
		return nil, &errs.AuthError{Message: "unparsable user response", Cause: err}
	}
	return &user, nil
}

func (c *Client) OnAuthStateChange(l identity.StateListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// --- Internal state ---

func (c *Client) current() *identity.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) setCurrent(s *identity.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *Client) notify(event identity.AuthEvent, session *identity.Session) {
	c.mu.Lock()
	registered := make([]identity.StateListener, len(c.listeners))
	copy(registered, c.listeners)
	c.mu.Unlock()

	for _, l := range registered {
		l(event, session)
	}
}
