// Package identity abstracts the external identity provider. The session
// coordinator only ever talks to the Provider interface; the hosted
// (supabase) and local (self-issued JWT) implementations are interchangeable.
package identity

import (
	"context"
	"time"
)

type User struct {
	Id    string `json:"id"`
	Email string `json:"email"`
}

// Session is the opaque access/refresh credential pair plus identity. There
// is at most one authoritative live session per provider instance; copies
// persisted elsewhere are display-only.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

type AuthEvent string

const (
	EventSignedIn  AuthEvent = "SIGNED_IN"
	EventSignedOut AuthEvent = "SIGNED_OUT"
)

// StateListener receives sign-in/sign-out notifications. The session is nil
// on sign-out.
type StateListener func(event AuthEvent, session *Session)

type Provider interface {
	SignUpWithEmail(ctx context.Context, email, password string) (*Session, error)
	SignInWithEmail(ctx context.Context, email, password string) (*Session, error)
	// VerifyEmail confirms a pending sign-up with the emailed OTP and
	// returns the first session for the now-active user.
	VerifyEmail(ctx context.Context, email, token string) (*Session, error)
	// SignInWithIDToken exchanges a federated id_token (e.g. Google) for a
	// session.
	SignInWithIDToken(ctx context.Context, provider, idToken string) (*Session, error)
	// SetSession re-establishes a previously persisted session, refreshing
	// the credentials when needed. Returns errs.AuthError with
	// InvalidRefresh set when the refresh credential is no longer usable.
	SetSession(ctx context.Context, session *Session) (*Session, error)
	SignOut(ctx context.Context) error
	GetUser(ctx context.Context) (*User, error)
	OnAuthStateChange(l StateListener)
}
