// Package local is the self-hosted identity fallback: users, bcrypt password
// hashes and refresh tokens live in our own row store, access tokens are
// HS256 JWTs issued by this process. Used when no hosted auth endpoint is
// configured.
package local

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/KayTeo/mimir-extension/internal/entity"
	"github.com/KayTeo/mimir-extension/internal/errs"
	"github.com/KayTeo/mimir-extension/internal/pkg/mailer"
	"github.com/KayTeo/mimir-extension/internal/repository/specification"
	"github.com/KayTeo/mimir-extension/internal/repository/unitofwork"
	"github.com/KayTeo/mimir-extension/pkg/identity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

type Provider struct {
	uowFactory   unitofwork.RepositoryFactory
	emailService mailer.IEmailService
	jwtSecret    []byte

	mu        sync.Mutex
	session   *identity.Session
	listeners []identity.StateListener
}

var _ identity.Provider = &Provider{}

func NewProvider(uowFactory unitofwork.RepositoryFactory, emailService mailer.IEmailService, jwtSecret string) *Provider {
	return &Provider{
		uowFactory:   uowFactory,
		emailService: emailService,
		jwtSecret:    []byte(jwtSecret),
	}
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n), nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (p *Provider) SignUpWithEmail(ctx context.Context, email, password string) (*identity.Session, error) {
	uow := p.uowFactory.NewUnitOfWork(ctx)

	existing, _ := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if existing != nil {
		return nil, &errs.AuthError{Message: "email already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &errs.AuthError{Message: "hash password", Cause: err}
	}
	hashStr := string(hash)

	user := &entity.User{
		Id:           uuid.New(),
		Email:        email,
		PasswordHash: &hashStr,
		Status:       entity.UserStatusPending,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return nil, err
	}

	otpCode, err := generateOTP()
	if err != nil {
		return nil, err
	}

	token := &entity.EmailVerificationToken{
		Id:        uuid.New(),
		UserId:    user.Id,
		Token:     otpCode,
		ExpiresAt: time.Now().Add(15 * time.Minute),
		CreatedAt: time.Now(),
	}
	if err := uow.UserRepository().CreateEmailVerificationToken(ctx, token); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if p.emailService != nil {
		go func() {
			if emailErr := p.emailService.SendOTP(user.Email, otpCode); emailErr != nil {
				fmt.Printf("Error sending verification email: %v\n", emailErr)
			}
		}()
	}

	// No session until the email is verified.
	return nil, nil
}

func (p *Provider) SignInWithEmail(ctx context.Context, email, password string) (*identity.Session, error) {
	uow := p.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil || user == nil || user.PasswordHash == nil {
		return nil, &errs.AuthError{Message: "invalid credentials"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, &errs.AuthError{Message: "invalid credentials"}
	}

	if user.Status != entity.UserStatusActive {
		return nil, &errs.AuthError{Message: "email not verified"}
	}

	return p.issueSession(ctx, user)
}

// VerifyEmail consumes the sign-up OTP: the user is activated, the token is
// single-use, and the caller gets their first session.
func (p *Provider) VerifyEmail(ctx context.Context, email, token string) (*identity.Session, error) {
	uow := p.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil || user == nil {
		return nil, &errs.AuthError{Message: "invalid verification token"}
	}

	stored, err := uow.UserRepository().FindEmailVerificationToken(ctx, specification.ByToken{Token: token})
	if err != nil || stored == nil || stored.UserId != user.Id {
		return nil, &errs.AuthError{Message: "invalid verification token"}
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, &errs.AuthError{Message: "verification token expired"}
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.UserRepository().ActivateUser(ctx, user.Id); err != nil {
		return nil, err
	}
	if err := uow.UserRepository().DeleteEmailVerificationToken(ctx, stored.Id); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	user.Status = entity.UserStatusActive
	user.EmailVerified = true
	return p.issueSession(ctx, user)
}

func (p *Provider) SignInWithIDToken(ctx context.Context, provider, idToken string) (*identity.Session, error) {
	return nil, &errs.AuthError{Message: "federated sign-in is not supported by the local provider"}
}

func (p *Provider) SetSession(ctx context.Context, session *identity.Session) (*identity.Session, error) {
	if session == nil {
		return nil, &errs.AuthError{Message: "no session to establish"}
	}

	// Valid access token: adopt without touching the store.
	if session.AccessToken != "" {
		token, err := jwt.Parse(session.AccessToken, func(t *jwt.Token) (interface{}, error) {
			return p.jwtSecret, nil
		})
		if err == nil && token.Valid {
			p.setCurrent(session)
			return session, nil
		}
	}

	// Refresh path.
	uow := p.uowFactory.NewUnitOfWork(ctx)
	stored, err := uow.UserRepository().FindRefreshToken(ctx, specification.ByTokenHash{Hash: hashToken(session.RefreshToken)})
	if err != nil {
		return nil, &errs.AuthError{Message: "refresh lookup failed", Cause: err}
	}
	if stored == nil || stored.Revoked || time.Now().After(stored.ExpiresAt) {
		return nil, &errs.AuthError{Message: "invalid refresh token", InvalidRefresh: true}
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: stored.UserId})
	if err != nil || user == nil {
		return nil, &errs.AuthError{Message: "invalid refresh token", InvalidRefresh: true}
	}

	// Rotate: the old refresh token is single-use.
	if err := uow.UserRepository().RevokeRefreshToken(ctx, stored.TokenHash); err != nil {
		return nil, &errs.AuthError{Message: "revoke refresh token", Cause: err}
	}

	return p.issueSession(ctx, user)
}

func (p *Provider) SignOut(ctx context.Context) error {
	current := p.current()
	if current != nil && current.RefreshToken != "" {
		uow := p.uowFactory.NewUnitOfWork(ctx)
		if err := uow.UserRepository().RevokeRefreshToken(ctx, hashToken(current.RefreshToken)); err != nil {
			// Keep going; local state is cleared regardless.
			fmt.Printf("Error revoking refresh token on sign-out: %v\n", err)
		}
	}
	p.setCurrent(nil)
	p.notify(identity.EventSignedOut, nil)
	return nil
}

func (p *Provider) GetUser(ctx context.Context) (*identity.User, error) {
	current := p.current()
	if current == nil {
		return nil, &errs.AuthError{Message: "not signed in"}
	}
	user := current.User
	return &user, nil
}

func (p *Provider) OnAuthStateChange(l identity.StateListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

func (p *Provider) issueSession(ctx context.Context, user *entity.User) (*identity.Session, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.Id.String(),
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(accessTokenTTL).Unix(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.jwtSecret)
	if err != nil {
		return nil, &errs.AuthError{Message: "sign access token", Cause: err}
	}

	refreshToken, err := randomToken()
	if err != nil {
		return nil, &errs.AuthError{Message: "generate refresh token", Cause: err}
	}

	uow := p.uowFactory.NewUnitOfWork(ctx)
	err = uow.UserRepository().CreateRefreshToken(ctx, &entity.UserRefreshToken{
		Id:        uuid.New(),
		UserId:    user.Id,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: now.Add(refreshTokenTTL),
		CreatedAt: now,
	})
	if err != nil {
		return nil, &errs.AuthError{Message: "store refresh token", Cause: err}
	}

	session := &identity.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(accessTokenTTL),
		User:         identity.User{Id: user.Id.String(), Email: user.Email},
	}

	p.setCurrent(session)
	p.notify(identity.EventSignedIn, session)
	return session, nil
}

func (p *Provider) current() *identity.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

func (p *Provider) setCurrent(s *identity.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = s
}

func (p *Provider) notify(event identity.AuthEvent, session *identity.Session) {
	p.mu.Lock()
	registered := make([]identity.StateListener, len(p.listeners))
	copy(registered, p.listeners)
	p.mu.Unlock()

	for _, l := range registered {
		l(event, session)
	}
}
