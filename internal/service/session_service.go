// FILE: internal/service/session_service.go
package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/KayTeo/mimir-extension/internal/errs"
	"github.com/KayTeo/mimir-extension/internal/model"
	"github.com/KayTeo/mimir-extension/internal/pkg/logger"
	"github.com/KayTeo/mimir-extension/internal/statestore"
	"github.com/KayTeo/mimir-extension/pkg/events"
	"github.com/KayTeo/mimir-extension/pkg/identity"

	"golang.org/x/sync/singleflight"
)

// ISessionService owns the authoritative session. Other components read the
// mirrored copy in the state store for display only.
type ISessionService interface {
	// RestoreSession re-establishes a persisted session. Concurrent callers
	// share one in-flight attempt. False means "proceed unauthenticated",
	// never a hard error.
	RestoreSession(ctx context.Context) bool

	// SetupAuthStateListener registers for provider sign-in/sign-out
	// notifications. Safe to call more than once; only the first call
	// registers.
	SetupAuthStateListener()

	SignInWithEmail(ctx context.Context, email, password string) (*identity.Session, error)
	SignUpWithEmail(ctx context.Context, email, password string) (*identity.Session, error)
	// VerifyEmail completes a pending sign-up with the emailed OTP.
	VerifyEmail(ctx context.Context, email, token string) (*identity.Session, error)
	SignInWithGoogle(ctx context.Context, idToken string) (*identity.Session, error)
	SignOut(ctx context.Context) error
	GetCurrentUser(ctx context.Context) (*identity.User, error)
	// ClearCredentials removes the persisted identity keys as one batch and
	// asks surfaces to show the sign-in UI.
	ClearCredentials(ctx context.Context) error
}

type sessionService struct {
	provider         identity.Provider
	stateStore       statestore.Store
	publisherService IPublisherService
	logger           logger.ILogger

	restoreGroup  singleflight.Group
	listenerSetup sync.Once
}

func NewSessionService(
	provider identity.Provider,
	stateStore statestore.Store,
	publisherService IPublisherService,
	log logger.ILogger,
) ISessionService {
	return &sessionService{
		provider:         provider,
		stateStore:       stateStore,
		publisherService: publisherService,
		logger:           log,
	}
}

func (ss *sessionService) RestoreSession(ctx context.Context) bool {
	result, _, _ := ss.restoreGroup.Do("restore", func() (interface{}, error) {
		return ss.restoreOnce(ctx), nil
	})
	return result.(bool)
}

func (ss *sessionService) restoreOnce(ctx context.Context) bool {
	values, err := ss.stateStore.Get(ctx, statestore.KeySession)
	if err != nil {
		ss.logger.Error("Session", "Failed to read persisted session", map[string]interface{}{"error": err.Error()})
		return false
	}

	raw, ok := values[statestore.KeySession]
	if !ok {
		return false
	}

	var persisted identity.Session
	if err := json.Unmarshal(raw, &persisted); err != nil {
		ss.logger.Warn("Session", "Persisted session is malformed, discarding", map[string]interface{}{"error": err.Error()})
		ss.clearPersistedIdentity(ctx)
		return false
	}

	established, err := ss.provider.SetSession(ctx, &persisted)
	if err != nil {
		if errs.IsInvalidRefresh(err) {
			ss.handleInvalidRefresh(ctx)
			return false
		}
		ss.logger.Warn("Session", "Session restore failed", map[string]interface{}{"error": err.Error()})
		return false
	}

	// The provider may have rotated the credentials; refresh the mirror so
	// the next restore does not replay a consumed refresh token.
	ss.persistSession(ctx, established)
	return true
}

// handleInvalidRefresh is the forced sign-out path: provider state and the
// persisted mirror are both cleared so no stale credential can pass a later
// validity check, then surfaces are told to reauthenticate.
func (ss *sessionService) handleInvalidRefresh(ctx context.Context) {
	if err := ss.provider.SignOut(ctx); err != nil {
		ss.logger.Warn("Session", "Provider sign-out failed during reauth", map[string]interface{}{"error": err.Error()})
	}

	ss.clearPersistedIdentity(ctx)

	if err := ss.publisherService.PublishUIEvent(ctx, model.NewReauthRequiredEvent()); err != nil {
		ss.logger.Error("Session", "Failed to broadcast reauth request", map[string]interface{}{"error": err.Error()})
	}
	if err := ss.publisherService.PublishDomainEvent(ctx, events.NewReauthRequired()); err != nil {
		ss.logger.Warn("Session", "Failed to publish reauth event", map[string]interface{}{"error": err.Error()})
	}
}

func (ss *sessionService) SetupAuthStateListener() {
	ss.listenerSetup.Do(func() {
		ss.provider.OnAuthStateChange(func(event identity.AuthEvent, session *identity.Session) {
			ctx := context.Background()
			switch event {
			case identity.EventSignedIn:
				ss.persistSession(ctx, session)
			case identity.EventSignedOut:
				ss.clearPersistedIdentity(ctx)
			}
		})
	})
}

func (ss *sessionService) persistSession(ctx context.Context, session *identity.Session) {
	if session == nil {
		return
	}

	sessionRaw, err := json.Marshal(session)
	if err != nil {
		ss.logger.Error("Session", "Failed to marshal session", map[string]interface{}{"error": err.Error()})
		return
	}
	userRaw, err := json.Marshal(session.User)
	if err != nil {
		ss.logger.Error("Session", "Failed to marshal user", map[string]interface{}{"error": err.Error()})
		return
	}

	err = ss.stateStore.Set(ctx, map[string]json.RawMessage{
		statestore.KeySession: sessionRaw,
		statestore.KeyUser:    userRaw,
	})
	if err != nil {
		ss.logger.Error("Session", "Failed to persist session", map[string]interface{}{"error": err.Error()})
	}
}

// clearPersistedIdentity removes session, user and selectedDataset as one
// batch so observers never see a half-cleared state.
func (ss *sessionService) clearPersistedIdentity(ctx context.Context) {
	err := ss.stateStore.Remove(ctx, statestore.KeySession, statestore.KeyUser, statestore.KeySelectedDataset)
	if err != nil {
		ss.logger.Error("Session", "Failed to clear persisted identity", map[string]interface{}{"error": err.Error()})
	}
}

func (ss *sessionService) SignInWithEmail(ctx context.Context, email, password string) (*identity.Session, error) {
	session, err := ss.provider.SignInWithEmail(ctx, email, password)
	if err != nil {
		return nil, err
	}

	ss.persistSession(ctx, session)
	if session != nil {
		if pubErr := ss.publisherService.PublishDomainEvent(ctx, events.NewUserSignedIn(session.User.Id, session.User.Email)); pubErr != nil {
			ss.logger.Warn("Session", "Failed to publish sign-in event", map[string]interface{}{"error": pubErr.Error()})
		}
	}
	return session, nil
}

func (ss *sessionService) SignUpWithEmail(ctx context.Context, email, password string) (*identity.Session, error) {
	session, err := ss.provider.SignUpWithEmail(ctx, email, password)
	if err != nil {
		return nil, err
	}

	// Some providers withhold the session until the email is verified.
	ss.persistSession(ctx, session)
	return session, nil
}

func (ss *sessionService) VerifyEmail(ctx context.Context, email, token string) (*identity.Session, error) {
	session, err := ss.provider.VerifyEmail(ctx, email, token)
	if err != nil {
		return nil, err
	}

	ss.persistSession(ctx, session)
	if session != nil {
		if pubErr := ss.publisherService.PublishDomainEvent(ctx, events.NewUserSignedIn(session.User.Id, session.User.Email)); pubErr != nil {
			ss.logger.Warn("Session", "Failed to publish sign-in event", map[string]interface{}{"error": pubErr.Error()})
		}
	}
	return session, nil
}

func (ss *sessionService) SignInWithGoogle(ctx context.Context, idToken string) (*identity.Session, error) {
	session, err := ss.provider.SignInWithIDToken(ctx, "google", idToken)
	if err != nil {
		return nil, err
	}

	ss.persistSession(ctx, session)
	if session != nil {
		if pubErr := ss.publisherService.PublishDomainEvent(ctx, events.NewUserSignedIn(session.User.Id, session.User.Email)); pubErr != nil {
			ss.logger.Warn("Session", "Failed to publish sign-in event", map[string]interface{}{"error": pubErr.Error()})
		}
	}
	return session, nil
}

func (ss *sessionService) SignOut(ctx context.Context) error {
	user, _ := ss.provider.GetUser(ctx)

	if err := ss.provider.SignOut(ctx); err != nil {
		return err
	}

	ss.clearPersistedIdentity(ctx)

	if user != nil {
		if pubErr := ss.publisherService.PublishDomainEvent(ctx, events.NewUserSignedOut(user.Id)); pubErr != nil {
			ss.logger.Warn("Session", "Failed to publish sign-out event", map[string]interface{}{"error": pubErr.Error()})
		}
	}
	return nil
}

func (ss *sessionService) GetCurrentUser(ctx context.Context) (*identity.User, error) {
	return ss.provider.GetUser(ctx)
}

func (ss *sessionService) ClearCredentials(ctx context.Context) error {
	ss.clearPersistedIdentity(ctx)
	return ss.publisherService.PublishUIEvent(ctx, model.NewReauthRequiredEvent())
}
