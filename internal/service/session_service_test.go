package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KayTeo/mimir-extension/internal/errs"
	"github.com/KayTeo/mimir-extension/internal/model"
	"github.com/KayTeo/mimir-extension/internal/statestore"
	"github.com/KayTeo/mimir-extension/pkg/events"
	"github.com/KayTeo/mimir-extension/pkg/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu           sync.Mutex
	setSessionN  atomic.Int64
	setSessionFn func(session *identity.Session) (*identity.Session, error)
	signOutN     int
	listeners    []identity.StateListener
	user         *identity.User
}

func (p *fakeProvider) SignUpWithEmail(ctx context.Context, email, password string) (*identity.Session, error) {
	return nil, nil
}

func (p *fakeProvider) SignInWithEmail(ctx context.Context, email, password string) (*identity.Session, error) {
	return nil, nil
}

func (p *fakeProvider) VerifyEmail(ctx context.Context, email, token string) (*identity.Session, error) {
	return nil, nil
}

func (p *fakeProvider) SignInWithIDToken(ctx context.Context, provider, idToken string) (*identity.Session, error) {
	return nil, nil
}

func (p *fakeProvider) SetSession(ctx context.Context, session *identity.Session) (*identity.Session, error) {
	p.setSessionN.Add(1)
	if p.setSessionFn != nil {
		return p.setSessionFn(session)
	}
	return session, nil
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOutN++
	return nil
}

func (p *fakeProvider) GetUser(ctx context.Context) (*identity.User, error) {
	if p.user == nil {
		return nil, &errs.AuthError{Message: "not signed in"}
	}
	return p.user, nil
}

func (p *fakeProvider) OnAuthStateChange(l identity.StateListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

type recordingPublisher struct {
	mu           sync.Mutex
	uiEvents     []model.UIEvent
	domainEvents []events.Event
}

func (p *recordingPublisher) PublishUIEvent(ctx context.Context, event model.UIEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uiEvents = append(p.uiEvents, event)
	return nil
}

func (p *recordingPublisher) PublishDomainEvent(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.domainEvents = append(p.domainEvents, event)
	return nil
}

func (p *recordingPublisher) countUIEvents(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.uiEvents {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

type testLogger struct{}

func (testLogger) Debug(module, message string, details map[string]interface{}) {}
func (testLogger) Info(module, message string, details map[string]interface{})  {}
func (testLogger) Warn(module, message string, details map[string]interface{})  {}
func (testLogger) Error(module, message string, details map[string]interface{}) {}
func (testLogger) Sync() error { return nil }

func persistTestSession(t *testing.T, store statestore.Store) *identity.Session {
	t.Helper()
	session := &identity.Session{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         identity.User{Id: "7b5f2f6e-9f7a-4c80-b24b-0f9a27ce2b41", Email: "user@example.com"},
	}
	raw, err := json.Marshal(session)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), map[string]json.RawMessage{statestore.KeySession: raw}))
	return session
}

func TestRestoreSessionWithoutPersistedCredential(t *testing.T) {
	store := statestore.NewMemoryStore()
	provider := &fakeProvider{}
	ss := NewSessionService(provider, store, &recordingPublisher{}, testLogger{})

	assert.False(t, ss.RestoreSession(context.Background()))
	assert.Equal(t, int64(0), provider.setSessionN.Load())
}

func TestRestoreSessionSingleFlight(t *testing.T) {
	store := statestore.NewMemoryStore()
	persistTestSession(t, store)

	release := make(chan struct{})
	provider := &fakeProvider{
		setSessionFn: func(session *identity.Session) (*identity.Session, error) {
			<-release
			return session, nil
		},
	}
	ss := NewSessionService(provider, store, &recordingPublisher{}, testLogger{})

	const callers = 16
	results := make(chan bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- ss.RestoreSession(context.Background())
		}()
	}

	// Let every caller pile onto the in-flight restore before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for result := range results {
		assert.True(t, result)
	}
	assert.Equal(t, int64(1), provider.setSessionN.Load(), "all callers must share one provider call")
}

func TestRestoreSessionInvalidRefresh(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()
	persistTestSession(t, store)
	require.NoError(t, statestore.SetString(ctx, store, statestore.KeySelectedDataset, "d1"))

	provider := &fakeProvider{
		setSessionFn: func(session *identity.Session) (*identity.Session, error) {
			return nil, &errs.AuthError{Message: "invalid refresh token", InvalidRefresh: true}
		},
	}
	publisher := &recordingPublisher{}
	ss := NewSessionService(provider, store, publisher, testLogger{})

	assert.False(t, ss.RestoreSession(ctx))

	values, err := store.Get(ctx, statestore.KeySession, statestore.KeyUser, statestore.KeySelectedDataset)
	require.NoError(t, err)
	assert.Empty(t, values, "all identity keys must be cleared")

	assert.Equal(t, 1, publisher.countUIEvents(model.UIEventReauthRequired), "exactly one reauth broadcast")
	assert.Equal(t, 1, provider.signOutN)
}

func TestRestoreSessionOtherFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()
	persistTestSession(t, store)

	provider := &fakeProvider{
		setSessionFn: func(session *identity.Session) (*identity.Session, error) {
			return nil, &errs.AuthError{Message: "network unreachable"}
		},
	}
	publisher := &recordingPublisher{}
	ss := NewSessionService(provider, store, publisher, testLogger{})

	assert.False(t, ss.RestoreSession(ctx))

	// A transient failure must not clear the credential or demand reauth.
	values, err := store.Get(ctx, statestore.KeySession)
	require.NoError(t, err)
	assert.Contains(t, values, statestore.KeySession)
	assert.Equal(t, 0, publisher.countUIEvents(model.UIEventReauthRequired))
}

func TestRestoreSessionPersistsRotatedCredentials(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()
	persisted := persistTestSession(t, store)

	rotated := *persisted
	rotated.AccessToken = "rotated-access"
	rotated.RefreshToken = "rotated-refresh"
	provider := &fakeProvider{
		setSessionFn: func(session *identity.Session) (*identity.Session, error) {
			return &rotated, nil
		},
	}
	ss := NewSessionService(provider, store, &recordingPublisher{}, testLogger{})

	assert.True(t, ss.RestoreSession(ctx))

	values, err := store.Get(ctx, statestore.KeySession)
	require.NoError(t, err)
	var stored identity.Session
	require.NoError(t, json.Unmarshal(values[statestore.KeySession], &stored))
	assert.Equal(t, "rotated-refresh", stored.RefreshToken)
}

func TestSetupAuthStateListenerRegistersOnce(t *testing.T) {
	store := statestore.NewMemoryStore()
	provider := &fakeProvider{}
	ss := NewSessionService(provider, store, &recordingPublisher{}, testLogger{})

	ss.SetupAuthStateListener()
	ss.SetupAuthStateListener()
	ss.SetupAuthStateListener()

	assert.Len(t, provider.listeners, 1)
}

func TestAuthStateListenerPersistsAndClears(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()
	provider := &fakeProvider{}
	ss := NewSessionService(provider, store, &recordingPublisher{}, testLogger{})
	ss.SetupAuthStateListener()
	require.Len(t, provider.listeners, 1)

	session := &identity.Session{
		AccessToken: "a", RefreshToken: "r",
		User: identity.User{Id: "u1", Email: "user@example.com"},
	}
	provider.listeners[0](identity.EventSignedIn, session)

	values, err := store.Get(ctx, statestore.KeySession, statestore.KeyUser)
	require.NoError(t, err)
	assert.Contains(t, values, statestore.KeySession)
	assert.Contains(t, values, statestore.KeyUser)

	require.NoError(t, statestore.SetString(ctx, store, statestore.KeySelectedDataset, "d1"))
	provider.listeners[0](identity.EventSignedOut, nil)

	values, err = store.Get(ctx, statestore.KeySession, statestore.KeyUser, statestore.KeySelectedDataset)
	require.NoError(t, err)
	assert.Empty(t, values)
}
