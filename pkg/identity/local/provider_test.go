package local

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/KayTeo/mimir-extension/internal/entity"
	"github.com/KayTeo/mimir-extension/internal/errs"
	"github.com/KayTeo/mimir-extension/internal/repository/contract"
	"github.com/KayTeo/mimir-extension/internal/repository/specification"
	"github.com/KayTeo/mimir-extension/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*entity.User
	verifications map[uuid.UUID]*entity.EmailVerificationToken
	refreshTokens map[string]*entity.UserRefreshToken
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:         make(map[uuid.UUID]*entity.User),
		verifications: make(map[uuid.UUID]*entity.EmailVerificationToken),
		refreshTokens: make(map[string]*entity.UserRefreshToken),
	}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.Id] = &copied
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.Id] = &copied
	return nil
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if userMatches(user, specs) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func userMatches(user *entity.User, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByEmail:
			if user.Email != s.Email {
				return false
			}
		case specification.ByID:
			if user.Id != s.ID {
				return false
			}
		}
	}
	return true
}

func (r *fakeUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) ActivateUser(ctx context.Context, userId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userId]
	if !ok {
		return nil
	}
	user.Status = entity.UserStatusActive
	user.EmailVerified = true
	return nil
}

func (r *fakeUserRepo) CreateEmailVerificationToken(ctx context.Context, token *entity.EmailVerificationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *token
	r.verifications[token.Id] = &copied
	return nil
}

func (r *fakeUserRepo) FindEmailVerificationToken(ctx context.Context, specs ...specification.Specification) (*entity.EmailVerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.verifications {
		match := true
		for _, spec := range specs {
			if byToken, ok := spec.(specification.ByToken); ok && stored.Token != byToken.Token {
				match = false
			}
		}
		if match {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) DeleteEmailVerificationToken(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.verifications, id)
	return nil
}

func (r *fakeUserRepo) CreateRefreshToken(ctx context.Context, token *entity.UserRefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *token
	r.refreshTokens[token.TokenHash] = &copied
	return nil
}

func (r *fakeUserRepo) FindRefreshToken(ctx context.Context, specs ...specification.Specification) (*entity.UserRefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range specs {
		if byHash, ok := spec.(specification.ByTokenHash); ok {
			if stored, found := r.refreshTokens[byHash.Hash]; found {
				copied := *stored
				return &copied, nil
			}
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.refreshTokens[tokenHash]; ok {
		stored.Revoked = true
	}
	return nil
}

type fakeUnitOfWork struct {
	userRepo *fakeUserRepo
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *fakeUnitOfWork) Commit() error                   { return nil }
func (u *fakeUnitOfWork) Rollback() error                 { return nil }

func (u *fakeUnitOfWork) UserRepository() contract.UserRepository { return u.userRepo }
func (u *fakeUnitOfWork) DatasetRepository() contract.DatasetRepository {
	return nil
}
func (u *fakeUnitOfWork) DataPointRepository() contract.DataPointRepository {
	return nil
}
func (u *fakeUnitOfWork) AssociationRepository() contract.AssociationRepository {
	return nil
}

type fakeFactory struct {
	userRepo *fakeUserRepo
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUnitOfWork{userRepo: f.userRepo}
}

func newTestProvider() (*Provider, *fakeUserRepo) {
	repo := newFakeUserRepo()
	provider := NewProvider(&fakeFactory{userRepo: repo}, nil, "test-secret")
	return provider, repo
}

func pendingOTP(t *testing.T, repo *fakeUserRepo) string {
	t.Helper()
	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.verifications, 1)
	for _, stored := range repo.verifications {
		return stored.Token
	}
	return ""
}

func TestSignUpLeavesUserPendingUntilVerified(t *testing.T) {
	ctx := context.Background()
	provider, repo := newTestProvider()

	session, err := provider.SignUpWithEmail(ctx, "new@example.com", "secret-pass")
	require.NoError(t, err)
	assert.Nil(t, session, "no session before the email is verified")

	stored, err := repo.FindOne(ctx, specification.ByEmail{Email: "new@example.com"})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, entity.UserStatusPending, stored.Status)
	assert.NotEmpty(t, pendingOTP(t, repo))

	// Correct password, unverified account: sign-in must be refused.
	_, err = provider.SignInWithEmail(ctx, "new@example.com", "secret-pass")
	require.Error(t, err)
	var authErr *errs.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "email not verified", authErr.Message)
}

func TestVerifyEmailActivatesAndIssuesSession(t *testing.T) {
	ctx := context.Background()
	provider, repo := newTestProvider()

	_, err := provider.SignUpWithEmail(ctx, "new@example.com", "secret-pass")
	require.NoError(t, err)
	otp := pendingOTP(t, repo)

	session, err := provider.VerifyEmail(ctx, "new@example.com", otp)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "new@example.com", session.User.Email)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)

	stored, err := repo.FindOne(ctx, specification.ByEmail{Email: "new@example.com"})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, entity.UserStatusActive, stored.Status)
	assert.True(t, stored.EmailVerified)

	// The OTP is single-use.
	repo.mu.Lock()
	remaining := len(repo.verifications)
	repo.mu.Unlock()
	assert.Zero(t, remaining)

	session, err = provider.SignInWithEmail(ctx, "new@example.com", "secret-pass")
	require.NoError(t, err)
	assert.NotNil(t, session)
}

func TestVerifyEmailRejectsWrongToken(t *testing.T) {
	ctx := context.Background()
	provider, repo := newTestProvider()

	_, err := provider.SignUpWithEmail(ctx, "new@example.com", "secret-pass")
	require.NoError(t, err)

	_, err = provider.VerifyEmail(ctx, "new@example.com", "000000x")
	require.Error(t, err)

	stored, err := repo.FindOne(ctx, specification.ByEmail{Email: "new@example.com"})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, entity.UserStatusPending, stored.Status)
}

func TestVerifyEmailRejectsExpiredToken(t *testing.T) {
	ctx := context.Background()
	provider, repo := newTestProvider()

	_, err := provider.SignUpWithEmail(ctx, "new@example.com", "secret-pass")
	require.NoError(t, err)
	otp := pendingOTP(t, repo)

	repo.mu.Lock()
	for _, stored := range repo.verifications {
		stored.ExpiresAt = time.Now().Add(-time.Minute)
	}
	repo.mu.Unlock()

	_, err = provider.VerifyEmail(ctx, "new@example.com", otp)
	require.Error(t, err)
	var authErr *errs.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "verification token expired", authErr.Message)
}

func TestVerifyEmailRejectsTokenOfAnotherUser(t *testing.T) {
	ctx := context.Background()
	provider, repo := newTestProvider()

	_, err := provider.SignUpWithEmail(ctx, "first@example.com", "secret-pass")
	require.NoError(t, err)
	otp := pendingOTP(t, repo)

	other := &entity.User{Id: uuid.New(), Email: "second@example.com", Status: entity.UserStatusPending}
	require.NoError(t, repo.Create(ctx, other))

	_, err = provider.VerifyEmail(ctx, "second@example.com", otp)
	require.Error(t, err)
}
