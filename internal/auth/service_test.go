package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/goldbridge/marketplace-backend/internal/users"
	pkgAuth "github.com/goldbridge/marketplace-backend/pkg/auth"
	"github.com/goldbridge/marketplace-backend/pkg/auth/session"
	"github.com/goldbridge/marketplace-backend/pkg/config"
	"github.com/goldbridge/marketplace-backend/pkg/db/models"
	"github.com/goldbridge/marketplace-backend/pkg/enums"
	pkgerrors "github.com/goldbridge/marketplace-backend/pkg/errors"
	"github.com/goldbridge/marketplace-backend/pkg/security"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "goldbridge-test",
		ExpirationMinutes: 15,
	}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

type stubUserRepo struct {
	byEmail   map[string]*models.User
	byID      map[uuid.UUID]*models.User
	createErr error
	created   []users.CreateUserDTO
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byEmail: map[string]*models.User{},
		byID:    map[uuid.UUID]*models.User{},
	}
}

func (r *stubUserRepo) add(user *models.User) {
	r.byEmail[user.Email] = user
	r.byID[user.ID] = user
}

func (r *stubUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.created = append(r.created, dto)
	user := &models.User{
		ID:           uuid.New(),
		Email:        dto.Email,
		PasswordHash: dto.PasswordHash,
		Name:         dto.Name,
		Role:         dto.Role,
		KYCStatus:    enums.KYCStatusUnverified,
	}
	r.add(user)
	return user, nil
}

func (r *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type stubSessionManager struct {
	refreshByAccess map[string]string
	revoked         []string
	rotateErr       error
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{refreshByAccess: map[string]string{}}
}

func (m *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	token := "refresh-" + uuid.NewString()
	m.refreshByAccess[accessID] = token
	return token, nil
}

func (m *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if m.rotateErr != nil {
		return "", "", m.rotateErr
	}
	stored, ok := m.refreshByAccess[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(m.refreshByAccess, oldAccessID)
	newAccessID := session.NewAccessID()
	token, _ := m.Generate(ctx, newAccessID)
	return newAccessID, token, nil
}

func (m *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	m.revoked = append(m.revoked, accessID)
	delete(m.refreshByAccess, accessID)
	return nil
}

func newTestService(t *testing.T, repo *stubUserRepo, sessions *stubSessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
	})
	require.NoError(t, err)
	return svc
}

func seedUser(t *testing.T, repo *stubUserRepo, email, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig())
	require.NoError(t, err)
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         "Ayesha Buyer",
		Role:         enums.UserRoleBuyer,
		KYCStatus:    enums.KYCStatusVerified,
	}
	repo.add(user)
	return user
}

func TestRegisterIssuesTokens(t *testing.T) {
	repo := newStubUserRepo()
	sessions := newStubSessionManager()
	svc := newTestService(t, repo, sessions)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "  Ayesha@Example.COM ",
		Password: "s3cret-pass",
		Name:     "Ayesha Buyer",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "ayesha@example.com", resp.User.Email)

	require.Len(t, repo.created, 1)
	assert.Equal(t, "ayesha@example.com", repo.created[0].Email)
	assert.Equal(t, enums.UserRoleBuyer, repo.created[0].Role)
	assert.NotEqual(t, "s3cret-pass", repo.created[0].PasswordHash)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleBuyer, claims.Role)
	assert.Contains(t, sessions.refreshByAccess, claims.ID)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	repo := newStubUserRepo()
	repo.createErr = fmt.Errorf("insert users: %w", fmt.Errorf(`duplicate key value violates unique constraint "users_email_key"`))
	svc := newTestService(t, repo, newStubSessionManager())

	_, err := svc.Register(context.Background(), RegisterRequest{Email: "dup@example.com", Password: "pw"})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeConflict, coded.Code())
}

func TestLoginVerifiesPassword(t *testing.T) {
	repo := newStubUserRepo()
	sessions := newStubSessionManager()
	svc := newTestService(t, repo, sessions)
	seedUser(t, repo, "buyer@example.com", "correct-horse")

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "buyer@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(t, repo, newStubSessionManager())
	seedUser(t, repo, "buyer@example.com", "correct-horse")

	_, err := svc.Login(context.Background(), LoginRequest{Email: "buyer@example.com", Password: "battery-staple"})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeUnauthorized, coded.Code())
	assert.Equal(t, invalidCredentialsMessage, coded.Message())
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(t, repo, newStubSessionManager())

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "pw"})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeUnauthorized, coded.Code())
	assert.Equal(t, invalidCredentialsMessage, coded.Message())
}

func TestRefreshRotatesSession(t *testing.T) {
	repo := newStubUserRepo()
	sessions := newStubSessionManager()
	svc := newTestService(t, repo, sessions)
	seedUser(t, repo, "buyer@example.com", "correct-horse")

	login, err := svc.Login(context.Background(), LoginRequest{Email: "buyer@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// the old pair is burnt after rotation
	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeUnauthorized, coded.Code())
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(t, repo, newStubSessionManager())

	_, err := svc.Refresh(context.Background(), RefreshRequest{AccessToken: "not-a-jwt", RefreshToken: "whatever"})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeUnauthorized, coded.Code())
}

func TestLogoutRevokesSession(t *testing.T) {
	repo := newStubUserRepo()
	sessions := newStubSessionManager()
	svc := newTestService(t, repo, sessions)
	seedUser(t, repo, "buyer@example.com", "correct-horse")

	login, err := svc.Login(context.Background(), LoginRequest{Email: "buyer@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), login.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims.ID))
	assert.Equal(t, []string{claims.ID}, sessions.revoked)

	err = svc.Logout(context.Background(), "  ")
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}
