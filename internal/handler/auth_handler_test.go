package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type authServiceMock struct {
	registerReq  models.RegisterRequest
	logoutActor  *models.Actor
	logoutToken  string
	passwordMeta models.RequestMeta
	err          error
}

func (m *authServiceMock) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	m.registerReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh", User: models.UserInfo{Email: req.Email, Role: models.RoleStudent}, IssuedAt: time.Now()}, nil
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.LoginResponse{AccessToken: "access"}, nil
}

func (m *authServiceMock) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "next"}, m.err
}

func (m *authServiceMock) Logout(ctx context.Context, actor *models.Actor, refreshToken string, meta models.RequestMeta) error {
	m.logoutActor, m.logoutToken = actor, refreshToken
	return m.err
}

func (m *authServiceMock) Me(ctx context.Context, actor *models.Actor) (*models.UserInfo, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.UserInfo{ID: actor.ID, Role: actor.Role}, nil
}

func (m *authServiceMock) ChangePassword(ctx context.Context, actor *models.Actor, req models.ChangePasswordRequest, meta models.RequestMeta) error {
	m.passwordMeta = meta
	return m.err
}

func TestAuthHandlerRegister(t *testing.T) {
	mock := &authServiceMock{}
	h := NewAuthHandler(mock)
	c, w := newTestContext(t, http.MethodPost, "/auth/register", map[string]string{"name": "Sam", "email": "sam@example.com", "password": "secret1"}, nil)

	h.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "sam@example.com", mock.registerReq.Email)
	assert.Equal(t, "192.0.2.10", mock.registerReq.IP)
	assert.Equal(t, "handler-test", mock.registerReq.UserAgent)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{err: appErrors.ErrInvalidCredentials})
	c, w := newTestContext(t, http.MethodPost, "/auth/login", map[string]string{"email": "sam@example.com", "password": "nope"}, nil)

	h.Login(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, decodeEnvelope(t, w).Error.Code)
}

func TestAuthHandlerLogoutRequiresToken(t *testing.T) {
	mock := &authServiceMock{}
	h := NewAuthHandler(mock)
	c, w := newTestContext(t, http.MethodPost, "/auth/logout", map[string]string{}, studentClaims())

	h.Logout(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, mock.logoutActor)
}

func TestAuthHandlerLogout(t *testing.T) {
	mock := &authServiceMock{}
	h := NewAuthHandler(mock)
	c, w := newTestContext(t, http.MethodPost, "/auth/logout", map[string]string{"refresh_token": "r-1"}, studentClaims())

	h.Logout(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, mock.logoutActor)
	assert.Equal(t, "student-1", mock.logoutActor.ID)
	assert.Equal(t, "r-1", mock.logoutToken)
}

func TestAuthHandlerMe(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{})

	c, w := newTestContext(t, http.MethodGet, "/auth/me", nil, trainerClaims())
	h.Me(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "trainer-1")

	c, w = newTestContext(t, http.MethodGet, "/auth/me", nil, nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
