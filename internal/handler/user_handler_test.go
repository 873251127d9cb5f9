package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/visibility"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type userServiceMock struct {
	filter    models.UserFilter
	roleID    string
	roleReq   dto.ChangeRoleRequest
	deleteErr error
	listCalls int
}

func (m *userServiceMock) List(ctx context.Context, actor *models.Actor, filter models.UserFilter) ([]visibility.UserView, *models.Pagination, error) {
	m.listCalls++
	m.filter = filter
	return []visibility.UserView{}, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (m *userServiceMock) Get(ctx context.Context, actor *models.Actor, id string) (*visibility.UserView, error) {
	return &visibility.UserView{User: models.User{ID: id}}, nil
}

func (m *userServiceMock) Create(ctx context.Context, actor *models.Actor, req dto.CreateUserRequest, meta models.RequestMeta) (*visibility.UserView, error) {
	return &visibility.UserView{User: models.User{ID: "u-9", Email: req.Email}}, nil
}

func (m *userServiceMock) Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateUserRequest, meta models.RequestMeta) (*visibility.UserView, error) {
	return &visibility.UserView{User: models.User{ID: id}}, nil
}

func (m *userServiceMock) ChangeRole(ctx context.Context, actor *models.Actor, id string, req dto.ChangeRoleRequest, meta models.RequestMeta) (*visibility.UserView, error) {
	m.roleID, m.roleReq = id, req
	return &visibility.UserView{User: models.User{ID: id, Role: models.UserRole(req.Role)}}, nil
}

func (m *userServiceMock) Delete(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) error {
	return m.deleteErr
}

func TestUserHandlerListRoleFilter(t *testing.T) {
	mock := &userServiceMock{}
	h := NewUserHandler(mock)

	c, w := newTestContext(t, http.MethodGet, "/users?role=trainer&q=sam", nil, adminClaims())
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.filter.Role)
	assert.Equal(t, models.RoleTrainer, *mock.filter.Role)
	assert.Equal(t, "sam", mock.filter.Search)

	c, w = newTestContext(t, http.MethodGet, "/users?role=janitor", nil, adminClaims())
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, mock.listCalls)
}

func TestUserHandlerChangeRole(t *testing.T) {
	mock := &userServiceMock{}
	h := NewUserHandler(mock)
	c, w := newTestContext(t, http.MethodPut, "/users/u-2/role", map[string]string{"role": "TRAINER"}, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "u-2"}}

	h.ChangeRole(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-2", mock.roleID)
	assert.Equal(t, "TRAINER", mock.roleReq.Role)
}

func TestUserHandlerDeleteConflict(t *testing.T) {
	conflict := appErrors.Clone(appErrors.ErrConflict, "user still instructs courses")
	h := NewUserHandler(&userServiceMock{deleteErr: conflict})
	c, w := newTestContext(t, http.MethodDelete, "/users/trainer-1", nil, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "trainer-1"}}

	h.Delete(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrConflict.Code, decodeEnvelope(t, w).Error.Code)
}
