package v1

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/campus_safety_system/internal/broadcast"
	"github.com/shenikar/campus_safety_system/internal/config"
	"github.com/shenikar/campus_safety_system/internal/handler/http/v1/mocks"
	"github.com/shenikar/campus_safety_system/internal/models"
	"github.com/shenikar/campus_safety_system/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testToken = "test-bearer-token"

type testMocks struct {
	incidents *mocks.MockIncidentService
	votes     *mocks.MockVoteService
	sos       *mocks.MockSOSService
	users     *mocks.MockUserService
	routes    *mocks.MockRouteService
}

// newTestHandler создает новый экземпляр Handler с мокированными сервисами
func newTestHandler(t *testing.T) (*testMocks, *gin.Engine) {
	ctrl := gomock.NewController(t)
	m := &testMocks{
		incidents: mocks.NewMockIncidentService(ctrl),
		votes:     mocks.NewMockVoteService(ctrl),
		sos:       mocks.NewMockSOSService(ctrl),
		users:     mocks.NewMockUserService(ctrl),
		routes:    mocks.NewMockRouteService(ctrl),
	}

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{}

	handler := NewHandler(Services{
		Incidents: m.incidents,
		Votes:     m.votes,
		SOS:       m.sos,
		Users:     m.users,
		Routes:    m.routes,
	}, broadcast.NewHub(), logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return m, router
}

// expectAuth настраивает успешное разрешение тестового токена в пользователя
func expectAuth(m *testMocks, user *models.User) {
	m.users.EXPECT().
		Authenticate(gomock.Any(), testToken).
		Return(user, nil).
		AnyTimes()
}

func authHeader() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testToken}
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func testStudent() *models.User {
	return &models.User{
		ID:       uuid.New(),
		Email:    "student@campus.edu",
		Role:     models.RoleStudent,
		IsActive: true,
	}
}

func testAdmin() *models.User {
	return &models.User{
		ID:       uuid.New(),
		Email:    "admin@campus.edu",
		Role:     models.RoleAdmin,
		IsActive: true,
	}
}

func TestCreateIncident_Success(t *testing.T) {
	m, router := newTestHandler(t)
	student := testStudent()
	expectAuth(m, student)

	reqBody := CreateIncidentRequest{
		Category:    "ice",
		Description: "гололед у входа в библиотеку",
		Latitude:    55.75,
		Longitude:   37.61,
	}
	expectedIncident := &models.Incident{
		ID:        uuid.New(),
		UserID:    student.ID,
		Category:  models.CategoryIce,
		Latitude:  55.75,
		Longitude: 37.61,
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}

	m.incidents.EXPECT().
		Report(gomock.Any(), student.ID, models.CategoryIce, reqBody.Description, 55.75, 37.61).
		Return(expectedIncident, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, expectedIncident.ID, resp.ID)
	assert.Equal(t, "pending", resp.Status)
}

func TestCreateIncident_NoToken(t *testing.T) {
	m, router := newTestHandler(t)
	m.incidents.EXPECT().Report(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(CreateIncidentRequest{Category: "ice"})
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateIncident_UnknownCategory(t *testing.T) {
	m, router := newTestHandler(t)
	expectAuth(m, testStudent())
	m.incidents.EXPECT().Report(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(CreateIncidentRequest{Category: "alien_invasion", Latitude: 10, Longitude: 20})
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListNearbyIncidents_Success(t *testing.T) {
	m, router := newTestHandler(t)
	expected := []*models.Incident{
		{ID: uuid.New(), Status: models.StatusActive},
		{ID: uuid.New(), Status: models.StatusPending},
	}

	m.incidents.EXPECT().
		FindNearby(gomock.Any(), 55.75, 37.61, 500.0).
		Return(expected, nil).
		Times(1)

	// Публичный маршрут, токен не нужен
	w := makeRequest(router, "GET", "/api/v1/incidents?lat=55.75&lng=37.61", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []*IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestListNearbyIncidents_CustomRadius(t *testing.T) {
	m, router := newTestHandler(t)

	m.incidents.EXPECT().
		FindNearby(gomock.Any(), 55.75, 37.61, 120.0).
		Return(nil, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents?lat=55.75&lng=37.61&radius=120", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListNearbyIncidents_BadCoordinates(t *testing.T) {
	m, router := newTestHandler(t)
	m.incidents.EXPECT().FindNearby(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/incidents?lat=abc&lng=37.61", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCastVote_Success(t *testing.T) {
	m, router := newTestHandler(t)
	student := testStudent()
	expectAuth(m, student)
	incidentID := uuid.New()
	isTruthful := true
	expectedVote := &models.Vote{
		ID:         uuid.New(),
		IncidentID: incidentID,
		UserID:     student.ID,
		IsTruthful: true,
	}

	m.votes.EXPECT().
		Cast(gomock.Any(), incidentID, student.ID, true).
		Return(expectedVote, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(CastVoteRequest{IsTruthful: &isTruthful})
	w := makeRequest(router, "POST", "/api/v1/incidents/"+incidentID.String()+"/vote", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp VoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsTruthful)
}

func TestCastVote_Duplicate_Conflict(t *testing.T) {
	m, router := newTestHandler(t)
	student := testStudent()
	expectAuth(m, student)
	incidentID := uuid.New()
	isTruthful := true

	m.votes.EXPECT().
		Cast(gomock.Any(), incidentID, student.ID, true).
		Return(nil, models.ErrDuplicateVote).
		Times(1)

	bodyBytes, _ := json.Marshal(CastVoteRequest{IsTruthful: &isTruthful})
	w := makeRequest(router, "POST", "/api/v1/incidents/"+incidentID.String()+"/vote", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCastVote_MissingValue(t *testing.T) {
	m, router := newTestHandler(t)
	expectAuth(m, testStudent())
	m.votes.EXPECT().Cast(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "POST", "/api/v1/incidents/"+uuid.NewString()+"/vote", bytes.NewBufferString(`{}`), authHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCastVote_ResolvedIncident_UnprocessableEntity(t *testing.T) {
	m, router := newTestHandler(t)
	student := testStudent()
	expectAuth(m, student)
	incidentID := uuid.New()
	isTruthful := false

	m.votes.EXPECT().
		Cast(gomock.Any(), incidentID, student.ID, false).
		Return(nil, models.ErrInvalidState).
		Times(1)

	bodyBytes, _ := json.Marshal(CastVoteRequest{IsTruthful: &isTruthful})
	w := makeRequest(router, "POST", "/api/v1/incidents/"+incidentID.String()+"/vote", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestApproveIncident_Success(t *testing.T) {
	m, router := newTestHandler(t)
	admin := testAdmin()
	expectAuth(m, admin)
	incidentID := uuid.New()
	approved := &models.Incident{ID: incidentID, Status: models.StatusActive}

	m.incidents.EXPECT().
		Approve(gomock.Any(), incidentID, admin).
		Return(approved, nil).
		Times(1)

	w := makeRequest(router, "PATCH", "/api/v1/admin/incidents/"+incidentID.String()+"/approve", nil, authHeader())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "active", resp.Status)
}

func TestApproveIncident_NonAdmin_Forbidden(t *testing.T) {
	m, router := newTestHandler(t)
	student := testStudent()
	expectAuth(m, student)
	incidentID := uuid.New()

	m.incidents.EXPECT().
		Approve(gomock.Any(), incidentID, student).
		Return(nil, models.ErrForbidden).
		Times(1)

	w := makeRequest(router, "PATCH", "/api/v1/admin/incidents/"+incidentID.String()+"/approve", nil, authHeader())

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRejectIncident_NotFound(t *testing.T) {
	m, router := newTestHandler(t)
	admin := testAdmin()
	expectAuth(m, admin)
	incidentID := uuid.New()

	m.incidents.EXPECT().
		Reject(gomock.Any(), incidentID, admin).
		Return(nil, models.ErrNotFound).
		Times(1)

	w := makeRequest(router, "PATCH", "/api/v1/admin/incidents/"+incidentID.String()+"/reject", nil, authHeader())

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResolveIncident_WrongState_UnprocessableEntity(t *testing.T) {
	m, router := newTestHandler(t)
	student := testStudent()
	expectAuth(m, student)
	incidentID := uuid.New()

	m.incidents.EXPECT().
		Resolve(gomock.Any(), incidentID, student).
		Return(nil, models.ErrInvalidState).
		Times(1)

	w := makeRequest(router, "PATCH", "/api/v1/incidents/"+incidentID.String()+"/resolve", nil, authHeader())

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestResolveIncident_BadID(t *testing.T) {
	m, router := newTestHandler(t)
	expectAuth(m, testStudent())
	m.incidents.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "PATCH", "/api/v1/incidents/not-a-uuid/resolve", nil, authHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_Success(t *testing.T) {
	m, router := newTestHandler(t)
	created := &models.User{
		ID:       uuid.New(),
		Email:    "new@campus.edu",
		Role:     models.RoleStudent,
		IsActive: true,
	}

	m.users.EXPECT().
		Register(gomock.Any(), service.RegisterInput{
			Email:    "new@campus.edu",
			Password: "secret-password",
		}).
		Return(created, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(RegisterRequest{Email: "new@campus.edu", Password: "secret-password"})
	w := makeRequest(router, "POST", "/api/v1/auth/register", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.ID)
	assert.Equal(t, "student", resp.Role)
}

func TestRegister_EmailTaken_Conflict(t *testing.T) {
	m, router := newTestHandler(t)

	m.users.EXPECT().
		Register(gomock.Any(), gomock.Any()).
		Return(nil, service.ErrEmailTaken).
		Times(1)

	bodyBytes, _ := json.Marshal(RegisterRequest{Email: "taken@campus.edu", Password: "secret-password"})
	w := makeRequest(router, "POST", "/api/v1/auth/register", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_BadAdminCode_Forbidden(t *testing.T) {
	m, router := newTestHandler(t)

	m.users.EXPECT().
		Register(gomock.Any(), gomock.Any()).
		Return(nil, service.ErrAdminCodeInvalid).
		Times(1)

	bodyBytes, _ := json.Marshal(RegisterRequest{Email: "x@campus.edu", Password: "secret-password", AdminCode: "guess"})
	w := makeRequest(router, "POST", "/api/v1/auth/register", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogin_Success(t *testing.T) {
	m, router := newTestHandler(t)
	user := testStudent()

	m.users.EXPECT().
		Login(gomock.Any(), user.Email, "secret-password").
		Return("issued-token", user, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(LoginRequest{Email: user.Email, Password: "secret-password"})
	w := makeRequest(router, "POST", "/api/v1/auth/login", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "issued-token", resp.AccessToken)
	require.NotNil(t, resp.User)
	assert.Equal(t, user.ID, resp.User.ID)
}

func TestLogin_BadCredentials_Unauthorized(t *testing.T) {
	m, router := newTestHandler(t)

	m.users.EXPECT().
		Login(gomock.Any(), "x@campus.edu", "wrong").
		Return("", nil, models.ErrAuth).
		Times(1)

	bodyBytes, _ := json.Marshal(LoginRequest{Email: "x@campus.edu", Password: "wrong"})
	w := makeRequest(router, "POST", "/api/v1/auth/login", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetProfile_Success(t *testing.T) {
	m, router := newTestHandler(t)
	user := testStudent()
	expectAuth(m, user)

	w := makeRequest(router, "GET", "/api/v1/users/me", nil, authHeader())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, user.ID, resp.ID)
	// Хеш пароля наружу не уходит
	assert.NotContains(t, w.Body.String(), "hashed_password")
}

func TestGetProfile_InvalidToken(t *testing.T) {
	m, router := newTestHandler(t)

	m.users.EXPECT().
		Authenticate(gomock.Any(), testToken).
		Return(nil, models.ErrAuth).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/users/me", nil, authHeader())

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfile_Success(t *testing.T) {
	m, router := newTestHandler(t)
	user := testStudent()
	expectAuth(m, user)
	newName := "Новое Имя"
	updated := &models.User{ID: user.ID, Email: user.Email, Role: user.Role, FullName: newName, IsActive: true}

	m.users.EXPECT().
		UpdateProfile(gomock.Any(), user.ID, service.ProfileUpdate{FullName: &newName}).
		Return(updated, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(UpdateProfileRequest{FullName: &newName})
	w := makeRequest(router, "PATCH", "/api/v1/users/me", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, newName, resp.FullName)
}

func TestListUsers_Admin_Success(t *testing.T) {
	m, router := newTestHandler(t)
	admin := testAdmin()
	expectAuth(m, admin)
	expected := []*models.User{testStudent(), testStudent()}

	m.users.EXPECT().
		ListUsers(gomock.Any(), admin).
		Return(expected, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/admin/users", nil, authHeader())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []*UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestDeleteUser_Success(t *testing.T) {
	m, router := newTestHandler(t)
	admin := testAdmin()
	expectAuth(m, admin)
	targetID := uuid.New()

	m.users.EXPECT().
		DeleteUser(gomock.Any(), admin, targetID).
		Return(nil).
		Times(1)

	w := makeRequest(router, "DELETE", "/api/v1/admin/users/"+targetID.String(), nil, authHeader())

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDeleteUser_AdminTarget_Forbidden(t *testing.T) {
	m, router := newTestHandler(t)
	admin := testAdmin()
	expectAuth(m, admin)
	targetID := uuid.New()

	m.users.EXPECT().
		DeleteUser(gomock.Any(), admin, targetID).
		Return(models.ErrForbidden).
		Times(1)

	w := makeRequest(router, "DELETE", "/api/v1/admin/users/"+targetID.String(), nil, authHeader())

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSubmitSOS_Success(t *testing.T) {
	m, router := newTestHandler(t)
	user := testStudent()
	expectAuth(m, user)
	expected := &models.SOSLog{
		ID:        uuid.New(),
		UserID:    user.ID,
		Latitude:  55.75,
		Longitude: 37.61,
		CreatedAt: time.Now(),
	}

	m.sos.EXPECT().
		Submit(gomock.Any(), user.ID, 55.75, 37.61).
		Return(expected, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(SubmitSOSRequest{Latitude: 55.75, Longitude: 37.61})
	w := makeRequest(router, "POST", "/api/v1/sos", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp SOSLogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, expected.ID, resp.ID)
}

func TestSubmitSOS_NoToken(t *testing.T) {
	m, router := newTestHandler(t)
	m.sos.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(SubmitSOSRequest{Latitude: 55.75, Longitude: 37.61})
	w := makeRequest(router, "POST", "/api/v1/sos", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSOSHistory_Success(t *testing.T) {
	m, router := newTestHandler(t)
	user := testStudent()
	expectAuth(m, user)
	expected := []*models.SOSLog{
		{ID: uuid.New(), UserID: user.ID},
	}

	m.sos.EXPECT().
		History(gomock.Any(), user, 10).
		Return(expected, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/sos/history?limit=10", nil, authHeader())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []*SOSLogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)
}

func TestSOSHistory_LimitOutOfRange(t *testing.T) {
	m, router := newTestHandler(t)
	expectAuth(m, testStudent())
	m.sos.EXPECT().History(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	for _, limit := range []string{"0", "1000", "abc"} {
		w := makeRequest(router, "GET", "/api/v1/sos/history?limit="+limit, nil, authHeader())
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}

func TestSafeRoute_Success(t *testing.T) {
	m, router := newTestHandler(t)
	user := testStudent()
	expectAuth(m, user)
	expected := &service.SafeRouteResult{
		Plan:          &service.RoutePlan{DistanceMeters: 1500, DurationSeconds: 1100},
		IncidentCount: 2,
	}

	m.routes.EXPECT().
		SafeRoute(gomock.Any(), service.SafeRouteRequest{
			StartLat: 55.75, StartLng: 37.61,
			EndLat: 55.76, EndLng: 37.62,
		}).
		Return(expected, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(SafeRouteRequest{
		StartLat: 55.75, StartLng: 37.61,
		EndLat: 55.76, EndLng: 37.62,
	})
	w := makeRequest(router, "POST", "/api/v1/routes/safe-route", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp service.SafeRouteResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.IncidentCount)
}

func TestSafeRoute_ProviderDown_BadGateway(t *testing.T) {
	m, router := newTestHandler(t)
	user := testStudent()
	expectAuth(m, user)

	m.routes.EXPECT().
		SafeRoute(gomock.Any(), gomock.Any()).
		Return(nil, models.ErrUpstreamUnavailable).
		Times(1)

	bodyBytes, _ := json.Marshal(SafeRouteRequest{
		StartLat: 55.75, StartLng: 37.61,
		EndLat: 55.76, EndLng: 37.62,
	})
	w := makeRequest(router, "POST", "/api/v1/routes/safe-route", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHealthCheck(t *testing.T) {
	_, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
