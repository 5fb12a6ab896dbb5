package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/turtacn/tokenlife/internal/application/dto"
	"github.com/turtacn/tokenlife/internal/application/service"
	"github.com/turtacn/tokenlife/internal/config"
	"github.com/turtacn/tokenlife/internal/domain/models"
	domainService "github.com/turtacn/tokenlife/internal/domain/service"
	"github.com/turtacn/tokenlife/internal/infrastructure/monitoring"
	"github.com/turtacn/tokenlife/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/tokenlife/internal/infrastructure/ratelimit"
	infraredis "github.com/turtacn/tokenlife/internal/infrastructure/redis"
	httpapi "github.com/turtacn/tokenlife/internal/interfaces/http"
	"github.com/turtacn/tokenlife/internal/interfaces/http/handlers"
	"github.com/turtacn/tokenlife/internal/interfaces/http/middleware"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/logger"
	"github.com/turtacn/tokenlife/tests/fakes"
)

type testServer struct {
	router *httpapi.Router
	engine *gin.Engine
	audit  *fakes.FakeAuditProducer
}

func newTestServer(t *testing.T, loginLimit int64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server:    config.ServerConfig{Environment: constants.EnvDevelopment, Host: "127.0.0.1", Port: 0},
		JWT:       config.JWTConfig{AccessTokenTTL: 10 * time.Minute, RefreshTokenTTL: 48 * time.Hour},
		RateLimit: config.RateLimitConfig{Enabled: loginLimit > 0, LoginLimit: loginLimit, Window: time.Minute},
	}
	log := logger.NewNoopLogger()
	conn := fakes.NewSQLiteDB(t)

	promMetrics := monitoring.NewMetrics(prometheus.NewRegistry())
	metrics := monitoring.NewMetricsAdapter(promMetrics)
	audit := fakes.NewFakeAuditProducer(64)

	codec, err := domainService.NewJWTCodec([]byte("router-test-key"), constants.AlgorithmHS256)
	require.NoError(t, err)
	hasher := domainService.NewBcryptHasher(bcrypt.MinCost)
	denylist := infraredis.NewLocalAccessTokenDenylist(metrics)
	settings := service.TokenSettingsFromConfig(&cfg.JWT)

	users := postgres.NewUserRepository(conn.DB(), log)
	tokens := postgres.NewRefreshTokenRepository(conn.DB(), log)
	uow := postgres.NewUnitOfWork(conn.DB(), log)

	authSvc := service.NewAuthAppService(users, uow, hasher, codec, settings, audit, metrics, log)
	sessionSvc := service.NewSessionAppService(tokens, uow, codec, denylist, settings, audit, metrics, log)
	verifier := service.NewAccessTokenVerifier(codec, denylist, log)

	limiter := ratelimit.NewLocalRateLimiter(ratelimit.NewRateLimiterConfig(&cfg.RateLimit))

	router := httpapi.NewRouter(cfg, log, promMetrics,
		handlers.NewHealthHandler(map[string]handlers.HealthChecker{"database": conn}, log),
		handlers.NewAuthHandler(authSvc, sessionSvc, &cfg.JWT, log),
		handlers.NewUserHandler(authSvc, &cfg.JWT),
		middleware.RequireAccessToken(verifier, log),
		middleware.LoginRateLimit(limiter, metrics, &cfg.RateLimit, log),
	)

	hashed, err := hasher.Hash("test1234")
	require.NoError(t, err)
	require.NoError(t, users.Create(t.Context(), &models.User{
		Email:          "evasquez@example.com",
		Username:       "evasquez",
		HashedPassword: hashed,
		IsActive:       true,
		Role:           constants.RoleUser,
	}))

	return &testServer{router: router, engine: router.Engine(), audit: audit}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.engine.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) login(t *testing.T, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func withCookie(req *http.Request, cookie *http.Cookie) *http.Request {
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	return req
}

func withBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func refreshCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == constants.RefreshTokenCookie {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", constants.RefreshTokenCookie)
	return nil
}

func accessToken(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body dto.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.NotEmpty(t, body.AccessToken)
	assert.Equal(t, "bearer", body.TokenType)
	return body.AccessToken
}

func TestLoginRefreshReplayScenario(t *testing.T) {
	s := newTestServer(t, 0)

	loginResp := s.login(t, "evasquez", "test1234")
	require.Equal(t, http.StatusOK, loginResp.Code)
	firstAccess := accessToken(t, loginResp)
	firstCookie := refreshCookie(t, loginResp)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), firstCookie.Expires, 5*time.Second)
	assert.True(t, firstCookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, firstCookie.SameSite)

	refreshResp := s.do(withCookie(httptest.NewRequest(http.MethodGet, "/auth/refresh", nil), firstCookie))
	require.Equal(t, http.StatusOK, refreshResp.Code)
	secondAccess := accessToken(t, refreshResp)
	secondCookie := refreshCookie(t, refreshResp)
	assert.NotEqual(t, firstAccess, secondAccess)
	assert.NotEqual(t, firstCookie.Value, secondCookie.Value)
	assert.Equal(t, firstCookie.Expires.Unix(), secondCookie.Expires.Unix())

	replayResp := s.do(withCookie(httptest.NewRequest(http.MethodGet, "/auth/refresh", nil), firstCookie))
	assert.Equal(t, http.StatusUnauthorized, replayResp.Code)
	assert.Equal(t, "Bearer", replayResp.Header().Get("WWW-Authenticate"))
	assert.Contains(t, replayResp.Body.String(), string(constants.ErrCodeRefreshTokenRevoked))
	assert.True(t, s.audit.HasEvent(string(constants.AuditEventRefreshReplayDetected)))
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t, 0)

	rr := s.login(t, "evasquez", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))

	unknown := s.login(t, "nobody", "test1234")
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, rr.Body.String(), unknown.Body.String())

	rr = s.do(httptest.NewRequest(http.MethodGet, "/auth/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogoutRevokesBothTokens(t *testing.T) {
	s := newTestServer(t, 0)

	loginResp := s.login(t, "evasquez", "test1234")
	require.Equal(t, http.StatusOK, loginResp.Code)
	access := accessToken(t, loginResp)
	cookie := refreshCookie(t, loginResp)

	rr := s.do(withBearer(httptest.NewRequest(http.MethodGet, "/user/", nil), access))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"username":"evasquez"`)

	rr = s.do(withBearer(withCookie(httptest.NewRequest(http.MethodDelete, "/auth/refresh", nil), cookie), access))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"detail":"Logged out"}`, rr.Body.String())
	assert.True(t, refreshCookie(t, rr).MaxAge < 0)

	rr = s.do(withBearer(httptest.NewRequest(http.MethodGet, "/user/", nil), access))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), string(constants.ErrCodeAccessTokenRevoked))

	rr = s.do(withCookie(httptest.NewRequest(http.MethodGet, "/auth/refresh", nil), cookie))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// signing out again still succeeds
	rr = s.do(withCookie(httptest.NewRequest(http.MethodDelete, "/auth/refresh", nil), cookie))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(httptest.NewRequest(http.MethodDelete, "/auth/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSessionsAndPasswordChange(t *testing.T) {
	s := newTestServer(t, 0)

	first := s.login(t, "evasquez", "test1234")
	second := s.login(t, "evasquez", "test1234")
	access := accessToken(t, second)

	rr := s.do(withBearer(httptest.NewRequest(http.MethodGet, "/auth/sessions", nil), access))
	require.Equal(t, http.StatusOK, rr.Code)
	var sessions []dto.SessionDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sessions))
	assert.Len(t, sessions, 2)
	assert.NotContains(t, rr.Body.String(), refreshCookie(t, first).Value)

	req := httptest.NewRequest(http.MethodPut, "/user/change_password", strings.NewReader(`{"old_password":"test1234","new_password":"n3w-password"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = s.do(withBearer(req, access))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = s.do(withCookie(httptest.NewRequest(http.MethodGet, "/auth/refresh", nil), refreshCookie(t, first)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	assert.Equal(t, http.StatusUnauthorized, s.login(t, "evasquez", "test1234").Code)
	relogin := s.login(t, "evasquez", "n3w-password")
	require.Equal(t, http.StatusOK, relogin.Code)

	rr = s.do(withBearer(httptest.NewRequest(http.MethodDelete, "/auth/sessions", nil), accessToken(t, relogin)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"detail":"Sessions revoked","revoked":1}`, rr.Body.String())
}

func TestRegisterEndpoint(t *testing.T) {
	s := newTestServer(t, 0)

	body := `{"email":"jdoe@example.com","username":"jdoe","password":"s3cret-pass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := s.do(req)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")

	req = httptest.NewRequest(http.MethodPost, "/auth/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusConflict, s.do(req).Code)

	assert.Equal(t, http.StatusOK, s.login(t, "jdoe", "s3cret-pass").Code)
}

func TestLoginRateLimitEndpoint(t *testing.T) {
	s := newTestServer(t, 2)

	assert.Equal(t, http.StatusUnauthorized, s.login(t, "evasquez", "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, s.login(t, "evasquez", "wrong").Code)

	rr := s.login(t, "evasquez", "test1234")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t, 0)

	rr := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"database":"ok"`)

	assert.Equal(t, http.StatusOK, s.do(httptest.NewRequest(http.MethodGet, "/live", nil)).Code)
	assert.Equal(t, http.StatusOK, s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)

	rr = s.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"not_found","error_description":"The requested resource was not found"}`, rr.Body.String())
}

func TestRouterStopBeforeStart(t *testing.T) {
	s := newTestServer(t, 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.router.Stop(ctx))

	done := make(chan error, 1)
	go func() { done <- s.router.Start() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start kept serving after Stop")
	}
}

func TestRouterStartThenStop(t *testing.T) {
	s := newTestServer(t, 0)

	done := make(chan error, 1)
	go func() { done <- s.router.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.router.Stop(ctx))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
