package authkit

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

type authCookieState struct {
	access  string
	refresh string
}

func captureAuthCookies(state authCookieState, cookies []*http.Cookie, config ServerConfig) authCookieState {
	for _, cookie := range cookies {
		switch cookie.Name {
		case config.AccessCookieName:
			state.access = cookie.Value
		case config.RefreshCookieName:
			state.refresh = cookie.Value
		}
	}
	return state
}

func applyAuthCookies(request *http.Request, state authCookieState, config ServerConfig) {
	if state.access != "" {
		request.AddCookie(&http.Cookie{Name: config.AccessCookieName, Value: state.access})
	}
	if state.refresh != "" {
		request.AddCookie(&http.Cookie{Name: config.RefreshCookieName, Value: state.refresh})
	}
}

type routesFixture struct {
	config   ServerConfig
	metrics  *CounterMetrics
	server   *httptest.Server
	client   *http.Client
	users    *MemoryUserStore
	sessions SessionTokenStore
}

func newRoutesFixture(t *testing.T) *routesFixture {
	return newRoutesFixtureWithSessions(t, nil)
}

func newRoutesFixtureWithSessions(t *testing.T, sessions SessionTokenStore) *routesFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config := newTestServerConfig()
	clock := &controllableClock{current: time.Now().UTC()}
	codec := newTestCodec(t, clock)
	users := NewMemoryUserStore()
	if sessions == nil {
		sessions = NewMemorySessionStore(clock)
	}
	metrics := NewCounterMetrics()
	manager := NewSessionManager(codec, users, sessions, config.RefreshTTL, zaptest.NewLogger(t), metrics)

	router := gin.New()
	MountAuthRoutes(router.Group("/api/v1/auth"), manager, codec, users, config, zaptest.NewLogger(t))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &routesFixture{
		config:   config,
		metrics:  metrics,
		server:   server,
		client:   server.Client(),
		users:    users,
		sessions: sessions,
	}
}

func (fixture *routesFixture) postJSON(t *testing.T, path string, body string, state authCookieState) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	request, requestErr := http.NewRequest(http.MethodPost, fixture.server.URL+path, reader)
	if requestErr != nil {
		t.Fatalf("building request failed: %v", requestErr)
	}
	request.Header.Set("Content-Type", "application/json")
	applyAuthCookies(request, state, fixture.config)
	response, doErr := fixture.client.Do(request)
	if doErr != nil {
		t.Fatalf("request failed: %v", doErr)
	}
	var payload map[string]interface{}
	_ = json.NewDecoder(response.Body).Decode(&payload)
	_ = response.Body.Close()
	return response, payload
}

func TestHTTPAuthLifecycleEndToEnd(t *testing.T) {
	fixture := newRoutesFixture(t)
	state := authCookieState{}

	// Signup returns the sanitized identity and no cookies.
	signupResp, signupBody := fixture.postJSON(t, "/api/v1/auth/signup", `{"name":"A","email":"a@x.com","password":"secret1"}`, state)
	if signupResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 from signup, got %d", signupResp.StatusCode)
	}
	signupData, okData := signupBody["data"].(map[string]interface{})
	if !okData {
		t.Fatalf("expected identity payload in signup response")
	}
	if signupData["name"] != "A" || signupData["email"] != "a@x.com" || signupData["role"] != "customer" {
		t.Fatalf("unexpected signup payload: %v", signupData)
	}
	if signupData["id"] == "" || signupData["id"] == nil {
		t.Fatalf("expected identity id in signup payload")
	}
	if _, leaked := signupData["password"]; leaked {
		t.Fatalf("signup payload must not contain a password field")
	}
	if len(signupResp.Cookies()) != 0 {
		t.Fatalf("signup must not set auth cookies")
	}

	// Login sets both cookies and excludes the password.
	loginResp, loginBody := fixture.postJSON(t, "/api/v1/auth/login", `{"email":"a@x.com","password":"secret1"}`, state)
	if loginResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from login, got %d", loginResp.StatusCode)
	}
	state = captureAuthCookies(state, loginResp.Cookies(), fixture.config)
	if state.access == "" || state.refresh == "" {
		t.Fatalf("expected access and refresh cookies after login")
	}
	loginData, _ := loginBody["data"].(map[string]interface{})
	if _, leaked := loginData["password"]; leaked {
		t.Fatalf("login payload must not contain a password field")
	}

	// Refresh issues a new access cookie; the refresh cookie is untouched.
	refreshResp, _ := fixture.postJSON(t, "/api/v1/auth/refresh-token", "", state)
	if refreshResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from refresh, got %d", refreshResp.StatusCode)
	}
	refreshed := captureAuthCookies(authCookieState{}, refreshResp.Cookies(), fixture.config)
	if refreshed.access == "" {
		t.Fatalf("expected new access cookie from refresh")
	}
	if refreshed.refresh != "" {
		t.Fatalf("refresh must not rotate the refresh cookie")
	}
	state.access = refreshed.access

	// The same refresh cookie remains valid until logout.
	secondRefreshResp, _ := fixture.postJSON(t, "/api/v1/auth/refresh-token", "", state)
	if secondRefreshResp.StatusCode != http.StatusOK {
		t.Fatalf("expected refresh cookie to stay valid, got %d", secondRefreshResp.StatusCode)
	}

	// Logout clears cookies and deletes the session record.
	logoutResp, _ := fixture.postJSON(t, "/api/v1/auth/logout", "", state)
	if logoutResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from logout, got %d", logoutResp.StatusCode)
	}
	clearedAccess := false
	clearedRefresh := false
	for _, cookie := range logoutResp.Cookies() {
		if cookie.Name == fixture.config.AccessCookieName && cookie.MaxAge < 0 {
			clearedAccess = true
		}
		if cookie.Name == fixture.config.RefreshCookieName && cookie.MaxAge < 0 {
			clearedRefresh = true
		}
	}
	if !clearedAccess || !clearedRefresh {
		t.Fatalf("expected logout to clear both cookies")
	}

	// The deleted session rejects further refresh calls.
	postLogoutResp, postLogoutBody := fixture.postJSON(t, "/api/v1/auth/refresh-token", "", state)
	if postLogoutResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", postLogoutResp.StatusCode)
	}
	if postLogoutBody["status"] != false {
		t.Fatalf("expected failure envelope after logout")
	}

	if fixture.metrics.Count(metricAuthLoginSuccess) == 0 {
		t.Fatalf("expected auth.login.success metric increment")
	}
	if fixture.metrics.Count(metricAuthRefreshSuccess) == 0 {
		t.Fatalf("expected auth.refresh.success metric increment")
	}
	if fixture.metrics.Count(metricAuthLogoutSuccess) == 0 {
		t.Fatalf("expected auth.logout.success metric increment")
	}
}

func TestHTTPLoginRejectsBadCredentials(t *testing.T) {
	fixture := newRoutesFixture(t)
	state := authCookieState{}

	fixture.postJSON(t, "/api/v1/auth/signup", `{"name":"A","email":"a@x.com","password":"secret1"}`, state)

	missingResp, missingBody := fixture.postJSON(t, "/api/v1/auth/login", `{"email":"nobody@x.com","password":"secret1"}`, state)
	if missingResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown email, got %d", missingResp.StatusCode)
	}
	if missingBody["message"] != "User does not exist" {
		t.Fatalf("unexpected message %v", missingBody["message"])
	}

	wrongResp, wrongBody := fixture.postJSON(t, "/api/v1/auth/login", `{"email":"a@x.com","password":"nope-nope"}`, state)
	if wrongResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong password, got %d", wrongResp.StatusCode)
	}
	if wrongBody["message"] != "Incorrect password or email" {
		t.Fatalf("unexpected message %v", wrongBody["message"])
	}
}

func TestHTTPSignupValidation(t *testing.T) {
	fixture := newRoutesFixture(t)
	state := authCookieState{}

	shortResp, _ := fixture.postJSON(t, "/api/v1/auth/signup", `{"name":"A","email":"a@x.com","password":"short"}`, state)
	if shortResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", shortResp.StatusCode)
	}

	badEmailResp, _ := fixture.postJSON(t, "/api/v1/auth/signup", `{"name":"A","email":"not-an-email","password":"secret1"}`, state)
	if badEmailResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed email, got %d", badEmailResp.StatusCode)
	}

	fixture.postJSON(t, "/api/v1/auth/signup", `{"name":"A","email":"a@x.com","password":"secret1"}`, state)
	duplicateResp, duplicateBody := fixture.postJSON(t, "/api/v1/auth/signup", `{"name":"B","email":"a@x.com","password":"secret2"}`, state)
	if duplicateResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %d", duplicateResp.StatusCode)
	}
	if duplicateBody["message"] != "User already exists" {
		t.Fatalf("unexpected message %v", duplicateBody["message"])
	}
}

func TestHTTPLogoutWithoutCookiesSucceeds(t *testing.T) {
	fixture := newRoutesFixture(t)

	logoutResp, logoutBody := fixture.postJSON(t, "/api/v1/auth/logout", "", authCookieState{})
	if logoutResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from cookie-less logout, got %d", logoutResp.StatusCode)
	}
	if logoutBody["status"] != true {
		t.Fatalf("expected success envelope from cookie-less logout")
	}
}

func TestHTTPLoginReportsStoreFailureAs500(t *testing.T) {
	fixture := newRoutesFixtureWithSessions(t, &failingSessionStore{failSet: true, inner: NewMemorySessionStore(nil)})
	state := authCookieState{}

	fixture.postJSON(t, "/api/v1/auth/signup", `{"name":"A","email":"a@x.com","password":"secret1"}`, state)

	loginResp, loginBody := fixture.postJSON(t, "/api/v1/auth/login", `{"email":"a@x.com","password":"secret1"}`, state)
	if loginResp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 for session store outage, got %d", loginResp.StatusCode)
	}
	if loginBody["message"] != "Something went wrong" {
		t.Fatalf("unexpected message %v", loginBody["message"])
	}
	if len(loginResp.Cookies()) != 0 {
		t.Fatalf("failed login must not set auth cookies")
	}
}

func TestHTTPRefreshReportsStoreFailureAs500(t *testing.T) {
	fixture := newRoutesFixtureWithSessions(t, &failingSessionStore{failGet: true, inner: NewMemorySessionStore(nil)})
	state := authCookieState{}

	fixture.postJSON(t, "/api/v1/auth/signup", `{"name":"A","email":"a@x.com","password":"secret1"}`, state)
	loginResp, _ := fixture.postJSON(t, "/api/v1/auth/login", `{"email":"a@x.com","password":"secret1"}`, state)
	if loginResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from login, got %d", loginResp.StatusCode)
	}
	state = captureAuthCookies(state, loginResp.Cookies(), fixture.config)

	// A dead backend is not an invalid token; the client should retry,
	// not re-login.
	refreshResp, refreshBody := fixture.postJSON(t, "/api/v1/auth/refresh-token", "", state)
	if refreshResp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 for session store outage, got %d", refreshResp.StatusCode)
	}
	if refreshBody["message"] != "Something went wrong" {
		t.Fatalf("unexpected message %v", refreshBody["message"])
	}
}

func TestHTTPProfileRequiresAuth(t *testing.T) {
	fixture := newRoutesFixture(t)
	state := authCookieState{}

	fixture.postJSON(t, "/api/v1/auth/signup", `{"name":"A","email":"a@x.com","password":"secret1"}`, state)
	loginResp, _ := fixture.postJSON(t, "/api/v1/auth/login", `{"email":"a@x.com","password":"secret1"}`, state)
	state = captureAuthCookies(state, loginResp.Cookies(), fixture.config)

	request, _ := http.NewRequest(http.MethodGet, fixture.server.URL+"/api/v1/auth/profile", nil)
	applyAuthCookies(request, state, fixture.config)
	profileResp, profileErr := fixture.client.Do(request)
	if profileErr != nil {
		t.Fatalf("profile request failed: %v", profileErr)
	}
	defer func() { _ = profileResp.Body.Close() }()
	if profileResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from profile, got %d", profileResp.StatusCode)
	}

	bareRequest, _ := http.NewRequest(http.MethodGet, fixture.server.URL+"/api/v1/auth/profile", nil)
	bareResp, bareErr := fixture.client.Do(bareRequest)
	if bareErr != nil {
		t.Fatalf("bare profile request failed: %v", bareErr)
	}
	defer func() { _ = bareResp.Body.Close() }()
	if bareResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookies, got %d", bareResp.StatusCode)
	}
}
