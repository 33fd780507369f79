package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/cookie"
	"github.com/MrEthical07/goAccount/metrics/export/prometheus"
	"github.com/MrEthical07/goAccount/notify"
	"github.com/MrEthical07/goAccount/store/memory"
)

type testServer struct {
	srv    *httptest.Server
	client *http.Client
	mail   *notify.Recorder
	engine *goAccount.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := goAccount.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.PasswordReset.EnumerationDelayMin = 0
	cfg.PasswordReset.EnumerationDelayMax = time.Millisecond

	mail := notify.NewRecorder()
	engine, err := goAccount.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithIdentityStore(memory.New()).
		WithNotifier(mail).
		Build()
	require.NoError(t, err)

	signer, err := cookie.NewSigner(cookie.Config{
		TTL:           engine.SessionTTL(),
		SigningMethod: cookie.MethodHS256,
		PrivateKey:    []byte(strings.Repeat("s", 32)),
	})
	require.NoError(t, err)

	router := NewRouter(NewHandler(engine, signer, nil), prometheus.New(engine).Handler())
	srv := httptest.NewServer(router)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		srv.Close()
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return &testServer{srv: srv, client: &http.Client{Jar: jar}, mail: mail, engine: engine}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, s.srv.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (s *testServer) signupAndActivate(t *testing.T) {
	t.Helper()

	code, _ := s.do(t, http.MethodPost, "/api/v1/auth/signup", `{"username":"db303","password":"House!909","email":"acid@house.net"}`)
	require.Equal(t, http.StatusOK, code)

	s.engine.FlushNotifications()
	msg, ok := s.mail.Last("acid@house.net")
	require.True(t, ok)
	code, _ = s.do(t, http.MethodGet, "/api/v1/auth/signup/activate?token="+msg.LinkToken(), "")
	require.Equal(t, http.StatusOK, code)
}

func TestSignupActivateLogin(t *testing.T) {
	s := newTestServer(t)
	s.signupAndActivate(t)

	code, body := s.do(t, http.MethodPost, "/api/v1/auth/login", `{"username":"db303","password":"House!909"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body["status"])
	assert.Contains(t, body, "data")
	assert.Nil(t, body["data"])

	code, body = s.do(t, http.MethodGet, "/api/v1/auth/me", "")
	assert.Equal(t, http.StatusOK, code)
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["user_id"])
}

func TestLoginBeforeActivationIsForbidden(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/api/v1/auth/signup", `{"username":"db303","password":"House!909","email":"acid@house.net"}`)
	require.Equal(t, http.StatusOK, code)

	code, body := s.do(t, http.MethodPost, "/api/v1/auth/login", `{"username":"db303","password":"House!909"}`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "Account is not activated.", body["message"])
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	s.signupAndActivate(t)

	code, body := s.do(t, http.MethodPost, "/api/v1/auth/login", `{"username":"db303","password":"House!000"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Authentication failed.", body["message"])

	code, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSignupDuplicateConflict(t *testing.T) {
	s := newTestServer(t)
	s.signupAndActivate(t)

	code, body := s.do(t, http.MethodPost, "/api/v1/auth/signup", `{"username":"db303","password":"House!909","email":"other@house.net"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "fail", body["status"])
}

func TestActivateUnknownToken(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/api/v1/auth/signup/activate?token=12346", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPasswordResetLatestTokenWins(t *testing.T) {
	s := newTestServer(t)
	s.signupAndActivate(t)

	for i := 0; i < 2; i++ {
		code, _ := s.do(t, http.MethodPost, "/api/v1/auth/change_password/request", `{"email":"acid@house.net"}`)
		require.Equal(t, http.StatusOK, code)
	}
	var tokens []string
	s.engine.FlushNotifications()
	for _, m := range s.mail.Messages() {
		if m.Kind == notify.KindPasswordReset {
			tokens = append(tokens, m.LinkToken())
		}
	}
	require.Len(t, tokens, 2)

	code, _ := s.do(t, http.MethodPost, "/api/v1/auth/change_password",
		`{"reset_token":"`+tokens[0]+`","password":"House!808","password_again":"House!808"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/change_password",
		`{"reset_token":"`+tokens[1]+`","password":"House!808","password_again":"House!808"}`)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", `{"username":"db303","password":"House!808"}`)
	assert.Equal(t, http.StatusOK, code)
}

func TestChangePasswordErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"unknown token", `{"reset_token":"12346","password":"House!808","password_again":"House!808"}`, http.StatusUnauthorized},
		{"missing token", `{"password":"House!909","password_again":"House!909"}`, http.StatusBadRequest},
		{"missing password", `{"reset_token":"12346","new_password_again":"House!909"}`, http.StatusBadRequest},
		{"missing repeat", `{"reset_token":"12346","password":"House!909"}`, http.StatusBadRequest},
		{"weak password", `{"reset_token":"12346","password":"H","password_again":"H"}`, http.StatusBadRequest},
		{"mismatch", `{"reset_token":"12346","password":"House!808","password_again":"House!809"}`, http.StatusUnauthorized},
		{"malformed json", `{"reset_token":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(t, http.MethodPost, "/api/v1/auth/change_password", tt.body)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, "fail", body["status"])
			if code == http.StatusUnauthorized {
				assert.Equal(t, msgAuthFailed, body["message"])
			}
		})
	}
}

func TestEnumerationSafeEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/api/v1/auth/change_password/request", `{"email":"ghost@house.net"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body["status"])

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/signup/activate/resend", `{"email":"ghost@house.net"}`)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/change_password/request", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	s.engine.FlushNotifications()
	assert.Empty(t, s.mail.Messages())
}

func TestLogoutEndsSession(t *testing.T) {
	s := newTestServer(t)
	s.signupAndActivate(t)

	code, _ := s.do(t, http.MethodPost, "/api/v1/auth/login", `{"username":"db303","password":"House!909"}`)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.client.Get(s.srv.URL + "/health_check")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	s.signupAndActivate(t)
	resp, err = s.client.Get(s.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "goaccount_signup_success_total 1")
}

func TestErrorResponseMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{goAccount.ErrInvalidCredentials, http.StatusUnauthorized, msgAuthFailed},
		{goAccount.ErrInactiveAccount, http.StatusForbidden, msgNotActivated},
		{goAccount.ErrUnexpected, http.StatusInternalServerError, msgUnexpected},
		{goAccount.ErrRateLimited, http.StatusTooManyRequests, msgRateLimited},
		{goAccount.ErrWeakPassword, http.StatusBadRequest, msgWeakPassword},
		{goAccount.ErrTokenNotFound, http.StatusUnauthorized, msgAuthFailed},
		{goAccount.ErrPasswordMismatch, http.StatusUnauthorized, msgAuthFailed},
	}
	for _, tt := range tests {
		code, msg := errorResponse(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
		assert.Equal(t, tt.msg, msg, tt.err.Error())
	}
}
