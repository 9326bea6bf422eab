package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"roomchat/internal/middleware"
	"roomchat/internal/service"
	"roomchat/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture() (*AuthHandler, *testutil.MockUserRepository, *testutil.MockSessionRepository) {
	userRepo := testutil.NewMockUserRepository()
	sessionRepo := testutil.NewMockSessionRepository()
	authService := service.NewAuthService(userRepo, sessionRepo)
	return NewAuthHandler(authService), userRepo, sessionRepo
}

func TestAuthHandler_Signup(t *testing.T) {
	t.Run("successful_signup", func(t *testing.T) {
		handler, userRepo, _ := newAuthFixture()

		body := strings.NewReader(`{"username":"alice","password":"password123"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", body)
		w := httptest.NewRecorder()

		handler.Signup(w, req)

		require.Equal(t, http.StatusCreated, w.Code)

		var resp UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "alice", resp.Username)
		assert.NotEmpty(t, resp.ID)

		// Password hash never leaks into the response
		assert.NotContains(t, w.Body.String(), "password")
		assert.Len(t, userRepo.Users, 1)
	})

	t.Run("duplicate_username", func(t *testing.T) {
		handler, _, _ := newAuthFixture()

		body := strings.NewReader(`{"username":"alice","password":"password123"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", body)
		handler.Signup(httptest.NewRecorder(), req)

		body = strings.NewReader(`{"username":"alice","password":"otherpassword"}`)
		req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", body)
		w := httptest.NewRecorder()

		handler.Signup(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("invalid_input", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"short_username", `{"username":"ab","password":"password123"}`},
			{"short_password", `{"username":"alice","password":"short"}`},
			{"bad_characters", `{"username":"al ice!","password":"password123"}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				handler, _, _ := newAuthFixture()

				req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader(tt.body))
				w := httptest.NewRecorder()

				handler.Signup(w, req)

				assert.Equal(t, http.StatusBadRequest, w.Code)
			})
		}
	})

	t.Run("malformed_json", func(t *testing.T) {
		handler, _, _ := newAuthFixture()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader(`{`))
		w := httptest.NewRecorder()

		handler.Signup(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("successful_login_sets_cookie", func(t *testing.T) {
		handler, _, sessionRepo := newAuthFixture()

		body := strings.NewReader(`{"username":"alice","password":"password123"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", body)
		handler.Signup(httptest.NewRecorder(), req)

		body = strings.NewReader(`{"username":"alice","password":"password123"}`)
		req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
		w := httptest.NewRecorder()

		handler.Login(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "alice", resp.User.Username)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, middleware.SessionCookie, cookies[0].Name)
		assert.NotEmpty(t, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)

		assert.Len(t, sessionRepo.Sessions, 1)
	})

	t.Run("wrong_password", func(t *testing.T) {
		handler, _, _ := newAuthFixture()

		body := strings.NewReader(`{"username":"alice","password":"password123"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", body)
		handler.Signup(httptest.NewRecorder(), req)

		body = strings.NewReader(`{"username":"alice","password":"wrongpassword"}`)
		req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
		w := httptest.NewRecorder()

		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown_user", func(t *testing.T) {
		handler, _, _ := newAuthFixture()

		body := strings.NewReader(`{"username":"ghost","password":"password123"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
		w := httptest.NewRecorder()

		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	handler, _, sessionRepo := newAuthFixture()

	body := strings.NewReader(`{"username":"alice","password":"password123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", body)
	handler.Signup(httptest.NewRecorder(), req)

	body = strings.NewReader(`{"username":"alice","password":"password123"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
	loginRec := httptest.NewRecorder()
	handler.Login(loginRec, req)
	require.Len(t, loginRec.Result().Cookies(), 1)
	token := loginRec.Result().Cookies()[0].Value

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	w := httptest.NewRecorder()

	handler.Logout(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, sessionRepo.Sessions, 0)

	// Cookie is expired in the response
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestAuthHandler_Me(t *testing.T) {
	t.Run("returns_authenticated_user", func(t *testing.T) {
		handler, userRepo, _ := newAuthFixture()

		body := strings.NewReader(`{"username":"alice","password":"password123"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", body)
		handler.Signup(httptest.NewRecorder(), req)

		var userID string
		for id := range userRepo.Users {
			userID = id
		}

		req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req = req.WithContext(middleware.WithUserID(context.Background(), userID))
		w := httptest.NewRecorder()

		handler.Me(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "alice", resp.Username)
	})

	t.Run("no_identity_in_context", func(t *testing.T) {
		handler, _, _ := newAuthFixture()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		w := httptest.NewRecorder()

		handler.Me(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
