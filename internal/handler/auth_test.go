package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/invite"
)

func newTestAuthHandler(mock *mockUserService) *AuthHandler {
	return NewAuthHandler(mock, nil, discardLogger())
}

// =============================================================================
// Register Tests
// =============================================================================

func TestRegister_ReturnsToken(t *testing.T) {
	var got domain.RegisterParams
	mock := &mockUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.AuthResult, error) {
			got = params
			return &domain.AuthResult{
				Token:     "signed.jwt.token",
				ExpiresAt: time.Now().Add(time.Hour),
				User:      &domain.User{ID: 1, Email: params.Email},
			}, nil
		},
	}
	h := newTestAuthHandler(mock)

	body := `{"firstName":"Jane","lastName":"Doe","email":"jane@example.com","password":"Secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got.Email != "jane@example.com" || got.Password != "Secret123" {
		t.Errorf("service received %+v", got)
	}

	var result domain.AuthResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Token != "signed.jwt.token" {
		t.Errorf("token = %q", result.Token)
	}
}

func TestRegister_InviteGate(t *testing.T) {
	tests := []struct {
		name string
		code string
		want int
	}{
		{"valid code", `,"inviteCode":"pilot-2025"`, http.StatusOK},
		{"wrong code", `,"inviteCode":"guess"`, http.StatusBadRequest},
		{"missing code", ``, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			mock := &mockUserService{
				RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.AuthResult, error) {
					called = true
					return &domain.AuthResult{Token: "t", User: &domain.User{ID: 1, Email: params.Email}}, nil
				},
			}
			h := NewAuthHandler(mock, invite.New([]string{"PILOT-2025"}), discardLogger())

			body := `{"firstName":"Jane","lastName":"Doe","email":"jane@example.com","password":"Secret123"` + tt.code + `}`
			rec := httptest.NewRecorder()
			h.Register(rec, httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body)))

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if called != (tt.want == http.StatusOK) {
				t.Errorf("service called = %v", called)
			}
			if tt.want == http.StatusBadRequest {
				if _, ok := decodeErrorBody(t, rec).Error.Fields["inviteCode"]; !ok {
					t.Error("expected an inviteCode field error")
				}
			}
		})
	}
}

func TestRegister_DuplicateEmailIsConflict(t *testing.T) {
	mock := &mockUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.AuthResult, error) {
			return nil, domain.Conflict("user.register", "Email already exists")
		},
	}
	h := newTestAuthHandler(mock)

	body := `{"firstName":"Jane","lastName":"Doe","email":"jane@example.com","password":"Secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if got := decodeErrorBody(t, rec).Error.Message; got != "Email already exists" {
		t.Errorf("message = %q", got)
	}
}

func TestRegister_MalformedBodyIsBadRequest(t *testing.T) {
	called := false
	mock := &mockUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.AuthResult, error) {
			called = true
			return nil, nil
		},
	}
	h := newTestAuthHandler(mock)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":`))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if called {
		t.Error("service must not be called for a malformed body")
	}
}

// =============================================================================
// Login Tests
// =============================================================================

func TestLogin_BadCredentialsIs401(t *testing.T) {
	mock := &mockUserService{
		LoginFunc: func(ctx context.Context, params domain.LoginParams) (*domain.AuthResult, error) {
			return nil, nil
		},
	}
	h := newTestAuthHandler(mock)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"jane@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	body := decodeErrorBody(t, rec)
	if body.Error.Code != domain.EUNAUTHORIZED {
		t.Errorf("code = %q, want %q", body.Error.Code, domain.EUNAUTHORIZED)
	}
	if body.Error.Message != "Invalid email or password" {
		t.Errorf("message = %q", body.Error.Message)
	}
}

func TestLogin_Success(t *testing.T) {
	mock := &mockUserService{
		LoginFunc: func(ctx context.Context, params domain.LoginParams) (*domain.AuthResult, error) {
			return &domain.AuthResult{Token: "tok", User: &domain.User{ID: 3}}, nil
		},
	}
	h := newTestAuthHandler(mock)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"jane@example.com","password":"Secret123"}`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"token":"tok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

// =============================================================================
// Me Tests
// =============================================================================

func TestMe(t *testing.T) {
	h := newTestAuthHandler(&mockUserService{})

	t.Run("anonymous is 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Me(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("returns identity claims", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Me(rec, asUser(httptest.NewRequest(http.MethodGet, "/auth/me", nil), testFarmer))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var got meResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != testFarmer.UserID || got.Role != domain.RoleFarmer || got.Email != testFarmer.Email {
			t.Errorf("me = %+v", got)
		}
	})
}

func TestAuthRoutes_LimitersWrapCredentialEndpoints(t *testing.T) {
	var wrapped []string
	limit := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				wrapped = append(wrapped, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	mock := &mockUserService{
		LoginFunc: func(ctx context.Context, params domain.LoginParams) (*domain.AuthResult, error) {
			return nil, nil
		},
	}
	h := newTestAuthHandler(mock)
	register := func(mux *http.ServeMux) {
		h.RegisterRoutes(mux, passThrough, AuthRouteLimits{Login: limit("login")})
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.c","password":"x"}`))
	rec := serve(register, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if len(wrapped) != 1 || wrapped[0] != "login" {
		t.Errorf("wrapped = %v, want [login]", wrapped)
	}
}
