package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/taskhub/task-tracker/internal/api/middleware"
	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, name, email, password string) (*ports.AuthResult, error)
	loginFn    func(ctx context.Context, email, password string) (*ports.AuthResult, error)
}

func (s *stubAuthService) Register(ctx context.Context, name, email, password string) (*ports.AuthResult, error) {
	return s.registerFn(ctx, name, email, password)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(_ context.Context, name, email, password string) (*ports.AuthResult, error) {
			if name != "Alice" || email != "alice@example.com" || password != "secret1" {
				t.Fatalf("unexpected args: %q %q %q", name, email, password)
			}
			return &ports.AuthResult{
				Token: "tok",
				User:  &domain.Principal{ID: "u1", Name: name, Email: email, Role: domain.RoleMember},
			}, nil
		},
	}
	h := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/auth/register", `{"name":"Alice","email":"alice@example.com","password":"secret1"}`)
	rec := httptest.NewRecorder()

	if err := h.Register(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "tok" {
		t.Fatalf("expected token in response: %+v", resp)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if user["id"] != "u1" || user["role"] != "member" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatalf("credential leaked in response")
	}
}

func TestAuthHandler_Register_ValidationFails(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		registerFn: func(context.Context, string, string, string) (*ports.AuthResult, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	})

	req := jsonRequest(http.MethodPost, "/auth/register", `{"name":"  ","email":"nope","password":"1"}`)
	err := h.Register(e.NewContext(req, httptest.NewRecorder()))
	if code := httpCode(t, err); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
	msg := err.(*echo.HTTPError).Message.(string)
	for _, want := range []string{"name is required", "email must be a valid email", "password must be at least 6"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
}

func TestAuthHandler_Register_UserExists(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		registerFn: func(context.Context, string, string, string) (*ports.AuthResult, error) {
			return nil, domain.ErrUserExists
		},
	})

	req := jsonRequest(http.MethodPost, "/auth/register", `{"name":"Bob","email":"bob@example.com","password":"secret1"}`)
	err := h.Register(e.NewContext(req, httptest.NewRecorder()))
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_Register_BadJSON(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{})

	req := jsonRequest(http.MethodPost, "/auth/register", `{"name":`)
	err := h.Register(e.NewContext(req, httptest.NewRecorder()))
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAuthHandler_Login(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		loginFn: func(_ context.Context, email, password string) (*ports.AuthResult, error) {
			if password != "right" {
				return nil, domain.ErrInvalidCredentials
			}
			return &ports.AuthResult{Token: "tok", User: &domain.Principal{ID: "u1", Email: email}}, nil
		},
	})

	rec := httptest.NewRecorder()
	req := jsonRequest(http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"right"}`)
	if err := h.Login(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"token":"tok"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	req = jsonRequest(http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"wrong"}`)
	err := h.Login(e.NewContext(req, httptest.NewRecorder()))
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{})

	err := h.Me(e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/me", nil), httptest.NewRecorder()))
	if code := httpCode(t, err); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous caller, got %d", code)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/me", nil), rec)
	middleware.WithPrincipal(c, &domain.Principal{ID: "u1", Name: "Ann", Role: domain.RoleAdmin})
	if err := h.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"role":"admin"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
