package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/pinhub/internal/app/system/auth"
	"github.com/dalemusser/pinhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID       string
	Username string
	Email    string
}

// NewTestUser returns a TestUser with a fresh id.
func NewTestUser(username string) TestUser {
	return TestUser{
		ID:       primitive.NewObjectID().Hex(),
		Username: username,
		Email:    username + "@example.com",
	}
}

// AsTestUser converts a fixture user for request injection.
func AsTestUser(u models.User) TestUser {
	return TestUser{ID: u.ID.Hex(), Username: u.Username, Email: u.Email}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses token verification and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates a request whose body is v encoded as JSON.
func NewJSONRequest(method, target string, v any) *http.Request {
	var buf bytes.Buffer
	if s, ok := v.(string); ok {
		buf.WriteString(s)
	} else if v != nil {
		_ = json.NewEncoder(&buf).Encode(v)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	return WithUser(httptest.NewRequest(method, target, nil), user)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body: %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// DecodeJSON unmarshals the response body into v.
func (r *ResponseRecorder) DecodeJSON(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", r.Body.String(), err)
	}
}

// ErrorCode returns error.code from a JSON error body, or "".
func (r *ResponseRecorder) ErrorCode() string {
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(r.Body.Bytes(), &body)
	return body.Error.Code
}

// AssertNotContains checks the response body does not contain s.
func (r *ResponseRecorder) AssertNotContains(t interface{ Errorf(string, ...any) }, s string) {
	if strings.Contains(r.Body.String(), s) {
		t.Errorf("response body unexpectedly contains %q", s)
	}
}
