package respond_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/dalemusser/pinhub/internal/app/system/respond"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	respond.Created(rec, map[string]int{"n": 1})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"n":1}` {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestDecode(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	tests := []struct {
		name    string
		ct      string
		body    string
		wantErr bool
	}{
		{"valid", "application/json", `{"title":"x","extra":1}`, false},
		{"charset", "application/json; charset=utf-8", `{"title":"x"}`, false},
		{"no content type", "", `{"title":"x"}`, false},
		{"empty", "application/json", ``, true},
		{"malformed", "application/json", `{"title":`, true},
		{"form", "application/x-www-form-urlencoded", `title=x`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			if tt.ct != "" {
				req.Header.Set("Content-Type", tt.ct)
			}
			var p payload
			err := respond.Decode(httptest.NewRecorder(), req, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("kind = %v, want validation", apperr.KindOf(err))
			}
			if err == nil && p.Title != "x" {
				t.Errorf("title = %q", p.Title)
			}
		})
	}
}
