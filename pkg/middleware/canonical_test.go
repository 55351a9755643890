package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCanonical(t *testing.T) {
	var reached string
	h := Canonical(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name         string
		method       string
		target       string
		wantCode     int
		wantLocation string
	}{
		{"canonical", http.MethodGet, "/users/42", http.StatusNoContent, ""},
		{"root", http.MethodGet, "/", http.StatusNoContent, ""},
		{"trailing slash", http.MethodGet, "/users/", http.StatusPermanentRedirect, "/users"},
		{"keeps query", http.MethodGet, "/users//42?tab=posts", http.StatusPermanentRedirect, "/users/42?tab=posts"},
		{"post keeps method", http.MethodPost, "/users/./42", http.StatusPermanentRedirect, "/users/42"},
		{"escapes root", http.MethodGet, "/../etc/passwd", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached = ""
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("%s %s = %d, want %d", tt.method, tt.target, rec.Code, tt.wantCode)
			}
			if got := rec.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
			if tt.wantCode == http.StatusNoContent && reached == "" {
				t.Error("next handler not called")
			}
			if tt.wantCode != http.StatusNoContent && reached != "" {
				t.Error("next handler should not be called")
			}
		})
	}
}
