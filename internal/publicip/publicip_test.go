package publicip

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchFrom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("203.0.113.9\n"))
	}))
	defer srv.Close()

	ip, err := fetchFrom(srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if ip != "203.0.113.9" {
		t.Errorf("ip = %q", ip)
	}
}

func TestFetchFromRejectsGarbage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not an ip</html>"))
	}))
	defer srv.Close()

	if _, err := fetchFrom(srv.URL); err == nil {
		t.Error("expected error for non-IP body")
	}
}

func TestFetchFromRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := fetchFrom(srv.URL); err == nil {
		t.Error("expected error for 503")
	}
}
