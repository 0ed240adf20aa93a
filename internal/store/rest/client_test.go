package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/lewtec/rotulador-studio/internal/api"
	"github.com/lewtec/rotulador-studio/internal/domain"
	"github.com/lewtec/rotulador-studio/internal/store/memory"
	"github.com/lewtec/rotulador-studio/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	server := api.New(api.Config{Store: memory.New()})
	ts := httptest.NewServer(adaptor.FiberApp(server.App()))
	t.Cleanup(ts.Close)

	s, err := New(Options{BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Store { return newTestStore(t) })
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := New(Options{BaseURL: "not a url"}); err == nil {
		t.Error("New() with invalid url should fail")
	}
}

func TestStore_SendsToken(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	s, err := New(Options{BaseURL: ts.URL, Token: "secret"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.ListProjects(context.Background()); err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if got != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", got)
	}
}

func TestStore_ServerErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":true,"message":"db down","code":"internal"}`))
	}))
	defer ts.Close()

	s, _ := New(Options{BaseURL: ts.URL})
	_, err := s.GetImage(context.Background(), "x")
	if err == nil || err.Error() != "remote error 500: db down" {
		t.Errorf("GetImage() error = %v", err)
	}
}
