package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/statementhub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

func TestHealthz(t *testing.T) {
	h := handlers.NewHealthHandler(nil)

	r := gin.New()
	r.GET("/healthz", h.Healthz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", w.Code)
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name           string
		ping           func() error
		wantStatusCode int
	}{
		{name: "ready", ping: func() error { return nil }, wantStatusCode: http.StatusOK},
		{name: "db_unreachable", ping: func() error { return errors.New("no route") }, wantStatusCode: http.StatusServiceUnavailable},
		{name: "no_ping_configured", ping: nil, wantStatusCode: http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tt.ping)

			r := gin.New()
			r.GET("/readyz", h.Readyz)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got %d, want %d", w.Code, tt.wantStatusCode)
			}
		})
	}
}
