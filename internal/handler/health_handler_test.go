package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type stubChecker struct {
	err error
}

func (s *stubChecker) HealthCheck(ctx context.Context) error {
	return s.err
}

func setupHealthRouter(db, cache HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handler := NewHealthHandler(db, cache)
	router.GET("/health", handler.Health)
	router.GET("/ready", handler.Ready)

	return router
}

func TestHealthHandler_Health(t *testing.T) {
	router := setupHealthRouter(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name       string
		db         HealthChecker
		cache      HealthChecker
		wantStatus int
	}{
		{
			name:       "all dependencies healthy",
			db:         &stubChecker{},
			cache:      &stubChecker{},
			wantStatus: http.StatusOK,
		},
		{
			name:       "cache disabled",
			db:         &stubChecker{},
			cache:      nil,
			wantStatus: http.StatusOK,
		},
		{
			name:       "database unreachable",
			db:         &stubChecker{err: errors.New("dial timeout")},
			cache:      &stubChecker{},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "cache unreachable",
			db:         &stubChecker{},
			cache:      &stubChecker{err: errors.New("dial timeout")},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupHealthRouter(tt.db, tt.cache)

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
