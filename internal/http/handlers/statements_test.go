package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/statementhub/internal/auth"
	"github.com/geocoder89/statementhub/internal/cache"
	"github.com/geocoder89/statementhub/internal/domain/statement"
	"github.com/geocoder89/statementhub/internal/genai"
	"github.com/geocoder89/statementhub/internal/http/handlers"
	"github.com/geocoder89/statementhub/internal/http/middlewares"
	"github.com/geocoder89/statementhub/internal/prompt"
	"github.com/geocoder89/statementhub/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newUUID() string {
	return uuid.NewString()
}

// Fake workflow implementing handlers.StatementWorkflow

type fakeWorkflow struct {
	submitFn func(ctx context.Context, ownerID string, in statement.Input) (statement.Statement, error)
	listFn   func(ctx context.Context, ownerID string, limit int, cursor string) ([]statement.Statement, *string, error)
	getFn    func(ctx context.Context, id, ownerID string) (statement.Statement, error)
	deleteFn func(ctx context.Context, id, ownerID string) error

	listCalls int
}

func (f *fakeWorkflow) Submit(ctx context.Context, ownerID string, in statement.Input) (statement.Statement, error) {
	if f.submitFn != nil {
		return f.submitFn(ctx, ownerID, in)
	}
	return statement.Statement{}, nil
}

func (f *fakeWorkflow) List(ctx context.Context, ownerID string, limit int, cursor string) ([]statement.Statement, *string, error) {
	f.listCalls++
	if f.listFn != nil {
		return f.listFn(ctx, ownerID, limit, cursor)
	}
	return []statement.Statement{}, nil, nil
}

func (f *fakeWorkflow) Get(ctx context.Context, id, ownerID string) (statement.Statement, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id, ownerID)
	}
	return statement.Statement{}, statement.ErrNotFound
}

func (f *fakeWorkflow) Delete(ctx context.Context, id, ownerID string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id, ownerID)
	}
	return nil
}

// fakeVerifier resolves any bearer token to a fixed identity so the real
// auth middleware can populate the request context.
type fakeVerifier struct {
	userID string
}

func (f *fakeVerifier) VerifyAccessToken(token string) (*auth.Claims, error) {
	if token == "bad" {
		return nil, errors.New("invalid token")
	}
	return &auth.Claims{UserID: f.userID, Username: "tester"}, nil
}

func setupStatementsRouter(h *handlers.StatementsHandler, userID string) *gin.Engine {
	r := gin.New()

	mw := middlewares.NewAuthMiddleware(&fakeVerifier{userID: userID})

	g := r.Group("/statements")
	g.Use(mw.RequireAuth())
	{
		g.POST("", h.Create)
		g.GET("", h.List)
		g.GET("/:id", h.GetByID)
		g.DELETE("/:id", h.Delete)
	}

	return r
}

func authedRequest(method, url string, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	req.Header.Set("Authorization", "Bearer good")
	return req
}

const validBody = `{"projectType": "Mobile App", "objective": "Track medication schedules"}`

func TestCreateStatementHandler(t *testing.T) {
	now := time.Now().UTC()
	ownerID := newUUID()

	tests := []struct {
		name           string
		body           string
		svcSetup       func(*fakeWorkflow)
		wantStatusCode int
		wantErrCode    string
	}{
		{
			name: "success",
			body: validBody,
			svcSetup: func(f *fakeWorkflow) {
				f.submitFn = func(ctx context.Context, gotOwner string, in statement.Input) (statement.Statement, error) {
					if gotOwner != ownerID {
						return statement.Statement{}, errors.New("wrong owner passed through")
					}
					return statement.Statement{
						ID:        newUUID(),
						UserID:    gotOwner,
						Input:     in,
						Text:      "<h2>Project Statement</h2>generated",
						CreatedAt: now,
					}, nil
				}
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "binding_rejects_missing_fields",
			body:           `{"domain": "Healthcare"}`,
			svcSetup:       nil, // workflow must not be reached
			wantStatusCode: http.StatusBadRequest,
			wantErrCode:    "invalid_request",
		},
		{
			name: "whitespace_fields_fail_validation",
			body: `{"projectType": "   ", "objective": "  "}`,
			svcSetup: func(f *fakeWorkflow) {
				f.submitFn = func(ctx context.Context, gotOwner string, in statement.Input) (statement.Statement, error) {
					return statement.Statement{}, &prompt.ValidationError{Fields: []string{"projectType", "objective"}}
				}
			},
			wantStatusCode: http.StatusBadRequest,
			wantErrCode:    "invalid_input",
		},
		{
			name: "generation_unavailable",
			body: validBody,
			svcSetup: func(f *fakeWorkflow) {
				f.submitFn = func(ctx context.Context, gotOwner string, in statement.Input) (statement.Statement, error) {
					return statement.Statement{}, fmt.Errorf("%w: %w", workflow.ErrGenerationFailed, genai.ErrUnavailable)
				}
			},
			wantStatusCode: http.StatusServiceUnavailable,
			wantErrCode:    "generation_unavailable",
		},
		{
			name: "generation_rate_limited",
			body: validBody,
			svcSetup: func(f *fakeWorkflow) {
				f.submitFn = func(ctx context.Context, gotOwner string, in statement.Input) (statement.Statement, error) {
					return statement.Statement{}, fmt.Errorf("%w: %w", workflow.ErrGenerationFailed, genai.ErrRateLimited)
				}
			},
			wantStatusCode: http.StatusBadGateway,
			wantErrCode:    "generation_rate_limited",
		},
		{
			name: "generation_malformed",
			body: validBody,
			svcSetup: func(f *fakeWorkflow) {
				f.submitFn = func(ctx context.Context, gotOwner string, in statement.Input) (statement.Statement, error) {
					return statement.Statement{}, fmt.Errorf("%w: %w", workflow.ErrGenerationFailed, genai.ErrMalformedResponse)
				}
			},
			wantStatusCode: http.StatusBadGateway,
			wantErrCode:    "generation_malformed",
		},
		{
			name: "unknown_user",
			body: validBody,
			svcSetup: func(f *fakeWorkflow) {
				f.submitFn = func(ctx context.Context, gotOwner string, in statement.Input) (statement.Statement, error) {
					return statement.Statement{}, workflow.ErrUnauthorized
				}
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name: "storage_error",
			body: validBody,
			svcSetup: func(f *fakeWorkflow) {
				f.submitFn = func(ctx context.Context, gotOwner string, in statement.Input) (statement.Statement, error) {
					return statement.Statement{}, workflow.ErrStorage
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeWorkflow{}
			if tt.svcSetup != nil {
				tt.svcSetup(svc)
			}

			h := handlers.NewStatementsHandler(svc, nil)
			r := setupStatementsRouter(h, ownerID)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, authedRequest(http.MethodPost, "/statements", tt.body))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantErrCode != "" {
				var resp struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal error body: %v", err)
				}
				if resp.Error.Code != tt.wantErrCode {
					t.Fatalf("got error code %q, want %q", resp.Error.Code, tt.wantErrCode)
				}
			}
		})
	}
}

func TestCreateStatementRequiresAuth(t *testing.T) {
	h := handlers.NewStatementsHandler(&fakeWorkflow{}, nil)
	r := setupStatementsRouter(h, newUUID())

	// no Authorization header at all
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/statements", bytes.NewBufferString(validBody))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401, body=%s", w.Code, w.Body.String())
	}

	// rejected token
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/statements", bytes.NewBufferString(validBody))
	req2.Header.Set("Content-Type", "application/json")
	req2.Header.Set("Authorization", "Bearer bad")
	r.ServeHTTP(w2, req2)

	if w2.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401 for bad token", w2.Code)
	}
}

func TestListStatementsHandler(t *testing.T) {
	now := time.Now().UTC()
	ownerID := newUUID()

	tests := []struct {
		name           string
		url            string
		svcSetup       func(*fakeWorkflow)
		wantStatusCode int
		wantCount      int
	}{
		{
			name: "success_first_page",
			url:  "/statements",
			svcSetup: func(f *fakeWorkflow) {
				f.listFn = func(ctx context.Context, gotOwner string, limit int, cursor string) ([]statement.Statement, *string, error) {
					if gotOwner != ownerID {
						return nil, nil, errors.New("wrong owner")
					}
					if cursor != "" || limit != 0 {
						return nil, nil, errors.New("first page should pass zero limit and empty cursor")
					}
					next := "next-cursor"
					return []statement.Statement{
						{ID: "s-1", UserID: gotOwner, Text: "one", CreatedAt: now},
						{ID: "s-2", UserID: gotOwner, Text: "two", CreatedAt: now.Add(-time.Minute)},
					}, &next, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      2,
		},
		{
			name: "limit_passed_through",
			url:  "/statements?limit=5",
			svcSetup: func(f *fakeWorkflow) {
				f.listFn = func(ctx context.Context, gotOwner string, limit int, cursor string) ([]statement.Statement, *string, error) {
					if limit != 5 {
						return nil, nil, errors.New("limit not passed")
					}
					return []statement.Statement{}, nil, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      0,
		},
		{
			name:           "invalid_limit",
			url:            "/statements?limit=abc",
			svcSetup:       nil,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "invalid_cursor",
			url:  "/statements?cursor=!!!",
			svcSetup: func(f *fakeWorkflow) {
				f.listFn = func(ctx context.Context, gotOwner string, limit int, cursor string) ([]statement.Statement, *string, error) {
					return nil, nil, workflow.ErrInvalidCursor
				}
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "storage_error",
			url:  "/statements",
			svcSetup: func(f *fakeWorkflow) {
				f.listFn = func(ctx context.Context, gotOwner string, limit int, cursor string) ([]statement.Statement, *string, error) {
					return nil, nil, workflow.ErrStorage
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeWorkflow{}
			if tt.svcSetup != nil {
				tt.svcSetup(svc)
			}

			h := handlers.NewStatementsHandler(svc, nil)
			r := setupStatementsRouter(h, ownerID)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, authedRequest(http.MethodGet, tt.url, ""))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusOK {
				var resp struct {
					Count int `json:"count"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if resp.Count != tt.wantCount {
					t.Fatalf("got count %d, want %d", resp.Count, tt.wantCount)
				}
			}
		})
	}
}

func TestListStatementsHandler_CacheHit(t *testing.T) {
	now := time.Now().UTC()
	ownerID := newUUID()

	svc := &fakeWorkflow{
		listFn: func(ctx context.Context, gotOwner string, limit int, cursor string) ([]statement.Statement, *string, error) {
			return []statement.Statement{
				{ID: "s-1", UserID: gotOwner, Text: "one", CreatedAt: now},
			}, nil, nil
		},
	}

	c := cache.New(30 * time.Second)
	h := handlers.NewStatementsHandler(svc, c)
	r := setupStatementsRouter(h, ownerID)

	// first request misses the cache and hits the workflow
	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, authedRequest(http.MethodGet, "/statements", ""))
	if w1.Code != http.StatusOK {
		t.Fatalf("first call got %d body=%s", w1.Code, w1.Body.String())
	}

	// second identical request is served from the cache
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, authedRequest(http.MethodGet, "/statements", ""))
	if w2.Code != http.StatusOK {
		t.Fatalf("second call got %d body=%s", w2.Code, w2.Body.String())
	}

	if svc.listCalls != 1 {
		t.Fatalf("expected workflow list calls=1, got %d", svc.listCalls)
	}

	// non-default pages bypass the cache
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, authedRequest(http.MethodGet, "/statements?limit=5", ""))
	if w3.Code != http.StatusOK {
		t.Fatalf("third call got %d body=%s", w3.Code, w3.Body.String())
	}
	if svc.listCalls != 2 {
		t.Fatalf("expected limit query to bypass cache, got %d calls", svc.listCalls)
	}
}

func TestCreateInvalidatesListCache(t *testing.T) {
	now := time.Now().UTC()
	ownerID := newUUID()

	svc := &fakeWorkflow{
		listFn: func(ctx context.Context, gotOwner string, limit int, cursor string) ([]statement.Statement, *string, error) {
			return []statement.Statement{}, nil, nil
		},
		submitFn: func(ctx context.Context, gotOwner string, in statement.Input) (statement.Statement, error) {
			return statement.Statement{ID: newUUID(), UserID: gotOwner, Input: in, Text: "gen", CreatedAt: now}, nil
		},
	}

	c := cache.New(30 * time.Second)
	h := handlers.NewStatementsHandler(svc, c)
	r := setupStatementsRouter(h, ownerID)

	// prime the cache
	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, authedRequest(http.MethodGet, "/statements", ""))
	if svc.listCalls != 1 {
		t.Fatalf("expected 1 list call, got %d", svc.listCalls)
	}

	// a successful create drops the cached page
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, authedRequest(http.MethodPost, "/statements", validBody))
	if w2.Code != http.StatusCreated {
		t.Fatalf("create got %d body=%s", w2.Code, w2.Body.String())
	}

	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, authedRequest(http.MethodGet, "/statements", ""))
	if svc.listCalls != 2 {
		t.Fatalf("expected list to hit the workflow after create, got %d calls", svc.listCalls)
	}
}

func TestListStatementsHandler_ETagNotModified(t *testing.T) {
	now := time.Now().UTC()
	ownerID := newUUID()

	svc := &fakeWorkflow{
		listFn: func(ctx context.Context, gotOwner string, limit int, cursor string) ([]statement.Statement, *string, error) {
			return []statement.Statement{
				{ID: "s-1", UserID: gotOwner, Text: "one", CreatedAt: now},
			}, nil, nil
		},
	}

	h := handlers.NewStatementsHandler(svc, cache.New(30*time.Second))
	r := setupStatementsRouter(h, ownerID)

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, authedRequest(http.MethodGet, "/statements", ""))
	if w1.Code != http.StatusOK {
		t.Fatalf("first call got %d body=%s", w1.Code, w1.Body.String())
	}

	etag := w1.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header in first response")
	}

	w2 := httptest.NewRecorder()
	req2 := authedRequest(http.MethodGet, "/statements", "")
	req2.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w2, req2)

	if w2.Code != http.StatusNotModified {
		t.Fatalf("got %d, want 304, body=%s", w2.Code, w2.Body.String())
	}
	if w2.Body.Len() != 0 {
		t.Fatalf("expected empty body for 304, got %q", w2.Body.String())
	}
}

func TestGetStatementByIDHandler(t *testing.T) {
	now := time.Now().UTC()
	ownerID := newUUID()
	validID := newUUID()

	tests := []struct {
		name           string
		url            string
		svcSetup       func(*fakeWorkflow)
		wantStatusCode int
	}{
		{
			name: "success",
			url:  "/statements/" + validID,
			svcSetup: func(f *fakeWorkflow) {
				f.getFn = func(ctx context.Context, id, gotOwner string) (statement.Statement, error) {
					return statement.Statement{ID: id, UserID: gotOwner, Text: "gen", CreatedAt: now}, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "not_found",
			url:  "/statements/" + newUUID(),
			svcSetup: func(f *fakeWorkflow) {
				f.getFn = func(ctx context.Context, id, gotOwner string) (statement.Statement, error) {
					return statement.Statement{}, statement.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "storage_error",
			url:  "/statements/" + validID,
			svcSetup: func(f *fakeWorkflow) {
				f.getFn = func(ctx context.Context, id, gotOwner string) (statement.Statement, error) {
					return statement.Statement{}, workflow.ErrStorage
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeWorkflow{}
			if tt.svcSetup != nil {
				tt.svcSetup(svc)
			}

			h := handlers.NewStatementsHandler(svc, nil)
			r := setupStatementsRouter(h, ownerID)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, authedRequest(http.MethodGet, tt.url, ""))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestDeleteStatementHandler(t *testing.T) {
	ownerID := newUUID()
	validID := newUUID()

	tests := []struct {
		name           string
		url            string
		svcSetup       func(*fakeWorkflow)
		wantStatusCode int
	}{
		{
			name: "success",
			url:  "/statements/" + validID,
			svcSetup: func(f *fakeWorkflow) {
				f.deleteFn = func(ctx context.Context, id, gotOwner string) error {
					return nil
				}
			},
			wantStatusCode: http.StatusNoContent,
		},
		{
			name: "not_found",
			url:  "/statements/" + newUUID(),
			svcSetup: func(f *fakeWorkflow) {
				f.deleteFn = func(ctx context.Context, id, gotOwner string) error {
					return statement.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "storage_error",
			url:  "/statements/" + validID,
			svcSetup: func(f *fakeWorkflow) {
				f.deleteFn = func(ctx context.Context, id, gotOwner string) error {
					return workflow.ErrStorage
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeWorkflow{}
			if tt.svcSetup != nil {
				tt.svcSetup(svc)
			}

			h := handlers.NewStatementsHandler(svc, nil)
			r := setupStatementsRouter(h, ownerID)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, authedRequest(http.MethodDelete, tt.url, ""))

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}
