package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/risulab/cardsearch/internal/domain"
	domsearch "github.com/risulab/cardsearch/internal/domain/search"
	"github.com/risulab/cardsearch/internal/repository/character"
	healthuc "github.com/risulab/cardsearch/internal/usecase/health"
)

type mockSearcher struct {
	gotQuery *domsearch.Query
	resp     *domsearch.Response
	err      error
}

func (m *mockSearcher) Search(_ context.Context, q *domsearch.Query) (*domsearch.Response, error) {
	m.gotQuery = q
	if m.err != nil {
		return nil, m.err
	}
	if m.resp != nil {
		return m.resp, nil
	}
	return &domsearch.Response{Query: *q}, nil
}

type mockGetter struct {
	h   character.Hydrated
	err error
}

func (m *mockGetter) Get(context.Context, string) (character.Hydrated, error) {
	return m.h, m.err
}

type okPinger struct{ err error }

func (p *okPinger) Ping(context.Context) error { return p.err }

func newTestServer(search *mockSearcher, getter *mockGetter, dbErr error) http.Handler {
	health := healthuc.New(&okPinger{err: dbErr}, nil, nil)
	return NewServer(search, getter, health, zap.NewNop()).Router()
}

func TestHandleSearch_ParsesParams(t *testing.T) {
	search := &mockSearcher{}
	srv := newTestServer(search, &mockGetter{}, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/search?q=vampire&rating=sfw&gender=female,male&genre=fantasy&genre=romance&limit=5&offset=10", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	q := search.gotQuery
	if q.Q != "vampire" {
		t.Errorf("q = %q", q.Q)
	}
	if !reflect.DeepEqual(q.Ratings, []string{"sfw"}) {
		t.Errorf("ratings = %v", q.Ratings)
	}
	if !reflect.DeepEqual(q.Genders, []string{"female", "male"}) {
		t.Errorf("genders = %v (comma-joined values must split)", q.Genders)
	}
	if !reflect.DeepEqual(q.Genres, []string{"fantasy", "romance"}) {
		t.Errorf("genres = %v (repeated params must accumulate)", q.Genres)
	}
	if q.Limit != 5 || q.Offset != 10 {
		t.Errorf("limit=%d offset=%d", q.Limit, q.Offset)
	}
}

func TestHandleSearch_BadLimit(t *testing.T) {
	srv := newTestServer(&mockSearcher{}, &mockGetter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/search?limit=abc", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if body.Code != codeBadRequest {
		t.Errorf("code = %q", body.Code)
	}
}

func TestHandleSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited},
		{fmt.Errorf("embed: %w", domain.ErrEmbeddingProviderError), http.StatusBadGateway, codeEmbeddingProvider},
		{fmt.Errorf("knn: %w", domain.ErrVectorStoreError), http.StatusBadGateway, codeVectorStore},
		{errors.New("boom"), http.StatusInternalServerError, codeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			srv := newTestServer(&mockSearcher{err: tt.err}, &mockGetter{}, nil)

			req := httptest.NewRequest(http.MethodGet, "/search?q=x", nil)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid error body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleSearch_InternalErrorHidesDetails(t *testing.T) {
	srv := newTestServer(&mockSearcher{err: errors.New("secret detail")}, &mockGetter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/search?q=x", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Message != "internal error" {
		t.Errorf("internal error leaked details: %q", body.Message)
	}
}

func TestHandleGetCharacter(t *testing.T) {
	getter := &mockGetter{
		h: character.Hydrated{
			Character: domain.Character{
				UUID:   "uuid-1",
				Name:   "Mira",
				Rating: domain.RatingSFW,
			},
			Document: "이름: Mira",
		},
	}
	srv := newTestServer(&mockSearcher{}, getter, nil)

	req := httptest.NewRequest(http.MethodGet, "/characters/uuid-1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var result domsearch.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.UUID != "uuid-1" || result.Name != "Mira" {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.URL == "" {
		t.Error("result URL missing")
	}
	if result.Score != 0 {
		t.Errorf("direct fetch score = %v, want 0", result.Score)
	}
}

func TestHandleGetCharacter_NotFound(t *testing.T) {
	getter := &mockGetter{err: fmt.Errorf("get: %w", domain.ErrCharacterNotFound)}
	srv := newTestServer(&mockSearcher{}, getter, nil)

	req := httptest.NewRequest(http.MethodGet, "/characters/missing", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Code != codeNotFound {
		t.Errorf("code = %q", body.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&mockSearcher{}, &mockGetter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleHealth_DatabaseDown(t *testing.T) {
	srv := newTestServer(&mockSearcher{}, &mockGetter{}, errors.New("conn refused"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestRouter_RequestIDPropagated(t *testing.T) {
	srv := newTestServer(&mockSearcher{}, &mockGetter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestRouter_PanicReturnsJSON(t *testing.T) {
	panicSearcher := &panickingSearcher{}
	health := healthuc.New(&okPinger{}, nil, nil)
	srv := NewServer(panicSearcher, &mockGetter{}, health, zap.NewNop()).Router()

	req := httptest.NewRequest(http.MethodGet, "/search?q=x", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

type panickingSearcher struct{}

func (*panickingSearcher) Search(context.Context, *domsearch.Query) (*domsearch.Response, error) {
	panic("boom")
}
