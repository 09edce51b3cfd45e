package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fundfaq/fundfaq-go/internal/answer"
	"github.com/fundfaq/fundfaq-go/internal/catalog"
	"github.com/fundfaq/fundfaq-go/internal/rag"
)

// fakeEngine implements Engine with canned responses per test.
type fakeEngine struct {
	result     answer.Result
	answerErr  error
	indexCount int
	indexErr   error
	lastQuery  string
	buildCalls int
}

func (f *fakeEngine) AnswerQuery(_ context.Context, query string) (answer.Result, error) {
	f.lastQuery = query
	return f.result, f.answerErr
}

func (f *fakeEngine) BuildIndex(_ context.Context, _ []catalog.Record) (int, error) {
	f.buildCalls++
	return f.indexCount, f.indexErr
}

// fakeSource implements catalog.Source over a fixed record slice.
type fakeSource struct {
	records []catalog.Record
	err     error
}

func (f *fakeSource) All(_ context.Context) ([]catalog.Record, error) {
	return f.records, f.err
}

func (f *fakeSource) Get(_ context.Context, name string) (catalog.Record, error) {
	for _, r := range f.records {
		if r.Name == name {
			return r, nil
		}
	}
	return catalog.Record{}, f.err
}

func (f *fakeSource) Names(_ context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	names := make([]string, 0, len(f.records))
	for _, r := range f.records {
		names = append(names, r.Name)
	}
	return names, f.err
}

// newTestServer builds a server with a private metrics registry so
// parallel tests never collide on metric registration.
func newTestServer(t *testing.T, eng Engine, source catalog.Source, cfg *Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	s, err := New(eng, source, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "127.0.0.1:40000"
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// TestHandleQuery_Success verifies that a successful answer round-trips as
// the full result JSON.
func TestHandleQuery_Success(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{result: answer.Result{
		Success:         true,
		Answer:          "The Exit Load for Parag Parikh Liquid Fund is Nil.",
		SourceURLs:      []string{"https://example.com/liquid"},
		Query:           "what is the exit load for the liquid fund?",
		RetrievedChunks: 3,
		Mode:            answer.ModeGenerative,
	}}
	s := newTestServer(t, eng, &fakeSource{}, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/query",
		`{"query":"what is the exit load for the liquid fund?"}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got answer.Result
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.Success {
		t.Error("expected success=true")
	}
	if got.Answer != eng.result.Answer {
		t.Errorf("answer = %q, want %q", got.Answer, eng.result.Answer)
	}
	if len(got.SourceURLs) != 1 || got.SourceURLs[0] != "https://example.com/liquid" {
		t.Errorf("unexpected source_urls: %v", got.SourceURLs)
	}
	if eng.lastQuery != "what is the exit load for the liquid fund?" {
		t.Errorf("engine received query %q", eng.lastQuery)
	}
}

// TestHandleQuery_EmptyQuery verifies that an empty query maps to 400 with
// the engine's guidance answer in the body.
func TestHandleQuery_EmptyQuery(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{
		result: answer.Result{Success: false, Answer: "Please provide a question."},
		answerErr: rag.NewError(rag.ClassEmptyQuery,
			"engine: query must not be empty"),
	}
	s := newTestServer(t, eng, &fakeSource{}, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/query", `{"query":"  "}`, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var got answer.Result
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Success {
		t.Error("expected success=false")
	}
	if got.Answer != "Please provide a question." {
		t.Errorf("answer = %q", got.Answer)
	}
}

// TestHandleQuery_MalformedBody verifies that a non-JSON body is rejected
// before reaching the engine.
func TestHandleQuery_MalformedBody(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{}
	s := newTestServer(t, eng, &fakeSource{}, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/query", `not json`, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if eng.lastQuery != "" {
		t.Error("engine should not be called for a malformed body")
	}
}

// TestHandleQuery_EngineFailure verifies that a hard engine failure maps
// to 500 but still carries the well-formed failure result.
func TestHandleQuery_EngineFailure(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{
		result: answer.Result{Success: false, Answer: "Error answering query: embed failed"},
		answerErr: rag.NewError(rag.ClassEmbeddingFatal,
			"embedder: embed failed"),
	}
	s := newTestServer(t, eng, &fakeSource{}, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/query", `{"query":"anything"}`, nil)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var got answer.Result
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Success {
		t.Error("expected success=false")
	}
}

// TestHandleIndex_Success verifies a full reindex round trip.
func TestHandleIndex_Success(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{indexCount: 49}
	source := &fakeSource{records: []catalog.Record{{Name: "Parag Parikh Liquid Fund"}}}
	s := newTestServer(t, eng, source, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/index", "", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got indexResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ChunkCount != 49 {
		t.Errorf("chunk_count = %d, want 49", got.ChunkCount)
	}
	if eng.buildCalls != 1 {
		t.Errorf("BuildIndex called %d times, want 1", eng.buildCalls)
	}
}

// TestHandleIndex_RequiresAuth verifies that /api/index is protected when
// an API key is configured.
func TestHandleIndex_RequiresAuth(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{indexCount: 7}
	source := &fakeSource{records: []catalog.Record{{Name: "Parag Parikh Liquid Fund"}}}
	s := newTestServer(t, eng, source, &Config{APIKey: "secret"})

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/index", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("without token: expected 401, got %d", w.Code)
	}
	if eng.buildCalls != 0 {
		t.Error("BuildIndex should not run without auth")
	}

	w = doJSON(t, s.Handler(), http.MethodPost, "/api/index", "",
		map[string]string{"Authorization": "Bearer secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("with token: expected 200, got %d", w.Code)
	}
	if eng.buildCalls != 1 {
		t.Errorf("BuildIndex called %d times, want 1", eng.buildCalls)
	}
}

// TestHandleIndex_NoValidRecords verifies that an empty catalog maps to
// 409 Conflict rather than a generic 500.
func TestHandleIndex_NoValidRecords(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{indexErr: rag.NewError(rag.ClassNoData,
		"engine: no valid records to index")}
	s := newTestServer(t, eng, &fakeSource{}, nil)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/index", "", nil)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	var got errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Error == "" {
		t.Error("expected a non-empty error message")
	}
}

// TestHandleFunds_ListsNames verifies the catalog listing endpoint.
func TestHandleFunds_ListsNames(t *testing.T) {
	t.Parallel()

	source := &fakeSource{records: []catalog.Record{
		{Name: "Parag Parikh Flexi Cap Fund"},
		{Name: "Parag Parikh Liquid Fund"},
	}}
	s := newTestServer(t, &fakeEngine{}, source, nil)

	w := doJSON(t, s.Handler(), http.MethodGet, "/api/funds", "", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got fundsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Funds) != 2 || got.Funds[0] != "Parag Parikh Flexi Cap Fund" {
		t.Errorf("unexpected funds: %v", got.Funds)
	}
}

// TestHandleFunds_EmptyCatalogIsEmptyList verifies that an empty catalog
// serializes as [] rather than null.
func TestHandleFunds_EmptyCatalogIsEmptyList(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEngine{}, &fakeSource{}, nil)

	w := doJSON(t, s.Handler(), http.MethodGet, "/api/funds", "", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"funds":[]`) {
		t.Errorf("expected empty list, got %s", w.Body.String())
	}
}

// TestHandleHealth verifies the liveness endpoint.
func TestHandleHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEngine{}, &fakeSource{}, nil)

	w := doJSON(t, s.Handler(), http.MethodGet, "/api/health", "", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

// TestMetricsEndpoint verifies that /metrics serves the injected registry
// and that a handled query shows up in the counters.
func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{result: answer.Result{Success: true, Answer: "ok", Mode: answer.ModeGenerative}}
	s := newTestServer(t, eng, &fakeSource{}, nil)

	doJSON(t, s.Handler(), http.MethodPost, "/api/query", `{"query":"q"}`, nil)

	w := doJSON(t, s.Handler(), http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "fundfaq_query_requests_total") {
		t.Error("expected fundfaq_query_requests_total in metrics output")
	}
	if !strings.Contains(body, `outcome="ok"`) {
		t.Error("expected ok outcome label in metrics output")
	}
}
