package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/paraphrase-gateway/internal/config"
	"github.com/compresr/paraphrase-gateway/internal/paraphrase"
	"github.com/compresr/paraphrase-gateway/internal/phrases"
	"github.com/compresr/paraphrase-gateway/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           5000,
			ReadTimeout:    time.Second,
			WriteTimeout:   time.Second,
			MaxTextBytes:   256,
			MaxConcurrent:  4,
			AllowedOrigins: []string{"chrome-extension://"},
		},
	}
}

func newTestGateway(t *testing.T, cfg *config.Config, rs phrases.RuleStore) *Gateway {
	t.Helper()
	if rs == nil {
		st := store.NewMemoryStore()
		t.Cleanup(func() { st.Close() })
		rs = st
	}
	svc := paraphrase.New(
		paraphrase.Config{MaxTextBytes: cfg.Server.MaxTextBytes},
		paraphrase.Deps{Catalog: phrases.NewCatalog(rs)},
	)
	g := New(cfg, svc, nil)
	t.Cleanup(func() { _ = g.Shutdown(context.Background()) })
	return g
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// failingStore fails every operation.
type failingStore struct{}

var errStoreDown = errors.New("connection refused")

func (failingStore) ListRules(context.Context) ([]phrases.Rule, error) { return nil, errStoreDown }
func (failingStore) CreateRule(context.Context, phrases.Rule) (phrases.Rule, error) {
	return phrases.Rule{}, errStoreDown
}
func (failingStore) DeleteRule(context.Context, string) error           { return errStoreDown }
func (failingStore) ReplaceRules(context.Context, []phrases.Rule) error { return errStoreDown }

// =============================================================================
// PARAPHRASE
// =============================================================================

func TestParaphrase_WithUserRules(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)
	h := g.Handler()

	for _, word := range []string{"basically", "actually", "essentially"} {
		rec := do(t, h, http.MethodPost, "/api/phrases",
			fmt.Sprintf(`{"original":%q,"simplified":"","category":"filler"}`, word))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := do(t, h, http.MethodPost, "/api/paraphrase",
		`{"text":"basically, I actually think we should essentially simplify this"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res paraphrase.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, ", I think we should simplify this", res.SimplifiedText)
	assert.Greater(t, res.TokenMetrics.TokensSaved, 0)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestParaphrase_EmptyText(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)

	rec := do(t, g.Handler(), http.MethodPost, "/api/paraphrase", `{"text":""}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res paraphrase.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "", res.SimplifiedText)
	assert.Zero(t, res.TokenMetrics.OriginalTokenCount)
	assert.Zero(t, res.TokenMetrics.SimplifiedTokenCount)
	assert.Zero(t, res.TokenMetrics.TokensSaved)
	assert.Zero(t, res.TokenMetrics.PercentSaved)
}

func TestParaphrase_InvalidInput(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)

	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{"missing text", `{}`, "invalid text: is required"},
		{"number", `{"text":5}`, "invalid text: must be a string"},
		{"null", `{"text":null}`, "invalid text: must be a string"},
		{"array", `{"text":["a"]}`, "invalid text: must be a string"},
		{"not json", `text=hello`, "invalid body"},
		{"not an object", `"hello"`, "invalid body"},
		{"too long", fmt.Sprintf(`{"text":%q}`, strings.Repeat("a", 300)), "exceeds 256 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, g.Handler(), http.MethodPost, "/api/paraphrase", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.Contains(t, body["error"], tt.errMsg)
			assert.NotContains(t, body, "simplifiedText")
		})
	}
}

func TestParaphrase_StoreFailure(t *testing.T) {
	g := newTestGateway(t, testConfig(), failingStore{})

	rec := do(t, g.Handler(), http.MethodPost, "/api/paraphrase", `{"text":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "internal error", body["error"])
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

// =============================================================================
// PHRASES
// =============================================================================

func TestPhrases_CRUD(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)
	h := g.Handler()

	rec := do(t, h, http.MethodGet, "/api/phrases", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0,"data":[]}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/phrases", `{"original":" utilize ","simplified":"use","category":"Verbose"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)["data"].(map[string]any)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "utilize", created["original"])
	assert.Equal(t, "verbose", created["category"])

	rec = do(t, h, http.MethodPost, "/api/phrases", `{"original":"UTILIZE","simplified":"employ","category":"verbose"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "already exists")

	rec = do(t, h, http.MethodGet, "/api/phrases", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)
	assert.EqualValues(t, 1, list["count"])

	rec = do(t, h, http.MethodDelete, "/api/phrases/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{}}`, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/api/phrases/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "not found")
}

func TestPhrases_InvalidCreate(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)

	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{"bad json", `{"original":`, "invalid JSON body"},
		{"wrong type", `{"original":5,"category":"filler"}`, "invalid JSON body"},
		{"empty original", `{"original":"  ","category":"filler"}`, "invalid original"},
		{"unknown category", `{"original":"x","category":"slang"}`, "invalid category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, g.Handler(), http.MethodPost, "/api/phrases", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode(t, rec)["error"], tt.errMsg)
		})
	}
}

func TestPhrases_StoreFailure(t *testing.T) {
	g := newTestGateway(t, testConfig(), failingStore{})

	rec := do(t, g.Handler(), http.MethodGet, "/api/phrases", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

// =============================================================================
// HEALTH / STATS / ROUTING
// =============================================================================

func TestHealthAndStats(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)
	h := g.Handler()

	rec := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	do(t, h, http.MethodPost, "/api/paraphrase", `{"text":"hello there"}`)
	do(t, h, http.MethodPost, "/api/paraphrase", `{"text":5}`)

	rec = do(t, h, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 3, stats.Stats["requests"])
	assert.EqualValues(t, 2, stats.Stats["successes"]) // health + paraphrase
	assert.EqualValues(t, 1, stats.Alerts["invalid_request"])
	assert.EqualValues(t, 1, stats.Stats["simplifications"])
	assert.Equal(t, 4, stats.Pool.Size)
	assert.Equal(t, 0, stats.Pool.InUse)
}

func TestRouting_NotFoundAndMethod(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)

	rec := do(t, g.Handler(), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"route not found"}`, rec.Body.String())

	rec = do(t, g.Handler(), http.MethodPut, "/api/paraphrase", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestRequestID(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)

	rec := do(t, g.Handler(), http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	rec = httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(HeaderRequestID))
}

func TestCORS(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"chrome-extension://abcdef", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:8080", true},
		{"https://evil.example.com", false},
		{"moz-extension://abcdef", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/paraphrase", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			g.Handler().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			if tt.allowed {
				assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"))
				assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateBurst = 2
	g := newTestGateway(t, cfg, nil)

	assert.Equal(t, http.StatusOK, do(t, g.Handler(), http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(t, g.Handler(), http.MethodGet, "/health", "").Code)

	rec := do(t, g.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_EvictsOldest(t *testing.T) {
	rl := newRateLimiter(1, 1)
	defer rl.stop()
	rl.maxBuckets = 2

	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	now = now.Add(time.Millisecond)
	assert.True(t, rl.allow("b"))
	now = now.Add(time.Millisecond)
	assert.True(t, rl.allow("c"))

	assert.Len(t, rl.clients, 2)
	assert.NotContains(t, rl.clients, "a")

	now = now.Add(time.Hour)
	rl.sweep(10 * time.Minute)
	assert.Empty(t, rl.clients)
}

func TestPanicRecovery(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)
	h := g.panicRecovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestGetClientIP(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, "10.0.0.5", g.getClientIP(req))

	req.RemoteAddr = "127.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	assert.Equal(t, "1.2.3.4", g.getClientIP(req))
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{&phrases.ValidationError{Field: "text", Reason: "x"}, http.StatusBadRequest},
		{&phrases.DuplicateRuleError{Original: "x"}, http.StatusBadRequest},
		{&phrases.NotFoundError{ID: "x"}, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", phrases.ErrNotFound), http.StatusNotFound},
		{errStoreDown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		status, msg := statusForError(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		if status == http.StatusInternalServerError {
			assert.Equal(t, "internal error", msg)
		}
	}
}

// =============================================================================
// WEBSOCKET
// =============================================================================

func TestWebSocket(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)
	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"text": "hello   world"}))
	var res paraphrase.Result
	require.NoError(t, wsjson.Read(ctx, conn, &res))
	assert.Equal(t, "hello world", res.SimplifiedText)

	// A bad message gets an error reply and the connection stays usable.
	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"text": 5}))
	var errReply map[string]any
	require.NoError(t, wsjson.Read(ctx, conn, &errReply))
	assert.Equal(t, "invalid text: must be a string", errReply["error"])

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"text": ""}))
	res = paraphrase.Result{}
	require.NoError(t, wsjson.Read(ctx, conn, &res))
	assert.Equal(t, "", res.SimplifiedText)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)
	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"https://evil.example.com"}},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
