package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/ladder/internal/domain"
	"github.com/vadiminshakov/ladder/internal/events"
	"go.uber.org/zap"
)

type stubEngine struct {
	last   domain.Signal
	result domain.SignalResult
}

func (s *stubEngine) HandleSignal(ctx context.Context, sig domain.Signal) domain.SignalResult {
	s.last = sig
	return s.result
}

func newTestServer(engine *stubEngine, token string) *Server {
	return NewServer(":0", token, engine, nil, nil, zap.NewNop())
}

func postWebhook(t *testing.T, s *Server, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	rec := httptest.NewRecorder()
	s.handleWebhook(rec, req)
	return rec
}

func TestWebhookAcceptsValidSignal(t *testing.T) {
	engine := &stubEngine{result: domain.SignalResult{
		Status:  domain.SignalStatusSuccess,
		OrderID: "42",
	}}
	s := newTestServer(engine, "secret")

	rec := postWebhook(t, s, "secret", `{"symbol":"BTCUSDT","action":"buy","price":"50000"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.SignalResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.SignalStatusSuccess, result.Status)
	assert.Equal(t, "42", result.OrderID)

	assert.Equal(t, "BTCUSDT", engine.last.Symbol)
	assert.Equal(t, domain.SignalActionBuy, engine.last.Action)
	assert.True(t, decimal.NewFromInt(50000).Equal(engine.last.Price))
}

func TestWebhookRejectsBadToken(t *testing.T) {
	engine := &stubEngine{}
	s := newTestServer(engine, "secret")

	rec := postWebhook(t, s, "wrong", `{"symbol":"BTCUSDT","action":"buy","price":"50000"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, engine.last.Symbol, "engine must not see unauthenticated signals")
}

func TestWebhookRejectsInvalidPayload(t *testing.T) {
	engine := &stubEngine{}
	s := newTestServer(engine, "")

	rec := postWebhook(t, s, "", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postWebhook(t, s, "", `{"symbol":"","action":"buy","price":"50000"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postWebhook(t, s, "", `{"symbol":"BTCUSDT","action":"hold","price":"50000"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookRejectsNonPost(t *testing.T) {
	s := newTestServer(&stubEngine{}, "")

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	s.handleWebhook(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebhookMapsEngineErrorToBadGateway(t *testing.T) {
	engine := &stubEngine{result: domain.SignalResult{
		Status:  domain.SignalStatusError,
		Message: "exchange unavailable",
	}}
	s := newTestServer(engine, "")

	rec := postWebhook(t, s, "", `{"symbol":"BTCUSDT","action":"buy","price":"50000"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestWebhookIgnoredResponseHasNoQuantity(t *testing.T) {
	engine := &stubEngine{result: domain.Ignored()}
	s := newTestServer(engine, "")

	rec := postWebhook(t, s, "", `{"symbol":"BTCUSDT","action":"buy","price":"50000"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ignored"}`, rec.Body.String())
}

type stubSnapshots struct {
	records []domain.EquitySnapshotRecord
}

func (s *stubSnapshots) SnapshotsAfter(index uint64) ([]domain.EquitySnapshotRecord, error) {
	var out []domain.EquitySnapshotRecord
	for _, r := range s.records {
		if r.Index > index {
			out = append(out, r)
		}
	}
	return out, nil
}

// syncRecorder lets the test read the body while the stream handler is
// still writing to it.
type syncRecorder struct {
	mu sync.Mutex
	*httptest.ResponseRecorder
}

func (r *syncRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(b)
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Body.String()
}

func TestSnapshotStreamSendsBacklogThenLivePushes(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := &stubSnapshots{records: []domain.EquitySnapshotRecord{{
		Index:    1,
		Snapshot: domain.EquitySnapshot{Timestamp: t0, Equity: "1000"},
	}}}
	feed := events.NewSnapshotBroadcaster(4)
	s := NewServer(":0", "", &stubEngine{}, store, feed, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/snapshots/stream", nil).WithContext(ctx)
	rec := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		s.handleSnapshotStream(rec, req)
		close(done)
	}()

	live := domain.EquitySnapshot{Timestamp: t0.Add(time.Minute), Equity: "1010"}
	require.Eventually(t, func() bool {
		feed.Publish(live)
		return strings.Contains(rec.body(), `"equity":"1010"`)
	}, 2*time.Second, 10*time.Millisecond, "published snapshot never reached the stream")

	cancel()
	<-done

	body := rec.body()
	assert.Contains(t, body, "event: equity")
	assert.Contains(t, body, `"equity":"1000"`, "backlog snapshot missing")
	assert.Equal(t, 1, strings.Count(body, `"equity":"1010"`), "live snapshot delivered exactly once")
}

func TestSnapshotStreamUnavailableWithoutFeed(t *testing.T) {
	s := newTestServer(&stubEngine{}, "")

	req := httptest.NewRequest(http.MethodGet, "/snapshots/stream", nil)
	rec := httptest.NewRecorder()
	s.handleSnapshotStream(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIndexServesDashboard(t *testing.T) {
	s := newTestServer(&stubEngine{}, "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.handleIndex(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "snapshots/stream")
}
