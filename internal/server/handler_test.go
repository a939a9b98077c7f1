package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chaingate/internal/cache"
	"chaingate/internal/chain"
	"chaingate/internal/failure"
	"chaingate/internal/fetcher"
	"chaingate/internal/history"
	"chaingate/internal/node"
	"chaingate/internal/query"
	"chaingate/internal/static"
	"chaingate/internal/txbuilder"
)

// fakeConn answers chain-state methods from a canned table.
type fakeConn struct {
	results map[string]json.RawMessage
	errs    map[string]error
}

func (f *fakeConn) Endpoint() string { return "ws://fake" }
func (f *fakeConn) Close()           {}

func (f *fakeConn) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if err, ok := f.errs[method]; ok {
		return nil, err
	}
	if result, ok := f.results[method]; ok {
		return result, nil
	}
	return nil, fmt.Errorf("unexpected method %q", method)
}

type fakeOpener struct {
	conn    *fakeConn
	openErr error
}

func (f *fakeOpener) Open(ctx context.Context, ch chain.Chain) (node.Conn, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.conn, nil
}

func newTestHandler(t *testing.T, opener node.Opener) http.Handler {
	t.Helper()

	dir := t.TempDir()
	chainDir := filepath.Join(dir, "mainnet")
	if err := os.MkdirAll(chainDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(chainDir, "assets.json"), []byte(`{"1.3.0":{"symbol":"BTS"}}`), 0o644); err != nil {
		t.Fatalf("write assets: %v", err)
	}
	if err := os.WriteFile(filepath.Join(chainDir, "marketindex.json"), []byte(`[{"symbol":"BTS/USD","id":"1.3.0_1.3.121"}]`), 0o644); err != nil {
		t.Fatalf("write market index: %v", err)
	}

	stores := make(map[chain.Chain]*static.Store)
	for _, ch := range []chain.Chain{chain.Mainnet, chain.Testnet} {
		store, err := static.Load(dir, ch, zerolog.Nop())
		if err != nil {
			t.Fatalf("static.Load: %v", err)
		}
		stores[ch] = store
	}

	fetch := fetcher.New(zerolog.Nop())
	builder := txbuilder.NewBuilder(opener, zerolog.Nop())
	composer := query.NewComposer(opener, fetch, zerolog.Nop())
	hist := history.NewClient(map[chain.Chain]string{}, cache.NewNoopCache(), time.Second, zerolog.Nop())

	return NewHandler(builder, composer, hist, stores, zerolog.Nop()).Routes()
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, &fakeOpener{conn: &fakeConn{}})
	rec := doRequest(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, &fakeOpener{conn: &fakeConn{}})
	rec := doRequest(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestUnknownChainRejected(t *testing.T) {
	h := newTestHandler(t, &fakeOpener{conn: &fakeConn{}})
	rec := doRequest(t, h, http.MethodGet, "/devnet/account/alice", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["error"] == "" {
		t.Error("error body must carry a message")
	}
}

func TestSigningRequest(t *testing.T) {
	conn := &fakeConn{results: map[string]json.RawMessage{
		"get_dynamic_global_properties": json.RawMessage(`{
			"head_block_number": 70000,
			"head_block_id": "0000000a1122334455667788",
			"time": "2025-01-02T03:04:05"
		}`),
		"get_required_fees": json.RawMessage(`[{"amount":100,"asset_id":"1.3.0"}]`),
	}}
	h := newTestHandler(t, &fakeOpener{conn: conn})

	rec := doRequest(t, h, http.MethodPost, "/mainnet/signing-request",
		`{"operationType":"transfer","payloads":[{"from":"1.2.1","to":"1.2.2"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["id"] == "" || body["signingRequest"] == "" {
		t.Errorf("body = %v, want id and signingRequest", body)
	}
}

func TestSigningRequestMalformedBody(t *testing.T) {
	h := newTestHandler(t, &fakeOpener{conn: &fakeConn{}})
	rec := doRequest(t, h, http.MethodPost, "/mainnet/signing-request", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAccountNotFound(t *testing.T) {
	conn := &fakeConn{results: map[string]json.RawMessage{
		"get_account_by_name": json.RawMessage(`null`),
	}}
	h := newTestHandler(t, &fakeOpener{conn: conn})

	rec := doRequest(t, h, http.MethodGet, "/mainnet/account/nobody", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestPortfolioRoute(t *testing.T) {
	conn := &fakeConn{results: map[string]json.RawMessage{
		"get_account_balances":        json.RawMessage(`[{"asset_id":"1.3.0","amount":"5"}]`),
		"get_limit_orders_by_account": json.RawMessage(`[]`),
	}}
	h := newTestHandler(t, &fakeOpener{conn: conn})

	rec := doRequest(t, h, http.MethodGet, "/mainnet/account/1.2.100/portfolio", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var portfolio struct {
		Balances   json.RawMessage `json:"balances"`
		OpenOrders json.RawMessage `json:"openOrders"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &portfolio); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if portfolio.Balances == nil || portfolio.OpenOrders == nil {
		t.Errorf("portfolio incomplete: %s", rec.Body.String())
	}
}

func TestConnectivityFailureMapsTo503(t *testing.T) {
	opener := &fakeOpener{openErr: &failure.ConnectivityError{Endpoint: "ws://down", Err: errors.New("refused")}}
	h := newTestHandler(t, opener)

	rec := doRequest(t, h, http.MethodGet, "/mainnet/account/1.2.100/balances", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestObjectsRequiresIDs(t *testing.T) {
	h := newTestHandler(t, &fakeOpener{conn: &fakeConn{}})
	rec := doRequest(t, h, http.MethodGet, "/mainnet/objects", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestObjectsRoute(t *testing.T) {
	conn := &fakeConn{results: map[string]json.RawMessage{
		"get_objects": json.RawMessage(`[{"id":"1.3.0"},{"id":"1.2.1"}]`),
	}}
	h := newTestHandler(t, &fakeOpener{conn: conn})

	rec := doRequest(t, h, http.MethodGet, "/mainnet/objects?ids=1.3.0,1.2.1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var objects []json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &objects); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if len(objects) != 2 {
		t.Errorf("object count = %d, want 2", len(objects))
	}
}

func TestStaticAssetRoutes(t *testing.T) {
	h := newTestHandler(t, &fakeOpener{conn: &fakeConn{}})

	rec := doRequest(t, h, http.MethodGet, "/mainnet/asset/1.3.0", "")
	if rec.Code != http.StatusOK {
		t.Errorf("known asset status = %d, want 200", rec.Code)
	}
	rec = doRequest(t, h, http.MethodGet, "/mainnet/asset/1.3.9999", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown asset status = %d, want 404", rec.Code)
	}
	rec = doRequest(t, h, http.MethodGet, "/mainnet/fees", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("absent fee schedule status = %d, want 404", rec.Code)
	}
}

func TestMarketSearch(t *testing.T) {
	h := newTestHandler(t, &fakeOpener{conn: &fakeConn{}})

	rec := doRequest(t, h, http.MethodGet, "/mainnet/markets?q=usd", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var entries []static.MarketEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if len(entries) != 1 || entries[0].Symbol != "BTS/USD" {
		t.Errorf("entries = %v", entries)
	}

	rec = doRequest(t, h, http.MethodGet, "/mainnet/markets", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", rec.Code)
	}
}

func TestHistoryUnconfigured(t *testing.T) {
	h := newTestHandler(t, &fakeOpener{conn: &fakeConn{}})

	rec := doRequest(t, h, http.MethodGet, "/mainnet/account/1.2.100/history", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 for unconfigured history service", rec.Code)
	}
}

func TestHistoryBadPagination(t *testing.T) {
	h := newTestHandler(t, &fakeOpener{conn: &fakeConn{}})

	rec := doRequest(t, h, http.MethodGet, "/mainnet/account/1.2.100/history?size=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
