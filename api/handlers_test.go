/*
handlers_test.go - HTTP surface tests

Exercises the full router (middleware included) against the in-memory
store, asserting the exact wire contract: field-specific 400s, the
plain-text insufficiency response, and the spend summary ordering.
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/points-engine/ledger"
	"github.com/warp/points-engine/ledger/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc := ledger.NewService(store.NewTxMemory(), nil, nil)
	srv := httptest.NewServer(NewRouter(NewHandler(svc, zap.NewNop()), zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func addGrant(t *testing.T, srv *httptest.Server, payer string, points int64, timestamp string) {
	t.Helper()
	resp := postJSON(t, srv.URL+"/add",
		fmt.Sprintf(`{"payer": %q, "points": %d, "timestamp": %q}`, payer, points, timestamp))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// POST /add
// =============================================================================

func TestAdd_Success(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/add",
		`{"payer": "DANNON", "points": 300, "timestamp": "2026-03-01T10:00:00Z"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[AddPointsResponse](t, resp)
	assert.NotEmpty(t, body.ID)
	assert.NotEmpty(t, body.Msg)
}

func TestAdd_MissingFieldsNamed(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"no payer", `{"points": 300, "timestamp": "2026-03-01T10:00:00Z"}`, "payer"},
		{"no points", `{"payer": "DANNON", "timestamp": "2026-03-01T10:00:00Z"}`, "points"},
		{"no timestamp", `{"payer": "DANNON", "points": 300}`, "timestamp"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/add", tc.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			body := decodeBody[ErrorResponse](t, resp)
			assert.Contains(t, body.Msg, tc.field)
		})
	}
}

func TestAdd_ZeroPointsAccepted(t *testing.T) {
	// The falsy-value trap: zero points is a legitimate grant, not a
	// missing field.
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/add",
		`{"payer": "DANNON", "points": 0, "timestamp": "2026-03-01T10:00:00Z"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdd_BadTimestampRejected(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/add",
		`{"payer": "DANNON", "points": 300, "timestamp": "March 1st"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[ErrorResponse](t, resp)
	assert.Contains(t, body.Msg, "timestamp")
}

func TestAdd_NegativePointsRejected(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/add",
		`{"payer": "DANNON", "points": -50, "timestamp": "2026-03-01T10:00:00Z"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// POST /spend
// =============================================================================

func TestSpend_OldestFirstSummary(t *testing.T) {
	srv := newTestServer(t)

	addGrant(t, srv, "DANNON", 300, "2026-03-01T10:00:00Z")
	addGrant(t, srv, "UNILEVER", 200, "2026-03-01T11:00:00Z")
	addGrant(t, srv, "MILLER COORS", 10000, "2026-03-01T11:30:00Z")
	addGrant(t, srv, "DANNON", 10000, "2026-03-01T12:00:00Z")

	resp := postJSON(t, srv.URL+"/spend", `{"points": 5000}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	results := decodeBody[[]SpendResultDTO](t, resp)
	require.Len(t, results, 3)
	assert.Equal(t, SpendResultDTO{Payer: "DANNON", Points: -300}, results[0])
	assert.Equal(t, SpendResultDTO{Payer: "UNILEVER", Points: -200}, results[1])
	assert.Equal(t, SpendResultDTO{Payer: "MILLER COORS", Points: -4500}, results[2])
}

func TestSpend_InsufficientBalanceIsPlainText(t *testing.T) {
	srv := newTestServer(t)
	addGrant(t, srv, "DANNON", 100, "2026-03-01T10:00:00Z")

	resp := postJSON(t, srv.URL+"/spend", `{"points": 150}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	// The grant is untouched: the full 100 can still be spent.
	resp2 := postJSON(t, srv.URL+"/spend", `{"points": 100}`)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestSpend_MissingPoints(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/spend", `{}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[ErrorResponse](t, resp)
	assert.Contains(t, body.Msg, "points")
}

func TestSpend_ZeroPointsRejected(t *testing.T) {
	srv := newTestServer(t)
	addGrant(t, srv, "DANNON", 100, "2026-03-01T10:00:00Z")

	resp := postJSON(t, srv.URL+"/spend", `{"points": 0}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// GET /balance and /grants
// =============================================================================

func TestBalance_EmptyLedger(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/balance")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	balances := decodeBody[map[string]int64](t, resp)
	assert.NotNil(t, balances)
	assert.Empty(t, balances)
}

func TestBalance_ReflectsGrantsAndSpends(t *testing.T) {
	srv := newTestServer(t)

	addGrant(t, srv, "DANNON", 300, "2026-03-01T10:00:00Z")
	addGrant(t, srv, "UNILEVER", 200, "2026-03-01T11:00:00Z")

	resp := postJSON(t, srv.URL+"/spend", `{"points": 350}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getResp, err := http.Get(srv.URL + "/balance")
	require.NoError(t, err)

	balances := decodeBody[map[string]int64](t, getResp)
	assert.Equal(t, map[string]int64{"DANNON": 0, "UNILEVER": 150}, balances)
}

func TestGrants_ListsConsumedGrants(t *testing.T) {
	// Fully-consumed grants persist with zero points as audit entries.
	srv := newTestServer(t)

	addGrant(t, srv, "DANNON", 100, "2026-03-01T10:00:00Z")
	resp := postJSON(t, srv.URL+"/spend", `{"points": 100}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getResp, err := http.Get(srv.URL + "/grants")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	grants := decodeBody[[]GrantDTO](t, getResp)
	require.Len(t, grants, 1)
	assert.Equal(t, "DANNON", grants[0].Payer)
	assert.Equal(t, int64(0), grants[0].Points)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
