package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/snap-coin/snap-coin-node/chain"
	"github.com/snap-coin/snap-coin-node/chaincrypto"
	"github.com/snap-coin/snap-coin-node/internal/nodelog"
	"github.com/stretchr/testify/require"
)

type fakeStatus struct{ syncing bool }

func (f fakeStatus) IsSyncing() bool { return f.syncing }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	engine, err := chaincrypto.NewEngine(chaincrypto.ModeLight, "")
	require.NoError(t, err)
	genesisSeed, err := chaincrypto.RandomHash()
	require.NoError(t, err)
	store := chain.NewGenesisStore(engine, genesisSeed, 1000)
	return NewServer(store, fakeStatus{}, nodelog.Root())
}

func TestGetHeightReflectsGenesisOnly(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/height", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)

	var body map[string]uint64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, s.store.GetHeight(), body["height"])
}

func TestGetBlockByHeightReturnsGenesis(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/block/height/0", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)

	var view blockView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Equal(t, uint64(0), view.Height)
}

func TestGetBlockByHeightMissingReturns404(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/block/height/99", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, 404, w.Code)
}

func TestGetBalanceRejectsMalformedAddress(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/balance/not-hex", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, 400, w.Code)
}

func TestGetStatusReportsSyncState(t *testing.T) {
	engine, err := chaincrypto.NewEngine(chaincrypto.ModeLight, "")
	require.NoError(t, err)
	genesisSeed, err := chaincrypto.RandomHash()
	require.NoError(t, err)
	store := chain.NewGenesisStore(engine, genesisSeed, 1000)
	s := NewServer(store, fakeStatus{syncing: true}, nodelog.Root())

	req := httptest.NewRequest("GET", "/status", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, true, body["is_syncing"])
}
