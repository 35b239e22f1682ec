package gql

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/graph-gophers/graphql-go"
	"github.com/snap-coin/snap-coin-node/chain"
	"github.com/snap-coin/snap-coin-node/chaincrypto"
	"github.com/stretchr/testify/require"
)

type fakeStatus struct{ syncing bool }

func (f fakeStatus) IsSyncing() bool { return f.syncing }

func newTestSchema(t *testing.T) *graphql.Schema {
	t.Helper()
	engine, err := chaincrypto.NewEngine(chaincrypto.ModeLight, "")
	require.NoError(t, err)
	genesisSeed, err := chaincrypto.RandomHash()
	require.NoError(t, err)
	store := chain.NewGenesisStore(engine, genesisSeed, 1000)
	s, err := graphql.ParseSchema(schema, &resolver{store: store, status: fakeStatus{}})
	require.NoError(t, err)
	return s
}

func TestHeightQueryReturnsGenesisHeight(t *testing.T) {
	s := newTestSchema(t)
	resp := s.Exec(context.Background(), `{ height }`, "", nil)
	require.Empty(t, resp.Errors)
	require.JSONEq(t, `{"height":1}`, string(resp.Data))
}

func TestNewHandlerServesHTTP(t *testing.T) {
	engine, err := chaincrypto.NewEngine(chaincrypto.ModeLight, "")
	require.NoError(t, err)
	genesisSeed, err := chaincrypto.RandomHash()
	require.NoError(t, err)
	store := chain.NewGenesisStore(engine, genesisSeed, 1000)

	h, err := NewHandler(store, fakeStatus{})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/graphql", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.NotEqual(t, 0, w.Code)
}
