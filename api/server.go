// Package api implements the read-only query surface of spec.md §6: "Any
// HTTP surface may be added; its only requirement on the core is
// read-only access to BlockchainStore and read-only access to
// NodeState.is_syncing." Grounded on the teacher's les/api_backend.go
// (a read-only backend facade in front of BlockchainStore-equivalent
// state) and its sibling httprouter-based RPC surface.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/snap-coin/snap-coin-node/chain"
	"github.com/snap-coin/snap-coin-node/common"
	"github.com/snap-coin/snap-coin-node/internal/nodelog"
	"github.com/snap-coin/snap-coin-node/wire"
)

// SyncStatus reports NodeState.is_syncing without exposing anything else
// about the coordinator.
type SyncStatus interface {
	IsSyncing() bool
}

// Server is the read-only HTTP facade: a thin httprouter mux in front of
// chain.Store, with permissive CORS since this is a public, read-only
// surface (mirrors the teacher's own RPC CORS defaults).
type Server struct {
	store  *chain.Store
	status SyncStatus
	log    nodelog.Logger
	router *httprouter.Router
}

func NewServer(store *chain.Store, status SyncStatus, log nodelog.Logger) *Server {
	s := &Server{store: store, status: status, log: log, router: httprouter.New()}
	s.router.GET("/height", s.getHeight)
	s.router.GET("/block/height/:height", s.getBlockByHeight)
	s.router.GET("/block/hash/:hash", s.getBlockByHash)
	s.router.GET("/balance/:address", s.getBalance)
	s.router.GET("/status", s.getStatus)
	return s
}

// Handler returns the CORS-wrapped http.Handler to mount on an
// http.Server, the same composition pattern the teacher's rpc package
// uses to wrap its router with rs/cors.
func (s *Server) Handler() http.Handler {
	return cors.AllowAll().Handler(s.router)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": err.Error()})
}

func (s *Server) getHeight(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, map[string]uint64{"height": s.store.GetHeight()})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, map[string]interface{}{
		"height":     s.store.GetHeight(),
		"is_syncing": s.status.IsSyncing(),
	})
}

func (s *Server) getBlockByHeight(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	height, err := strconv.ParseUint(ps.ByName("height"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid height: %w", err))
		return
	}
	b, ok := s.store.GetBlock(height)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no block at height %d", height))
		return
	}
	writeJSON(w, blockViewOf(&b))
}

func (s *Server) getBlockByHash(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	hash, err := common.HashFromHex(ps.ByName("hash"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid hash: %w", err))
		return
	}
	b, ok := s.store.GetBlockByHash(hash)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no block with hash %s", hash))
		return
	}
	writeJSON(w, blockViewOf(&b))
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	addr, err := common.AddressFromHex(ps.ByName("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid address: %w", err))
		return
	}
	writeJSON(w, map[string]uint64{"balance": s.store.GetBalance(addr)})
}

// blockView is the JSON-facing projection of a wire.Block; kept separate
// from the wire type so the on-wire binary layout and the HTTP JSON
// contract can evolve independently.
type blockView struct {
	Hash       string `json:"hash"`
	PrevHash   string `json:"prev_hash"`
	Height     uint64 `json:"height"`
	Timestamp  uint64 `json:"timestamp"`
	Difficulty uint64 `json:"difficulty"`
	Nonce      uint64 `json:"nonce"`
	Coinbase   string `json:"coinbase_recipient"`
	TxCount    int    `json:"tx_count"`
}

func blockViewOf(b *wire.Block) blockView {
	return blockView{
		Hash:       b.PowDigest.Hex(),
		PrevHash:   b.PrevHash.Hex(),
		Height:     b.Height,
		Timestamp:  b.Timestamp,
		Difficulty: b.Difficulty,
		Nonce:      b.Nonce,
		Coinbase:   b.CoinbaseRecipient.Hex(),
		TxCount:    len(b.Transactions),
	}
}
