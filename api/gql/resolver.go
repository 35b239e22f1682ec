package gql

import (
	"errors"
	"net/http"

	"github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/snap-coin/snap-coin-node/chain"
	"github.com/snap-coin/snap-coin-node/common"
	"github.com/snap-coin/snap-coin-node/wire"
)

// SyncStatus mirrors api.SyncStatus; kept as its own interface so this
// package does not need to import the sibling api package.
type SyncStatus interface {
	IsSyncing() bool
}

type resolver struct {
	store  *chain.Store
	status SyncStatus
}

// NewHandler builds the GraphQL HTTP handler mounted alongside the plain
// JSON surface, following the graph-gophers relay.Handler composition the
// pack's ethgraphql-style siblings use.
func NewHandler(store *chain.Store, status SyncStatus) (http.Handler, error) {
	s, err := graphql.ParseSchema(schema, &resolver{store: store, status: status})
	if err != nil {
		return nil, err
	}
	return &relay.Handler{Schema: s}, nil
}

func (r *resolver) Height() int32 {
	return int32(r.store.GetHeight())
}

func (r *resolver) IsSyncing() bool {
	return r.status.IsSyncing()
}

func (r *resolver) Balance(args struct{ Address string }) (int32, error) {
	addr, err := common.AddressFromHex(args.Address)
	if err != nil {
		return 0, err
	}
	return int32(r.store.GetBalance(addr)), nil
}

func (r *resolver) Block(args struct {
	Height *int32
	Hash   *string
}) (*blockResolver, error) {
	switch {
	case args.Hash != nil:
		h, err := common.HashFromHex(*args.Hash)
		if err != nil {
			return nil, err
		}
		b, ok := r.store.GetBlockByHash(h)
		if !ok {
			return nil, nil
		}
		return &blockResolver{b: b}, nil
	case args.Height != nil:
		b, ok := r.store.GetBlock(uint64(*args.Height))
		if !ok {
			return nil, nil
		}
		return &blockResolver{b: b}, nil
	default:
		return nil, errors.New("gql: block query requires height or hash")
	}
}

type blockResolver struct{ b wire.Block }

func (r *blockResolver) Hash() string              { return r.b.PowDigest.Hex() }
func (r *blockResolver) PrevHash() string          { return r.b.PrevHash.Hex() }
func (r *blockResolver) Height() int32             { return int32(r.b.Height) }
func (r *blockResolver) Timestamp() int32          { return int32(r.b.Timestamp) }
func (r *blockResolver) Difficulty() int32         { return int32(r.b.Difficulty) }
func (r *blockResolver) Nonce() int32              { return int32(r.b.Nonce) }
func (r *blockResolver) CoinbaseRecipient() string { return r.b.CoinbaseRecipient.Hex() }
func (r *blockResolver) TxCount() int32            { return int32(len(r.b.Transactions)) }
