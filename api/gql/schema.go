// Package gql exposes the same read-only surface as api.Server over
// GraphQL, the alternative query transport named by spec.md §6 ("any
// HTTP surface may be added"). It shares the SyncStatus/chain.Store
// dependency shape of the sibling package so neither surface gains
// write access to the core.
package gql

const schema = `
	schema {
		query: Query
	}

	type Query {
		height: Int!
		isSyncing: Boolean!
		block(height: Int, hash: String): Block
		balance(address: String!): Int!
	}

	type Block {
		hash: String!
		prevHash: String!
		height: Int!
		timestamp: Int!
		difficulty: Int!
		nonce: Int!
		coinbaseRecipient: String!
		txCount: Int!
	}
`
