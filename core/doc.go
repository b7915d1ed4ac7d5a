// Package core implements the bank synchronization engine: token
// lifecycle scheduling, account and transaction ingestion, and webhook
// subscription reconciliation against an upstream banking provider.
//
// The package is transport and storage agnostic. Outbound provider
// calls go through the ProviderClient contract, durable state through
// the TokenStore, AccountStore, and TransactionStore contracts. See
// store/sql for the bun-backed stores and providers/monzo for the
// concrete provider client.
package core
