package ports

import (
	"context"

	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/types"
)

// VaultService is the boundary to the Skyflow vault backend. Implementations
// are remote calls; the caller must tolerate their latency and failure modes
// but never reinterpret them. All slices are ordered and implementations MUST
// preserve input order in their outputs.
type VaultService interface {
	// Insert tokenizes records into table. Row-scoped soft failures are
	// reported in the result's Errors, hard failures as a returned error.
	Insert(ctx context.Context, table string, records []types.InsertRecord, opts types.InsertOptions) (types.InsertResult, error)

	// Detokenize resolves tokens back to values. A nil Redaction on a param
	// MUST leave the redaction field off the wire entirely.
	Detokenize(ctx context.Context, params []types.DetokenizeParam, continueOnError bool) (types.DetokenizeResult, error)

	// Query runs a SELECT against the vault.
	Query(ctx context.Context, sql string) (types.QueryResult, error)
}

// TokenSource yields a bearer token for vault calls. Implementations cache and
// renew as needed and must be safe for concurrent use.
type TokenSource interface {
	Bearer(ctx context.Context) (string, error)
}
