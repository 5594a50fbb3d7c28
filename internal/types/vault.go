package types

// Wire shapes exchanged with the Skyflow vault API. The proxy passes field
// values through opaquely; it never interprets plaintext.

// InsertRecord is one row to tokenize. Tokens is set only for the
// custom-token operation and must mirror Fields key-for-key.
type InsertRecord struct {
	Fields map[string]string `json:"fields"`
	Tokens map[string]string `json:"tokens,omitempty"`
}

// InsertOptions drives a vault insert call.
type InsertOptions struct {
	// Upsert names the unique column used for insert-or-update. Empty means
	// plain insert.
	Upsert string
	// ContinueOnError lets the vault report per-row failures instead of
	// failing the whole batch.
	ContinueOnError bool
}

// InsertedRecord is the vault's per-row insert result: the generated skyflow_id
// plus one token per input column.
type InsertedRecord struct {
	SkyflowID string            `json:"skyflow_id"`
	Tokens    map[string]string `json:"tokens"`
}

// InsertResult is an ordered per-row result set with optional row-scoped
// soft errors.
type InsertResult struct {
	Records []InsertedRecord `json:"records"`
	Errors  []RowError       `json:"errors,omitempty"`
}

// DetokenizeParam is one token to resolve. Redaction is a pointer on purpose:
// nil means "not supplied", and the field must then be absent from the vault
// request so governance policy stays in control.
type DetokenizeParam struct {
	Token     string     `json:"token"`
	Redaction *Redaction `json:"redaction,omitempty"`
}

// DetokenizedRecord pairs a token with its resolved value.
type DetokenizedRecord struct {
	Token string `json:"token"`
	Value string `json:"value"`
}

type DetokenizeResult struct {
	Records []DetokenizedRecord `json:"records"`
	Errors  []RowError          `json:"errors,omitempty"`
}

// QueryRow is one result row of a vault query.
type QueryRow map[string]any

type QueryResult struct {
	Rows   []QueryRow `json:"records"`
	Errors []RowError `json:"errors,omitempty"`
}

// RowError is a vault-reported soft failure scoped to a single row of a batch.
// The index is relative to the batch the vault saw, concatenated as-is across
// batches.
type RowError struct {
	RequestIndex int    `json:"request_index"`
	Code         int    `json:"code,omitempty"`
	Description  string `json:"description"`
}
