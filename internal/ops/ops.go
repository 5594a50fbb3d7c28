// Package ops defines the four vault operations. Each adapter supplies the
// dispatcher with its batch size, its per-batch vault call, and its result
// extraction, and wraps hard backend failures in its own error type.
package ops

import (
	"context"

	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/dispatch"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/ports"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/types"
)

// SkyflowIDField carries the vault-generated row identifier in tokenize output.
const SkyflowIDField = "skyflow_id"

// Request is one validated-and-dispatched logical operation. Exactly one of
// Records, CustomRecords, Tokens, Query is set, matching Operation.
type Request struct {
	Operation     types.Operation
	Table         string
	Records       []map[string]string
	CustomRecords []types.InsertRecord
	Tokens        []string
	Query         string

	// Upsert names a unique column for insert-or-update (tokenize only).
	Upsert string
	// Redaction is nil unless the caller supplied it; it must then stay off
	// the vault request entirely.
	Redaction *types.Redaction

	BatchSize int
}

// Outcome is the dispatcher output flattened for the transport layer.
type Outcome struct {
	Data   []any
	Errors []types.RowError
}

// Execute validates req and runs it through the batch dispatcher.
func Execute(ctx context.Context, vault ports.VaultService, req Request) (Outcome, error) {
	switch req.Operation {
	case types.OpTokenize:
		return tokenize(ctx, vault, req)
	case types.OpTokenizeCustom:
		return tokenizeCustom(ctx, vault, req)
	case types.OpDetokenize:
		return detokenize(ctx, vault, req)
	case types.OpQuery:
		return query(ctx, vault, req)
	default:
		return Outcome{}, types.Err(types.ErrConfig, nil, "unknown operation %q", req.Operation)
	}
}

func requireTable(req Request) error {
	if req.Table == "" {
		return types.Err(types.ErrConfig, nil, "missing required header %s", types.TableHdrName)
	}
	return nil
}

func tokenize(ctx context.Context, vault ports.VaultService, req Request) (Outcome, error) {
	if err := requireTable(req); err != nil {
		return Outcome{}, err
	}
	if err := ValidateRecords(req.Records); err != nil {
		return Outcome{}, err
	}
	items := make([]types.InsertRecord, len(req.Records))
	for i, r := range req.Records {
		items[i] = types.InsertRecord{Fields: r}
	}
	return runInsert(ctx, vault, req, items)
}

func tokenizeCustom(ctx context.Context, vault ports.VaultService, req Request) (Outcome, error) {
	if err := requireTable(req); err != nil {
		return Outcome{}, err
	}
	if err := ValidateCustomRecords(req.CustomRecords); err != nil {
		return Outcome{}, err
	}
	return runInsert(ctx, vault, req, req.CustomRecords)
}

// runInsert is shared by both tokenize forms; they differ only in input shape.
// continueOnError stays false here: a failed insert row fails its whole batch.
func runInsert(ctx context.Context, vault ports.VaultService, req Request, items []types.InsertRecord) (Outcome, error) {
	opts := types.InsertOptions{Upsert: req.Upsert, ContinueOnError: false}
	res, err := dispatch.Run(ctx, items, req.BatchSize,
		func(ctx context.Context, batch []types.InsertRecord) (dispatch.Result[any, types.RowError], error) {
			out, err := vault.Insert(ctx, req.Table, batch, opts)
			if err != nil {
				return dispatch.Result[any, types.RowError]{}, types.Err(types.ErrTokenization, err, "")
			}
			data := make([]any, 0, len(out.Records))
			for _, rec := range out.Records {
				row := make(map[string]any, len(rec.Tokens)+1)
				for col, tok := range rec.Tokens {
					row[col] = tok
				}
				row[SkyflowIDField] = rec.SkyflowID
				data = append(data, row)
			}
			return dispatch.Result[any, types.RowError]{Data: data, Errors: out.Errors}, nil
		})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Data: res.Data, Errors: res.Errors}, nil
}

func detokenize(ctx context.Context, vault ports.VaultService, req Request) (Outcome, error) {
	if err := ValidateTokens(req.Tokens); err != nil {
		return Outcome{}, err
	}
	params := make([]types.DetokenizeParam, len(req.Tokens))
	for i, tok := range req.Tokens {
		params[i] = types.DetokenizeParam{Token: tok, Redaction: req.Redaction}
	}
	// Detokenize opts into row-level continue-on-error; a bad token yields a
	// soft error instead of failing its batch.
	res, err := dispatch.Run(ctx, params, req.BatchSize,
		func(ctx context.Context, batch []types.DetokenizeParam) (dispatch.Result[any, types.RowError], error) {
			out, err := vault.Detokenize(ctx, batch, true)
			if err != nil {
				return dispatch.Result[any, types.RowError]{}, types.Err(types.ErrDetokenization, err, "")
			}
			data := make([]any, 0, len(out.Records))
			for _, rec := range out.Records {
				data = append(data, rec)
			}
			return dispatch.Result[any, types.RowError]{Data: data, Errors: out.Errors}, nil
		})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Data: res.Data, Errors: res.Errors}, nil
}

func query(ctx context.Context, vault ports.VaultService, req Request) (Outcome, error) {
	if err := ValidateQuery(req.Query); err != nil {
		return Outcome{}, err
	}
	out, err := vault.Query(ctx, req.Query)
	if err != nil {
		return Outcome{}, types.Err(types.ErrQuery, err, "")
	}
	data := make([]any, 0, len(out.Rows))
	for _, row := range out.Rows {
		data = append(data, stripTokenizedData(row))
	}
	return Outcome{Data: data, Errors: out.Errors}, nil
}

// stripTokenizedData drops the vault's internal tokenization-metadata field
// from a query row when it is empty.
func stripTokenizedData(row types.QueryRow) types.QueryRow {
	v, ok := row["tokenizedData"]
	if !ok {
		return row
	}
	switch t := v.(type) {
	case nil:
		delete(row, "tokenizedData")
	case map[string]any:
		if len(t) == 0 {
			delete(row, "tokenizedData")
		}
	}
	return row
}

// NormalizeUpsert accepts the caller-supplied upsert option, which may be a
// string or an array of strings. Only the first element of an array is
// honored; that is a documented SDK limitation, not a choice made here.
func NormalizeUpsert(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case []any:
		if len(t) == 0 {
			return "", nil
		}
		s, ok := t[0].(string)
		if !ok {
			return "", types.Err(types.ErrValidation, nil, "upsert must be a string or array of strings")
		}
		return s, nil
	default:
		return "", types.Err(types.ErrValidation, nil, "upsert must be a string or array of strings")
	}
}
