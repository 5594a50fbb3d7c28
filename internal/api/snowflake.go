package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/ops"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/types"
)

// snowflakeBody is the external-function request: one row per input,
// [rowNumber, value]. Row numbers are kept as raw JSON and re-emitted
// verbatim, so arbitrary and non-contiguous numbering survives the round trip.
type snowflakeBody struct {
	Data [][]json.RawMessage `json:"data"`
}

type snowflakeResponse struct {
	Data [][]any `json:"data"`
}

type snowflakeError struct {
	Error ErrorBody `json:"error"`
}

// Snowflake handles one row-indexed request. Configuration arrives under the
// sf-custom- header prefix; the operation comes from the prefixed operation
// header. Exactly one data column per call: multi-column use means multiple
// calls at the caller's layer, never multiplexing here.
func (h *Handler) Snowflake(ctx context.Context, headers map[string]string, body []byte) (int, any) {
	status, resp, err := h.snowflake(ctx, headers, body)
	if err != nil {
		status, typ := classify(err)
		log.WithError(err).WithField("type", typ).Warn("snowflake request failed")
		return status, snowflakeError{Error: ErrorBody{Message: errorMessage(err), Type: typ}}
	}
	return status, resp
}

func (h *Handler) snowflake(ctx context.Context, headers map[string]string, body []byte) (int, snowflakeResponse, error) {
	prefix := types.SnowflakeHeaderPrefix

	op, err := types.ParseOperation(HeaderValue(headers, prefix, types.OperationHdrName))
	if err != nil {
		return 0, snowflakeResponse{}, err
	}
	if op != types.OpTokenize && op != types.OpDetokenize {
		return 0, snowflakeResponse{}, types.Err(types.ErrConfig, nil,
			"operation %s is not supported on the row-indexed endpoint", op)
	}

	var payload snowflakeBody
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, snowflakeResponse{}, types.Err(types.ErrValidation, err, "request body is not valid JSON")
	}
	if len(payload.Data) == 0 {
		return 0, snowflakeResponse{}, types.Err(types.ErrValidation, nil, "data must be a non-empty array of rows")
	}

	// Split correlation from payload: row numbers keep their positions, the
	// values go through the dispatcher positionally.
	rowNums := make([]json.RawMessage, len(payload.Data))
	values := make([]string, len(payload.Data))
	for i, row := range payload.Data {
		if len(row) != 2 {
			return 0, snowflakeResponse{}, types.Err(types.ErrValidation, nil,
				"row %d must be a [rowNumber, value] pair", i)
		}
		rowNums[i] = row[0]
		if err := json.Unmarshal(row[1], &values[i]); err != nil {
			return 0, snowflakeResponse{}, types.Err(types.ErrValidation, err,
				"row %d value must be a string", i)
		}
	}

	req := ops.Request{Operation: op, BatchSize: h.Sizes.For(op)}
	switch op {
	case types.OpTokenize:
		column := HeaderValue(headers, prefix, types.ColumnNameHdrName)
		if column == "" {
			return 0, snowflakeResponse{}, types.Err(types.ErrConfig, nil,
				"missing required header %s%s", prefix, types.ColumnNameHdrName)
		}
		req.Table = HeaderValue(headers, prefix, types.TableHdrName)
		req.Records = make([]map[string]string, len(values))
		for i, v := range values {
			req.Records[i] = map[string]string{column: v}
		}
	case types.OpDetokenize:
		req.Tokens = values
	}

	vault, err := h.Cache.Resolve(
		HeaderValue(headers, prefix, types.ClusterIDHdrName),
		HeaderValue(headers, prefix, types.VaultIDHdrName),
		HeaderValue(headers, prefix, types.EnvironmentHdrName),
	)
	if err != nil {
		return 0, snowflakeResponse{}, err
	}

	outcome, err := ops.Execute(ctx, vault, req)
	if err != nil {
		return 0, snowflakeResponse{}, err
	}
	if len(outcome.Data) != len(rowNums) {
		// The bijection with input row numbers cannot be re-established.
		return 0, snowflakeResponse{}, types.Err(types.ErrUpstream, nil,
			"vault returned %d results for %d rows", len(outcome.Data), len(rowNums))
	}

	// Re-zip the ordered output with the original row numbers in their
	// original positions.
	resp := snowflakeResponse{Data: make([][]any, len(rowNums))}
	for i, num := range rowNums {
		resp.Data[i] = []any{num, snowflakeValue(op, outcome.Data[i])}
	}
	return http.StatusOK, resp, nil
}

// snowflakeValue reduces a per-record result to the single column the caller
// gets back: the token value for detokenize, the full token row for tokenize.
func snowflakeValue(op types.Operation, result any) any {
	if op == types.OpDetokenize {
		if rec, ok := result.(types.DetokenizedRecord); ok {
			return rec.Value
		}
	}
	return result
}
