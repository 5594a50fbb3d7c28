package api

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/cache"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/ops"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/ports"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/types"
)

// Handler serves both transport adapters. The client cache is owned by the
// service instance and shared across requests; everything else is per-request.
type Handler struct {
	Cache *cache.Cache
	Sizes types.BatchSizes
}

func NewHandler(c *cache.Cache, sizes types.BatchSizes) *Handler {
	return &Handler{Cache: c, Sizes: sizes}
}

// requestBody is the standard endpoint's JSON payload. Records stays raw until
// the operation is known: tokenize and tokenize_custom share the key but not
// the element shape.
type requestBody struct {
	Records json.RawMessage `json:"records"`
	Tokens  []string        `json:"tokens"`
	Query   string          `json:"query"`
	Options struct {
		Upsert    any    `json:"upsert"`
		Redaction string `json:"redaction"`
	} `json:"options"`
}

// Execute handles one standard request: operation and vault triple from
// headers, payload from the JSON body. It returns the HTTP status and the
// response envelope; transports only serialize.
func (h *Handler) Execute(ctx context.Context, headers map[string]string, body []byte) (int, Envelope) {
	start := time.Now()

	req, vault, err := h.buildRequest(headers, "", body)
	if err != nil {
		return failureEnvelope(err)
	}

	outcome, err := ops.Execute(ctx, vault, req)
	if err != nil {
		log.WithError(err).WithField("operation", req.Operation).Warn("operation failed")
		return failureEnvelope(err)
	}

	return http.StatusOK, Envelope{
		Success: true,
		Data:    outcome.Data,
		Errors:  outcome.Errors,
		Metadata: &Metadata{
			Operation:  req.Operation,
			DurationMS: time.Since(start).Milliseconds(),
		},
	}
}

// buildRequest resolves headers (under prefix) and the body into a validated
// operation request plus the cached vault handle. Config and validation
// failures here short-circuit before any backend call.
func (h *Handler) buildRequest(headers map[string]string, prefix string, body []byte) (ops.Request, ports.VaultService, error) {
	op, err := types.ParseOperation(HeaderValue(headers, prefix, types.OperationHdrName))
	if err != nil {
		return ops.Request{}, nil, err
	}
	vault, err := h.Cache.Resolve(
		HeaderValue(headers, prefix, types.ClusterIDHdrName),
		HeaderValue(headers, prefix, types.VaultIDHdrName),
		HeaderValue(headers, prefix, types.EnvironmentHdrName),
	)
	if err != nil {
		return ops.Request{}, nil, err
	}

	var payload requestBody
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return ops.Request{}, nil, types.Err(types.ErrValidation, err, "request body is not valid JSON")
		}
	}

	req := ops.Request{
		Operation: op,
		Table:     HeaderValue(headers, prefix, types.TableHdrName),
		Tokens:    payload.Tokens,
		Query:     payload.Query,
		BatchSize: h.Sizes.For(op),
	}

	switch op {
	case types.OpTokenize:
		if len(payload.Records) > 0 {
			if err := json.Unmarshal(payload.Records, &req.Records); err != nil {
				return ops.Request{}, nil, types.Err(types.ErrValidation, err,
					"records must be an array of string-to-string objects")
			}
		}
		req.Upsert, err = ops.NormalizeUpsert(payload.Options.Upsert)
		if err != nil {
			return ops.Request{}, nil, err
		}
	case types.OpTokenizeCustom:
		if len(payload.Records) > 0 {
			if err := json.Unmarshal(payload.Records, &req.CustomRecords); err != nil {
				return ops.Request{}, nil, types.Err(types.ErrValidation, err,
					"records must be an array of {fields, tokens} objects")
			}
		}
	case types.OpDetokenize:
		if payload.Options.Redaction != "" {
			if err := ops.ValidateRedaction(payload.Options.Redaction); err != nil {
				return ops.Request{}, nil, err
			}
			r := types.Redaction(payload.Options.Redaction)
			req.Redaction = &r
		}
	}
	return req, vault, nil
}
