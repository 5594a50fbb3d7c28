package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/types"
)

// Metadata rides along with every successful standard response.
type Metadata struct {
	Operation  types.Operation `json:"operation"`
	DurationMS int64           `json:"duration_ms"`
}

// Envelope is the standard endpoint's response body.
type Envelope struct {
	Success  bool             `json:"success"`
	Data     []any            `json:"data,omitempty"`
	Metadata *Metadata        `json:"metadata,omitempty"`
	Errors   []types.RowError `json:"errors,omitempty"`
	Error    *ErrorBody       `json:"error,omitempty"`
}

// ErrorBody is the stable failure shape. Type discriminates configuration
// mistakes from transient backend failures.
type ErrorBody struct {
	Message    string `json:"message"`
	Type       string `json:"type"`
	HTTPStatus int    `json:"http_status,omitempty"`
}

const (
	typeConfig         = "ConfigError"
	typeValidation     = "ValidationError"
	typeTokenization   = "TokenizationError"
	typeDetokenization = "DetokenizationError"
	typeQuery          = "QueryError"
	typeUpstream       = "UpstreamError"
	typeUnknown        = "UnknownError"
)

// classify maps an error to its HTTP status and stable type discriminator.
func classify(err error) (int, string) {
	var upstream *types.UpstreamStatusError
	status := http.StatusInternalServerError
	if errors.As(err, &upstream) && upstream.Status > 0 {
		status = upstream.Status
	}
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest, typeValidation
	case errors.Is(err, types.ErrConfig):
		return http.StatusBadRequest, typeConfig
	case errors.Is(err, types.ErrTokenization):
		return status, typeTokenization
	case errors.Is(err, types.ErrDetokenization):
		return status, typeDetokenization
	case errors.Is(err, types.ErrQuery):
		return status, typeQuery
	case errors.Is(err, types.ErrUpstream):
		return status, typeUpstream
	default:
		return http.StatusInternalServerError, typeUnknown
	}
}

// errorMessage flattens a joined error chain into one line.
func errorMessage(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}

func failureEnvelope(err error) (int, Envelope) {
	status, typ := classify(err)
	return status, Envelope{
		Success: false,
		Error:   &ErrorBody{Message: errorMessage(err), Type: typ, HTTPStatus: status},
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
