// Package skyflow is the HTTP client for the Skyflow vault REST API. It is a
// thin wire adapter: it never interprets field values and never retries; the
// dispatcher above decides what a failed batch means.
package skyflow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/ports"
	"github.com/SkyflowFoundry/SkyflowForAWSLambda/internal/types"
)

const (
	prodDomain    = "vault.skyflowapis.com"
	sandboxDomain = "vault.skyflowapis-preview.com"

	maxResponseBytes = 8 << 20
)

// Client talks to one vault on one cluster. One Client is constructed per
// (cluster, vault, environment) triple and reused for the process lifetime.
type Client struct {
	baseURL string
	vaultID string
	tokens  ports.TokenSource
	http    *http.Client
}

// Option tweaks client construction.
type Option func(*Client)

// WithBaseURL overrides the derived cluster URL. Used by tests and local stubs.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(cluster, vaultID string, env types.Environment, tokens ports.TokenSource, opts ...Option) *Client {
	domain := prodDomain
	if env == types.EnvSandbox {
		domain = sandboxDomain
	}
	c := &Client{
		baseURL: fmt.Sprintf("https://%s.%s", cluster, domain),
		vaultID: vaultID,
		tokens:  tokens,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type insertRequest struct {
	Records         []types.InsertRecord `json:"records"`
	Tokenization    bool                 `json:"tokenization"`
	Upsert          string               `json:"upsert,omitempty"`
	ContinueOnError bool                 `json:"continueOnError"`
}

func (c *Client) Insert(ctx context.Context, table string, records []types.InsertRecord, opts types.InsertOptions) (types.InsertResult, error) {
	in := insertRequest{
		Records:         records,
		Tokenization:    true,
		Upsert:          opts.Upsert,
		ContinueOnError: opts.ContinueOnError,
	}
	var out types.InsertResult
	if err := c.post(ctx, fmt.Sprintf("/v1/vaults/%s/%s", c.vaultID, table), in, &out); err != nil {
		return types.InsertResult{}, err
	}
	return out, nil
}

type detokenizeRequest struct {
	DetokenizationParameters []types.DetokenizeParam `json:"detokenizationParameters"`
	ContinueOnError          bool                    `json:"continueOnError"`
}

func (c *Client) Detokenize(ctx context.Context, params []types.DetokenizeParam, continueOnError bool) (types.DetokenizeResult, error) {
	in := detokenizeRequest{DetokenizationParameters: params, ContinueOnError: continueOnError}
	var out types.DetokenizeResult
	if err := c.post(ctx, fmt.Sprintf("/v1/vaults/%s/detokenize", c.vaultID), in, &out); err != nil {
		return types.DetokenizeResult{}, err
	}
	return out, nil
}

func (c *Client) Query(ctx context.Context, sql string) (types.QueryResult, error) {
	in := map[string]string{"query": sql}
	var out types.QueryResult
	if err := c.post(ctx, fmt.Sprintf("/v1/vaults/%s/query", c.vaultID), in, &out); err != nil {
		return types.QueryResult{}, err
	}
	return out, nil
}

// post serializes in, attaches the bearer, and decodes a 2xx response into
// out. Non-2xx responses surface as UpstreamStatusError carrying the vault's
// status and message.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return types.Err(types.ErrUpstream, err, "marshal vault request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return types.Err(types.ErrUpstream, err, "build vault request")
	}
	bearer, err := c.tokens.Bearer(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return types.Err(types.ErrUpstream, err, "vault call %s", path)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return types.Err(types.ErrUpstream, err, "read vault response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithFields(log.Fields{"path": path, "status": resp.StatusCode}).
			Warn("vault call rejected")
		return &types.UpstreamStatusError{
			Status:  resp.StatusCode,
			Message: upstreamMessage(body),
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return types.Err(types.ErrUpstream, err, "decode vault response")
	}
	return nil
}

// upstreamMessage digs the human-readable message out of a vault error body,
// falling back to the raw body.
func upstreamMessage(body []byte) string {
	var wrapped struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error.Message != "" {
		return wrapped.Error.Message
	}
	return strings.TrimSpace(string(body))
}
