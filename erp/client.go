/*
Package erp is the gateway to the Odoo ERP holding the tenancy,
property, and partner master data.

PURPOSE:
  Wraps Odoo's JSON-RPC endpoint behind the three method shapes the
  rest of the system relies on: read fields by ids, search ids by
  domain, write fields by ids. Everything else about the ERP's data
  model stays on the other side of this boundary.

WIRE PROTOCOL:
  POST {base}/jsonrpc with a JSON-RPC 2.0 envelope. Authentication via
  service "common" / method "authenticate" yields a numeric uid that is
  passed on every subsequent "object" / "execute_kw" call.

COERCION:
  Odoo record payloads are loosely typed (absent fields arrive as JSON
  false, many2one fields as [id, label] pairs). All coercion into the
  engine's strict types is centralized in coerce.go and loader.go;
  nothing downstream ever touches a raw record.

SEE ALSO:
  - coerce.go: Field coercion helpers
  - loader.go: Tenancy normalization boundary
*/
package erp

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/arealis/rent-indexation/indexation"
)

// Config carries the ERP connection parameters, usually sourced from
// the environment (see cmd/server).
type Config struct {
	BaseURL  string
	Database string
	Login    string
	Password string
}

// Client is a JSON-RPC client for one Odoo database. Safe for
// concurrent use; authentication happens lazily on first call.
type Client struct {
	cfg  Config
	http *http.Client

	mu  sync.Mutex
	uid int64 // 0 until authenticated

	nextID atomic.Int64
}

// NewClient creates a client. The HTTP client may be nil, in which
// case a default with a 30s timeout is used.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// =============================================================================
// JSON-RPC ENVELOPE
// =============================================================================

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

func (e *rpcError) Error() string {
	if e.Data.Message != "" {
		return fmt.Sprintf("odoo rpc: %s (%s)", e.Data.Message, e.Data.Name)
	}
	return fmt.Sprintf("odoo rpc: %s (code %d)", e.Message, e.Code)
}

func (c *Client) call(ctx context.Context, service, method string, args []any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("encode rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/jsonrpc", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", indexation.ErrERPUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http %d", indexation.ErrERPUnavailable, resp.StatusCode)
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}
	if envelope.Error != nil {
		return nil, envelope.Error
	}
	return envelope.Result, nil
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Authenticate resolves and caches the session uid. Called lazily by
// ExecuteKw; exposed so cmd/server can fail fast on bad credentials.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uid != 0 {
		return nil
	}

	result, err := c.call(ctx, "common", "authenticate",
		[]any{c.cfg.Database, c.cfg.Login, c.cfg.Password, map[string]any{}})
	if err != nil {
		return err
	}

	var uid int64
	if err := json.Unmarshal(result, &uid); err != nil || uid == 0 {
		// Odoo answers false, not an error, on wrong credentials.
		return fmt.Errorf("%w: authentication rejected for %q", indexation.ErrERPUnavailable, c.cfg.Login)
	}
	c.uid = uid
	return nil
}

func (c *Client) sessionUID(ctx context.Context) (int64, error) {
	if err := c.Authenticate(ctx); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uid, nil
}

// =============================================================================
// METHOD SHAPES - read / search / write
// =============================================================================

// ExecuteKw runs a named method against a named record collection with
// positional arguments and keyword options.
func (c *Client) ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	uid, err := c.sessionUID(ctx)
	if err != nil {
		return nil, err
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return c.call(ctx, "object", "execute_kw",
		[]any{c.cfg.Database, uid, c.cfg.Password, model, method, args, kwargs})
}

// SearchRead returns matching records with the requested fields.
func (c *Client) SearchRead(ctx context.Context, model string, domain []any, fields []string) ([]Record, error) {
	result, err := c.ExecuteKw(ctx, model, "search_read", []any{domain},
		map[string]any{"fields": fields})
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(result, &records); err != nil {
		return nil, fmt.Errorf("decode %s search_read: %w", model, err)
	}
	return records, nil
}

// Read returns the requested fields of specific records.
func (c *Client) Read(ctx context.Context, model string, ids []int64, fields []string) ([]Record, error) {
	result, err := c.ExecuteKw(ctx, model, "read", []any{ids},
		map[string]any{"fields": fields})
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(result, &records); err != nil {
		return nil, fmt.Errorf("decode %s read: %w", model, err)
	}
	return records, nil
}

// Search returns ids matching a domain filter.
func (c *Client) Search(ctx context.Context, model string, domain []any, kwargs map[string]any) ([]int64, error) {
	result, err := c.ExecuteKw(ctx, model, "search", []any{domain}, kwargs)
	if err != nil {
		return nil, err
	}
	var ids []int64
	if err := json.Unmarshal(result, &ids); err != nil {
		return nil, fmt.Errorf("decode %s search: %w", model, err)
	}
	return ids, nil
}

// Write overwrites fields on specific records.
func (c *Client) Write(ctx context.Context, model string, ids []int64, values map[string]any) error {
	_, err := c.ExecuteKw(ctx, model, "write", []any{ids, values}, nil)
	return err
}
