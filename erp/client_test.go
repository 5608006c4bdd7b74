package erp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arealis/rent-indexation/indexation"
)

// fakeOdoo answers /jsonrpc with canned results per (service, method).
type fakeOdoo struct {
	t       *testing.T
	results map[string]any // "service.method" -> result payload
	calls   []rpcParams
}

func (f *fakeOdoo) handler(w http.ResponseWriter, r *http.Request) {
	require.Equal(f.t, "/jsonrpc", r.URL.Path)

	var req rpcRequest
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
	f.calls = append(f.calls, req.Params)

	result, ok := f.results[req.Params.Service+"."+req.Params.Method]
	if !ok {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req.ID,
			"error": map[string]any{"code": 200, "message": "Odoo Server Error"},
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
}

func newFakeClient(t *testing.T, results map[string]any) (*Client, *fakeOdoo) {
	fake := &fakeOdoo{t: t, results: results}
	server := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(server.Close)

	client := NewClient(Config{
		BaseURL:  server.URL,
		Database: "arealis",
		Login:    "svc-indexation",
		Password: "secret",
	}, server.Client())
	return client, fake
}

func TestClient_AuthenticateOnceThenExecute(t *testing.T) {
	client, fake := newFakeClient(t, map[string]any{
		"common.authenticate": 7,
		"object.execute_kw":   []any{},
	})
	ctx := context.Background()

	_, err := client.SearchRead(ctx, ModelTenancy, []any{}, []string{"name"})
	require.NoError(t, err)
	_, err = client.SearchRead(ctx, ModelTenancy, []any{}, []string{"name"})
	require.NoError(t, err)

	// One authenticate, two execute_kw.
	var auths int
	for _, call := range fake.calls {
		if call.Method == "authenticate" {
			auths++
		}
	}
	assert.Equal(t, 1, auths)

	// execute_kw args: [db, uid, password, model, method, args, kwargs]
	last := fake.calls[len(fake.calls)-1]
	require.Len(t, last.Args, 7)
	assert.Equal(t, "arealis", last.Args[0])
	assert.Equal(t, float64(7), last.Args[1])
	assert.Equal(t, ModelTenancy, last.Args[3])
	assert.Equal(t, "search_read", last.Args[4])
}

func TestClient_RejectedCredentials(t *testing.T) {
	// Odoo answers false, not an error, on bad credentials.
	client, _ := newFakeClient(t, map[string]any{"common.authenticate": false})

	err := client.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, indexation.ErrERPUnavailable))
}

func TestClient_RPCErrorSurfaced(t *testing.T) {
	client, _ := newFakeClient(t, map[string]any{"common.authenticate": 7})

	_, err := client.SearchRead(context.Background(), ModelTenancy, []any{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Odoo Server Error")
}

func TestClient_ServerUnreachable(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, nil)

	err := client.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, indexation.ErrERPUnavailable))
}

func TestLoader_GetTenancy_NotFound(t *testing.T) {
	client, _ := newFakeClient(t, map[string]any{
		"common.authenticate": 7,
		"object.execute_kw":   []any{}, // empty search_read result
	})

	_, err := NewLoader(client).GetTenancy(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, indexation.ErrTenancyNotFound))
}
