package odoo

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func xmlReply(value string) string {
	return `<?xml version="1.0"?><methodResponse><params><param><value>` + value + `</value></param></params></methodResponse>`
}

func TestClientAuthenticatesOnceAndExecutes(t *testing.T) {
	var logins, calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/xml")
		switch r.URL.Path {
		case "/xmlrpc/2/common":
			logins.Add(1)
			assert.Contains(t, string(body), "<methodName>authenticate</methodName>")
			_, _ = io.WriteString(w, xmlReply(`<int>7</int>`))
		case "/xmlrpc/2/object":
			calls.Add(1)
			assert.Contains(t, string(body), "<methodName>execute_kw</methodName>")
			assert.Contains(t, string(body), "search_count")
			_, _ = io.WriteString(w, xmlReply(`<int>11</int>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL + "/", Database: "wms", Username: "bot", Password: "secret"})
	for i := 0; i < 2; i++ {
		reply, err := c.ExecuteKW(context.Background(), "stock.picking", "search_count", []any{[]any{}}, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(11), reply)
	}
	assert.Equal(t, int32(1), logins.Load())
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientRejectedCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = io.WriteString(w, xmlReply(`<boolean>0</boolean>`))
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, Database: "wms", Username: "bot", Password: "wrong"})
	_, err := c.ExecuteKW(context.Background(), "stock.picking", "search_count", nil, nil)
	assert.ErrorIs(t, err, ErrAuth)
}

func TestClientHonoursCancelledContext(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(Config{URL: srv.URL}).Authenticate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, hits.Load())
}

func TestRecordHelpers(t *testing.T) {
	row := record{
		"name":    false,
		"label":   map[string]any{"en_US": "Units"},
		"partner": []any{int64(4), "Acme"},
		"empty":   false,
		"qty":     int64(3),
		"when":    "bogus",
	}
	assert.Empty(t, row.str("name"))
	assert.Equal(t, "Units", row.str("label"))
	id, name := row.many2one("partner")
	require.NotNil(t, id)
	assert.Equal(t, int64(4), *id)
	assert.Equal(t, "Acme", name)
	id, _ = row.many2one("empty")
	assert.Nil(t, id)
	assert.InDelta(t, 3.0, row.float("qty"), 1e-9)

	_, err := row.date("when")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "when"))
	d, err := row.date("missing")
	require.NoError(t, err)
	assert.Nil(t, d)
}
