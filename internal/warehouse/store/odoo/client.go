// Package odoo reads warehouse data from an Odoo host over XML-RPC.
package odoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kolo/xmlrpc"
)

// ErrAuth is returned when the host rejects the configured credentials.
var ErrAuth = errors.New("odoo: authentication failed")

// Executor runs model methods on the host.
type Executor interface {
	ExecuteKW(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error)
}

// Config holds Odoo connection settings.
type Config struct {
	URL      string
	Database string
	Username string
	Password string
	Timeout  time.Duration
}

// Client is an Odoo XML-RPC client. It authenticates lazily on first use.
type Client struct {
	cfg       Config
	commonURL string
	objectURL string
	transport http.RoundTripper

	mu  sync.Mutex
	uid int64
}

// NewClient creates a new Odoo client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	base := strings.TrimRight(cfg.URL, "/")
	return &Client{
		cfg:       cfg,
		commonURL: base + "/xmlrpc/2/common",
		objectURL: base + "/xmlrpc/2/object",
		transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: cfg.Timeout,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// Authenticate logs in and caches the user id.
func (c *Client) Authenticate(ctx context.Context) (int64, error) {
	args := []any{c.cfg.Database, c.cfg.Username, c.cfg.Password, map[string]any{}}
	reply, err := c.call(ctx, c.commonURL, "authenticate", args)
	if err != nil {
		return 0, fmt.Errorf("odoo authenticate: %w", err)
	}
	uid, ok := reply.(int64)
	if !ok || uid <= 0 {
		return 0, ErrAuth
	}

	c.mu.Lock()
	c.uid = uid
	c.mu.Unlock()
	return uid, nil
}

func (c *Client) session(ctx context.Context) (int64, error) {
	c.mu.Lock()
	uid := c.uid
	c.mu.Unlock()
	if uid > 0 {
		return uid, nil
	}
	return c.Authenticate(ctx)
}

// ExecuteKW implements Executor.
func (c *Client) ExecuteKW(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	uid, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	params := []any{c.cfg.Database, uid, c.cfg.Password, model, method, args, kwargs}
	reply, err := c.call(ctx, c.objectURL, "execute_kw", params)
	if err != nil {
		return nil, fmt.Errorf("odoo %s.%s: %w", model, method, err)
	}
	return reply, nil
}

// call runs one XML-RPC request, abandoning it when ctx is done.
func (c *Client) call(ctx context.Context, url, method string, args any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := xmlrpc.NewClient(url, c.transport)
	if err != nil {
		return nil, fmt.Errorf("create xml-rpc client: %w", err)
	}
	defer client.Close()

	type result struct {
		reply any
		err   error
	}
	done := make(chan result, 1)
	go func() {
		var reply any
		err := client.Call(method, args, &reply)
		done <- result{reply: reply, err: err}
	}()

	select {
	case res := <-done:
		return res.reply, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
