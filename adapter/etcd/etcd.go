// Package etcd is a remote adapter speaking the etcd v2 keys HTTP API.
//
//	GET    /v2/keys/{key}                             fetch, value at node.value
//	PUT    /v2/keys/{key}  value=..&ttl=..            set (form encoded)
//	DELETE /v2/keys/{key}                             delete
//	DELETE /v2/keys/{prefix}?dir=true&recursive=true  flush
//
// Reads turn non-2xx responses and bodies without node.value into a miss.
// Increment and Decrement are a GET followed by a PUT and are not atomic:
// concurrent callers on the same key can lose updates.
package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/unkn0wn-root/kvcache/adapter"
)

const (
	DefaultURL     = "http://127.0.0.1:4001"
	defaultPort    = "4001"
	defaultTimeout = 5 * time.Second
	keysPath       = "/v2/keys/"
	maxErrBody     = 4 << 10
)

type Adapter struct {
	mu         sync.RWMutex
	base       string
	prefix     string
	defaultTTL time.Duration
	client     *http.Client
	ownClient  bool
}

var _ adapter.Adapter = (*Adapter)(nil)

type Options struct {
	URL           string        // "" => http://127.0.0.1:4001; missing port => 4001
	Prefix        string        // key directory used as namespace; "" => root
	DefaultExpiry time.Duration // 0 => no expiry
	Timeout       time.Duration // ignored when Client is set; 0 => 5s
	Client        *http.Client  // optional shared client
}

// StatusError reports a non-2xx response to a write.
type StatusError struct {
	Method     string
	Key        string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("etcd %s %q: status %d: %s", e.Method, e.Key, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("etcd %s %q: status %d", e.Method, e.Key, e.StatusCode)
}

func New(opts Options) (*Adapter, error) {
	base, err := normalizeURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: etcd: %v", adapter.ErrUnavailable, err)
	}
	a := &Adapter{
		base:       base,
		prefix:     strings.Trim(opts.Prefix, "/"),
		defaultTTL: opts.DefaultExpiry,
		client:     opts.Client,
	}
	if a.client == nil {
		a.client = newClient(opts.Timeout)
		a.ownClient = true
	}
	return a, nil
}

// FromConfig builds an adapter from url|host, prefix|namespace, expiry and timeout.
func FromConfig(cfg adapter.Config) (*Adapter, error) {
	a, err := New(Options{})
	if err != nil {
		return nil, err
	}
	if err := a.SetConfig(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        16,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultURL
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("missing host in %q", raw)
	}
	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), defaultPort)
	}
	return u.Scheme + "://" + u.Host + strings.TrimRight(u.Path, "/"), nil
}

func (a *Adapter) httpClient() *http.Client {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.client
}

func (a *Adapter) keyURL(key string) string {
	a.mu.RLock()
	base, prefix := a.base, a.prefix
	a.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString(keysPath)
	sb.WriteString(escapePath(prefix))
	if prefix != "" && key != "" {
		sb.WriteByte('/')
	}
	sb.WriteString(escapePath(key))
	return sb.String()
}

// escapePath escapes each segment and keeps "/" as the etcd directory separator.
func escapePath(p string) string {
	if p == "" {
		return ""
	}
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

type nodeResponse struct {
	Node *struct {
		Key   string  `json:"key"`
		Value *string `json:"value"`
		Dir   bool    `json:"dir"`
	} `json:"node"`
}

type errorResponse struct {
	Message string `json:"message"`
	Cause   string `json:"cause"`
}

func (a *Adapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.keyURL(key), nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := a.httpClient().Do(req)
	if err != nil {
		return nil, false, err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false, nil
	}
	var body nodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, nil
	}
	if body.Node == nil || body.Node.Dir || body.Node.Value == nil {
		return nil, false, nil
	}
	return []byte(*body.Node.Value), true, nil
}

func (a *Adapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	a.mu.RLock()
	def := a.defaultTTL
	a.mu.RUnlock()

	form := url.Values{}
	form.Set("value", string(value))
	if secs := adapter.Seconds(adapter.ResolveTTL(ttl, def)); secs > 0 {
		form.Set("ttl", strconv.FormatInt(secs, 10))
	}
	return a.write(ctx, http.MethodPut, key, a.keyURL(key), strings.NewReader(form.Encode()))
}

func (a *Adapter) Delete(ctx context.Context, key string) error {
	return a.write(ctx, http.MethodDelete, key, a.keyURL(key), nil)
}

func (a *Adapter) Persist(ctx context.Context, key string, value []byte) error {
	return a.Set(ctx, key, value, adapter.NoExpiry)
}

func (a *Adapter) Increment(ctx context.Context, key string, offset int64) (int64, error) {
	return adapter.ReadModifyWrite(ctx, a, key, offset, adapter.DefaultExpiry)
}

func (a *Adapter) Decrement(ctx context.Context, key string, offset int64) (int64, error) {
	return adapter.ReadModifyWrite(ctx, a, key, -offset, adapter.DefaultExpiry)
}

// Flush recursively deletes the prefix directory, or the whole keyspace
// when no prefix is configured.
func (a *Adapter) Flush(ctx context.Context) error {
	a.mu.RLock()
	scoped := a.prefix != ""
	a.mu.RUnlock()
	query := "?recursive=true"
	if scoped {
		query = "?dir=true&recursive=true"
	}
	return a.write(ctx, http.MethodDelete, "", a.keyURL("")+query, nil)
}

// SetConfig recognizes url|host, prefix|namespace, expiry and timeout.
func (a *Adapter) SetConfig(cfg adapter.Config) error {
	s, err := adapter.ParseSettings(cfg)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if addr, ok := s.Address(); ok {
		base, err := normalizeURL(addr)
		if err != nil {
			return fmt.Errorf("etcd: %w", err)
		}
		a.base = base
	}
	if ns, ok := s.Scope(); ok {
		a.prefix = strings.Trim(ns, "/")
	}
	if s.Expiry != nil {
		a.defaultTTL = *s.Expiry
	}
	if s.Timeout != nil && a.ownClient {
		// in-flight requests keep the client they started with
		c := *a.client
		c.Timeout = *s.Timeout
		a.client = &c
	}
	return nil
}

func (a *Adapter) Close(_ context.Context) error {
	if a.ownClient {
		a.httpClient().CloseIdleConnections()
	}
	return nil
}

func (a *Adapter) write(ctx context.Context, method, key, target string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := a.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	// deleting something that is already gone is fine
	if method == http.MethodDelete && resp.StatusCode == http.StatusNotFound {
		return nil
	}
	serr := &StatusError{Method: method, Key: key, StatusCode: resp.StatusCode}
	var er errorResponse
	if json.NewDecoder(io.LimitReader(resp.Body, maxErrBody)).Decode(&er) == nil {
		serr.Message = er.Message
	}
	return serr
}

// drain consumes what is left of the body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrBody))
	_ = resp.Body.Close()
}
