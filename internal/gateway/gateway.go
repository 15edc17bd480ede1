// Package gateway serves the etcd v2 keys subset used by adapter/etcd on top
// of any adapter, so etcd v2 clients can read and write a ristretto, bolt or
// redis backend over HTTP.
//
//	GET    /v2/keys/{key}
//	PUT    /v2/keys/{key}   form: value, ttl (seconds)
//	DELETE /v2/keys/{key}
//	DELETE /v2/keys/{dir}?recursive=true   flushes the adapter
//	GET    /-/health
//
// The adapter has one namespace, so a recursive delete of any directory
// flushes all of it.
package gateway

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/kvcache"
	"github.com/unkn0wn-root/kvcache/adapter"
)

const contextKeyRequestID = "_kvcache_request_id"

// etcd v2 error codes
const (
	errKeyNotFound  = 100
	errNotFile      = 102
	errInvalidTTL   = 202
	errRaftInternal = 300
)

type Options struct {
	Adapter adapter.Adapter
	Logger  *logrus.Logger
	// Timeout bounds each adapter call; 0 => 5s.
	Timeout time.Duration
}

type node struct {
	Key   string  `json:"key"`
	Value *string `json:"value,omitempty"`
	TTL   int64   `json:"ttl,omitempty"`
	Dir   bool    `json:"dir,omitempty"`
}

type response struct {
	Action string `json:"action"`
	Node   node   `json:"node"`
}

type errorBody struct {
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
	Cause     string `json:"cause,omitempty"`
}

type server struct {
	a       adapter.Adapter
	log     *logrus.Logger
	timeout time.Duration
}

// NewApp builds the Fiber application.
func NewApp(opts Options) (*fiber.App, error) {
	if opts.Adapter == nil {
		return nil, errors.New("adapter is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	s := &server{a: opts.Adapter, log: opts.Logger, timeout: opts.Timeout}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})
	app.Use(recover.New())
	app.Use(requestIDMiddleware)

	app.Get("/-/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/v2/keys/*", s.get)
	app.Put("/v2/keys/*", s.put)
	app.Post("/v2/keys/*", s.put)
	app.Delete("/v2/keys/*", s.delete)
	app.Delete("/v2/keys", s.delete)
	return app, nil
}

func requestIDMiddleware(c fiber.Ctx) error {
	reqID := c.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.NewString()
	}
	c.Locals(contextKeyRequestID, reqID)
	c.Set("X-Request-ID", reqID)
	return c.Next()
}

// RequestID returns the identifier set by the request middleware.
func RequestID(c fiber.Ctx) string {
	if v, ok := c.Locals(contextKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// key maps the wildcard path to the adapter key, without leading or
// trailing slashes.
func key(c fiber.Ctx) string {
	raw := c.Params("*")
	if k, err := url.PathUnescape(raw); err == nil {
		raw = k
	}
	return strings.Trim(raw, "/")
}

func (s *server) ctx(c fiber.Ctx) (context.Context, context.CancelFunc) {
	parent := c.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, s.timeout)
}

func (s *server) get(c fiber.Ctx) error {
	k := key(c)
	if k == "" {
		return s.fail(c, fiber.StatusForbidden, errNotFile, "Not a file", "/")
	}
	if err := kvcache.ValidateKey(k); err != nil {
		return s.notFound(c, k)
	}
	ctx, cancel := s.ctx(c)
	defer cancel()

	v, ok, err := s.a.Get(ctx, k)
	if err != nil {
		s.logf(c, "get", k, err).Warn("adapter get failed")
		return s.fail(c, fiber.StatusInternalServerError, errRaftInternal, err.Error(), "/"+k)
	}
	if !ok {
		return s.notFound(c, k)
	}
	val := string(v)
	return c.JSON(response{Action: "get", Node: node{Key: "/" + k, Value: &val}})
}

func (s *server) put(c fiber.Ctx) error {
	k := key(c)
	if err := kvcache.ValidateKey(k); err != nil {
		return s.fail(c, fiber.StatusBadRequest, errNotFile, err.Error(), "/"+k)
	}

	ttl := adapter.NoExpiry
	var secs int64
	if raw := strings.TrimSpace(c.FormValue("ttl")); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return s.fail(c, fiber.StatusBadRequest, errInvalidTTL, "The given TTL in POST form is not a number", "Update")
		}
		ttl, secs = adapter.FromSeconds(n), n
	}
	value := c.FormValue("value")

	ctx, cancel := s.ctx(c)
	defer cancel()
	if err := s.a.Set(ctx, k, []byte(value), ttl); err != nil {
		s.logf(c, "set", k, err).Warn("adapter set failed")
		return s.fail(c, fiber.StatusInternalServerError, errRaftInternal, err.Error(), "/"+k)
	}
	s.logf(c, "set", k, nil).Debug("stored")
	return c.JSON(response{Action: "set", Node: node{Key: "/" + k, Value: &value, TTL: secs}})
}

func (s *server) delete(c fiber.Ctx) error {
	k := key(c)
	ctx, cancel := s.ctx(c)
	defer cancel()

	if c.Query("recursive") == "true" {
		if err := s.a.Flush(ctx); err != nil {
			s.logf(c, "flush", k, err).Warn("adapter flush failed")
			return s.fail(c, fiber.StatusInternalServerError, errRaftInternal, err.Error(), "/"+k)
		}
		s.logf(c, "flush", k, nil).Info("flushed")
		return c.JSON(response{Action: "delete", Node: node{Key: "/" + k, Dir: true}})
	}

	if k == "" {
		return s.fail(c, fiber.StatusForbidden, errNotFile, "Not a file", "/")
	}
	if err := kvcache.ValidateKey(k); err != nil {
		return s.notFound(c, k)
	}
	if err := s.a.Delete(ctx, k); err != nil {
		s.logf(c, "delete", k, err).Warn("adapter delete failed")
		return s.fail(c, fiber.StatusInternalServerError, errRaftInternal, err.Error(), "/"+k)
	}
	return c.JSON(response{Action: "delete", Node: node{Key: "/" + k}})
}

func (s *server) notFound(c fiber.Ctx, k string) error {
	return s.fail(c, fiber.StatusNotFound, errKeyNotFound, "Key not found", "/"+k)
}

func (s *server) fail(c fiber.Ctx, status, code int, msg, cause string) error {
	return c.Status(status).JSON(errorBody{ErrorCode: code, Message: msg, Cause: cause})
}

func (s *server) logf(c fiber.Ctx, action, k string, err error) *logrus.Entry {
	fields := logrus.Fields{
		"action":     action,
		"key":        k,
		"request_id": RequestID(c),
	}
	if err != nil {
		fields[logrus.ErrorKey] = err
	}
	return s.log.WithFields(fields)
}
