package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/agro-operations/internal/config"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 || cw.size < cw.limit {
		remain := cw.limit - cw.size
		switch {
		case cw.limit <= 0, int64(len(b)) <= remain:
			cw.buf.Write(b)
		case remain > 0:
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// ResponseCache caches successful GET responses of one resource (crops,
// livestock, log entries) in Redis and purges them whenever a write to the
// same resource, or to data embedded in its responses, succeeds.  All keys
// of a resource share the prefix "<cfg.Prefix>:<resource>:".
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log logrus.FieldLogger
}

func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client, log logrus.FieldLogger) *ResponseCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return &ResponseCache{cfg: cfg, rdb: rdb, log: log}
}

func (rc *ResponseCache) resourcePrefix(resource string) string {
	return rc.cfg.Prefix + ":" + resource + ":"
}

// cacheKey hashes the request path and query below the resource prefix.
func (rc *ResponseCache) cacheKey(resource string, c echo.Context) string {
	r := c.Request()
	sum := sha1.Sum([]byte(r.URL.Path + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%s%x", rc.resourcePrefix(resource), sum[:])
}

// storedHeaders are the response headers a cached entry keeps.  Everything
// else (CORS, request id, rate limit counters) belongs to the request that
// produced the entry and is set afresh by the outer middleware on a hit.
var storedHeaders = []string{echo.HeaderContentType, echo.HeaderContentEncoding}

// For returns the middleware for resource.  GET responses are cached under
// resource; a successful write purges resource and every scope in
// dependents.  It is a pass-through when the cache is disabled or Redis is
// unavailable.
func (rc *ResponseCache) For(resource string, dependents ...string) echo.MiddlewareFunc {
	if !rc.active() {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	maxBody := int64(rc.cfg.MaxBodyBytes)
	purgeOnWrite := rc.PurgeAfterWrite(append([]string{resource}, dependents...)...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		onWrite := purgeOnWrite(next)
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return onWrite(c)
			}

			ctx := c.Request().Context()
			key := rc.cacheKey(resource, c)

			if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for _, k := range storedHeaders {
						if v := hdr.Get(k); v != "" {
							c.Response().Header().Set(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					if len(body) > 0 {
						_, _ = c.Response().Write(body)
					}
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			// Truncated bodies are never stored.
			if cw.status == http.StatusOK && (maxBody <= 0 || cw.size <= maxBody) {
				hdr := http.Header{}
				for _, k := range storedHeaders {
					if v := c.Response().Header().Get(k); v != "" {
						hdr.Set(k, v)
					}
				}
				payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
				if err == nil {
					err = rc.rdb.Set(context.Background(), key, payload, rc.cfg.TTL).Err()
				}
				if err != nil {
					rc.log.WithError(err).WithField("key", key).Warn("cache store failed")
				}
			}
			return nil
		}
	}
}

// PurgeAfterWrite purges scopes once a non-GET request has been answered
// with a status below 400.  Routes whose writes change data embedded in
// other resources' responses use it without caching anything themselves.
func (rc *ResponseCache) PurgeAfterWrite(scopes ...string) echo.MiddlewareFunc {
	if !rc.active() || len(scopes) == 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if c.Request().Method == http.MethodGet || err != nil {
				return err
			}
			if c.Response().Committed && c.Response().Status < http.StatusBadRequest {
				for _, s := range scopes {
					rc.Purge(c.Request().Context(), s)
				}
			}
			return nil
		}
	}
}

func (rc *ResponseCache) active() bool {
	return rc != nil && rc.cfg.Enabled && rc.rdb != nil
}

// Purge deletes every cached response of resource.
func (rc *ResponseCache) Purge(ctx context.Context, resource string) {
	if rc == nil || rc.rdb == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	iter := rc.rdb.Scan(ctx, 0, rc.resourcePrefix(resource)+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		rc.log.WithError(err).WithField("resource", resource).Warn("cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := rc.rdb.Del(ctx, keys...).Err(); err != nil {
		rc.log.WithError(err).WithField("resource", resource).Warn("cache purge failed")
	}
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}
