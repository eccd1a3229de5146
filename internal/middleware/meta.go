package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "responseMeta"

type responseMeta struct {
	started time.Time
	values  map[string]interface{}
}

// WithResponseMeta starts collecting envelope meta for the request.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, newResponseMeta())
		c.Next()
	}
}

// SetMeta stores value under key in the envelope meta.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if m := metaFrom(c); m != nil {
		m.values[key] = value
	}
}

// SetCacheHit marks whether the payload was served from the dashboard cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, "cache_hit", hit)
}

// ExtractMeta returns a copy of the collected meta. processing_time_ms is
// measured from the moment collection started unless a handler set it.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	m := metaFrom(c)
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m.values)+1)
	for k, v := range m.values {
		out[k] = v
	}
	if _, ok := out["processing_time_ms"]; !ok {
		out["processing_time_ms"] = time.Since(m.started).Milliseconds()
	}
	return out
}

func newResponseMeta() *responseMeta {
	return &responseMeta{started: time.Now(), values: map[string]interface{}{}}
}

// metaFrom lazily attaches storage so handlers work without the middleware in tests.
func metaFrom(c *gin.Context) *responseMeta {
	if c == nil {
		return nil
	}
	if v, ok := c.Get(responseMetaKey); ok {
		if m, ok := v.(*responseMeta); ok {
			return m
		}
	}
	m := newResponseMeta()
	c.Set(responseMetaKey, m)
	return m
}
