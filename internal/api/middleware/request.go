package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/quickpen/backend/internal/shared/id"
)

// HeaderRequestID carries the request correlation ID.
const HeaderRequestID = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID tags every request with a correlation ID. An inbound
// X-Request-ID is propagated so the frontend can stitch its own traces
// to server logs; otherwise a fresh one is minted.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if rid == "" || len(rid) > 64 {
			rid = id.NewRequestID().String()
		}

		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(HeaderRequestID, rid)
		c.Next()
	}
}

// GetRequestID returns the correlation ID set by RequestID, if any.
func GetRequestID(c *gin.Context) string {
	rid, _ := c.Get(requestIDKey)
	if s, ok := rid.(string); ok {
		return s
	}
	return ""
}
