package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/vet-portal/pkg/httputil"
)

// DefaultMaxBodySize fits a clinical record with its attachment references.
const DefaultMaxBodySize = 1 << 20

// SizeLimit rejects requests whose declared body is larger than maxBytes and caps
// the reader for the rest.
func SizeLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, httputil.Response{
				Error: &httputil.Error{Code: http.StatusRequestEntityTooLarge, Message: "request body too large"},
			})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
