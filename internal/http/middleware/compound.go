package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/compound"
)

const ginCompoundContextKey = "compoundContext"

type compoundContextKey struct{}

// Compound resolves the compound from the X-Compound-ID header (numeric ID
// or slug), falling back to the host's first label, and stores it in both
// Gin and request contexts.
func Compound(resolver *compound.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := strings.TrimSpace(c.Request.Header.Get("X-Compound-ID"))
		if ref == "" {
			host := stripPort(c.Request.Host)
			if idx := strings.Index(host, "."); idx > 0 {
				ref = host[:idx]
			} else {
				ref = host
			}
		}

		cpdCtx, err := resolver.Resolve(c.Request.Context(), ref)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "invalid_compound", "error_description": "Unknown compound."})
			return
		}

		ctx := context.WithValue(c.Request.Context(), compoundContextKey{}, cpdCtx)
		c.Request = c.Request.WithContext(ctx)
		c.Set(ginCompoundContextKey, cpdCtx)

		c.Next()
	}
}

// GetCompoundContext extracts the resolved compound from the Gin context.
func GetCompoundContext(c *gin.Context) (*compound.Context, bool) {
	value, ok := c.Get(ginCompoundContextKey)
	if !ok {
		return nil, false
	}
	cpdCtx, ok := value.(*compound.Context)
	return cpdCtx, ok
}

// CompoundContextFromContext extracts the compound from a standard context.
func CompoundContextFromContext(ctx context.Context) (*compound.Context, bool) {
	value := ctx.Value(compoundContextKey{})
	if value == nil {
		return nil, false
	}
	cpdCtx, ok := value.(*compound.Context)
	return cpdCtx, ok
}

func stripPort(host string) string {
	if strings.Contains(host, ":") {
		if h, _, err := net.SplitHostPort(host); err == nil {
			return h
		}
	}
	return host
}
