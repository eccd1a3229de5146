package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/pkg/response"
)

const legacyErrorsKey = "legacy_errors"

// LegacyErrors switches error bodies on the group to the bare {"error": msg}
// shape older portal clients parse.
func LegacyErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(legacyErrorsKey, true)
		c.Next()
	}
}

// IsLegacy reports whether the request is served by a legacy route.
func IsLegacy(c *gin.Context) bool {
	return c.GetBool(legacyErrorsKey)
}

// Fail writes err in the shape the route expects and aborts the chain.
func Fail(c *gin.Context, err error) {
	if IsLegacy(c) {
		response.LegacyFail(c, err)
	} else {
		response.Error(c, err)
	}
	c.Abort()
}

// Timeout bounds every downstream store call by d.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
