package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/headlineagentur/webportal/internal/common"
)

const (
	csrfCookie = "hl_csrf"
	csrfHeader = "X-CSRF-Token"
)

// EnsureCSRF issues the double-submit cookie on safe requests so the
// frontend can echo it back in the X-CSRF-Token header.
func EnsureCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := c.Cookie(csrfCookie); err != nil {
			buf := make([]byte, 16)
			if _, err := rand.Read(buf); err == nil {
				c.SetCookie(csrfCookie, hex.EncodeToString(buf), 86400, "/", "", false, false)
			}
		}
		c.Next()
	}
}

// ValidateCSRF enforces the double-submit check on mutating form routes.
func ValidateCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		cookie, err := c.Cookie(csrfCookie)
		header := c.GetHeader(csrfHeader)
		if err != nil || cookie == "" || header == "" ||
			subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
			common.Fail(c, http.StatusForbidden, 40301, "csrf token mismatch")
			c.Abort()
			return
		}
		c.Next()
	}
}
