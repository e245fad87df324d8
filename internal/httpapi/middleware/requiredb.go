package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/headlineagentur/webportal/internal/common"
	"github.com/headlineagentur/webportal/internal/db"
)

// RequireDB rejects requests with 503 while the database is unreachable,
// so form and chat endpoints fail fast instead of timing out.
func RequireDB(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(c.Request.Context(), gdb); err != nil {
			common.Fail(c, http.StatusServiceUnavailable, 50301, "database unavailable")
			c.Abort()
			return
		}
		c.Next()
	}
}
