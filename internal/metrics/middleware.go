package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// unmatchedPath labels requests that hit no route, keeping the path label bounded
const unmatchedPath = "unmatched"

// GinMiddleware instruments requests served by a gin router
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedPath
		}
		RecordAPIRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), durationMs(time.Since(start)))
	}
}
