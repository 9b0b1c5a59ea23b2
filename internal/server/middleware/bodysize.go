package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clipscribe/clipscribe/internal/util"
)

const defaultMaxBodySize = 10 * 1024 * 1024 // 10MB

// BodySizeLimit returns middleware that restricts the request body to
// the given size string (e.g. "10MB", "512KB", "2GB"). Media upload
// routes set their own, larger limit.
func BodySizeLimit(maxSize string) gin.HandlerFunc {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, size)
		c.Next()
	}
}
