package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MehdiEmrani/wazo-chatd/internal/repository"
)

// respondError translates repository errors into HTTP responses.
// NotFound carries everything needed for the 404 body; anything else is
// an internal error whose detail stays in the logs, not the response.
func respondError(c *gin.Context, logger *zap.Logger, action string, err error) {
	if nf := repository.AsNotFound(err); nf != nil {
		c.JSON(nf.Status, gin.H{
			"message":   nf.Message,
			"error_id":  nf.ErrorID,
			"resource":  nf.Resource,
			"details":   nf.Details,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	logger.Error("failed to "+action, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
}

// listBody is the standard list envelope: items plus the total within
// scope and the count after filtering.
func listBody(items any, total, filtered int) gin.H {
	return gin.H{
		"items":    items,
		"total":    total,
		"filtered": filtered,
	}
}
