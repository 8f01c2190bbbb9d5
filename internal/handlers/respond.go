// Package handlers exposes the JSON HTTP surface. Every response carries a
// top-level success flag; validation failures return the stable error kind
// from the taxonomy so the storefront can render the specific reason inline.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nivello/rewards/internal/apperr"
)

func fail(c *gin.Context, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   ae.Kind,
			"message": ae.Message,
		})
		return
	}

	if errors.Is(err, apperr.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "NotFound",
			"message": "not found",
		})
		return
	}

	// Storage-layer failures are safe to retry: every mutating operation is
	// idempotent or conditionally guarded.
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   "StorageUnavailable",
		"message": "temporary storage failure, please retry",
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "BadRequest",
		"message": message,
	})
}
