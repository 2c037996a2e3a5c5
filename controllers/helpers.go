package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"drivncook/database"
)

// currentUserID extracts the authenticated user's ID from the context
func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("userID")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// currentRole extracts the authenticated user's role from the context
func currentRole(c *gin.Context) string {
	v, exists := c.Get("role")
	if !exists {
		return ""
	}
	role, _ := v.(string)
	return role
}

// currentFranchiseID extracts the franchise linked to the caller, if any
func currentFranchiseID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("franchiseID")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// parseIDParam parses the :id path parameter
func parseIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// auditActor returns the caller's user ID as a nullable pointer for audit rows
func auditActor(c *gin.Context) *uint {
	if id, ok := currentUserID(c); ok {
		return &id
	}
	return nil
}

const numberRetries = 3

// nextOrderNumber formats CMD-{year}-{seq} from the current order count.
// The number column carries a unique index; callers retry on conflict.
func nextOrderNumber(tx *gorm.DB) (string, error) {
	var count int64
	if err := tx.Model(&database.Order{}).Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("CMD-%d-%06d", time.Now().Year(), count+1), nil
}

// nextInvoiceNumber formats FACT-{year}-{seq} from the global invoice count
func nextInvoiceNumber(tx *gorm.DB) (string, error) {
	var count int64
	if err := tx.Model(&database.Invoice{}).Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("FACT-%d-%06d", time.Now().Year(), count+1), nil
}

// isUniqueViolation reports whether err is a unique-constraint conflict.
// Matched loosely because the postgres and sqlite drivers wrap it differently.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "unique constraint")
}
