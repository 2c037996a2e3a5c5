package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"drivncook/database"
	"drivncook/utils"
)

// notificationScope limits a query to notifications visible to the caller:
// rows addressed to them directly plus rows broadcast to their role
func notificationScope(c *gin.Context, query *gorm.DB) (*gorm.DB, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, "User not authenticated")
		return nil, false
	}
	return query.Where("user_id = ? OR target_role = ?", userID, currentRole(c)), true
}

// GetNotifications lists the caller's notifications, newest first
func GetNotifications(c *gin.Context) {
	params := utils.ParsePageParams(c, "created_at", "priority", "status")

	query, ok := notificationScope(c, database.DB.Model(&database.Notification{}))
	if !ok {
		return
	}

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	} else {
		query = query.Where("status <> ?", database.NotificationStatusArchived)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	var unread int64
	if err := query.Session(&gorm.Session{}).
		Where("status = ?", database.NotificationStatusUnread).
		Count(&unread).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	var notifications []database.Notification
	if err := query.Order(params.OrderClause()).
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&notifications).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"data":         notifications,
		"unread_count": unread,
		"pagination":   utils.BuildPagination(params, total),
	})
}

// loadNotificationScoped fetches a notification the caller may act on
func loadNotificationScoped(c *gin.Context) (database.Notification, bool) {
	var notification database.Notification

	notificationID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid notification ID")
		return notification, false
	}

	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, "User not authenticated")
		return notification, false
	}

	err = database.DB.
		Where("id = ? AND (user_id = ? OR target_role = ?)", notificationID, userID, currentRole(c)).
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Notification not found")
			return notification, false
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return notification, false
	}

	return notification, true
}

// MarkNotificationRead marks one notification as read
func MarkNotificationRead(c *gin.Context) {
	notification, ok := loadNotificationScoped(c)
	if !ok {
		return
	}

	if notification.Status == database.NotificationStatusUnread {
		notification.Status = database.NotificationStatusRead
		if err := database.DB.Save(&notification).Error; err != nil {
			utils.Log.Errorw("Database error", "error", err)
			utils.RespondError(c, http.StatusInternalServerError, "Failed to update notification")
			return
		}
	}

	utils.RespondSuccess(c, http.StatusOK, notification, "")
}

// MarkAllNotificationsRead marks every unread notification of the caller
func MarkAllNotificationsRead(c *gin.Context) {
	query, ok := notificationScope(c, database.DB.Model(&database.Notification{}))
	if !ok {
		return
	}

	result := query.Where("status = ?", database.NotificationStatusUnread).
		Update("status", database.NotificationStatusRead)
	if result.Error != nil {
		utils.Log.Errorw("Database error", "error", result.Error)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to update notifications")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{"updated": result.RowsAffected}, "All notifications marked as read")
}

// ArchiveNotification moves a notification out of the default listing
func ArchiveNotification(c *gin.Context) {
	notification, ok := loadNotificationScoped(c)
	if !ok {
		return
	}

	notification.Status = database.NotificationStatusArchived
	if err := database.DB.Save(&notification).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to archive notification")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, notification, "Notification archived")
}
