package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"drivncook/database"
	"drivncook/utils"
)

// NotificationPayload describes one logical event to dispatch.
// Exactly one of UserID / TargetRole should be set.
type NotificationPayload struct {
	Type        string
	Priority    string
	Title       string
	Message     string
	Data        map[string]interface{}
	UserID      *uint
	TargetRole  string
	RelatedID   *uint
	RelatedType string
	ActionURL   string
	SendEmail   bool
	// EmailTo overrides recipient resolution when non-empty
	EmailTo []string
	// Attachments ride on the outbound email; they are not persisted
	// with the notification record
	Attachments []EmailAttachment
}

// Dispatch creates the notification record and optionally sends an email.
// Best-effort with respect to the caller: failures are logged and
// dead-lettered, never returned, so the triggering operation always succeeds.
func Dispatch(p NotificationPayload) {
	if p.Priority == "" {
		p.Priority = database.PriorityNormal
	}

	var data datatypes.JSON
	if p.Data != nil {
		if raw, err := json.Marshal(p.Data); err == nil {
			data = raw
		}
	}

	notification := database.Notification{
		UserID:      p.UserID,
		TargetRole:  p.TargetRole,
		Type:        p.Type,
		Priority:    p.Priority,
		Title:       p.Title,
		Message:     p.Message,
		Data:        data,
		Status:      database.NotificationStatusUnread,
		RelatedID:   p.RelatedID,
		RelatedType: p.RelatedType,
		ActionURL:   p.ActionURL,
	}

	if err := database.DB.Create(&notification).Error; err != nil {
		utils.Log.Errorw("Failed to create notification", "error", err, "type", p.Type)
		return
	}

	if !p.SendEmail {
		return
	}

	recipients := p.EmailTo
	if len(recipients) == 0 {
		recipients = resolveRecipients(p)
	}
	if len(recipients) == 0 {
		return
	}

	body := p.Message
	if p.ActionURL != "" {
		body = fmt.Sprintf("%s\n\n%s", p.Message, p.ActionURL)
	}

	if err := Mailer.Send(context.Background(), recipients, p.Title, body, p.Attachments...); err != nil {
		utils.Log.Errorw("Email delivery failed",
			"error", err,
			"recipients", recipients,
			"subject", p.Title,
		)
		recordDeadLetter(recipients, p.Title, body, err)
	}
}

// resolveRecipients maps the notification target to email addresses:
// a specific user's address, or every active user holding the target role.
func resolveRecipients(p NotificationPayload) []string {
	var emails []string

	if p.UserID != nil {
		var user database.User
		if err := database.DB.Select("email").First(&user, *p.UserID).Error; err != nil {
			utils.Log.Errorw("Failed to resolve notification recipient", "error", err, "user_id", *p.UserID)
			return nil
		}
		return []string{user.Email}
	}

	if p.TargetRole != "" {
		if err := database.DB.Model(&database.User{}).
			Where("role = ? AND is_active = ?", p.TargetRole, true).
			Pluck("email", &emails).Error; err != nil {
			utils.Log.Errorw("Failed to resolve role recipients", "error", err, "role", p.TargetRole)
			return nil
		}
	}

	return emails
}

// orderStatusNotice maps an order status to the notification title/type
// used when the status changes.
type orderStatusNotice struct {
	Title    string
	Type     string
	Priority string
}

var orderStatusNotices = map[string]orderStatusNotice{
	database.OrderStatusPending:       {"Commande transmise", "order_pending", database.PriorityNormal},
	database.OrderStatusConfirmed:     {"Commande confirmée", "order_confirmed", database.PriorityNormal},
	database.OrderStatusInPreparation: {"Commande en préparation", "order_in_preparation", database.PriorityNormal},
	database.OrderStatusShipped:       {"Commande expédiée", "order_shipped", database.PriorityNormal},
	database.OrderStatusDelivered:     {"Commande livrée", "order_delivered", database.PriorityNormal},
	database.OrderStatusCancelled:     {"Commande annulée", "order_cancelled", database.PriorityHigh},
	database.OrderStatusPaid:          {"Commande payée", "order_paid", database.PriorityNormal},
}

// NotifyOrderStatusChange fans the status change out to the owning
// franchisee and to the admin role. Two records, each best-effort emailed.
func NotifyOrderStatusChange(order database.Order, franchiseeUserID uint, newStatus string) {
	notice, ok := orderStatusNotices[newStatus]
	if !ok {
		notice = orderStatusNotice{
			Title:    "Commande mise à jour",
			Type:     "order_updated",
			Priority: database.PriorityNormal,
		}
	}

	message := fmt.Sprintf("La commande %s est maintenant au statut %s.", order.OrderNumber, newStatus)
	relatedID := order.ID
	actionURL := fmt.Sprintf("/franchise/orders/%d", order.ID)

	Dispatch(NotificationPayload{
		Type:        notice.Type,
		Priority:    notice.Priority,
		Title:       notice.Title,
		Message:     message,
		UserID:      &franchiseeUserID,
		RelatedID:   &relatedID,
		RelatedType: "order",
		ActionURL:   actionURL,
		SendEmail:   true,
	})

	Dispatch(NotificationPayload{
		Type:        notice.Type,
		Priority:    notice.Priority,
		Title:       notice.Title,
		Message:     message,
		TargetRole:  database.RoleAdmin,
		RelatedID:   &relatedID,
		RelatedType: "order",
		ActionURL:   fmt.Sprintf("/admin/orders/%d", order.ID),
		SendEmail:   true,
	})
}
