package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"drivncook/database"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&database.User{},
		&database.Order{},
		&database.Notification{},
		&database.AuditLog{},
		&database.EmailDeadLetter{},
	))

	previous := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = previous
		sqlDB.Close()
	})

	return db
}

type recordingSender struct {
	sent     [][]string
	attached [][]EmailAttachment
	fail     error
}

func (r *recordingSender) Send(_ context.Context, to []string, _, _ string, attachments ...EmailAttachment) error {
	if r.fail != nil {
		return r.fail
	}
	r.sent = append(r.sent, to)
	r.attached = append(r.attached, attachments)
	return nil
}

func swapMailer(t *testing.T, sender EmailSender) {
	t.Helper()
	previous := Mailer
	Mailer = sender
	t.Cleanup(func() { Mailer = previous })
}

func seedUser(t *testing.T, db *gorm.DB, email, role string) database.User {
	t.Helper()
	user := database.User{Email: email, Role: role, IsActive: true, PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestDispatchCreatesNotificationRow(t *testing.T) {
	db := setupTestDB(t)
	swapMailer(t, &recordingSender{})

	user := seedUser(t, db, "target@test.local", database.RoleFranchisee)

	Dispatch(NotificationPayload{
		Type:    "order_pending",
		Title:   "Commande transmise",
		Message: "La commande CMD-2026-000001 est maintenant au statut PENDING.",
		UserID:  &user.ID,
	})

	var notification database.Notification
	require.NoError(t, db.First(&notification).Error)
	assert.Equal(t, "order_pending", notification.Type)
	assert.Equal(t, database.NotificationStatusUnread, notification.Status)
	assert.Equal(t, database.PriorityNormal, notification.Priority, "priority defaults to NORMAL")
	require.NotNil(t, notification.UserID)
	assert.Equal(t, user.ID, *notification.UserID)
}

func TestDispatchResolvesRoleRecipients(t *testing.T) {
	db := setupTestDB(t)
	sender := &recordingSender{}
	swapMailer(t, sender)

	seedUser(t, db, "admin1@test.local", database.RoleAdmin)
	seedUser(t, db, "admin2@test.local", database.RoleAdmin)
	inactive := seedUser(t, db, "admin3@test.local", database.RoleAdmin)
	require.NoError(t, db.Model(&inactive).Update("is_active", false).Error)
	seedUser(t, db, "franchisee@test.local", database.RoleFranchisee)

	Dispatch(NotificationPayload{
		Type:       "franchise_registered",
		Title:      "Nouvelle candidature",
		Message:    "Une franchise attend validation.",
		TargetRole: database.RoleAdmin,
		SendEmail:  true,
	})

	require.Len(t, sender.sent, 1)
	assert.ElementsMatch(t, []string{"admin1@test.local", "admin2@test.local"}, sender.sent[0])
}

func TestDispatchForwardsAttachments(t *testing.T) {
	db := setupTestDB(t)
	sender := &recordingSender{}
	swapMailer(t, sender)

	user := seedUser(t, db, "target@test.local", database.RoleFranchisee)

	Dispatch(NotificationPayload{
		Type:      "order_transmitted",
		Title:     "Commande transmise",
		Message:   "La commande CMD-2026-000007 a été transmise pour traitement.",
		UserID:    &user.ID,
		SendEmail: true,
		Attachments: []EmailAttachment{{
			Filename:    "CMD-2026-000007.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.3 contenu"),
		}},
	})

	require.Len(t, sender.attached, 1)
	require.Len(t, sender.attached[0], 1)
	assert.Equal(t, "CMD-2026-000007.pdf", sender.attached[0][0].Filename)
	assert.Equal(t, "application/pdf", sender.attached[0][0].ContentType)
	assert.True(t, strings.HasPrefix(string(sender.attached[0][0].Data), "%PDF"))
}

func TestDispatchEmailFailureIsDeadLettered(t *testing.T) {
	db := setupTestDB(t)
	swapMailer(t, &recordingSender{fail: errors.New("ses throttled")})

	user := seedUser(t, db, "target@test.local", database.RoleFranchisee)

	// Must not panic or surface the error
	Dispatch(NotificationPayload{
		Type:      "invoice_generated",
		Title:     "Nouvelle facture",
		Message:   "Une facture a été émise.",
		UserID:    &user.ID,
		SendEmail: true,
	})

	var notifications int64
	db.Model(&database.Notification{}).Count(&notifications)
	assert.EqualValues(t, 1, notifications, "the notification row outlives the email failure")

	var letter database.EmailDeadLetter
	require.NoError(t, db.First(&letter).Error)
	assert.Equal(t, "target@test.local", letter.Recipients)
	assert.Equal(t, "Nouvelle facture", letter.Subject)
	assert.Contains(t, letter.Error, "ses throttled")
}

func TestNotifyOrderStatusChangeFansOut(t *testing.T) {
	db := setupTestDB(t)
	sender := &recordingSender{}
	swapMailer(t, sender)

	owner := seedUser(t, db, "owner@test.local", database.RoleFranchisee)
	seedUser(t, db, "admin@test.local", database.RoleAdmin)

	order := database.Order{OrderNumber: "CMD-2026-000042", FranchiseID: 1, Status: database.OrderStatusShipped}
	require.NoError(t, db.Create(&order).Error)

	NotifyOrderStatusChange(order, owner.ID, database.OrderStatusShipped)

	var userTargeted, roleTargeted database.Notification
	require.NoError(t, db.Where("user_id = ?", owner.ID).First(&userTargeted).Error)
	require.NoError(t, db.Where("target_role = ?", database.RoleAdmin).First(&roleTargeted).Error)

	assert.Equal(t, "Commande expédiée", userTargeted.Title)
	assert.Equal(t, "order_shipped", userTargeted.Type)
	assert.Equal(t, userTargeted.Title, roleTargeted.Title)
	assert.Len(t, sender.sent, 2)
}

func TestNotifyOrderStatusChangeUnknownStatusFallsBack(t *testing.T) {
	db := setupTestDB(t)
	swapMailer(t, &recordingSender{})

	owner := seedUser(t, db, "owner@test.local", database.RoleFranchisee)
	order := database.Order{OrderNumber: "CMD-2026-000043", FranchiseID: 1, Status: "ARCHIVED"}
	require.NoError(t, db.Create(&order).Error)

	NotifyOrderStatusChange(order, owner.ID, "ARCHIVED")

	var notification database.Notification
	require.NoError(t, db.Where("user_id = ?", owner.ID).First(&notification).Error)
	assert.Equal(t, "order_updated", notification.Type)
}
