package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"drivncook/database"
	"drivncook/utils"
)

// AuditEntry describes one state-changing action to record
type AuditEntry struct {
	UserID    *uint
	Action    string
	TableName string
	RecordID  uint
	Before    interface{}
	After     interface{}
	IPAddress string
}

// WriteAudit appends an audit row. Callers inside a transaction pass tx so
// the audit row commits or rolls back with the mutation it describes.
func WriteAudit(tx *gorm.DB, entry AuditEntry) error {
	if tx == nil {
		tx = database.DB
	}

	row := database.AuditLog{
		UserID:    entry.UserID,
		Action:    entry.Action,
		TableName: entry.TableName,
		RecordID:  entry.RecordID,
		IPAddress: entry.IPAddress,
	}

	if entry.Before != nil {
		if raw, err := json.Marshal(entry.Before); err == nil {
			row.OldValue = raw
		}
	}
	if entry.After != nil {
		if raw, err := json.Marshal(entry.After); err == nil {
			row.NewValue = raw
		}
	}

	if err := tx.Create(&row).Error; err != nil {
		utils.Log.Errorw("Failed to write audit log",
			"error", err,
			"action", entry.Action,
			"table", entry.TableName,
			"record_id", entry.RecordID,
		)
		return err
	}
	return nil
}
