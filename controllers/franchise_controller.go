package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"drivncook/database"
	"drivncook/services"
	"drivncook/utils"
)

// GetFranchises lists franchises with pagination (admin only)
func GetFranchises(c *gin.Context) {
	params := utils.ParsePageParams(c, "created_at", "company_name", "status")

	query := database.DB.Model(&database.Franchise{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	var franchises []database.Franchise
	if err := query.Preload("User").
		Order(params.OrderClause()).
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&franchises).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	for i := range franchises {
		franchises[i].User.PasswordHash = ""
	}

	utils.RespondPaginated(c, franchises, utils.BuildPagination(params, total))
}

// GetFranchiseByID returns one franchise (admin, or the owning franchisee)
func GetFranchiseByID(c *gin.Context) {
	franchiseID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid franchise ID")
		return
	}

	if currentRole(c) == database.RoleFranchisee {
		ownID, ok := currentFranchiseID(c)
		if !ok || ownID != franchiseID {
			utils.RespondError(c, http.StatusForbidden, "Permission denied")
			return
		}
	}

	var franchise database.Franchise
	if err := database.DB.Preload("User").First(&franchise, franchiseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Franchise not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	franchise.User.PasswordHash = ""
	utils.RespondSuccess(c, http.StatusOK, franchise, "")
}

// UpdateFranchiseRequest contains the admin-editable franchise fields
type UpdateFranchiseRequest struct {
	CompanyName    string   `json:"company_name"`
	Address        string   `json:"address"`
	City           string   `json:"city"`
	ZipCode        string   `json:"zip_code"`
	RoyaltyRate    *float64 `json:"royalty_rate"`
	EntryFee       *float64 `json:"entry_fee"`
	KbisDocument   string   `json:"kbis_document"`
	IDCardDocument string   `json:"id_card_document"`
}

// UpdateFranchise updates franchise details (admin, or owner for documents)
func UpdateFranchise(c *gin.Context) {
	franchiseID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid franchise ID")
		return
	}

	role := currentRole(c)
	if role == database.RoleFranchisee {
		ownID, ok := currentFranchiseID(c)
		if !ok || ownID != franchiseID {
			utils.RespondError(c, http.StatusForbidden, "Permission denied")
			return
		}
	}

	var req UpdateFranchiseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	var franchise database.Franchise
	if err := database.DB.First(&franchise, franchiseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Franchise not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	before := franchise

	if req.KbisDocument != "" {
		franchise.KbisDocument = req.KbisDocument
	}
	if req.IDCardDocument != "" {
		franchise.IDCardDocument = req.IDCardDocument
	}

	// Only admins may touch commercial terms
	if role == database.RoleAdmin {
		if req.CompanyName != "" {
			franchise.CompanyName = req.CompanyName
		}
		if req.Address != "" {
			franchise.Address = req.Address
		}
		if req.City != "" {
			franchise.City = req.City
		}
		if req.ZipCode != "" {
			franchise.ZipCode = req.ZipCode
		}
		if req.RoyaltyRate != nil {
			franchise.RoyaltyRate = *req.RoyaltyRate
		}
		if req.EntryFee != nil {
			franchise.EntryFee = *req.EntryFee
		}
	}

	if err := database.DB.Save(&franchise).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to update franchise")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "UPDATE",
		TableName: "franchises",
		RecordID:  franchise.ID,
		Before:    before,
		After:     franchise,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusOK, franchise, "Franchise updated")
}

// requiredDocuments maps the document fields checked during validation
var requiredDocuments = []struct {
	Name  string
	Field func(database.Franchise) string
}{
	{"KBIS", func(f database.Franchise) string { return f.KbisDocument }},
	{"Pièce d'identité", func(f database.Franchise) string { return f.IDCardDocument }},
}

// ValidateDocuments validates a franchise's registration documents (admin).
// Missing documents produce a 400 listing exactly what is absent; on success
// the franchise activates only if the entry fee is already paid.
func ValidateDocuments(c *gin.Context) {
	franchiseID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid franchise ID")
		return
	}

	var franchise database.Franchise
	if err := database.DB.First(&franchise, franchiseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Franchise not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	var missing []string
	for _, doc := range requiredDocuments {
		if doc.Field(franchise) == "" {
			missing = append(missing, doc.Name)
		}
	}
	if len(missing) > 0 {
		utils.RespondError(c, http.StatusBadRequest,
			"Missing documents: "+strings.Join(missing, ", "))
		return
	}

	before := franchise
	franchise.DocumentsValidated = true
	// Activation requires both validated documents and a paid entry fee
	if franchise.EntryFeePaid && franchise.Status == database.FranchiseStatusPending {
		franchise.Status = database.FranchiseStatusActive
	}

	if err := database.DB.Save(&franchise).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to validate documents")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "VALIDATE_DOCUMENTS",
		TableName: "franchises",
		RecordID:  franchise.ID,
		Before:    before,
		After:     franchise,
		IPAddress: c.ClientIP(),
	})

	services.Dispatch(services.NotificationPayload{
		Type:        "franchise_documents_validated",
		Title:       "Documents validés",
		Message:     "Vos documents ont été validés par l'équipe DRIV'N COOK.",
		UserID:      &franchise.UserID,
		RelatedID:   &franchise.ID,
		RelatedType: "franchise",
		ActionURL:   "/franchise/profile",
		SendEmail:   true,
	})

	utils.RespondSuccess(c, http.StatusOK, franchise, "Documents validated")
}

// UpdateFranchiseStatusRequest carries a lifecycle status change
type UpdateFranchiseStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING ACTIVE SUSPENDED TERMINATED"`
}

// UpdateFranchiseStatus suspends/reactivates/terminates a franchise (admin)
func UpdateFranchiseStatus(c *gin.Context) {
	franchiseID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid franchise ID")
		return
	}

	var req UpdateFranchiseStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	var franchise database.Franchise
	if err := database.DB.First(&franchise, franchiseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Franchise not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	before := franchise
	franchise.Status = req.Status
	if err := database.DB.Save(&franchise).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to update status")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "UPDATE_STATUS",
		TableName: "franchises",
		RecordID:  franchise.ID,
		Before:    before,
		After:     franchise,
		IPAddress: c.ClientIP(),
	})

	services.Dispatch(services.NotificationPayload{
		Type:        "franchise_status_changed",
		Priority:    database.PriorityHigh,
		Title:       "Statut de franchise mis à jour",
		Message:     "Le statut de votre franchise est maintenant " + req.Status + ".",
		UserID:      &franchise.UserID,
		RelatedID:   &franchise.ID,
		RelatedType: "franchise",
		SendEmail:   true,
	})

	utils.RespondSuccess(c, http.StatusOK, franchise, "Status updated")
}

// DeleteFranchise removes a franchise, its owning user and writes the audit
// row in one transaction (admin only)
func DeleteFranchise(c *gin.Context) {
	franchiseID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid franchise ID")
		return
	}

	var franchise database.Franchise
	if err := database.DB.First(&franchise, franchiseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Franchise not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	tx := database.DB.Begin()
	if tx.Error != nil {
		utils.Log.Errorw("Transaction error", "error", tx.Error)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	if err := tx.Delete(&database.Franchise{}, franchiseID).Error; err != nil {
		tx.Rollback()
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to delete franchise")
		return
	}

	if err := tx.Delete(&database.User{}, franchise.UserID).Error; err != nil {
		tx.Rollback()
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to delete franchise user")
		return
	}

	if err := services.WriteAudit(tx, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "DELETE",
		TableName: "franchises",
		RecordID:  franchiseID,
		Before:    franchise,
		IPAddress: c.ClientIP(),
	}); err != nil {
		tx.Rollback()
		utils.RespondError(c, http.StatusInternalServerError, "Failed to record deletion")
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.Log.Errorw("Transaction commit error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, nil, "Franchise deleted")
}
