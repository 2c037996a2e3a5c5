package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"drivncook/database"
	"drivncook/services"
	"drivncook/utils"
)

// GetInvoices lists invoices, scoped to the caller's franchise for franchisees
func GetInvoices(c *gin.Context) {
	params := utils.ParsePageParams(c, "created_at", "invoice_number", "amount", "due_date", "payment_status")

	query := database.DB.Model(&database.Invoice{})
	if currentRole(c) == database.RoleFranchisee {
		franchiseID, ok := currentFranchiseID(c)
		if !ok {
			utils.RespondError(c, http.StatusForbidden, "No franchise linked to this account")
			return
		}
		query = query.Where("franchise_id = ?", franchiseID)
	}
	if status := c.Query("payment_status"); status != "" {
		query = query.Where("payment_status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	var invoices []database.Invoice
	if err := query.Preload("Franchise").
		Order(params.OrderClause()).
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&invoices).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	utils.RespondPaginated(c, invoices, utils.BuildPagination(params, total))
}

// loadInvoiceScoped fetches an invoice and enforces tenant ownership
func loadInvoiceScoped(c *gin.Context) (database.Invoice, bool) {
	var invoice database.Invoice

	invoiceID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid invoice ID")
		return invoice, false
	}

	if err := database.DB.Preload("Franchise").First(&invoice, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Invoice not found")
			return invoice, false
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return invoice, false
	}

	if currentRole(c) == database.RoleFranchisee {
		franchiseID, ok := currentFranchiseID(c)
		if !ok || franchiseID != invoice.FranchiseID {
			utils.RespondError(c, http.StatusForbidden, "Permission denied")
			return invoice, false
		}
	}

	return invoice, true
}

// GetInvoiceByID returns one invoice
func GetInvoiceByID(c *gin.Context) {
	invoice, ok := loadInvoiceScoped(c)
	if !ok {
		return
	}
	utils.RespondSuccess(c, http.StatusOK, invoice, "")
}

// CreateInvoiceRequest contains the data for manual invoice creation (admin)
type CreateInvoiceRequest struct {
	FranchiseID uint    `json:"franchise_id" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Description string  `json:"description" binding:"required"`
	DueDate     string  `json:"due_date"`
}

// CreateInvoice creates an invoice manually (admin only)
func CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	var franchise database.Franchise
	if err := database.DB.First(&franchise, req.FranchiseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Franchise not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	dueDate := time.Now().AddDate(0, 0, 30)
	if req.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
			return
		}
		dueDate = parsed
	}

	invoice, err := createInvoiceWithNumber(database.DB, database.Invoice{
		FranchiseID:   req.FranchiseID,
		Amount:        req.Amount,
		Description:   req.Description,
		DueDate:       dueDate,
		PaymentStatus: database.InvoiceStatusPending,
	})
	if err != nil {
		utils.Log.Errorw("Invoice creation error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create invoice")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "CREATE",
		TableName: "invoices",
		RecordID:  invoice.ID,
		After:     invoice,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusCreated, invoice, "Invoice created")
}

// createInvoiceWithNumber assigns a FACT-{year}-{seq} number and persists,
// retrying on unique-index conflict since the sequence comes from count()+1
func createInvoiceWithNumber(db *gorm.DB, invoice database.Invoice) (database.Invoice, error) {
	for attempt := 0; attempt < numberRetries; attempt++ {
		number, err := nextInvoiceNumber(db)
		if err != nil {
			return invoice, err
		}
		invoice.InvoiceNumber = number
		invoice.ID = 0

		err = db.Create(&invoice).Error
		if err == nil {
			return invoice, nil
		}
		if isUniqueViolation(err) && attempt < numberRetries-1 {
			continue
		}
		return invoice, err
	}
	return invoice, errors.New("invoice number conflict retries exhausted")
}

// GenerateInvoiceRequest triggers monthly royalty billing for a franchise
type GenerateInvoiceRequest struct {
	FranchiseID uint `json:"franchise_id" binding:"required"`
	// Period is YYYY-MM; defaults to the current month
	Period string `json:"period"`
}

// GenerateRoyaltyInvoice aggregates the franchise's sales reports over the
// period and bills royaltyAmount. Rejects duplicate periods and empty periods.
func GenerateRoyaltyInvoice(c *gin.Context) {
	var req GenerateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	period := req.Period
	if period == "" {
		period = time.Now().Format("2006-01")
	}
	periodStart, err := time.Parse("2006-01", period)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "period must be YYYY-MM")
		return
	}
	periodEnd := periodStart.AddDate(0, 1, 0)

	var franchise database.Franchise
	if err := database.DB.First(&franchise, req.FranchiseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Franchise not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	description := fmt.Sprintf("Redevances %s", period)

	// A prior invoice for the same franchise+period blocks regeneration
	var existing int64
	if err := database.DB.Model(&database.Invoice{}).
		Where("franchise_id = ? AND description = ?", req.FranchiseID, description).
		Count(&existing).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}
	if existing > 0 {
		utils.RespondError(c, http.StatusBadRequest, "An invoice already exists for this period")
		return
	}

	var reportCount int64
	var royaltyTotal float64
	reportQuery := database.DB.Model(&database.SalesReport{}).
		Where("franchise_id = ? AND report_date >= ? AND report_date < ?",
			req.FranchiseID, periodStart, periodEnd)
	if err := reportQuery.Count(&reportCount).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}
	if err := reportQuery.Select("COALESCE(SUM(royalty_amount), 0)").Scan(&royaltyTotal).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	if reportCount == 0 || royaltyTotal <= 0 {
		utils.RespondError(c, http.StatusBadRequest, "No billable sales reports for this period")
		return
	}

	invoice, err := createInvoiceWithNumber(database.DB, database.Invoice{
		FranchiseID:   req.FranchiseID,
		Amount:        royaltyTotal,
		Description:   description,
		DueDate:       time.Now().AddDate(0, 0, 30),
		PaymentStatus: database.InvoiceStatusPending,
	})
	if err != nil {
		utils.Log.Errorw("Invoice creation error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to generate invoice")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "GENERATE_ROYALTY",
		TableName: "invoices",
		RecordID:  invoice.ID,
		After:     invoice,
		IPAddress: c.ClientIP(),
	})

	relatedID := invoice.ID
	services.Dispatch(services.NotificationPayload{
		Type:        "invoice_generated",
		Title:       "Nouvelle facture de redevances",
		Message:     fmt.Sprintf("La facture %s (%.2f EUR) a été émise pour la période %s.", invoice.InvoiceNumber, invoice.Amount, period),
		UserID:      &franchise.UserID,
		RelatedID:   &relatedID,
		RelatedType: "invoice",
		ActionURL:   fmt.Sprintf("/franchise/invoices/%d", invoice.ID),
		SendEmail:   true,
	})
	services.Dispatch(services.NotificationPayload{
		Type:        "invoice_generated",
		Title:       "Facture de redevances émise",
		Message:     fmt.Sprintf("Facture %s émise pour %s (période %s).", invoice.InvoiceNumber, franchise.CompanyName, period),
		TargetRole:  database.RoleAdmin,
		RelatedID:   &relatedID,
		RelatedType: "invoice",
		ActionURL:   fmt.Sprintf("/admin/invoices/%d", invoice.ID),
		SendEmail:   true,
	})

	utils.RespondSuccess(c, http.StatusCreated, invoice, "Royalty invoice generated")
}

// MarkInvoicePaid marks an invoice as paid (admin only)
func MarkInvoicePaid(c *gin.Context) {
	invoiceID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	var invoice database.Invoice
	if err := database.DB.First(&invoice, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Invoice not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	if invoice.PaymentStatus == database.InvoiceStatusPaid {
		utils.RespondError(c, http.StatusBadRequest, "Invoice is already paid")
		return
	}

	before := invoice
	now := time.Now()
	invoice.PaymentStatus = database.InvoiceStatusPaid
	invoice.PaidDate = &now

	if err := database.DB.Save(&invoice).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to update invoice")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "MARK_PAID",
		TableName: "invoices",
		RecordID:  invoice.ID,
		Before:    before,
		After:     invoice,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusOK, invoice, "Invoice marked as paid")
}

// DownloadInvoicePDF streams the invoice as a PDF attachment
func DownloadInvoicePDF(c *gin.Context) {
	invoice, ok := loadInvoiceScoped(c)
	if !ok {
		return
	}

	pdfBytes, err := services.RenderInvoicePDF(invoice)
	if err != nil {
		utils.Log.Errorw("Invoice PDF rendering failed", "error", err, "invoice_id", invoice.ID)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to render invoice document")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+invoice.InvoiceNumber+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
