package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"drivncook/database"
	"drivncook/services"
	"drivncook/utils"
)

// GetSalesReports lists sales reports, scoped to the caller's franchise for
// franchisees. Supports date range filtering via from/to query params.
func GetSalesReports(c *gin.Context) {
	params := utils.ParsePageParams(c, "report_date", "daily_sales", "created_at")

	query := database.DB.Model(&database.SalesReport{})
	if currentRole(c) == database.RoleFranchisee {
		franchiseID, ok := currentFranchiseID(c)
		if !ok {
			utils.RespondError(c, http.StatusForbidden, "No franchise linked to this account")
			return
		}
		query = query.Where("franchise_id = ?", franchiseID)
	} else if franchiseID := c.Query("franchise_id"); franchiseID != "" {
		query = query.Where("franchise_id = ?", franchiseID)
	}

	if from := c.Query("from"); from != "" {
		if parsed, err := time.Parse("2006-01-02", from); err == nil {
			query = query.Where("report_date >= ?", parsed)
		}
	}
	if to := c.Query("to"); to != "" {
		if parsed, err := time.Parse("2006-01-02", to); err == nil {
			query = query.Where("report_date < ?", parsed.AddDate(0, 0, 1))
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	var reports []database.SalesReport
	if err := query.Preload("Franchise").
		Order(params.OrderClause()).
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&reports).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	utils.RespondPaginated(c, reports, utils.BuildPagination(params, total))
}

// CreateSalesReportRequest contains one day of declared sales
type CreateSalesReportRequest struct {
	FranchiseID uint    `json:"franchise_id"`
	ReportDate  string  `json:"report_date" binding:"required"`
	DailySales  float64 `json:"daily_sales" binding:"required,gt=0"`
	Notes       string  `json:"notes"`
}

// CreateSalesReport records a daily sales report. The royalty amount is
// always computed server-side from the franchise's royalty rate.
func CreateSalesReport(c *gin.Context) {
	var req CreateSalesReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	franchiseID := req.FranchiseID
	if currentRole(c) == database.RoleFranchisee {
		own, ok := currentFranchiseID(c)
		if !ok {
			utils.RespondError(c, http.StatusForbidden, "No franchise linked to this account")
			return
		}
		franchiseID = own
	} else if franchiseID == 0 {
		utils.RespondError(c, http.StatusBadRequest, "franchise_id is required")
		return
	}

	reportDate, err := time.Parse("2006-01-02", req.ReportDate)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "report_date must be YYYY-MM-DD")
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

	report := database.SalesReport{
		FranchiseID:   franchiseID,
		ReportDate:    reportDate,
		DailySales:    req.DailySales,
		RoyaltyAmount: req.DailySales * franchise.RoyaltyRate / 100,
		Notes:         req.Notes,
	}

	if err := database.DB.Create(&report).Error; err != nil {
		if isUniqueViolation(err) {
			utils.RespondError(c, http.StatusBadRequest, "A report already exists for this date")
			return
		}
		utils.Log.Errorw("Sales report creation error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create sales report")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "CREATE",
		TableName: "sales_reports",
		RecordID:  report.ID,
		After:     report,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusCreated, report, "Sales report recorded")
}

// loadSalesReportScoped fetches a report and enforces tenant ownership
func loadSalesReportScoped(c *gin.Context) (database.SalesReport, bool) {
	var report database.SalesReport

	reportID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid report ID")
		return report, false
	}

	if err := database.DB.Preload("Franchise").First(&report, reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Sales report not found")
			return report, false
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return report, false
	}

	if currentRole(c) == database.RoleFranchisee {
		franchiseID, ok := currentFranchiseID(c)
		if !ok || franchiseID != report.FranchiseID {
			utils.RespondError(c, http.StatusForbidden, "Permission denied")
			return report, false
		}
	}

	return report, true
}

// GetSalesReportByID returns one sales report
func GetSalesReportByID(c *gin.Context) {
	report, ok := loadSalesReportScoped(c)
	if !ok {
		return
	}
	utils.RespondSuccess(c, http.StatusOK, report, "")
}

// UpdateSalesReportRequest contains the mutable report fields
type UpdateSalesReportRequest struct {
	DailySales float64 `json:"daily_sales" binding:"omitempty,gt=0"`
	Notes      *string `json:"notes"`
}

// UpdateSalesReport updates a report's declared sales; the royalty amount
// is recomputed from the franchise's rate whenever the sales figure changes
func UpdateSalesReport(c *gin.Context) {
	report, ok := loadSalesReportScoped(c)
	if !ok {
		return
	}

	var req UpdateSalesReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	before := report

	if req.DailySales > 0 {
		report.DailySales = req.DailySales
		report.RoyaltyAmount = req.DailySales * report.Franchise.RoyaltyRate / 100
	}
	if req.Notes != nil {
		report.Notes = *req.Notes
	}

	if err := database.DB.Save(&report).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to update sales report")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "UPDATE",
		TableName: "sales_reports",
		RecordID:  report.ID,
		Before:    before,
		After:     report,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusOK, report, "Sales report updated")
}

// DeleteSalesReport removes a report (admin only)
func DeleteSalesReport(c *gin.Context) {
	reportID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid report ID")
		return
	}

	var report database.SalesReport
	if err := database.DB.First(&report, reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Sales report not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	if err := database.DB.Delete(&report).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to delete sales report")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "DELETE",
		TableName: "sales_reports",
		RecordID:  report.ID,
		Before:    report,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusOK, nil, "Sales report deleted")
}
