package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"drivncook/database"
	"drivncook/utils"
)

// GetAdminDashboard aggregates network-wide figures for the back office
func GetAdminDashboard(c *gin.Context) {
	db := database.DB
	monthStart := time.Date(time.Now().Year(), time.Now().Month(), 1, 0, 0, 0, 0, time.Local)

	var totalFranchises, activeFranchises, pendingFranchises int64
	db.Model(&database.Franchise{}).Count(&totalFranchises)
	db.Model(&database.Franchise{}).Where("status = ?", database.FranchiseStatusActive).Count(&activeFranchises)
	db.Model(&database.Franchise{}).Where("status = ?", database.FranchiseStatusPending).Count(&pendingFranchises)

	var pendingOrders, totalOrders int64
	db.Model(&database.Order{}).Where("status = ?", database.OrderStatusPending).Count(&pendingOrders)
	db.Model(&database.Order{}).Count(&totalOrders)

	var unpaidInvoices int64
	var unpaidAmount float64
	db.Model(&database.Invoice{}).
		Where("payment_status = ?", database.InvoiceStatusPending).
		Count(&unpaidInvoices)
	db.Model(&database.Invoice{}).
		Where("payment_status = ?", database.InvoiceStatusPending).
		Select("COALESCE(SUM(amount), 0)").Scan(&unpaidAmount)

	var monthlySales, monthlyRoyalties float64
	db.Model(&database.SalesReport{}).
		Where("report_date >= ?", monthStart).
		Select("COALESCE(SUM(daily_sales), 0)").Scan(&monthlySales)
	db.Model(&database.SalesReport{}).
		Where("report_date >= ?", monthStart).
		Select("COALESCE(SUM(royalty_amount), 0)").Scan(&monthlyRoyalties)

	var lowStocks []database.Stock
	db.Preload("Product").Preload("Warehouse").
		Where("quantity - reserved_qty <= min_threshold").
		Limit(10).Find(&lowStocks)

	var vehiclesInMaintenance int64
	db.Model(&database.Vehicle{}).
		Where("status = ?", database.VehicleStatusMaintenance).
		Count(&vehiclesInMaintenance)

	var recentOrders []database.Order
	db.Preload("Franchise").
		Where("status <> ?", database.OrderStatusDraft).
		Order("created_at DESC").Limit(5).Find(&recentOrders)

	utils.RespondSuccess(c, http.StatusOK, gin.H{
		"franchises": gin.H{
			"total":   totalFranchises,
			"active":  activeFranchises,
			"pending": pendingFranchises,
		},
		"orders": gin.H{
			"total":   totalOrders,
			"pending": pendingOrders,
			"recent":  recentOrders,
		},
		"invoices": gin.H{
			"unpaid_count":  unpaidInvoices,
			"unpaid_amount": unpaidAmount,
		},
		"sales": gin.H{
			"monthly_total":     monthlySales,
			"monthly_royalties": monthlyRoyalties,
		},
		"stock_alerts":            lowStocks,
		"vehicles_in_maintenance": vehiclesInMaintenance,
	}, "")
}

// GetFranchiseDashboard aggregates the caller's franchise figures
func GetFranchiseDashboard(c *gin.Context) {
	franchise, ok := loadOwnFranchise(c)
	if !ok {
		return
	}

	db := database.DB
	monthStart := time.Date(time.Now().Year(), time.Now().Month(), 1, 0, 0, 0, 0, time.Local)

	var draftOrders, openOrders int64
	db.Model(&database.Order{}).
		Where("franchise_id = ? AND status = ?", franchise.ID, database.OrderStatusDraft).
		Count(&draftOrders)
	db.Model(&database.Order{}).
		Where("franchise_id = ? AND status NOT IN ?", franchise.ID,
			[]string{database.OrderStatusDraft, database.OrderStatusDelivered, database.OrderStatusCancelled, database.OrderStatusPaid}).
		Count(&openOrders)

	var unpaidInvoices int64
	var unpaidAmount float64
	db.Model(&database.Invoice{}).
		Where("franchise_id = ? AND payment_status = ?", franchise.ID, database.InvoiceStatusPending).
		Count(&unpaidInvoices)
	db.Model(&database.Invoice{}).
		Where("franchise_id = ? AND payment_status = ?", franchise.ID, database.InvoiceStatusPending).
		Select("COALESCE(SUM(amount), 0)").Scan(&unpaidAmount)

	var monthlySales, monthlyRoyalties float64
	db.Model(&database.SalesReport{}).
		Where("franchise_id = ? AND report_date >= ?", franchise.ID, monthStart).
		Select("COALESCE(SUM(daily_sales), 0)").Scan(&monthlySales)
	db.Model(&database.SalesReport{}).
		Where("franchise_id = ? AND report_date >= ?", franchise.ID, monthStart).
		Select("COALESCE(SUM(royalty_amount), 0)").Scan(&monthlyRoyalties)

	var vehicles []database.Vehicle
	db.Where("franchise_id = ?", franchise.ID).Find(&vehicles)

	var recentOrders []database.Order
	db.Where("franchise_id = ?", franchise.ID).
		Order("created_at DESC").Limit(5).Find(&recentOrders)

	utils.RespondSuccess(c, http.StatusOK, gin.H{
		"franchise": franchise,
		"orders": gin.H{
			"draft":  draftOrders,
			"open":   openOrders,
			"recent": recentOrders,
		},
		"invoices": gin.H{
			"unpaid_count":  unpaidInvoices,
			"unpaid_amount": unpaidAmount,
		},
		"sales": gin.H{
			"monthly_total":     monthlySales,
			"monthly_royalties": monthlyRoyalties,
		},
		"vehicles": vehicles,
	}, "")
}
