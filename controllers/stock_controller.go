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

// GetStocks lists stock rows with pagination, filterable by warehouse/product
func GetStocks(c *gin.Context) {
	params := utils.ParsePageParams(c, "created_at", "quantity", "reserved_qty")

	query := database.DB.Model(&database.Stock{})
	if warehouseID := c.Query("warehouse_id"); warehouseID != "" {
		query = query.Where("warehouse_id = ?", warehouseID)
	}
	if productID := c.Query("product_id"); productID != "" {
		query = query.Where("product_id = ?", productID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	var stocks []database.Stock
	if err := query.Preload("Product").Preload("Warehouse").
		Order(params.OrderClause()).
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&stocks).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	utils.RespondPaginated(c, stocks, utils.BuildPagination(params, total))
}

// AdjustStockRequest contains a single stock adjustment
type AdjustStockRequest struct {
	ProductID   uint   `json:"product_id" binding:"required"`
	WarehouseID uint   `json:"warehouse_id" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	Operation   string `json:"operation" binding:"required,oneof=ADD REMOVE SET"`
}

// AdjustStock applies an ADD/REMOVE/SET operation to a stock row (admin).
// ADD creates the row when missing; REMOVE never does and clamps at zero;
// ADD and SET stamp the last restock date. Every adjustment is audited.
func AdjustStock(c *gin.Context) {
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	var stock database.Stock
	err := database.DB.Where("product_id = ? AND warehouse_id = ?", req.ProductID, req.WarehouseID).
		First(&stock).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if req.Operation == database.StockOpRemove {
			utils.RespondError(c, http.StatusBadRequest, "Cannot remove from non-existing stock")
			return
		}
		stock = database.Stock{
			ProductID:   req.ProductID,
			WarehouseID: req.WarehouseID,
		}
	} else if err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	before := stock

	switch req.Operation {
	case database.StockOpAdd:
		stock.Quantity += req.Quantity
		now := time.Now()
		stock.LastRestockDate = &now
	case database.StockOpRemove:
		stock.Quantity -= req.Quantity
		if stock.Quantity < 0 {
			stock.Quantity = 0
		}
	case database.StockOpSet:
		stock.Quantity = req.Quantity
		now := time.Now()
		stock.LastRestockDate = &now
	}

	if err := database.DB.Save(&stock).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to adjust stock")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "STOCK_" + req.Operation,
		TableName: "stocks",
		RecordID:  stock.ID,
		Before:    before,
		After:     stock,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusOK, stock, "Stock adjusted")
}
