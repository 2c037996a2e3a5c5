package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"drivncook/database"
	"drivncook/services"
	"drivncook/utils"
)

// GetWarehouses lists warehouses
func GetWarehouses(c *gin.Context) {
	query := database.DB.Model(&database.Warehouse{})
	if currentRole(c) != database.RoleAdmin {
		query = query.Where("is_active = ?", true)
	}

	var warehouses []database.Warehouse
	if err := query.Order("name ASC").Find(&warehouses).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, warehouses, "")
}

// GetWarehouseByID returns one warehouse with its stock summary
func GetWarehouseByID(c *gin.Context) {
	warehouseID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid warehouse ID")
		return
	}

	var warehouse database.Warehouse
	if err := database.DB.First(&warehouse, warehouseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Warehouse not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	var stocks []database.Stock
	if err := database.DB.Preload("Product").
		Where("warehouse_id = ?", warehouse.ID).
		Find(&stocks).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{
		"warehouse": warehouse,
		"stocks":    stocks,
	}, "")
}

// CreateWarehouseRequest contains the data for a new warehouse
type CreateWarehouseRequest struct {
	Name     string `json:"name" binding:"required"`
	Address  string `json:"address" binding:"required"`
	City     string `json:"city" binding:"required"`
	ZipCode  string `json:"zip_code" binding:"required"`
	Capacity int    `json:"capacity" binding:"omitempty,gt=0"`
}

// CreateWarehouse registers a new warehouse (admin only)
func CreateWarehouse(c *gin.Context) {
	var req CreateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	warehouse := database.Warehouse{
		Name:     req.Name,
		Address:  req.Address,
		City:     req.City,
		ZipCode:  req.ZipCode,
		Capacity: req.Capacity,
		IsActive: true,
	}

	if err := database.DB.Create(&warehouse).Error; err != nil {
		utils.Log.Errorw("Warehouse creation error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create warehouse")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "CREATE",
		TableName: "warehouses",
		RecordID:  warehouse.ID,
		After:     warehouse,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusCreated, warehouse, "Warehouse created")
}

// UpdateWarehouseRequest contains the mutable warehouse fields
type UpdateWarehouseRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	City     string `json:"city"`
	ZipCode  string `json:"zip_code"`
	Capacity int    `json:"capacity" binding:"omitempty,gt=0"`
	IsActive *bool  `json:"is_active"`
}

// UpdateWarehouse updates warehouse details (admin only)
func UpdateWarehouse(c *gin.Context) {
	warehouseID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid warehouse ID")
		return
	}

	var req UpdateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	var warehouse database.Warehouse
	if err := database.DB.First(&warehouse, warehouseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Warehouse not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	before := warehouse

	if req.Name != "" {
		warehouse.Name = req.Name
	}
	if req.Address != "" {
		warehouse.Address = req.Address
	}
	if req.City != "" {
		warehouse.City = req.City
	}
	if req.ZipCode != "" {
		warehouse.ZipCode = req.ZipCode
	}
	if req.Capacity > 0 {
		warehouse.Capacity = req.Capacity
	}
	if req.IsActive != nil {
		warehouse.IsActive = *req.IsActive
	}

	if err := database.DB.Save(&warehouse).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to update warehouse")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "UPDATE",
		TableName: "warehouses",
		RecordID:  warehouse.ID,
		Before:    before,
		After:     warehouse,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusOK, warehouse, "Warehouse updated")
}
