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

// GetProducts lists catalog products with pagination. Public callers and
// franchisees only see active products; admins see everything.
func GetProducts(c *gin.Context) {
	params := utils.ParsePageParams(c, "created_at", "name", "sku", "unit_price")

	query := database.DB.Model(&database.Product{})
	if currentRole(c) != database.RoleAdmin {
		query = query.Where("is_active = ?", true)
	}
	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	var products []database.Product
	if err := query.Preload("Category").
		Order(params.OrderClause()).
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&products).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	utils.RespondPaginated(c, products, utils.BuildPagination(params, total))
}

// GetProductByID returns one product
func GetProductByID(c *gin.Context) {
	productID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var product database.Product
	if err := database.DB.Preload("Category").First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Product not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	if currentRole(c) != database.RoleAdmin && !product.IsActive {
		utils.RespondError(c, http.StatusNotFound, "Product not found")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, product, "")
}

// CreateProductRequest contains the data for a new catalog product
type CreateProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Sku         string  `json:"sku" binding:"required"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price" binding:"required,gt=0"`
	CategoryID  uint    `json:"category_id" binding:"required"`
}

// CreateProduct adds a product to the catalog (admin only)
func CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	var category database.ProductCategory
	if err := database.DB.First(&category, req.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Category not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	product := database.Product{
		Name:        req.Name,
		Sku:         req.Sku,
		Description: req.Description,
		UnitPrice:   req.UnitPrice,
		CategoryID:  req.CategoryID,
		IsActive:    true,
	}

	if err := database.DB.Create(&product).Error; err != nil {
		if isUniqueViolation(err) {
			utils.RespondError(c, http.StatusBadRequest, "A product with this SKU already exists")
			return
		}
		utils.Log.Errorw("Product creation error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create product")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "CREATE",
		TableName: "products",
		RecordID:  product.ID,
		After:     product,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusCreated, product, "Product created")
}

// UpdateProductRequest contains the mutable product fields
type UpdateProductRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	UnitPrice   float64 `json:"unit_price" binding:"omitempty,gt=0"`
	CategoryID  uint    `json:"category_id"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateProduct updates a catalog product (admin only)
func UpdateProduct(c *gin.Context) {
	productID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	var product database.Product
	if err := database.DB.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Product not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	before := product

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.UnitPrice > 0 {
		product.UnitPrice = req.UnitPrice
	}
	if req.CategoryID != 0 {
		product.CategoryID = req.CategoryID
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := database.DB.Save(&product).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to update product")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "UPDATE",
		TableName: "products",
		RecordID:  product.ID,
		Before:    before,
		After:     product,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusOK, product, "Product updated")
}

// DeleteProduct soft-disables a product instead of removing the row, so
// existing order items keep their reference
func DeleteProduct(c *gin.Context) {
	productID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var product database.Product
	if err := database.DB.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Product not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	before := product
	product.IsActive = false

	if err := database.DB.Save(&product).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to deactivate product")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "DEACTIVATE",
		TableName: "products",
		RecordID:  product.ID,
		Before:    before,
		After:     product,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusOK, product, "Product deactivated")
}

// GetProductCategories lists all categories
func GetProductCategories(c *gin.Context) {
	var categories []database.ProductCategory
	if err := database.DB.Order("name ASC").Find(&categories).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, categories, "")
}

// CreateProductCategoryRequest contains the data for a new category
type CreateProductCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateProductCategory adds a catalog category (admin only)
func CreateProductCategory(c *gin.Context) {
	var req CreateProductCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	category := database.ProductCategory{
		Name:        req.Name,
		Description: req.Description,
	}

	if err := database.DB.Create(&category).Error; err != nil {
		if isUniqueViolation(err) {
			utils.RespondError(c, http.StatusBadRequest, "A category with this name already exists")
			return
		}
		utils.Log.Errorw("Category creation error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create category")
		return
	}

	utils.RespondSuccess(c, http.StatusCreated, category, "Category created")
}
