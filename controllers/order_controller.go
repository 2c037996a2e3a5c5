package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"drivncook/database"
	"drivncook/services"
	"drivncook/utils"
)

// CreateOrderRequest contains the data for order creation
type CreateOrderRequest struct {
	// FranchiseID is only honored for admin-created orders; franchisees
	// always order for their own franchise.
	FranchiseID           uint   `json:"franchise_id"`
	RequestedDeliveryDate string `json:"requested_delivery_date"`
	Notes                 string `json:"notes"`
}

// CreateOrder creates a new draft order for a franchise
func CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	var franchiseID uint
	switch currentRole(c) {
	case database.RoleFranchisee:
		id, ok := currentFranchiseID(c)
		if !ok {
			utils.RespondError(c, http.StatusForbidden, "No franchise linked to this account")
			return
		}
		franchiseID = id
	case database.RoleAdmin:
		if req.FranchiseID == 0 {
			utils.RespondError(c, http.StatusBadRequest, "franchise_id is required")
			return
		}
		franchiseID = req.FranchiseID
	default:
		utils.RespondError(c, http.StatusForbidden, "Permission denied")
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

	var deliveryDate *time.Time
	if req.RequestedDeliveryDate != "" {
		parsed, err := time.Parse("2006-01-02", req.RequestedDeliveryDate)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "requested_delivery_date must be YYYY-MM-DD")
			return
		}
		deliveryDate = &parsed
	}

	var order database.Order
	// The order number column is unique; re-count and retry on conflict
	// since concurrent creations can collide on count()+1.
	for attempt := 0; attempt < numberRetries; attempt++ {
		number, err := nextOrderNumber(database.DB)
		if err != nil {
			utils.Log.Errorw("Database error", "error", err)
			utils.RespondError(c, http.StatusInternalServerError, "Server error")
			return
		}

		order = database.Order{
			OrderNumber:           number,
			FranchiseID:           franchiseID,
			Status:                database.OrderStatusDraft,
			RequestedDeliveryDate: deliveryDate,
			Notes:                 req.Notes,
		}

		err = database.DB.Create(&order).Error
		if err == nil {
			break
		}
		if isUniqueViolation(err) && attempt < numberRetries-1 {
			continue
		}
		utils.Log.Errorw("Order creation error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create order")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "CREATE",
		TableName: "orders",
		RecordID:  order.ID,
		After:     order,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusCreated, order, "Order created")
}

// GetOrders lists orders, scoped to the caller's franchise for franchisees
func GetOrders(c *gin.Context) {
	params := utils.ParsePageParams(c, "created_at", "order_number", "status", "total_amount")

	query := database.DB.Model(&database.Order{})
	if currentRole(c) == database.RoleFranchisee {
		franchiseID, ok := currentFranchiseID(c)
		if !ok {
			utils.RespondError(c, http.StatusForbidden, "No franchise linked to this account")
			return
		}
		query = query.Where("franchise_id = ?", franchiseID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	var orders []database.Order
	if err := query.Preload("Items").Preload("Items.Product").
		Order(params.OrderClause()).
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&orders).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	utils.RespondPaginated(c, orders, utils.BuildPagination(params, total))
}

// loadOrderScoped fetches an order and enforces tenant ownership.
// Returns (order, true) on success; the response is already written otherwise.
func loadOrderScoped(c *gin.Context) (database.Order, bool) {
	var order database.Order

	orderID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid order ID")
		return order, false
	}

	if err := database.DB.Preload("Items").Preload("Items.Product").
		Preload("Franchise").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Order not found")
			return order, false
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return order, false
	}

	if currentRole(c) == database.RoleFranchisee {
		franchiseID, ok := currentFranchiseID(c)
		if !ok || franchiseID != order.FranchiseID {
			utils.RespondError(c, http.StatusForbidden, "Permission denied")
			return order, false
		}
	}

	return order, true
}

// GetOrderByID returns one order with its items
func GetOrderByID(c *gin.Context) {
	order, ok := loadOrderScoped(c)
	if !ok {
		return
	}
	utils.RespondSuccess(c, http.StatusOK, order, "")
}

// UpdateOrderRequest contains the mutable order fields
type UpdateOrderRequest struct {
	Status                string `json:"status"`
	RequestedDeliveryDate string `json:"requested_delivery_date"`
	Notes                 string `json:"notes"`
}

// UpdateOrder updates an order's status, delivery date or notes.
// A status change fans out notifications to the franchisee and the admins.
func UpdateOrder(c *gin.Context) {
	order, ok := loadOrderScoped(c)
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	before := order
	statusChanged := false

	if req.Status != "" {
		if !database.IsValidOrderStatus(req.Status) {
			utils.RespondError(c, http.StatusBadRequest, "Invalid order status")
			return
		}
		statusChanged = req.Status != order.Status
		order.Status = req.Status
	}
	if req.RequestedDeliveryDate != "" {
		parsed, err := time.Parse("2006-01-02", req.RequestedDeliveryDate)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "requested_delivery_date must be YYYY-MM-DD")
			return
		}
		order.RequestedDeliveryDate = &parsed
	}
	if req.Notes != "" {
		order.Notes = req.Notes
	}

	if err := database.DB.Save(&order).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to update order")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "UPDATE",
		TableName: "orders",
		RecordID:  order.ID,
		Before:    before,
		After:     order,
		IPAddress: c.ClientIP(),
	})

	if statusChanged {
		services.NotifyOrderStatusChange(order, order.Franchise.UserID, order.Status)
	}

	utils.RespondSuccess(c, http.StatusOK, order, "Order updated")
}

// AddOrderItemRequest contains the data for adding an item to an order
type AddOrderItemRequest struct {
	ProductID   uint `json:"product_id" binding:"required"`
	WarehouseID uint `json:"warehouse_id" binding:"required"`
	Quantity    int  `json:"quantity" binding:"required,gt=0"`
}

// AddOrderItem adds a line item to an order. Availability check, stock
// reservation, line total and order total recompute run in one transaction
// so a failure leaves nothing half-applied.
func AddOrderItem(c *gin.Context) {
	order, ok := loadOrderScoped(c)
	if !ok {
		return
	}

	var req AddOrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	var product database.Product
	if err := database.DB.First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Product not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	var item database.OrderItem
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var stock database.Stock
		if err := tx.Where("product_id = ? AND warehouse_id = ?", req.ProductID, req.WarehouseID).
			First(&stock).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errInsufficientStock
			}
			return err
		}

		if stock.Quantity-stock.ReservedQty < req.Quantity {
			return errInsufficientStock
		}

		stock.ReservedQty += req.Quantity
		if err := tx.Save(&stock).Error; err != nil {
			return err
		}

		item = database.OrderItem{
			OrderID:     order.ID,
			ProductID:   req.ProductID,
			WarehouseID: req.WarehouseID,
			Quantity:    req.Quantity,
			UnitPrice:   product.UnitPrice,
			TotalPrice:  product.UnitPrice * float64(req.Quantity),
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}

		return recomputeOrderTotal(tx, order.ID)
	})

	if err != nil {
		if errors.Is(err, errInsufficientStock) {
			utils.RespondError(c, http.StatusBadRequest, "Insufficient available stock")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to add order item")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "CREATE",
		TableName: "order_items",
		RecordID:  item.ID,
		After:     item,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusCreated, item, "Item added to order")
}

var errInsufficientStock = errors.New("insufficient available stock")

// RemoveOrderItem deletes a line item, releasing its stock reservation
// and recomputing the order total in the same transaction
func RemoveOrderItem(c *gin.Context) {
	order, ok := loadOrderScoped(c)
	if !ok {
		return
	}

	itemID64, err := strconv.ParseUint(c.Param("itemId"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid item ID")
		return
	}
	itemID := uint(itemID64)

	var item database.OrderItem
	if err := database.DB.Where("id = ? AND order_id = ?", itemID, order.ID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Order item not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var stock database.Stock
		if err := tx.Where("product_id = ? AND warehouse_id = ?", item.ProductID, item.WarehouseID).
			First(&stock).Error; err == nil {
			stock.ReservedQty -= item.Quantity
			if stock.ReservedQty < 0 {
				stock.ReservedQty = 0
			}
			if err := tx.Save(&stock).Error; err != nil {
				return err
			}
		}

		if err := tx.Delete(&item).Error; err != nil {
			return err
		}

		return recomputeOrderTotal(tx, order.ID)
	})

	if err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to remove order item")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "DELETE",
		TableName: "order_items",
		RecordID:  item.ID,
		Before:    item,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusOK, nil, "Item removed from order")
}

// recomputeOrderTotal rewrites the order's cached total from its items
func recomputeOrderTotal(tx *gorm.DB, orderID uint) error {
	var total float64
	if err := tx.Model(&database.OrderItem{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(total_price), 0)").
		Scan(&total).Error; err != nil {
		return err
	}
	return tx.Model(&database.Order{}).
		Where("id = ?", orderID).
		Update("total_amount", total).Error
}

// TransmitOrderRequest carries the attachment references stored on transmit
type TransmitOrderRequest struct {
	Attachments []string `json:"attachments"`
}

// TransmitOrder renders the order as a PDF, emails it to all active admins,
// flips DRAFT/PAID orders to PENDING and stores the attachment list verbatim
func TransmitOrder(c *gin.Context) {
	order, ok := loadOrderScoped(c)
	if !ok {
		return
	}

	var req TransmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	before := order

	pdfBytes, err := services.RenderOrderPDF(order)
	if err != nil {
		utils.Log.Errorw("Order PDF rendering failed", "error", err, "order_id", order.ID)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to render order document")
		return
	}

	if order.Status == database.OrderStatusDraft || order.Status == database.OrderStatusPaid {
		order.Status = database.OrderStatusPending
	}

	if req.Attachments != nil {
		raw, err := json.Marshal(req.Attachments)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Invalid attachments")
			return
		}
		order.Attachments = raw
	}

	if err := database.DB.Save(&order).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to transmit order")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "TRANSMIT",
		TableName: "orders",
		RecordID:  order.ID,
		Before:    before,
		After:     order,
		IPAddress: c.ClientIP(),
	})

	relatedID := order.ID
	services.Dispatch(services.NotificationPayload{
		Type:        "order_transmitted",
		Title:       "Commande transmise",
		Message:     "La commande " + order.OrderNumber + " a été transmise pour traitement.",
		TargetRole:  database.RoleAdmin,
		RelatedID:   &relatedID,
		RelatedType: "order",
		ActionURL:   "/admin/orders",
		SendEmail:   true,
		Attachments: []services.EmailAttachment{{
			Filename:    order.OrderNumber + ".pdf",
			ContentType: "application/pdf",
			Data:        pdfBytes,
		}},
	})

	utils.RespondSuccess(c, http.StatusOK, order, "Order transmitted")
}

// DownloadOrderPDF streams the order document as a PDF attachment
func DownloadOrderPDF(c *gin.Context) {
	order, ok := loadOrderScoped(c)
	if !ok {
		return
	}

	pdfBytes, err := services.RenderOrderPDF(order)
	if err != nil {
		utils.Log.Errorw("Order PDF rendering failed", "error", err, "order_id", order.ID)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to render order document")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+order.OrderNumber+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
