package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivncook/database"
)

func TestAdjustStockAddCreatesRow(t *testing.T) {
	db := setupTestDB(t)
	admin := seedAdmin(t, db)
	product, warehouse, stock := seedStockedProduct(t, db, 10, 0)
	require.NoError(t, db.Unscoped().Delete(&stock).Error)

	c, w := testContext(t, http.MethodPost, "/api/stocks/adjust", gin.H{
		"product_id":   product.ID,
		"warehouse_id": warehouse.ID,
		"quantity":     25,
		"operation":    "ADD",
	}, admin)
	AdjustStock(c)
	requireStatus(t, w, http.StatusOK)

	var got database.Stock
	require.NoError(t, db.Where("product_id = ? AND warehouse_id = ?", product.ID, warehouse.ID).First(&got).Error)
	assert.Equal(t, 25, got.Quantity)
	assert.NotNil(t, got.LastRestockDate)
}

func TestAdjustStockRemoveClampsAtZero(t *testing.T) {
	db := setupTestDB(t)
	admin := seedAdmin(t, db)
	product, warehouse, _ := seedStockedProduct(t, db, 10, 0)

	c, w := testContext(t, http.MethodPost, "/api/stocks/adjust", gin.H{
		"product_id":   product.ID,
		"warehouse_id": warehouse.ID,
		"quantity":     50,
		"operation":    "REMOVE",
	}, admin)
	AdjustStock(c)
	requireStatus(t, w, http.StatusOK)

	var got database.Stock
	require.NoError(t, db.Where("product_id = ? AND warehouse_id = ?", product.ID, warehouse.ID).First(&got).Error)
	assert.Equal(t, 0, got.Quantity)
	assert.Nil(t, got.LastRestockDate, "REMOVE must not stamp the restock date")
}

func TestAdjustStockRemoveOnMissingRowRejected(t *testing.T) {
	db := setupTestDB(t)
	admin := seedAdmin(t, db)
	product, warehouse, stock := seedStockedProduct(t, db, 10, 0)
	require.NoError(t, db.Unscoped().Delete(&stock).Error)

	c, w := testContext(t, http.MethodPost, "/api/stocks/adjust", gin.H{
		"product_id":   product.ID,
		"warehouse_id": warehouse.ID,
		"quantity":     5,
		"operation":    "REMOVE",
	}, admin)
	AdjustStock(c)
	requireStatus(t, w, http.StatusBadRequest)

	var count int64
	db.Model(&database.Stock{}).Count(&count)
	assert.Zero(t, count, "REMOVE must never create a stock row")
}

func TestAdjustStockSetOverrides(t *testing.T) {
	db := setupTestDB(t)
	admin := seedAdmin(t, db)
	product, warehouse, _ := seedStockedProduct(t, db, 10, 3)

	c, w := testContext(t, http.MethodPost, "/api/stocks/adjust", gin.H{
		"product_id":   product.ID,
		"warehouse_id": warehouse.ID,
		"quantity":     7,
		"operation":    "SET",
	}, admin)
	AdjustStock(c)
	requireStatus(t, w, http.StatusOK)

	var got database.Stock
	require.NoError(t, db.Where("product_id = ? AND warehouse_id = ?", product.ID, warehouse.ID).First(&got).Error)
	assert.Equal(t, 7, got.Quantity)
	assert.Equal(t, 3, got.ReservedQty, "SET must not touch reservations")
	assert.NotNil(t, got.LastRestockDate)
}

func TestAdjustStockWritesAuditRow(t *testing.T) {
	db := setupTestDB(t)
	admin := seedAdmin(t, db)
	product, warehouse, _ := seedStockedProduct(t, db, 10, 0)

	c, w := testContext(t, http.MethodPost, "/api/stocks/adjust", gin.H{
		"product_id":   product.ID,
		"warehouse_id": warehouse.ID,
		"quantity":     4,
		"operation":    "ADD",
	}, admin)
	AdjustStock(c)
	requireStatus(t, w, http.StatusOK)

	var audit database.AuditLog
	require.NoError(t, db.Where("table_name = ?", "stocks").First(&audit).Error)
	assert.Equal(t, "STOCK_ADD", audit.Action)
	require.NotNil(t, audit.UserID)
	assert.Equal(t, admin.ID, *audit.UserID)
	assert.NotEmpty(t, audit.OldValue)
	assert.NotEmpty(t, audit.NewValue)
}

func TestAdjustStockInvalidOperationRejected(t *testing.T) {
	db := setupTestDB(t)
	admin := seedAdmin(t, db)
	product, warehouse, _ := seedStockedProduct(t, db, 10, 0)

	c, w := testContext(t, http.MethodPost, "/api/stocks/adjust", gin.H{
		"product_id":   product.ID,
		"warehouse_id": warehouse.ID,
		"quantity":     4,
		"operation":    "MULTIPLY",
	}, admin)
	AdjustStock(c)
	requireStatus(t, w, http.StatusBadRequest)
}
