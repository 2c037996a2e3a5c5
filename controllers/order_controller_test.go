package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivncook/database"
)

func createTestOrder(t *testing.T, user database.User) database.Order {
	t.Helper()

	c, w := testContext(t, http.MethodPost, "/api/orders", gin.H{}, user)
	CreateOrder(c)
	requireStatus(t, w, http.StatusCreated)

	var order database.Order
	require.NoError(t, database.DB.Order("id DESC").First(&order).Error)
	return order
}

func TestCreateOrderNumberFormat(t *testing.T) {
	db := setupTestDB(t)
	user, _ := seedFranchisee(t, db, "order1@test.local")

	order := createTestOrder(t, user)
	expected := fmt.Sprintf("CMD-%d-%06d", time.Now().Year(), 1)
	assert.Equal(t, expected, order.OrderNumber)
	assert.Equal(t, database.OrderStatusDraft, order.Status)

	second := createTestOrder(t, user)
	assert.Equal(t, fmt.Sprintf("CMD-%d-%06d", time.Now().Year(), 2), second.OrderNumber)
}

func TestCreateOrderAdminRequiresFranchise(t *testing.T) {
	db := setupTestDB(t)
	admin := seedAdmin(t, db)

	c, w := testContext(t, http.MethodPost, "/api/orders", gin.H{}, admin)
	CreateOrder(c)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestAddOrderItemReservesStock(t *testing.T) {
	db := setupTestDB(t)
	user, _ := seedFranchisee(t, db, "order2@test.local")
	product, warehouse, _ := seedStockedProduct(t, db, 100, 0)
	order := createTestOrder(t, user)

	c, w := testContext(t, http.MethodPost, "/api/orders/1/items", gin.H{
		"product_id":   product.ID,
		"warehouse_id": warehouse.ID,
		"quantity":     30,
	}, user)
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(order.ID))}}
	AddOrderItem(c)
	requireStatus(t, w, http.StatusCreated)

	var stock database.Stock
	require.NoError(t, db.Where("product_id = ?", product.ID).First(&stock).Error)
	assert.Equal(t, 100, stock.Quantity)
	assert.Equal(t, 30, stock.ReservedQty)

	var got database.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.InDelta(t, 30*product.UnitPrice, got.TotalAmount, 0.001)
}

func TestAddOrderItemInsufficientStockLeavesNothing(t *testing.T) {
	db := setupTestDB(t)
	user, _ := seedFranchisee(t, db, "order3@test.local")
	product, warehouse, _ := seedStockedProduct(t, db, 100, 30)
	order := createTestOrder(t, user)

	c, w := testContext(t, http.MethodPost, "/api/orders/1/items", gin.H{
		"product_id":   product.ID,
		"warehouse_id": warehouse.ID,
		"quantity":     80,
	}, user)
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(order.ID))}}
	AddOrderItem(c)
	requireStatus(t, w, http.StatusBadRequest)

	var stock database.Stock
	require.NoError(t, db.Where("product_id = ?", product.ID).First(&stock).Error)
	assert.Equal(t, 30, stock.ReservedQty, "failed reservation must not change reserved quantity")

	var items int64
	db.Model(&database.OrderItem{}).Where("order_id = ?", order.ID).Count(&items)
	assert.Zero(t, items)

	var got database.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Zero(t, got.TotalAmount)
}

func TestRemoveOrderItemReleasesReservation(t *testing.T) {
	db := setupTestDB(t)
	user, _ := seedFranchisee(t, db, "order4@test.local")
	product, warehouse, _ := seedStockedProduct(t, db, 100, 0)
	order := createTestOrder(t, user)

	c, w := testContext(t, http.MethodPost, "/api/orders/1/items", gin.H{
		"product_id":   product.ID,
		"warehouse_id": warehouse.ID,
		"quantity":     10,
	}, user)
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(order.ID))}}
	AddOrderItem(c)
	requireStatus(t, w, http.StatusCreated)

	var item database.OrderItem
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&item).Error)

	c, w = testContext(t, http.MethodDelete, "/api/orders/1/items/1", nil, user)
	c.Params = gin.Params{
		{Key: "id", Value: strconv.Itoa(int(order.ID))},
		{Key: "itemId", Value: strconv.Itoa(int(item.ID))},
	}
	RemoveOrderItem(c)
	requireStatus(t, w, http.StatusOK)

	var stock database.Stock
	require.NoError(t, db.Where("product_id = ?", product.ID).First(&stock).Error)
	assert.Zero(t, stock.ReservedQty)

	var got database.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Zero(t, got.TotalAmount)
}

func TestGetOrderAcrossTenantsForbidden(t *testing.T) {
	db := setupTestDB(t)
	owner, _ := seedFranchisee(t, db, "owner@test.local")
	other, _ := seedFranchisee(t, db, "other@test.local")
	order := createTestOrder(t, owner)

	c, w := testContext(t, http.MethodGet, "/api/orders/1", nil, other)
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(order.ID))}}
	GetOrderByID(c)
	requireStatus(t, w, http.StatusForbidden)
}

func TestTransmitOrderFlipsDraftToPending(t *testing.T) {
	db := setupTestDB(t)
	stub := useStubMailer(t)
	user, _ := seedFranchisee(t, db, "order5@test.local")
	seedAdmin(t, db)
	order := createTestOrder(t, user)

	attachments := []string{"https://cdn.test/kbis.pdf", "https://cdn.test/photo.png"}
	c, w := testContext(t, http.MethodPost, "/api/orders/1/transmit", gin.H{
		"attachments": attachments,
	}, user)
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(order.ID))}}
	TransmitOrder(c)
	requireStatus(t, w, http.StatusOK)

	var got database.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, database.OrderStatusPending, got.Status)

	var stored []string
	require.NoError(t, json.Unmarshal(got.Attachments, &stored))
	assert.Equal(t, attachments, stored, "attachment list must be stored verbatim")

	require.Len(t, stub.sent, 1)
	assert.Contains(t, stub.sent[0].To, "admin@test.local")
}

func TestTransmitOrderEmailsRenderedDocument(t *testing.T) {
	db := setupTestDB(t)
	stub := useStubMailer(t)
	user, _ := seedFranchisee(t, db, "order7@test.local")
	seedAdmin(t, db)
	order := createTestOrder(t, user)

	c, w := testContext(t, http.MethodPost, "/api/orders/1/transmit", gin.H{}, user)
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(order.ID))}}
	TransmitOrder(c)
	requireStatus(t, w, http.StatusOK)

	require.Len(t, stub.sent, 1)
	require.Len(t, stub.sent[0].Attachments, 1, "the admin email must carry the order document")
	attachment := stub.sent[0].Attachments[0]
	assert.Equal(t, order.OrderNumber+".pdf", attachment.Filename)
	assert.Equal(t, "application/pdf", attachment.ContentType)
	assert.True(t, bytes.HasPrefix(attachment.Data, []byte("%PDF")))
}

func TestUpdateOrderStatusFansOutNotifications(t *testing.T) {
	db := setupTestDB(t)
	useStubMailer(t)
	user, _ := seedFranchisee(t, db, "order6@test.local")
	seedAdmin(t, db)
	order := createTestOrder(t, user)

	c, w := testContext(t, http.MethodPut, "/api/orders/1", gin.H{
		"status": database.OrderStatusConfirmed,
	}, user)
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(order.ID))}}
	UpdateOrder(c)
	requireStatus(t, w, http.StatusOK)

	var userTargeted, roleTargeted int64
	db.Model(&database.Notification{}).
		Where("type = ? AND user_id = ?", "order_confirmed", user.ID).
		Count(&userTargeted)
	db.Model(&database.Notification{}).
		Where("type = ? AND target_role = ?", "order_confirmed", database.RoleAdmin).
		Count(&roleTargeted)
	assert.EqualValues(t, 1, userTargeted)
	assert.EqualValues(t, 1, roleTargeted)
}

func TestUpdateOrderRejectsUnknownStatus(t *testing.T) {
	db := setupTestDB(t)
	user, _ := seedFranchisee(t, db, "order7@test.local")
	order := createTestOrder(t, user)

	c, w := testContext(t, http.MethodPut, "/api/orders/1", gin.H{
		"status": "TELEPORTED",
	}, user)
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(order.ID))}}
	UpdateOrder(c)
	requireStatus(t, w, http.StatusBadRequest)
}
