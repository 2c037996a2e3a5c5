package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivncook/database"
)

func TestProductRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	admin := seedAdmin(t, db)

	category := database.ProductCategory{Name: "Plats chauds"}
	require.NoError(t, db.Create(&category).Error)

	c, w := testContext(t, http.MethodPost, "/api/products", gin.H{
		"name":        "Burger du chef",
		"sku":         "BUR-001",
		"description": "Pain brioche, steak 150g",
		"unit_price":  9.9,
		"category_id": category.ID,
	}, admin)
	CreateProduct(c)
	requireStatus(t, w, http.StatusCreated)

	var product database.Product
	require.NoError(t, db.Where("sku = ?", "BUR-001").First(&product).Error)

	c, w = testContext(t, http.MethodGet, "/api/products/1", nil, admin)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(product.ID)}}
	GetProductByID(c)
	requireStatus(t, w, http.StatusOK)

	body := decodeResponse(t, w)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "Burger du chef", data["name"])
	assert.Equal(t, "BUR-001", data["sku"])
	assert.InDelta(t, 9.9, data["unit_price"].(float64), 0.001)
	assert.EqualValues(t, category.ID, data["category_id"])
}

func TestCreateProductRejectsDuplicateSku(t *testing.T) {
	db := setupTestDB(t)
	admin := seedAdmin(t, db)

	category := database.ProductCategory{Name: "Desserts"}
	require.NoError(t, db.Create(&category).Error)

	body := gin.H{
		"name":        "Tarte citron",
		"sku":         "TAR-001",
		"unit_price":  4.5,
		"category_id": category.ID,
	}

	c, w := testContext(t, http.MethodPost, "/api/products", body, admin)
	CreateProduct(c)
	requireStatus(t, w, http.StatusCreated)

	c, w = testContext(t, http.MethodPost, "/api/products", body, admin)
	CreateProduct(c)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestDeletedProductHiddenFromPublicListing(t *testing.T) {
	db := setupTestDB(t)
	admin := seedAdmin(t, db)
	product, _, _ := seedStockedProduct(t, db, 10, 0)

	c, w := testContext(t, http.MethodDelete, "/api/products/1", nil, admin)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(product.ID)}}
	DeleteProduct(c)
	requireStatus(t, w, http.StatusOK)

	// Anonymous browsing only sees active products
	c, w = testContext(t, http.MethodGet, "/api/products", nil, database.User{})
	GetProducts(c)
	requireStatus(t, w, http.StatusOK)

	body := decodeResponse(t, w)
	assert.Empty(t, body["data"])

	// The row survives for existing order items
	var count int64
	db.Model(&database.Product{}).Where("id = ?", product.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}
