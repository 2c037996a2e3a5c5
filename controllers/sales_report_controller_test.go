package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivncook/database"
)

func TestCreateSalesReportComputesRoyalty(t *testing.T) {
	db := setupTestDB(t)
	user, franchise := seedFranchisee(t, db, "sales1@test.local")

	c, w := testContext(t, http.MethodPost, "/api/sales-reports", gin.H{
		"report_date": "2026-08-01",
		"daily_sales": 850.0,
		"notes":       "Marché de nuit, forte affluence",
		// A forged royalty amount in the body must be ignored
		"royalty_amount": 1.0,
	}, user)
	CreateSalesReport(c)
	requireStatus(t, w, http.StatusCreated)

	var report database.SalesReport
	require.NoError(t, db.Where("franchise_id = ?", franchise.ID).First(&report).Error)
	assert.InDelta(t, 850*franchise.RoyaltyRate/100, report.RoyaltyAmount, 0.001)
	assert.InDelta(t, 850, report.DailySales, 0.001)
	assert.Equal(t, "Marché de nuit, forte affluence", report.Notes)
}

func TestCreateSalesReportRejectsDuplicateDate(t *testing.T) {
	db := setupTestDB(t)
	user, _ := seedFranchisee(t, db, "sales2@test.local")

	body := gin.H{"report_date": "2026-08-02", "daily_sales": 100.0}

	c, w := testContext(t, http.MethodPost, "/api/sales-reports", body, user)
	CreateSalesReport(c)
	requireStatus(t, w, http.StatusCreated)

	c, w = testContext(t, http.MethodPost, "/api/sales-reports", body, user)
	CreateSalesReport(c)
	requireStatus(t, w, http.StatusBadRequest)

	var count int64
	db.Model(&database.SalesReport{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestCreateSalesReportAdminNeedsFranchiseID(t *testing.T) {
	db := setupTestDB(t)
	admin := seedAdmin(t, db)

	c, w := testContext(t, http.MethodPost, "/api/sales-reports", gin.H{
		"report_date": "2026-08-03",
		"daily_sales": 100.0,
	}, admin)
	CreateSalesReport(c)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestUpdateSalesReportRecomputesRoyalty(t *testing.T) {
	db := setupTestDB(t)
	user, franchise := seedFranchisee(t, db, "sales3@test.local")

	c, w := testContext(t, http.MethodPost, "/api/sales-reports", gin.H{
		"report_date": "2026-08-04",
		"daily_sales": 100.0,
	}, user)
	CreateSalesReport(c)
	requireStatus(t, w, http.StatusCreated)

	var report database.SalesReport
	require.NoError(t, db.Where("franchise_id = ?", franchise.ID).First(&report).Error)

	c, w = testContext(t, http.MethodPut, "/api/sales-reports/1", gin.H{
		"daily_sales": 400.0,
		"notes":       "Correction après recomptage de caisse",
	}, user)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	UpdateSalesReport(c)
	requireStatus(t, w, http.StatusOK)

	require.NoError(t, db.First(&report, report.ID).Error)
	assert.InDelta(t, 400*franchise.RoyaltyRate/100, report.RoyaltyAmount, 0.001)
	assert.Equal(t, "Correction après recomptage de caisse", report.Notes)
}
