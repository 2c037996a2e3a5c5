package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"drivncook/config"
	"drivncook/database"
	"drivncook/services"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.InitConfig()
	os.Exit(m.Run())
}

// setupTestDB swaps database.DB for an isolated in-memory sqlite instance
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&database.User{},
		&database.Franchise{},
		&database.Vehicle{},
		&database.Maintenance{},
		&database.ProductCategory{},
		&database.Product{},
		&database.Warehouse{},
		&database.Stock{},
		&database.Order{},
		&database.OrderItem{},
		&database.Invoice{},
		&database.SalesReport{},
		&database.Notification{},
		&database.AuditLog{},
		&database.EmailDeadLetter{},
	))

	previous := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = previous
		sqlDB.Close()
	})

	return db
}

// stubSender records outbound emails instead of talking to SES
type stubSender struct {
	sent []stubEmail
	fail error
}

type stubEmail struct {
	To          []string
	Subject     string
	Body        string
	Attachments []services.EmailAttachment
}

func (s *stubSender) Send(_ context.Context, to []string, subject, body string, attachments ...services.EmailAttachment) error {
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, stubEmail{To: to, Subject: subject, Body: body, Attachments: attachments})
	return nil
}

// useStubMailer swaps the package mailer for the test's lifetime
func useStubMailer(t *testing.T) *stubSender {
	t.Helper()
	stub := &stubSender{}
	previous := services.Mailer
	services.Mailer = stub
	t.Cleanup(func() { services.Mailer = previous })
	return stub
}

// testContext builds a gin context carrying an authenticated identity
func testContext(t *testing.T, method, path string, body interface{}, user database.User) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	if user.ID != 0 {
		c.Set("userID", user.ID)
		c.Set("email", user.Email)
		c.Set("role", user.Role)
		if user.FranchiseID != nil {
			c.Set("franchiseID", *user.FranchiseID)
		}
	}

	return c, w
}

// seedFranchisee creates an active franchisee user with its franchise
func seedFranchisee(t *testing.T, db *gorm.DB, email string) (database.User, database.Franchise) {
	t.Helper()

	user := database.User{
		FirstName:    "Jean",
		LastName:     "Dupont",
		Email:        email,
		PasswordHash: "x",
		Role:         database.RoleFranchisee,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&user).Error)

	franchise := database.Franchise{
		UserID:      user.ID,
		CompanyName: "Dupont Food SARL",
		Siret:       fmt.Sprintf("%014d", user.ID),
		Address:     "1 rue de la Paix",
		City:        "Paris",
		ZipCode:     "75002",
		RoyaltyRate: 4,
		EntryFee:    50000,
		Status:      database.FranchiseStatusActive,
	}
	require.NoError(t, db.Create(&franchise).Error)

	user.FranchiseID = &franchise.ID
	require.NoError(t, db.Save(&user).Error)

	return user, franchise
}

// seedAdmin creates an active admin user
func seedAdmin(t *testing.T, db *gorm.DB) database.User {
	t.Helper()

	admin := database.User{
		FirstName:    "Marie",
		LastName:     "Martin",
		Email:        "admin@test.local",
		PasswordHash: "x",
		Role:         database.RoleAdmin,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&admin).Error)
	return admin
}

// seedStockedProduct creates a category, product, warehouse and stock row
func seedStockedProduct(t *testing.T, db *gorm.DB, quantity, reserved int) (database.Product, database.Warehouse, database.Stock) {
	t.Helper()

	category := database.ProductCategory{Name: "Boissons " + t.Name()}
	require.NoError(t, db.Create(&category).Error)

	product := database.Product{
		Name:       "Limonade artisanale",
		Sku:        "SKU-" + strings.ReplaceAll(t.Name(), "/", "-"),
		UnitPrice:  2.5,
		CategoryID: category.ID,
		IsActive:   true,
	}
	require.NoError(t, db.Create(&product).Error)

	warehouse := database.Warehouse{
		Name:     "Entrepôt Nord",
		Address:  "2 avenue des Docks",
		City:     "Saint-Denis",
		ZipCode:  "93200",
		Capacity: 1000,
		IsActive: true,
	}
	require.NoError(t, db.Create(&warehouse).Error)

	stock := database.Stock{
		ProductID:   product.ID,
		WarehouseID: warehouse.ID,
		Quantity:    quantity,
		ReservedQty: reserved,
	}
	require.NoError(t, db.Create(&stock).Error)

	return product, warehouse, stock
}

// decodeResponse unmarshals the envelope body into a map
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, w.Code, "unexpected status, body: %s", w.Body.String())
}
