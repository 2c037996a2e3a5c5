package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivncook/database"
	"drivncook/utils"
)

func registerBody(email, siret string) gin.H {
	return gin.H{
		"first_name":   "Claire",
		"last_name":    "Bernard",
		"email":        email,
		"password":     "motdepasse1",
		"company_name": "Bernard Street Food",
		"siret":        siret,
		"address":      "12 rue des Halles",
		"city":         "Lyon",
		"zip_code":     "69002",
	}
}

func TestRegisterCreatesUserAndPendingFranchise(t *testing.T) {
	db := setupTestDB(t)
	useStubMailer(t)
	seedAdmin(t, db)

	c, w := testContext(t, http.MethodPost, "/api/auth/register",
		registerBody("claire@test.local", "12345678901234"), database.User{})
	Register(c)
	requireStatus(t, w, http.StatusCreated)

	var user database.User
	require.NoError(t, db.Where("email = ?", "claire@test.local").First(&user).Error)
	assert.Equal(t, database.RoleFranchisee, user.Role)
	require.NotNil(t, user.FranchiseID)

	var franchise database.Franchise
	require.NoError(t, db.First(&franchise, *user.FranchiseID).Error)
	assert.Equal(t, database.FranchiseStatusPending, franchise.Status)
	assert.False(t, franchise.EntryFeePaid)
	assert.InDelta(t, 4, franchise.RoyaltyRate, 0.001)

	body := decodeResponse(t, w)
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["token"])

	// Registration notifies the admin role
	var notices int64
	db.Model(&database.Notification{}).
		Where("type = ? AND target_role = ?", "franchise_registered", database.RoleAdmin).
		Count(&notices)
	assert.EqualValues(t, 1, notices)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	setupTestDB(t)
	useStubMailer(t)

	c, w := testContext(t, http.MethodPost, "/api/auth/register",
		registerBody("dup@test.local", "12345678901234"), database.User{})
	Register(c)
	requireStatus(t, w, http.StatusCreated)

	c, w = testContext(t, http.MethodPost, "/api/auth/register",
		registerBody("dup@test.local", "98765432109876"), database.User{})
	Register(c)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestRegisterRejectsBadSiret(t *testing.T) {
	setupTestDB(t)

	c, w := testContext(t, http.MethodPost, "/api/auth/register",
		registerBody("siret@test.local", "123"), database.User{})
	Register(c)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestLoginFlow(t *testing.T) {
	db := setupTestDB(t)

	hash, err := utils.HashPassword("secret-password")
	require.NoError(t, err)
	user := database.User{
		FirstName:    "Paul",
		LastName:     "Durand",
		Email:        "paul@test.local",
		PasswordHash: hash,
		Role:         database.RoleFranchisee,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&user).Error)

	c, w := testContext(t, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "paul@test.local",
		"password": "secret-password",
	}, database.User{})
	Login(c)
	requireStatus(t, w, http.StatusOK)

	body := decodeResponse(t, w)
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["token"])

	c, w = testContext(t, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "paul@test.local",
		"password": "wrong-password",
	}, database.User{})
	Login(c)
	requireStatus(t, w, http.StatusUnauthorized)
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	db := setupTestDB(t)

	hash, err := utils.HashPassword("secret-password")
	require.NoError(t, err)
	user := database.User{
		Email:        "inactive@test.local",
		PasswordHash: hash,
		Role:         database.RoleFranchisee,
	}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Model(&user).Update("is_active", false).Error)

	c, w := testContext(t, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "inactive@test.local",
		"password": "secret-password",
	}, database.User{})
	Login(c)
	requireStatus(t, w, http.StatusForbidden)
}
