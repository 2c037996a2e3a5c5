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

// RegisterRequest contains the data for franchisee registration
type RegisterRequest struct {
	FirstName   string  `json:"first_name" binding:"required"`
	LastName    string  `json:"last_name" binding:"required"`
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required,min=8"`
	Phone       string  `json:"phone"`
	CompanyName string  `json:"company_name" binding:"required"`
	Siret       string  `json:"siret" binding:"required,len=14"`
	Address     string  `json:"address" binding:"required"`
	City        string  `json:"city" binding:"required"`
	ZipCode     string  `json:"zip_code" binding:"required"`
	RoyaltyRate float64 `json:"royalty_rate"`
}

// LoginRequest contains login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates a franchisee user together with its PENDING franchise
func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	var existing database.User
	err := database.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		utils.RespondError(c, http.StatusBadRequest, "Email already in use")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Log.Errorw("Password hashing error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to process password")
		return
	}

	user := database.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         database.RoleFranchisee,
		Phone:        req.Phone,
		IsActive:     true,
	}

	royaltyRate := req.RoyaltyRate
	if royaltyRate <= 0 {
		royaltyRate = 4
	}

	tx := database.DB.Begin()
	if tx.Error != nil {
		utils.Log.Errorw("Transaction error", "error", tx.Error)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	if err := tx.Create(&user).Error; err != nil {
		tx.Rollback()
		utils.Log.Errorw("User creation error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	franchise := database.Franchise{
		UserID:      user.ID,
		CompanyName: req.CompanyName,
		Siret:       req.Siret,
		Address:     req.Address,
		City:        req.City,
		ZipCode:     req.ZipCode,
		RoyaltyRate: royaltyRate,
		Status:      database.FranchiseStatusPending,
	}

	if err := tx.Create(&franchise).Error; err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			utils.RespondError(c, http.StatusBadRequest, "A franchise with this SIRET already exists")
			return
		}
		utils.Log.Errorw("Franchise creation error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create franchise")
		return
	}

	user.FranchiseID = &franchise.ID
	if err := tx.Save(&user).Error; err != nil {
		tx.Rollback()
		utils.Log.Errorw("Failed to link franchise to user", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to link franchise to user")
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.Log.Errorw("Transaction commit error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	services.Dispatch(services.NotificationPayload{
		Type:        "franchise_registered",
		Title:       "Nouvelle candidature franchise",
		Message:     "La franchise " + franchise.CompanyName + " vient de s'inscrire et attend la validation de ses documents.",
		TargetRole:  database.RoleAdmin,
		RelatedID:   &franchise.ID,
		RelatedType: "franchise",
		ActionURL:   "/admin/franchises",
		SendEmail:   true,
	})

	expiryTime := time.Now().Add(24 * time.Hour)
	token, err := utils.GenerateJWT(user.ID, user.Email, user.Role, user.FranchiseID, expiryTime)
	if err != nil {
		utils.Log.Errorw("JWT error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "User created but failed to generate token")
		return
	}

	user.PasswordHash = ""
	utils.RespondSuccess(c, http.StatusCreated, gin.H{
		"token":     token,
		"user":      user,
		"franchise": franchise,
		"expiry":    expiryTime.Unix(),
	}, "Registration successful")
}

// Login authenticates a user and returns a JWT token
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	var user database.User
	err := database.DB.Where("email = ?", req.Email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid credentials")
		} else {
			utils.Log.Errorw("Database error", "error", err)
			utils.RespondError(c, http.StatusInternalServerError, "Server error")
		}
		return
	}

	if !user.IsActive {
		utils.RespondError(c, http.StatusForbidden, "Account is deactivated")
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		utils.RespondError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	expiryTime := time.Now().Add(24 * time.Hour)
	token, err := utils.GenerateJWT(user.ID, user.Email, user.Role, user.FranchiseID, expiryTime)
	if err != nil {
		utils.Log.Errorw("JWT error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	user.PasswordHash = ""
	utils.RespondSuccess(c, http.StatusOK, gin.H{
		"token":  token,
		"user":   user,
		"expiry": expiryTime.Unix(),
	}, "")
}

// GetProfile returns the authenticated user's profile
func GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var user database.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "User not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	user.PasswordHash = ""
	utils.RespondSuccess(c, http.StatusOK, user, "")
}

// UpdateProfileRequest contains the mutable profile fields
type UpdateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// UpdateProfile updates the authenticated user's profile
func UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	var user database.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, "User not found")
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}

	if err := database.DB.Save(&user).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	user.PasswordHash = ""
	utils.RespondSuccess(c, http.StatusOK, user, "Profile updated")
}
