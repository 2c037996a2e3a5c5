package database

import (
	"drivncook/utils"
)

// RunMigrations runs all database migrations
func RunMigrations() error {
	utils.Log.Infow("Running database migrations")

	// AutoMigrate will create tables if they don't exist
	if err := DB.AutoMigrate(
		&User{},
		&Franchise{},
		&Vehicle{},
		&Maintenance{},
		&ProductCategory{},
		&Product{},
		&Warehouse{},
		&Stock{},
		&Order{},
		&OrderItem{},
		&Invoice{},
		&SalesReport{},
		&Notification{},
		&AuditLog{},
		&EmailDeadLetter{},
	); err != nil {
		utils.Log.Errorw("Migration failed", "error", err)
		return err
	}

	utils.Log.Infow("Database migrations completed")
	return nil
}

// SeedDefaultAdmin creates a default admin if none exists
func SeedDefaultAdmin() {
	var count int64
	if err := DB.Model(&User{}).Where("role = ?", RoleAdmin).Count(&count).Error; err != nil {
		utils.Log.Errorw("Failed to check existing admin", "error", err)
		return
	}

	if count > 0 {
		return
	}

	hash, err := utils.HashPassword("admin123")
	if err != nil {
		utils.Log.Errorw("Failed to hash default admin password", "error", err)
		return
	}

	admin := User{
		FirstName:    "Super",
		LastName:     "Admin",
		Email:        "admin@drivncook.fr",
		PasswordHash: hash,
		Role:         RoleAdmin,
		IsActive:     true,
	}

	if err := DB.Create(&admin).Error; err != nil {
		utils.Log.Errorw("Failed to create default admin", "error", err)
		return
	}
	utils.Log.Infow("Default admin user created", "email", admin.Email)
}
