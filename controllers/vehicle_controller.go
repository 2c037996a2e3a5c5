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

// GetVehicles lists vehicles with pagination. Franchisees only see the
// vehicles assigned to their franchise.
func GetVehicles(c *gin.Context) {
	params := utils.ParsePageParams(c, "created_at", "registration_plate", "status")

	query := database.DB.Model(&database.Vehicle{})
	if currentRole(c) == database.RoleFranchisee {
		franchiseID, ok := currentFranchiseID(c)
		if !ok {
			utils.RespondError(c, http.StatusForbidden, "No franchise linked to this account")
			return
		}
		query = query.Where("franchise_id = ?", franchiseID)
	} else {
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if franchiseID := c.Query("franchise_id"); franchiseID != "" {
			query = query.Where("franchise_id = ?", franchiseID)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	var vehicles []database.Vehicle
	if err := query.Preload("Franchise").
		Order(params.OrderClause()).
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&vehicles).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	utils.RespondPaginated(c, vehicles, utils.BuildPagination(params, total))
}

// CreateVehicleRequest contains the data for registering a new truck
type CreateVehicleRequest struct {
	RegistrationPlate string `json:"registration_plate" binding:"required"`
	Model             string `json:"model" binding:"required"`
	Location          string `json:"location"`
	AcquisitionDate   string `json:"acquisition_date"`
}

// CreateVehicle registers a new vehicle in the fleet (admin only)
func CreateVehicle(c *gin.Context) {
	var req CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	vehicle := database.Vehicle{
		RegistrationPlate: req.RegistrationPlate,
		VehicleModel:      req.Model,
		Status:            database.VehicleStatusAvailable,
		Location:          req.Location,
	}

	if req.AcquisitionDate != "" {
		parsed, err := time.Parse("2006-01-02", req.AcquisitionDate)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "acquisition_date must be YYYY-MM-DD")
			return
		}
		vehicle.AcquisitionDate = &parsed
	}

	if err := database.DB.Create(&vehicle).Error; err != nil {
		if isUniqueViolation(err) {
			utils.RespondError(c, http.StatusBadRequest, "A vehicle with this registration plate already exists")
			return
		}
		utils.Log.Errorw("Vehicle creation error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create vehicle")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "CREATE",
		TableName: "vehicles",
		RecordID:  vehicle.ID,
		After:     vehicle,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusCreated, vehicle, "Vehicle created")
}

// GetVehicleByID returns one vehicle with its maintenance history
func GetVehicleByID(c *gin.Context) {
	vehicleID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid vehicle ID")
		return
	}

	var vehicle database.Vehicle
	if err := database.DB.Preload("Franchise").First(&vehicle, vehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Vehicle not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	if currentRole(c) == database.RoleFranchisee {
		franchiseID, ok := currentFranchiseID(c)
		if !ok || vehicle.FranchiseID == nil || *vehicle.FranchiseID != franchiseID {
			utils.RespondError(c, http.StatusForbidden, "Permission denied")
			return
		}
	}

	var maintenances []database.Maintenance
	if err := database.DB.Where("vehicle_id = ?", vehicle.ID).
		Order("date DESC").Find(&maintenances).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{
		"vehicle":      vehicle,
		"maintenances": maintenances,
	}, "")
}

// UpdateVehicleRequest contains the mutable vehicle fields
type UpdateVehicleRequest struct {
	Model    string `json:"model"`
	Status   string `json:"status" binding:"omitempty,oneof=AVAILABLE ASSIGNED MAINTENANCE RETIRED"`
	Location string `json:"location"`
}

// UpdateVehicle updates vehicle details (admin only)
func UpdateVehicle(c *gin.Context) {
	vehicleID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid vehicle ID")
		return
	}

	var req UpdateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	var vehicle database.Vehicle
	if err := database.DB.First(&vehicle, vehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Vehicle not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	before := vehicle

	if req.Model != "" {
		vehicle.VehicleModel = req.Model
	}
	if req.Status != "" {
		vehicle.Status = req.Status
	}
	if req.Location != "" {
		vehicle.Location = req.Location
	}

	if err := database.DB.Save(&vehicle).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to update vehicle")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "UPDATE",
		TableName: "vehicles",
		RecordID:  vehicle.ID,
		Before:    before,
		After:     vehicle,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusOK, vehicle, "Vehicle updated")
}

// AssignVehicleRequest assigns a vehicle to a franchise; a nil/zero
// franchise_id releases it back to the pool
type AssignVehicleRequest struct {
	FranchiseID *uint `json:"franchise_id"`
}

// AssignVehicle assigns or releases a vehicle (admin only)
func AssignVehicle(c *gin.Context) {
	vehicleID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid vehicle ID")
		return
	}

	var req AssignVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	var vehicle database.Vehicle
	if err := database.DB.First(&vehicle, vehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Vehicle not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	if vehicle.Status == database.VehicleStatusRetired {
		utils.RespondError(c, http.StatusBadRequest, "Cannot assign a retired vehicle")
		return
	}

	before := vehicle

	if req.FranchiseID != nil && *req.FranchiseID != 0 {
		var franchise database.Franchise
		if err := database.DB.First(&franchise, *req.FranchiseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.RespondError(c, http.StatusNotFound, "Franchise not found")
				return
			}
			utils.Log.Errorw("Database error", "error", err)
			utils.RespondError(c, http.StatusInternalServerError, "Server error")
			return
		}

		vehicle.FranchiseID = req.FranchiseID
		vehicle.Status = database.VehicleStatusAssigned

		relatedID := vehicle.ID
		services.Dispatch(services.NotificationPayload{
			Type:        "vehicle_assigned",
			Title:       "Camion attribué",
			Message:     "Le camion " + vehicle.RegistrationPlate + " a été attribué à votre franchise.",
			UserID:      &franchise.UserID,
			RelatedID:   &relatedID,
			RelatedType: "vehicle",
			ActionURL:   "/franchise/vehicles",
			SendEmail:   true,
		})
	} else {
		vehicle.FranchiseID = nil
		vehicle.Status = database.VehicleStatusAvailable
	}

	if err := database.DB.Save(&vehicle).Error; err != nil {
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to assign vehicle")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "ASSIGN",
		TableName: "vehicles",
		RecordID:  vehicle.ID,
		Before:    before,
		After:     vehicle,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusOK, vehicle, "Vehicle assignment updated")
}

// CreateMaintenanceRequest schedules a maintenance intervention
type CreateMaintenanceRequest struct {
	Type        string  `json:"type" binding:"required"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
	Date        string  `json:"date" binding:"required"`
}

// CreateMaintenance records a maintenance entry for a vehicle (admin only).
// The vehicle is flipped to MAINTENANCE status while the work is open.
func CreateMaintenance(c *gin.Context) {
	vehicleID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid vehicle ID")
		return
	}

	var req CreateMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	var vehicle database.Vehicle
	if err := database.DB.First(&vehicle, vehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Vehicle not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	maintenance := database.Maintenance{
		VehicleID:   vehicle.ID,
		Type:        req.Type,
		Description: req.Description,
		Cost:        req.Cost,
		Date:        date,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&maintenance).Error; err != nil {
			return err
		}
		if vehicle.Status != database.VehicleStatusRetired {
			if err := tx.Model(&vehicle).Update("status", database.VehicleStatusMaintenance).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.Log.Errorw("Maintenance creation error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create maintenance record")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "CREATE",
		TableName: "maintenances",
		RecordID:  maintenance.ID,
		After:     maintenance,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusCreated, maintenance, "Maintenance scheduled")
}

// CompleteMaintenance closes a maintenance record and returns the vehicle
// to its previous availability (ASSIGNED if linked to a franchise)
func CompleteMaintenance(c *gin.Context) {
	maintenanceID, err := parseIDParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid maintenance ID")
		return
	}

	var maintenance database.Maintenance
	if err := database.DB.Preload("Vehicle").First(&maintenance, maintenanceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, "Maintenance record not found")
			return
		}
		utils.Log.Errorw("Database error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Server error")
		return
	}

	if maintenance.Status == "COMPLETED" {
		utils.RespondError(c, http.StatusBadRequest, "Maintenance is already completed")
		return
	}

	before := maintenance

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&maintenance).Update("status", "COMPLETED").Error; err != nil {
			return err
		}

		// Another open maintenance keeps the vehicle unavailable
		var open int64
		if err := tx.Model(&database.Maintenance{}).
			Where("vehicle_id = ? AND status <> ? AND id <> ?", maintenance.VehicleID, "COMPLETED", maintenance.ID).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return nil
		}

		newStatus := database.VehicleStatusAvailable
		if maintenance.Vehicle.FranchiseID != nil {
			newStatus = database.VehicleStatusAssigned
		}
		return tx.Model(&database.Vehicle{}).
			Where("id = ?", maintenance.VehicleID).
			Update("status", newStatus).Error
	})
	if err != nil {
		utils.Log.Errorw("Maintenance completion error", "error", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to complete maintenance")
		return
	}

	services.WriteAudit(nil, services.AuditEntry{
		UserID:    auditActor(c),
		Action:    "COMPLETE",
		TableName: "maintenances",
		RecordID:  maintenance.ID,
		Before:    before,
		After:     maintenance,
		IPAddress: c.ClientIP(),
	})

	utils.RespondSuccess(c, http.StatusOK, maintenance, "Maintenance completed")
}
