package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stripe/stripe-go/v76"

	"drivncook/config"
	"drivncook/database"
	"drivncook/routes"
	"drivncook/services"
	"drivncook/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	config.InitConfig()
	utils.InitLogger(config.AppConfig.Environment)

	if !config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := database.InitDB(); err != nil {
		utils.Log.Fatalw("Failed to connect to database", "error", err)
	}
	defer database.CloseDB()

	if err := database.RunMigrations(); err != nil {
		utils.Log.Fatalw("Failed to run migrations", "error", err)
	}
	database.SeedDefaultAdmin()

	stripe.Key = config.AppConfig.StripeSecretKey

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	services.InitMailer(ctx)
	cancel()

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.AppConfig.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	utils.Log.Infow("Starting server", "port", port, "environment", config.AppConfig.Environment)
	if err := router.Run(":" + port); err != nil {
		utils.Log.Fatalw("Server stopped", "error", err)
	}
}
