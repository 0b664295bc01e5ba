package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"civicgrid-be/config"
	"civicgrid-be/controllers"
	"civicgrid-be/routes"
	"civicgrid-be/services"
	"civicgrid-be/stores"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	db := config.ConnectDB()
	if db == nil {
		log.Fatal("Failed to connect to MongoDB")
	}

	log.Println("MongoDB connection established successfully!")

	config.ConnectRedis()

	issueCol := config.GetCollection("issues")
	userCol := config.GetCollection("users")
	if err := stores.EnsureIssueIndexes(issueCol); err != nil {
		log.Printf("Failed to ensure issue indexes: %v", err)
	}
	if err := stores.EnsureUserIndexes(userCol); err != nil {
		log.Printf("Failed to ensure user indexes: %v", err)
	}

	issueStore := stores.NewMongoIssueStore(issueCol)
	userDirectory := stores.NewMongoUserDirectory(userCol)
	notifier := services.NewLogNotifier(userDirectory)
	classifier := services.NewClassifier(config.LoadClassifierConfig())
	escalationCfg := config.LoadEscalationConfig()

	lifecycle := services.NewLifecycle(issueStore, userDirectory, notifier, classifier, escalationCfg)
	scheduler := services.NewScheduler(issueStore, userDirectory, lifecycle, escalationCfg)
	scheduler.Start(context.Background())

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{os.Getenv("FRONTEND_URL")},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	issueController := controllers.NewIssueController(lifecycle, issueStore)
	employeeController := controllers.NewEmployeeController(lifecycle, issueStore, userDirectory)
	escalationController := controllers.NewEscalationController(scheduler, lifecycle, issueStore, userDirectory)

	routes.AuthRoutes(r)
	routes.IssueRoutes(r, issueController)
	routes.EmployeeRoutes(r, employeeController)
	routes.AdminRoutes(r, escalationController)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
