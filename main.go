package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"civicdesk-be/cache"
	"civicdesk-be/config"
	"civicdesk-be/controllers"
	"civicdesk-be/events"
	"civicdesk-be/repository"
	"civicdesk-be/routes"
	"civicdesk-be/services"
	"civicdesk-be/sla"
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

	redisClient := config.ConnectRedis()

	issueCache := cache.NewMemoryCache()
	emitter := events.NewLogEmitter()
	if redisClient != nil {
		issueCache = cache.NewRedisCache(redisClient)
		emitter = events.NewRedisEmitter(redisClient)
	}

	repo := repository.NewMongoIssueRepository(config.Client(), db)
	issueService := services.NewIssueService(
		repo,
		cache.NewCoordinator(issueCache),
		emitter,
		sla.SystemClock(),
	)
	issueController := controllers.NewIssueController(issueService)

	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsConfig.AllowOrigins = strings.Split(origins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	corsConfig.AddAllowHeaders("Authorization")
	r.Use(cors.New(corsConfig))

	routes.AuthRoutes(r)
	routes.UserRoutes(r)
	routes.IssueRoutes(r, issueController)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
