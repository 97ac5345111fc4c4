package routes

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/stockflow/stockflow-golang/internal/handlers"
	"github.com/stockflow/stockflow-golang/internal/middleware"
)

// CORSMiddleware tells the browser the admin frontend may send data to us.
func CORSMiddleware() gin.HandlerFunc {
	// 1. Strictly allow ONLY the configured admin frontend origin
	origin := os.Getenv("CORS_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)

		// 2. Allow standard security credentials
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		// 3. Allow the headers we actually use (specifically "Authorization" for JWT tokens)
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")

		// 4. Allow the HTTP methods we use in our API
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE, PATCH")

		// 5. Handle the "Preflight" OPTIONS request
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	// --- APPLY THE CORS GUARD ---
	// This must be the very first thing the router uses
	router.Use(CORSMiddleware())

	// --- Ping Route (Public) ---
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong!"})
	})

	api := router.Group("/api")
	{
		// --- Auth Routes (Public) ---
		api.POST("/admin/register", h.RegisterAdmin)
		api.POST("/admin/login", h.Login)

		// --- Protected Routes (Login Required) ---
		authed := api.Group("/")
		authed.Use(middleware.AuthMiddleware())
		{
			authed.GET("/requests/:adminId", h.GetRequests)
			authed.POST("/requests", h.CreateRequest)
			authed.PATCH("/request/:id", h.UpdateRequestField)
			authed.POST("/confirm-order/:id", h.ConfirmOrder)
			authed.DELETE("/request/delete/:productCode/:email", h.DeleteRequest)
		}
	}

	return router
}
