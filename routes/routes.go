package routes

import (
	"net/http"
	"time"

	"salescompagent/handlers"
	"salescompagent/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HandlerBundle collects every handler the route table needs.
type HandlerBundle struct {
	Chat    *handlers.ChatHandler
	Records *handlers.RecordsHandler
}

// RegisterRoutes wires up the full route table.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterChatRoutes(r, hb)
	RegisterRecordRoutes(r, hb)
}

// RegisterChatRoutes registers the session boundary.
func RegisterChatRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api")
	{
		api.POST("/chat", hb.Chat.HandleChat)
	}
}

// RegisterRecordRoutes registers read-only record endpoints.
func RegisterRecordRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api")
	{
		api.GET("/sessions/:id", hb.Records.GetArchivedSession)
		api.GET("/bookings/:id", hb.Records.GetBooking)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "health": utils.GetHealthStatus()})
	})
}
