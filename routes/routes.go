package routes

import (
	"net/http"

	"relay/controllers"
	"relay/middlewares"

	"github.com/gin-gonic/gin"
)

// SetupRouter wires the relay's endpoints. The signature middleware guards
// only the event-delivery POST; the handshake GET and the direct-chat
// endpoint are not signed by the provider.
func SetupRouter(webhook *controllers.WebhookController, chat *controllers.ChatController, signature gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(gin.Recovery())
	r.Use(middlewares.Logger())
	r.Use(cors())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	r.GET("/webhook", webhook.Verify)
	r.POST("/webhook", signature, webhook.HandleEvent)

	r.POST("/chat", chat.HandleChat)

	return r
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
