package controllers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"relay/models"
	"relay/services"

	"github.com/gin-gonic/gin"
)

// ChatStore persists direct-chat replies under a per-chat document.
type ChatStore interface {
	SaveChatMessage(ctx context.Context, uid, chatID string, msg models.Turn) error
}

// ChatController serves the structured direct-chat entry point. Unlike the
// webhook it has no retrying caller, so internal failures surface as 500.
type ChatController struct {
	store     ChatStore
	generator Generator
	window    int
	maxRunes  int
	timeout   time.Duration
}

func NewChatController(store ChatStore, generator Generator, window, maxRunes int, timeout time.Duration) *ChatController {
	return &ChatController{
		store:     store,
		generator: generator,
		window:    window,
		maxRunes:  maxRunes,
		timeout:   timeout,
	}
}

// HandleChat takes {uid, chatId, messages}, generates a reply from the
// bounded transcript and persists it under the chat.
func (cc *ChatController) HandleChat(c *gin.Context) {
	var request struct {
		UID      string               `json:"uid"`
		ChatID   string               `json:"chatId"`
		Messages []models.ChatMessage `json:"messages"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid e messages são obrigatórios"})
		return
	}
	if request.UID == "" || request.Messages == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid e messages são obrigatórios"})
		return
	}

	chatID := request.ChatID
	if chatID == "" {
		chatID = "default"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), cc.timeout)
	defer cancel()

	transcript := models.Sanitize(request.Messages, cc.window, cc.maxRunes)

	reply, err := cc.generator.Generate(ctx, transcript)
	if err != nil {
		log.Printf("chat generation failed for uid %s: %v", request.UID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "LLM error"})
		return
	}
	if strings.TrimSpace(reply) == "" {
		reply = services.ChatFallback
	}

	msg := models.Turn{
		At:      services.GetCurrentTimestamp(),
		Role:    models.RoleModel,
		Content: models.TruncateRunes(reply, cc.maxRunes),
	}
	if err := cc.store.SaveChatMessage(ctx, request.UID, chatID, msg); err != nil {
		log.Printf("chat persistence failed for uid %s: %v", request.UID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "LLM error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
