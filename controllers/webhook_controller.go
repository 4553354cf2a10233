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

// ConversationStore is the slice of the history store the webhook needs.
type ConversationStore interface {
	GetConversation(ctx context.Context, userID string) (models.Conversation, error)
	AppendUserTurn(ctx context.Context, userID string, turn models.Turn, lastText string) error
	AppendModelTurn(ctx context.Context, userID string, turn models.Turn) error
}

// Generator mirrors services.Generator so tests can substitute a fake.
type Generator interface {
	Generate(ctx context.Context, messages []models.ChatMessage) (string, error)
}

// Sender delivers replies through the messaging provider.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// DigestLookup supplies the latest conversation summary for a user. Optional.
type DigestLookup interface {
	LatestSummary(ctx context.Context, userID string) (string, error)
}

// WebhookController drives one webhook invocation end to end: handshake,
// event extraction, history update, generation and delivery.
type WebhookController struct {
	verifyToken   string
	store         ConversationStore
	generator     Generator
	sender        Sender
	digests       DigestLookup
	snapshotRunes int
	timeout       time.Duration
}

func NewWebhookController(verifyToken string, store ConversationStore, generator Generator, sender Sender, digests DigestLookup, snapshotRunes int, timeout time.Duration) *WebhookController {
	return &WebhookController{
		verifyToken:   verifyToken,
		store:         store,
		generator:     generator,
		sender:        sender,
		digests:       digests,
		snapshotRunes: snapshotRunes,
		timeout:       timeout,
	}
}

// Verify handles the provider's GET subscription handshake: echo the
// challenge when mode and token match, 403 otherwise. No state is touched.
func (wc *WebhookController) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == wc.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// HandleEvent processes one event delivery. Once authentication has
// passed, the response is always 200: a malformed payload, a missing
// message or any upstream failure is logged and contained so the provider
// never retries a poison event.
func (wc *WebhookController) HandleEvent(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("ignoring unparseable webhook payload: %v", err)
		c.Status(http.StatusOK)
		return
	}

	msg, ok := models.ExtractMessage(payload)
	if !ok {
		c.Status(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), wc.timeout)
	defer cancel()

	if err := wc.process(ctx, msg); err != nil {
		log.Printf("webhook processing failed for %s: %v", msg.From, err)
	}
	c.Status(http.StatusOK)
}

func (wc *WebhookController) process(ctx context.Context, msg models.InboundMessage) error {
	now := services.GetCurrentTimestamp()

	record, err := wc.store.GetConversation(ctx, msg.From)
	if err != nil {
		return err
	}

	userTurn := models.Turn{At: now, Role: models.RoleUser, Content: msg.Text}
	if err := wc.store.AppendUserTurn(ctx, msg.From, userTurn, msg.Text); err != nil {
		return err
	}

	digest := ""
	if wc.digests != nil {
		if digest, err = wc.digests.LatestSummary(ctx, msg.From); err != nil {
			// Extra context only; the turn proceeds without it.
			log.Printf("digest lookup failed for %s: %v", msg.From, err)
			digest = ""
		}
	}

	prompt := services.BuildSinglePrompt(record, msg.Text, wc.snapshotRunes, digest)
	reply, err := wc.generator.Generate(ctx, []models.ChatMessage{
		{Role: models.RoleUser, Content: prompt},
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(reply) == "" {
		reply = services.WebhookFallback
	}

	modelTurn := models.Turn{At: now, Role: models.RoleModel, Content: reply}
	if err := wc.store.AppendModelTurn(ctx, msg.From, modelTurn); err != nil {
		// The reply exists; still try to deliver it.
		log.Printf("failed to append model turn for %s: %v", msg.From, err)
	}

	if err := wc.sender.SendText(ctx, msg.From, reply); err != nil {
		log.Printf("delivery failed for %s: %v", msg.From, err)
	}
	return nil
}
