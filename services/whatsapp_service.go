package services

import (
	"context"
	"fmt"
	"time"

	"relay/models"

	"github.com/go-resty/resty/v2"
)

// WhatsAppClient sends text messages through the Cloud API.
type WhatsAppClient struct {
	client  *resty.Client
	phoneID string
	token   string
}

func NewWhatsAppClient(apiBase, token, phoneID string, timeout time.Duration) *WhatsAppClient {
	return &WhatsAppClient{
		client:  resty.New().SetBaseURL(apiBase).SetTimeout(timeout),
		phoneID: phoneID,
		token:   token,
	}
}

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

// SendText posts one text message to the recipient.
func (w *WhatsAppClient) SendText(ctx context.Context, to, text string) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+w.token).
		SetHeader("Content-Type", "application/json").
		SetBody(whatsAppMessage{
			MessagingProduct: "whatsapp",
			To:               to,
			Type:             "text",
			Text:             whatsAppText{Body: text},
		}).
		Post(fmt.Sprintf("/%s/messages", w.phoneID))
	if err != nil {
		return fmt.Errorf("whatsapp send request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("whatsapp send non-success status=%d body=%s",
			resp.StatusCode(), models.TruncateRunes(resp.String(), 400))
	}
	return nil
}
