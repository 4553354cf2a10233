package models

import "strings"

// WebhookPayload mirrors the nesting of the provider's event delivery
// body. Only the fields the relay reads are declared.
type WebhookPayload struct {
	Entry []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	Messages []WebhookMessage `json:"messages"`
}

type WebhookMessage struct {
	From string       `json:"from"`
	Text *MessageText `json:"text"`
}

type MessageText struct {
	Body string `json:"body"`
}

// InboundMessage is the actionable part of a webhook event.
type InboundMessage struct {
	From string
	Text string
}

// ExtractMessage walks entry[0].changes[0].value.messages[0] and reports
// whether an actionable message was found. Absence at any level is a
// no-op, not an error: status callbacks and other provider payloads land
// here and must be acknowledged without side effects.
func ExtractMessage(p WebhookPayload) (InboundMessage, bool) {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return InboundMessage{}, false
	}
	msgs := p.Entry[0].Changes[0].Value.Messages
	if len(msgs) == 0 {
		return InboundMessage{}, false
	}
	msg := msgs[0]
	if msg.From == "" {
		return InboundMessage{}, false
	}
	text := ""
	if msg.Text != nil {
		text = strings.TrimSpace(msg.Text.Body)
	}
	return InboundMessage{From: msg.From, Text: text}, true
}
