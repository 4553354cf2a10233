package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"relay/models"
)

// Fallback replies when generation yields no usable content.
const (
	WebhookFallback = "Não consegui gerar uma resposta agora."
	ChatFallback    = "Desculpe, não consegui responder agora."
)

// BuildSinglePrompt synthesizes the webhook-side prompt: persona, a short
// JSON snapshot of the prior record, the inbound question and the response
// directive. The snapshot is truncated to snapshotRunes so an
// ever-appending history cannot grow the prompt without bound. A non-empty
// digest (summary of older conversations) is prepended as extra context.
func BuildSinglePrompt(record models.Conversation, text string, snapshotRunes int, digest string) string {
	snapshot, err := json.Marshal(record)
	if err != nil {
		snapshot = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("Você é um assistente de rotina médica. ")
	if digest != "" {
		fmt.Fprintf(&b, "Resumo de conversas anteriores: %s. ", digest)
	}
	fmt.Fprintf(&b, "Histórico curto: %s.\n", models.TruncateRunes(string(snapshot), snapshotRunes))
	fmt.Fprintf(&b, "Pergunta do usuário: %s\n", text)
	b.WriteString("Responda em PT-BR, breve e útil.")
	return b.String()
}
