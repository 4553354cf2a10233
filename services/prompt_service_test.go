package services

import (
	"strings"
	"testing"

	"relay/models"
)

func TestBuildSinglePrompt_EmbedsQuestionAndDirective(t *testing.T) {
	record := models.Conversation{
		UserID:   "+5511",
		LastText: "bom dia",
		History:  []models.Turn{{At: "2026-08-29T10:00:00Z", Role: models.RoleUser, Content: "bom dia"}},
	}

	prompt := BuildSinglePrompt(record, "que horas tomo o remédio?", 800, "")
	if !strings.Contains(prompt, "Pergunta do usuário: que horas tomo o remédio?") {
		t.Errorf("prompt missing question: %s", prompt)
	}
	if !strings.Contains(prompt, "Responda em PT-BR") {
		t.Errorf("prompt missing response directive: %s", prompt)
	}
	if !strings.Contains(prompt, "assistente de rotina médica") {
		t.Errorf("prompt missing persona: %s", prompt)
	}
	if !strings.Contains(prompt, "bom dia") {
		t.Errorf("prompt missing history snapshot: %s", prompt)
	}
}

func TestBuildSinglePrompt_SnapshotBounded(t *testing.T) {
	record := models.Conversation{UserID: "+5511"}
	for i := 0; i < 100; i++ {
		record.History = append(record.History, models.Turn{
			At: "2026-08-29T10:00:00Z", Role: models.RoleUser, Content: strings.Repeat("z", 100),
		})
	}

	prompt := BuildSinglePrompt(record, "oi", 800, "")
	// Prompt = persona + bounded snapshot + question + directive; the
	// snapshot contributes at most 800 runes.
	if len([]rune(prompt)) > 1000 {
		t.Fatalf("prompt grew past the snapshot bound: %d runes", len([]rune(prompt)))
	}
}

func TestBuildSinglePrompt_IncludesDigest(t *testing.T) {
	prompt := BuildSinglePrompt(models.Conversation{}, "oi", 800, "usuário toma losartana às 8h")
	if !strings.Contains(prompt, "Resumo de conversas anteriores: usuário toma losartana às 8h") {
		t.Errorf("prompt missing digest context: %s", prompt)
	}
}
