package services

import (
	"strings"
	"testing"

	"relay/models"
)

func TestBuildDigestPrompt(t *testing.T) {
	turns := []models.Turn{
		{At: "2026-08-29T10:00:00Z", Role: models.RoleUser, Content: "tomei o remédio"},
		{At: "2026-08-29T10:00:05Z", Role: models.RoleModel, Content: "ótimo, anotado"},
	}

	prompt := buildDigestPrompt(turns)
	lines := strings.Split(strings.TrimRight(prompt, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one line per turn, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "user: tomei o remédio") {
		t.Errorf("unexpected first line: %s", lines[0])
	}
	if !strings.Contains(lines[1], "model: ótimo, anotado") {
		t.Errorf("unexpected second line: %s", lines[1])
	}
}
