package services

import (
	"testing"

	"relay/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestTurnAttributeValueRoundTrip(t *testing.T) {
	turn := models.Turn{At: "2026-08-29T10:00:00Z", Role: models.RoleUser, Content: "oi"}

	item := map[string]types.AttributeValue{
		"LastMessageAt": &types.AttributeValueMemberS{Value: "2026-08-29T10:00:00Z"},
		"LastText":      &types.AttributeValueMemberS{Value: "oi"},
		"History":       &types.AttributeValueMemberL{Value: []types.AttributeValue{turnToAttributeValue(turn)}},
	}

	record := conversationFromItem("+5511", item)
	if record.UserID != "+5511" {
		t.Errorf("unexpected user id: %s", record.UserID)
	}
	if record.LastMessageAt != "2026-08-29T10:00:00Z" || record.LastText != "oi" {
		t.Errorf("unexpected merge fields: %+v", record)
	}
	if len(record.History) != 1 {
		t.Fatalf("expected one turn, got %d", len(record.History))
	}
	if record.History[0] != turn {
		t.Errorf("round trip mismatch: %+v", record.History[0])
	}
}

func TestConversationFromItem_SkipsMalformedEntries(t *testing.T) {
	item := map[string]types.AttributeValue{
		"History": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberS{Value: "not a map"},
			turnToAttributeValue(models.Turn{At: "t", Role: models.RoleModel, Content: "olá"}),
		}},
	}

	record := conversationFromItem("+5511", item)
	if len(record.History) != 1 {
		t.Fatalf("expected malformed entry skipped, got %d turns", len(record.History))
	}
	if record.History[0].Role != models.RoleModel {
		t.Errorf("unexpected turn: %+v", record.History[0])
	}
}

func TestChatKey(t *testing.T) {
	if got := chatKey("u1", "default"); got != "u1#default" {
		t.Errorf("unexpected chat key: %s", got)
	}
}
