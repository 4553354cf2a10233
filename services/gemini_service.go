package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"relay/models"

	"github.com/go-resty/resty/v2"
)

// GeminiClient calls the Generative Language API generateContent endpoint.
type GeminiClient struct {
	client *resty.Client
	apiKey string
	model  string
}

func NewGeminiClient(apiBase, apiKey, model string, timeout time.Duration) *GeminiClient {
	return &GeminiClient{
		client: resty.New().SetBaseURL(apiBase).SetTimeout(timeout),
		apiKey: apiKey,
		model:  model,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends the transcript and returns the first candidate's first
// text part. Gemini only knows the roles "user" and "model"; anything else
// is sent as "user".
func (g *GeminiClient) Generate(ctx context.Context, messages []models.ChatMessage) (string, error) {
	contents := make([]geminiContent, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == models.RoleModel {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", g.apiKey).
		SetBody(geminiRequest{Contents: contents}).
		Post(fmt.Sprintf("/models/%s:generateContent", g.model))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("gemini non-success status=%d body=%s",
			resp.StatusCode(), models.TruncateRunes(resp.String(), 400))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}
