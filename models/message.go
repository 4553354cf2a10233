package models

// ChatMessage is a role-tagged message as exchanged with the generation
// service and the direct-chat endpoint.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Window returns the last n messages, oldest first. It never mutates the
// input and returns it unchanged when it already fits.
func Window(messages []ChatMessage, n int) []ChatMessage {
	if n <= 0 {
		return nil
	}
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}

// TruncateRunes caps s at max runes so multibyte text is never split.
func TruncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// Sanitize bounds a caller-supplied transcript before prompting: keeps the
// last window entries in order, caps each content at maxRunes, and collapses
// every role other than "model" to "user".
func Sanitize(messages []ChatMessage, window, maxRunes int) []ChatMessage {
	bounded := Window(messages, window)
	out := make([]ChatMessage, 0, len(bounded))
	for _, m := range bounded {
		role := RoleUser
		if m.Role == RoleModel {
			role = RoleModel
		}
		out = append(out, ChatMessage{
			Role:    role,
			Content: TruncateRunes(m.Content, maxRunes),
		})
	}
	return out
}
