package models

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one role-tagged entry in a user's stored history.
type Turn struct {
	At      string `json:"at"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the per-user document held by the store. History is
// append-only; lastMessageAt/lastText are last-write-wins.
type Conversation struct {
	UserID        string `json:"user_id"`
	LastMessageAt string `json:"lastMessageAt"`
	LastText      string `json:"lastText"`
	History       []Turn `json:"history"`
}
