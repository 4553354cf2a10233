package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"relay/models"
	"relay/services"

	"github.com/gin-gonic/gin"
)

func chatRouter(store *fakeStore, gen *fakeGenerator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cc := NewChatController(store, gen, 12, 4000, 5*time.Second)
	r := gin.New()
	r.POST("/chat", cc.HandleChat)
	return r
}

func postChat(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleChat_MissingFields(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing uid", `{"messages": [{"role": "user", "content": "hi"}]}`},
		{"missing messages", `{"uid": "u1"}`},
		{"messages not an array", `{"uid": "u1", "messages": "hi"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{}
			gen := &fakeGenerator{reply: "hello"}
			w := postChat(t, chatRouter(store, gen), tc.body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if len(gen.calls) != 0 || len(store.saved) != 0 {
				t.Error("invalid request must not reach generation or persistence")
			}
		})
	}
}

func TestHandleChat_DefaultChatID(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{reply: "hello there"}
	w := postChat(t, chatRouter(store, gen),
		`{"uid": "u1", "messages": [{"role": "user", "content": "hi"}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Reply != "hello there" {
		t.Errorf("unexpected reply: %q", resp.Reply)
	}

	if len(store.saved) != 1 {
		t.Fatalf("expected one persisted message, got %d", len(store.saved))
	}
	saved := store.saved[0]
	if saved.uid != "u1" || saved.chatID != "default" {
		t.Errorf("expected persistence under u1/default, got %s/%s", saved.uid, saved.chatID)
	}
	if saved.msg.Role != models.RoleModel || saved.msg.Content != "hello there" {
		t.Errorf("unexpected persisted message: %+v", saved.msg)
	}
}

func TestHandleChat_ExplicitChatID(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{reply: "ok"}
	w := postChat(t, chatRouter(store, gen),
		`{"uid": "u1", "chatId": "checkup", "messages": [{"role": "user", "content": "hi"}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if store.saved[0].chatID != "checkup" {
		t.Errorf("expected chat id checkup, got %s", store.saved[0].chatID)
	}
}

func TestHandleChat_WindowsTranscript(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{reply: "ok"}

	var messages []string
	for i := 0; i < 15; i++ {
		messages = append(messages, fmt.Sprintf(`{"role": "user", "content": "m%d"}`, i))
	}
	body := fmt.Sprintf(`{"uid": "u1", "messages": [%s]}`, strings.Join(messages, ","))

	w := postChat(t, chatRouter(store, gen), body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	if len(gen.calls) != 1 {
		t.Fatalf("expected one generation call, got %d", len(gen.calls))
	}
	sent := gen.calls[0]
	if len(sent) != 12 {
		t.Fatalf("expected transcript bounded to 12, got %d", len(sent))
	}
	if sent[0].Content != "m3" || sent[11].Content != "m14" {
		t.Errorf("window out of order: first %q last %q", sent[0].Content, sent[11].Content)
	}
}

func TestHandleChat_TruncatesStoredReply(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{reply: strings.Repeat("r", 5000)}
	w := postChat(t, chatRouter(store, gen),
		`{"uid": "u1", "messages": [{"role": "user", "content": "hi"}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := len([]rune(store.saved[0].msg.Content)); got != 4000 {
		t.Fatalf("expected stored reply truncated to 4000 runes, got %d", got)
	}
}

func TestHandleChat_GenerationFailure(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{err: errors.New("model down")}
	w := postChat(t, chatRouter(store, gen),
		`{"uid": "u1", "messages": [{"role": "user", "content": "hi"}]}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if len(store.saved) != 0 {
		t.Error("nothing must be persisted when generation fails")
	}
}

func TestHandleChat_PersistenceFailure(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("dynamo down")}
	gen := &fakeGenerator{reply: "ok"}
	w := postChat(t, chatRouter(store, gen),
		`{"uid": "u1", "messages": [{"role": "user", "content": "hi"}]}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestHandleChat_EmptyReplyUsesFallback(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{reply: "  "}
	w := postChat(t, chatRouter(store, gen),
		`{"uid": "u1", "messages": [{"role": "user", "content": "hi"}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Reply != services.ChatFallback {
		t.Errorf("expected fallback reply, got %q", resp.Reply)
	}
}
