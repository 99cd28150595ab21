package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"shifted/chat"
	"shifted/config"
	"shifted/handlers"
	"shifted/routes"
	"shifted/store"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWTSecret:      "test-secret",
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	log := logrus.New()
	log.SetOutput(io.Discard)

	mem := store.NewMemory()
	messages := chat.NewMessages(mem, log)
	conversations := chat.NewConversations(mem, messages, chat.NewStoreProfiles(mem), log)

	h := handlers.NewHandler(cfg, mem, conversations, messages, log)
	return routes.SetupRouter(cfg, h)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		_ = json.Unmarshal(w.Body.Bytes(), &parsed)
	}
	return w, parsed
}

func signup(t *testing.T, router *gin.Engine, email, first, last string) (userID, token string) {
	t.Helper()
	w, resp := doJSON(t, router, http.MethodPost, "/api/signup", "", gin.H{
		"email":     email,
		"password":  "secret123",
		"firstName": first,
		"lastName":  last,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup %s: status %d body %s", email, w.Code, w.Body.String())
	}
	userID, _ = resp["userId"].(string)
	token, _ = resp["token"].(string)
	if userID == "" || token == "" {
		t.Fatalf("signup %s: missing userId/token in %v", email, resp)
	}
	return userID, token
}

func TestSignupLoginFlow(t *testing.T) {
	router := newTestServer(t)

	_, _ = signup(t, router, "jane@example.com", "Jane", "Doe")

	// Duplicate email rejected.
	w, _ := doJSON(t, router, http.MethodPost, "/api/signup", "", gin.H{
		"email":    "jane@example.com",
		"password": "secret123",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", w.Code)
	}

	w, resp := doJSON(t, router, http.MethodPost, "/api/login", "", gin.H{
		"email":    "jane@example.com",
		"password": "secret123",
	})
	if w.Code != http.StatusOK || resp["token"] == "" {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}

	w, _ = doJSON(t, router, http.MethodPost, "/api/login", "", gin.H{
		"email":    "jane@example.com",
		"password": "wrong-pass",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", w.Code)
	}
}

func TestChatFlow(t *testing.T) {
	router := newTestServer(t)

	u1, token1 := signup(t, router, "u1@example.com", "Alice", "Smith")
	u2, token2 := signup(t, router, "u2@example.com", "Bob", "Jones")

	// u1 opens the conversation.
	w, resp := doJSON(t, router, http.MethodPost, "/api/chats", token1, gin.H{
		"userId":       u2,
		"firstMessage": "Hi! Is this still available?",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create chat: %d %s", w.Code, w.Body.String())
	}
	chatID, _ := resp["id"].(string)
	if chatID == "" {
		t.Fatal("no chat id returned")
	}

	// u2 "creating" the same pair gets the same conversation.
	w, resp = doJSON(t, router, http.MethodPost, "/api/chats", token2, gin.H{
		"userId":       u1,
		"firstMessage": "ignored",
	})
	if w.Code != http.StatusCreated || resp["id"] != chatID {
		t.Fatalf("second create = %d %v, want id %s", w.Code, resp, chatID)
	}

	// Chat list resolves the counterpart name.
	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("Authorization", "Bearer "+token1)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat list: %d %s", rec.Code, rec.Body.String())
	}
	var list []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("chat list length = %d, want 1", len(list))
	}
	if list[0]["lastMessage"] != "Hi! Is this still available?" {
		t.Errorf("lastMessage = %v", list[0]["lastMessage"])
	}
	partner, _ := list[0]["partner"].(map[string]interface{})
	if partner["name"] != "Bob Jones" {
		t.Errorf("partner name = %v, want Bob Jones", partner["name"])
	}

	// u2 replies.
	w, _ = doJSON(t, router, http.MethodPost, "/api/message", token2, gin.H{
		"chatId": chatID,
		"text":   "Yes, it is!",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("send message: %d %s", w.Code, w.Body.String())
	}

	// Full log, oldest first.
	req = httptest.NewRequest(http.MethodGet, "/api/messages/"+chatID, nil)
	req.Header.Set("Authorization", "Bearer "+token1)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var msgs []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0]["text"] != "Hi! Is this still available?" || msgs[1]["text"] != "Yes, it is!" {
		t.Fatalf("messages = %v", msgs)
	}

	// Outsiders cannot read the log.
	_, token3 := signup(t, router, "u3@example.com", "Eve", "")
	req = httptest.NewRequest(http.MethodGet, "/api/messages/"+chatID, nil)
	req.Header.Set("Authorization", "Bearer "+token3)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("outsider read status = %d, want 403", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	router := newTestServer(t)

	w, _ := doJSON(t, router, http.MethodGet, "/api/chats", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	w, _ = doJSON(t, router, http.MethodGet, "/api/chats", "not-a-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", w.Code)
	}
}
