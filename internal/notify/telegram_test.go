package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramSenderPostsMessage(t *testing.T) {
	var got telegramMessage
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	sender := NewTelegramSender("bot-token", "chat-42")
	sender.apiBase = srv.URL

	err := sender.Send(context.Background(), "Market refresh failing", "all venues failed")
	require.NoError(t, err)

	assert.Equal(t, "/botbot-token/sendMessage", path)
	assert.Equal(t, "chat-42", got.ChatID)
	assert.Equal(t, "*Market refresh failing*\nall venues failed", got.Text)
	assert.Equal(t, "Markdown", got.ParseMode)
	assert.True(t, got.DisableLinkPreview)
}

func TestTelegramSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	sender := NewTelegramSender("bot-token", "nope")
	sender.apiBase = srv.URL

	err := sender.Send(context.Background(), "title", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400")
	assert.Contains(t, err.Error(), "chat not found")
}
