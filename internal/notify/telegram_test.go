package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendEscalationPostsToBotAPI(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"ok": true, "result": {"message_id": 4242}}`)
	}))
	defer server.Close()

	tg := NewTelegram("test-token", "-100555")
	tg.baseURL = server.URL

	messageID, err := tg.SendEscalation(t.Context(), Escalation{
		Repository: "acme/widgets",
		PRNumber:   7,
		PRTitle:    "fix build",
		CheckName:  "tests",
		Reason:     "maximum fix attempts (3) exhausted",
		Attempts:   3,
		Mentions:   []string{"@dev-lead"},
	})
	require.NoError(t, err)

	assert.Equal(t, "4242", messageID)
	assert.Equal(t, "-100555", got["chat_id"])
	text, _ := got["text"].(string)
	assert.Contains(t, text, "acme/widgets")
	assert.Contains(t, text, "PR #7")
	assert.Contains(t, text, "maximum fix attempts (3) exhausted")
	assert.Contains(t, text, "tests")
	assert.Contains(t, text, "@dev-lead")
}

func TestSendEscalationChannelOverride(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"ok": true}`)
	}))
	defer server.Close()

	tg := NewTelegram("test-token", "-100555")
	tg.baseURL = server.URL

	_, err := tg.SendEscalation(t.Context(), Escalation{Repository: "acme/widgets", Channel: "@dev-alerts"})
	require.NoError(t, err)
	assert.Equal(t, "@dev-alerts", got["chat_id"])
}

func TestSendEscalationAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok": false, "description": "chat not found"}`)
	}))
	defer server.Close()

	tg := NewTelegram("test-token", "-100555")
	tg.baseURL = server.URL

	_, err := tg.SendEscalation(t.Context(), Escalation{Repository: "acme/widgets"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestSendEscalationRejectedResponse(t *testing.T) {
	// HTTP 200 but ok:false still counts as a delivery failure.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": false, "description": "blocked by user"}`)
	}))
	defer server.Close()

	tg := NewTelegram("test-token", "-100555")
	tg.baseURL = server.URL

	_, err := tg.SendEscalation(t.Context(), Escalation{Repository: "acme/widgets"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked by user")
}

func TestSendEscalationNoToken(t *testing.T) {
	tg := NewTelegram("", "-100555")
	_, err := tg.SendEscalation(t.Context(), Escalation{Repository: "acme/widgets"})
	require.Error(t, err)
}
