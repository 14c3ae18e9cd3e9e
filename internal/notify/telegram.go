package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// telegramHTTPClient is a dedicated HTTP client for notifications,
// isolated from http.DefaultClient to avoid global state mutation.
var telegramHTTPClient = &http.Client{Timeout: 15 * time.Second}

// Telegram sends escalations through the Telegram Bot API.
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string // override for testing
}

// NewTelegram creates a Telegram notifier for the given bot and chat.
func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  "https://api.telegram.org",
	}
}

// SendEscalation posts the escalation as a sendMessage call and returns the
// Telegram message id. The chat is the configured default unless the
// escalation names its own channel.
func (t *Telegram) SendEscalation(ctx context.Context, esc Escalation) (string, error) {
	if t.botToken == "" {
		return "", fmt.Errorf("no Telegram bot token configured")
	}

	chat := t.chatID
	if esc.Channel != "" {
		chat = esc.Channel
	}

	payload := map[string]any{
		"chat_id":    chat,
		"text":       buildMessage(esc),
		"parse_mode": "Markdown",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling escalation payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating escalation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("sending escalation", "repository", esc.Repository, "pr", esc.PRNumber, "check", esc.CheckName)

	resp, err := telegramHTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending escalation: %w", err)
	}
	defer resp.Body.Close()

	// Drain the body so the connection can be reused.
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
		Result      struct {
			MessageID int64 `json:"message_id"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err == nil && !apiResp.OK {
		return "", fmt.Errorf("telegram API rejected message: %s", apiResp.Description)
	}

	messageID := strconv.FormatInt(apiResp.Result.MessageID, 10)
	slog.Debug("escalation sent", "repository", esc.Repository, "pr", esc.PRNumber, "message_id", messageID)
	return messageID, nil
}

// buildMessage renders the escalation as Telegram Markdown.
func buildMessage(esc Escalation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🚨 *Escalation: %s*\n\n", esc.Repository)
	fmt.Fprintf(&b, "PR #%d: %s\n", esc.PRNumber, esc.PRTitle)
	if esc.PRURL != "" {
		fmt.Fprintf(&b, "%s\n", esc.PRURL)
	}
	fmt.Fprintf(&b, "\n*Check:* %s\n", esc.CheckName)
	fmt.Fprintf(&b, "*Reason:* %s\n", esc.Reason)

	if esc.Attempts > 0 {
		fmt.Fprintf(&b, "*Fix attempts:* %d\n", esc.Attempts)
	}
	if len(esc.Mentions) > 0 {
		fmt.Fprintf(&b, "\ncc %s\n", strings.Join(esc.Mentions, " "))
	}

	return b.String()
}

// Verify Telegram implements Notifier at compile time.
var _ Notifier = (*Telegram)(nil)
