package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Notifier pushes operator alerts to a Telegram chat. A nil Notifier is
// valid and drops every message, so call sites never need to branch on
// whether alerting is configured.
type Notifier struct {
	token  string
	chatID string
	client *http.Client
}

// New returns a Notifier, or nil when either credential is missing.
func New(botToken, chatID string) *Notifier {
	if botToken == "" || chatID == "" {
		return nil
	}
	return &Notifier{
		token:  botToken,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Alert sends a message to the configured chat. Failures are logged and
// swallowed: alerting must never take down a trading cycle.
func (n *Notifier) Alert(text string) {
	if n == nil {
		return
	}

	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("WARNING: telegram payload marshal: %v", err)
		return
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.token)
	resp, err := n.client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		log.Printf("WARNING: telegram send failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("WARNING: telegram API returned status %s", resp.Status)
	}
}
