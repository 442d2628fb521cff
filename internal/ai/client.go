package ai

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"

	"daily_loop/internal/config"
	"daily_loop/internal/models"
)

// Client talks to the Grok chat-completions endpoint. The request is
// bounded by an explicit timeout; any transport error or non-200 aborts
// the cycle with no trade attempted.
type Client struct {
	http  *resty.Client
	model string
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewClient(cfg *config.Config) *Client {
	http := resty.New()
	http.SetBaseURL(cfg.Grok.BaseURL)
	http.SetTimeout(time.Duration(cfg.Grok.TimeoutSecs) * time.Second)
	http.SetAuthToken(cfg.Grok.APIKey)
	http.SetHeader("Content-Type", "application/json")

	return &Client{http: http, model: cfg.Grok.Model}
}

// Decide sends the decision packet and returns the parsed action and
// reason. Unparseable replies default to HOLD at the parse level (see
// ParseAction); only transport/HTTP failures surface as errors.
func (c *Client) Decide(pkt *models.Packet) (action, reason string, err error) {
	packetJSON, err := json.Marshal(pkt)
	if err != nil {
		return "", "", fmt.Errorf("marshal packet: %w", err)
	}

	log.Println("Sending data packet to Grok for analysis...")

	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: BuildPrompt(string(packetJSON))},
		},
	}

	var result chatResponse
	resp, err := c.http.R().
		SetBody(body).
		SetResult(&result).
		Post("/chat/completions")
	if err != nil {
		return "", "", fmt.Errorf("grok request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", "", fmt.Errorf("grok API error %d: %s", resp.StatusCode(), resp.String())
	}
	if len(result.Choices) == 0 {
		return "", "", fmt.Errorf("grok response has no choices")
	}

	text := result.Choices[0].Message.Content
	log.Printf("Grok response: %s", text)

	action, reason = ParseAction(text)
	return action, reason, nil
}
