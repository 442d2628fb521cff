package ai

import (
	"log"
	"strings"

	"daily_loop/internal/models"
)

// ParseAction extracts the trading action and reason from a model reply.
// Only a line starting with "ACTION:" counts, so the words BUY/SELL in
// free text cannot trigger a trade. Anything unparseable or invalid
// degrades to HOLD.
func ParseAction(text string) (action, reason string) {
	reason = "No reason provided"
	if idx := strings.Index(text, "REASON:"); idx >= 0 {
		rest := strings.TrimSpace(text[idx+len("REASON:"):])
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}
		reason = strings.TrimSpace(rest)
	}

	action = models.ActionHold
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToUpper(stripped), "ACTION:") {
			continue
		}
		candidate := strings.ToUpper(strings.TrimSpace(stripped[len("ACTION:"):]))
		switch candidate {
		case models.ActionBuy, models.ActionSell, models.ActionHold:
			action = candidate
		default:
			log.Printf("WARNING: invalid ACTION value from Grok: %q, defaulting to HOLD", candidate)
		}
		break
	}

	return action, reason
}
