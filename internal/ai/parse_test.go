package ai

import (
	"strings"
	"testing"
)

func TestParseAction_WellFormed(t *testing.T) {
	action, reason := ParseAction("ACTION: BUY\nREASON: RSI oversold in bullish trend")
	if action != "BUY" {
		t.Errorf("action = %q, want BUY", action)
	}
	if reason != "RSI oversold in bullish trend" {
		t.Errorf("reason = %q", reason)
	}
}

func TestParseAction_LowercaseAndPadding(t *testing.T) {
	action, _ := ParseAction("  action:  sell  \nREASON: taking profit")
	if action != "SELL" {
		t.Errorf("action = %q, want SELL", action)
	}
}

func TestParseAction_InvalidTokenDefaultsHold(t *testing.T) {
	action, _ := ParseAction("ACTION: SHORT\nREASON: bearish breakdown")
	if action != "HOLD" {
		t.Errorf("action = %q, want HOLD for invalid token", action)
	}
}

func TestParseAction_MissingActionLine(t *testing.T) {
	action, reason := ParseAction("The market looks uncertain, I would buy cautiously.")
	if action != "HOLD" {
		t.Errorf("action = %q, want HOLD when no ACTION line", action)
	}
	if reason != "No reason provided" {
		t.Errorf("reason = %q, want default", reason)
	}
}

func TestParseAction_FreeTextBuyDoesNotTrigger(t *testing.T) {
	// BUY appearing mid-sentence must not count as a decision.
	text := "I considered BUY but the regime is risky.\nACTION: HOLD\nREASON: elevated volatility"
	action, _ := ParseAction(text)
	if action != "HOLD" {
		t.Errorf("action = %q, want HOLD", action)
	}
}

func TestParseAction_FirstActionLineWins(t *testing.T) {
	action, _ := ParseAction("ACTION: SELL\nACTION: BUY\nREASON: contradictory reply")
	if action != "SELL" {
		t.Errorf("action = %q, want first ACTION line to win", action)
	}
}

func TestParseAction_ReasonBeforeAction(t *testing.T) {
	action, reason := ParseAction("REASON: momentum confirmed\nACTION: BUY")
	if action != "BUY" || reason != "momentum confirmed" {
		t.Errorf("got (%q, %q)", action, reason)
	}
}

func TestParseAction_MultilineReasonTruncated(t *testing.T) {
	_, reason := ParseAction("ACTION: HOLD\nREASON: first line\nsecond line ignored")
	if reason != "first line" {
		t.Errorf("reason = %q, want only first line", reason)
	}
}

func TestParseAction_EmptyInput(t *testing.T) {
	action, reason := ParseAction("")
	if action != "HOLD" || reason != "No reason provided" {
		t.Errorf("got (%q, %q), want safe defaults", action, reason)
	}
}

func TestBuildPrompt_EmbedsPacket(t *testing.T) {
	p := BuildPrompt(`{"symbol":"MSFT"}`)
	if !strings.Contains(p, `{"symbol":"MSFT"}`) {
		t.Error("prompt is missing the packet payload")
	}
	if !strings.Contains(p, "ACTION: <BUY or SELL or HOLD>") {
		t.Error("prompt is missing the output contract")
	}
}
