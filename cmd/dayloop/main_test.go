package main

import (
	"testing"

	"daily_loop/internal/config"
)

func TestAlpacaCredsPresent(t *testing.T) {
	cfg := &config.Config{}
	if alpacaCredsPresent(cfg) {
		t.Error("no credentials should count as absent")
	}

	cfg.Alpaca.APIKey = "key"
	if alpacaCredsPresent(cfg) {
		t.Error("a key without its secret cannot authenticate")
	}

	cfg.Alpaca.SecretKey = "secret"
	if !alpacaCredsPresent(cfg) {
		t.Error("both credentials set should count as present")
	}

	cfg.Alpaca.APIKey = ""
	if alpacaCredsPresent(cfg) {
		t.Error("a secret without its key cannot authenticate")
	}
}
